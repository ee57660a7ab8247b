package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/google/uuid"
)

// CompanySettingsModel holds the per-tenant global lock
type CompanySettingsModel struct {
	TenantID              uuid.UUID  `gorm:"type:uuid;primary_key"`
	LockPeriodEnabled     bool       `gorm:"not null;default:false"`
	LockPeriodCutoffDate  *time.Time `gorm:"type:date"`
	AccountingCutoverDate *time.Time `gorm:"type:date"`
	UpdatedBy             *uuid.UUID `gorm:"type:uuid"`
	CreatedAt             time.Time  `gorm:"not null"`
	UpdatedAt             time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CompanySettingsModel) TableName() string {
	return "company_settings"
}

// ToDomain converts the row to a GlobalLockSetting
func (m *CompanySettingsModel) ToDomain() periodlock.GlobalLockSetting {
	s := periodlock.GlobalLockSetting{
		TenantID:    m.TenantID,
		Enabled:     m.LockPeriodEnabled,
		CutoffDate:  optionalDate(m.LockPeriodCutoffDate),
		CutoverDate: optionalDate(m.AccountingCutoverDate),
		UpdatedAt:   m.UpdatedAt,
	}
	if m.UpdatedBy != nil {
		s.UpdatedBy = *m.UpdatedBy
	}
	return s
}

// CompanySettingsModelFromDomain creates a row from a GlobalLockSetting
func CompanySettingsModelFromDomain(s *periodlock.GlobalLockSetting) *CompanySettingsModel {
	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	m := &CompanySettingsModel{
		TenantID:              s.TenantID,
		LockPeriodEnabled:     s.Enabled,
		LockPeriodCutoffDate:  optionalDateColumn(s.CutoffDate),
		AccountingCutoverDate: optionalDateColumn(s.CutoverDate),
		CreatedAt:             updatedAt,
		UpdatedAt:             updatedAt,
	}
	if s.UpdatedBy != uuid.Nil {
		updatedBy := s.UpdatedBy
		m.UpdatedBy = &updatedBy
	}
	return m
}

// AccountingPeriodModel is a named, optionally locked, date range
type AccountingPeriodModel struct {
	BaseModel
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_accounting_periods_lookup,priority:1"`
	Name      string     `gorm:"type:varchar(100);not null"`
	StartDate time.Time  `gorm:"type:date;not null;index:idx_accounting_periods_lookup,priority:3"`
	EndDate   time.Time  `gorm:"type:date;not null"`
	IsLocked  bool       `gorm:"not null;default:false;index:idx_accounting_periods_lookup,priority:2"`
	LockedAt  *time.Time `gorm:""`
	LockedBy  *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (AccountingPeriodModel) TableName() string {
	return "accounting_periods"
}

// ToDomain converts the row to a LockedPeriod. A row whose bounds are
// missing or inverted is rejected rather than dropped.
func (m *AccountingPeriodModel) ToDomain() (*periodlock.LockedPeriod, error) {
	start := periodlock.DateOf(m.StartDate)
	end := periodlock.DateOf(m.EndDate)
	if start.IsZero() || end.IsZero() || start.After(end) {
		return nil, fmt.Errorf("malformed accounting period %s: start %q end %q", m.ID, start, end)
	}
	return &periodlock.LockedPeriod{
		BaseEntity: m.BaseModel.ToDomain(),
		TenantID:   m.TenantID,
		Name:       m.Name,
		StartDate:  start,
		EndDate:    end,
		IsLocked:   m.IsLocked,
		LockedAt:   m.LockedAt,
		LockedBy:   m.LockedBy,
	}, nil
}

// AccountingPeriodModelFromDomain creates a row from a LockedPeriod
func AccountingPeriodModelFromDomain(p *periodlock.LockedPeriod) *AccountingPeriodModel {
	m := &AccountingPeriodModel{
		TenantID:  p.TenantID,
		Name:      p.Name,
		StartDate: dateColumn(p.StartDate),
		EndDate:   dateColumn(p.EndDate),
		IsLocked:  p.IsLocked,
		LockedAt:  p.LockedAt,
		LockedBy:  p.LockedBy,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// LockedPeriodViolationModel is one blocked attempt
type LockedPeriodViolationModel struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_violations_tenant_created,priority:1"`
	UserID           *uuid.UUID `gorm:"type:uuid;index"`
	EntityType       string     `gorm:"type:varchar(50);not null"`
	EntityID         *uuid.UUID `gorm:"type:uuid"`
	AttemptedDate    time.Time  `gorm:"type:date;not null"`
	LockedPeriodDate *time.Time `gorm:"type:date"`
	Action           string     `gorm:"type:varchar(20);not null"`
	Blocked          bool       `gorm:"not null;default:true"`
	Details          string     `gorm:"type:jsonb"`
	CreatedAt        time.Time  `gorm:"not null;index:idx_violations_tenant_created,priority:2"`
}

// TableName returns the table name for GORM
func (LockedPeriodViolationModel) TableName() string {
	return "locked_period_violations"
}

// ToDomain converts the row to a Violation
func (m *LockedPeriodViolationModel) ToDomain() periodlock.Violation {
	v := periodlock.Violation{
		ID:               m.ID,
		TenantID:         m.TenantID,
		EntityType:       m.EntityType,
		EntityID:         m.EntityID,
		AttemptedDate:    periodlock.DateOf(m.AttemptedDate),
		LockedPeriodDate: optionalDate(m.LockedPeriodDate),
		Action:           periodlock.Action(m.Action),
		Blocked:          m.Blocked,
		CreatedAt:        m.CreatedAt,
	}
	if m.UserID != nil {
		v.UserID = *m.UserID
	}
	if m.Details != "" {
		_ = json.Unmarshal([]byte(m.Details), &v.Details)
	}
	return v
}

// LockedPeriodViolationModelFromDomain creates a row from a Violation
func LockedPeriodViolationModelFromDomain(v *periodlock.Violation) *LockedPeriodViolationModel {
	m := &LockedPeriodViolationModel{
		ID:               v.ID,
		TenantID:         v.TenantID,
		EntityType:       v.EntityType,
		EntityID:         v.EntityID,
		AttemptedDate:    dateColumn(v.AttemptedDate),
		LockedPeriodDate: optionalDateColumn(v.LockedPeriodDate),
		Action:           v.Action.String(),
		Blocked:          v.Blocked,
		CreatedAt:        v.CreatedAt,
	}
	if v.UserID != uuid.Nil {
		userID := v.UserID
		m.UserID = &userID
	}
	if b, err := json.Marshal(v.Details); err == nil {
		m.Details = string(b)
	}
	return m
}
