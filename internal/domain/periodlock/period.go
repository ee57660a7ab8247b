package periodlock

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/commandx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MaxPeriodNameLength bounds LockedPeriod.Name
const MaxPeriodNameLength = 100

// LockedPeriod is a named accounting period. Both bounds are inclusive.
// Periods may overlap; the evaluator takes the first locked match.
type LockedPeriod struct {
	shared.BaseEntity
	TenantID  uuid.UUID
	Name      string
	StartDate CalendarDate
	EndDate   CalendarDate
	IsLocked  bool
	LockedAt  *time.Time
	LockedBy  *uuid.UUID
}

// NewLockedPeriod creates a period, optionally already locked
func NewLockedPeriod(tenantID uuid.UUID, name string, start, end CalendarDate, locked bool, userID uuid.UUID) (*LockedPeriod, error) {
	p := &LockedPeriod{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		Name:       strings.TrimSpace(name),
		StartDate:  start,
		EndDate:    end,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if locked {
		p.Lock(userID)
	}
	return p, nil
}

// Validate checks the period invariants
func (p *LockedPeriod) Validate() error {
	if p.Name == "" || utf8.RuneCountInString(p.Name) > MaxPeriodNameLength {
		return ErrInvalidPeriodName
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return ErrInvalidDate
	}
	if p.StartDate.After(p.EndDate) {
		return ErrInvalidPeriodRange
	}
	return nil
}

// Update renames and/or reschedules the period
func (p *LockedPeriod) Update(name string, start, end CalendarDate) error {
	next := *p
	next.Name = strings.TrimSpace(name)
	next.StartDate = start
	next.EndDate = end
	if err := next.Validate(); err != nil {
		return err
	}
	p.Name, p.StartDate, p.EndDate = next.Name, next.StartDate, next.EndDate
	p.UpdatedAt = time.Now()
	return nil
}

// Lock closes the period for changes
func (p *LockedPeriod) Lock(userID uuid.UUID) {
	if p.IsLocked {
		return
	}
	now := time.Now()
	p.IsLocked = true
	p.LockedAt = &now
	if userID != uuid.Nil {
		p.LockedBy = &userID
	}
	p.UpdatedAt = now
}

// Unlock reopens the period
func (p *LockedPeriod) Unlock() {
	if !p.IsLocked {
		return
	}
	p.IsLocked = false
	p.LockedAt = nil
	p.LockedBy = nil
	p.UpdatedAt = time.Now()
}

// Contains reports whether d falls within [StartDate, EndDate], regardless of lock state.
func (p LockedPeriod) Contains(d CalendarDate) bool {
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

// Locks reports whether the period is locked and contains d
func (p LockedPeriod) Locks(d CalendarDate) bool {
	return p.IsLocked && p.Contains(d)
}
