package models

import (
	"encoding/json"
	"time"

	"github.com/commandx/backend/internal/domain/integration"
	"github.com/google/uuid"
)

// QuickBooksMappingModel links a local record to its QuickBooks entity
type QuickBooksMappingModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_qb_mappings_local,priority:1"`
	EntityType    string     `gorm:"type:varchar(30);not null;index:idx_qb_mappings_local,priority:2"`
	LocalID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_qb_mappings_local,priority:3"`
	QuickBooksID  string     `gorm:"column:quickbooks_id;type:varchar(50);not null"`
	SyncStatus    string     `gorm:"type:varchar(20);not null;default:'pending'"`
	LastSyncedAt  *time.Time `gorm:""`
	LastSyncError string     `gorm:"type:text"`
	CreatedAt     time.Time  `gorm:"not null"`
	UpdatedAt     time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (QuickBooksMappingModel) TableName() string {
	return "quickbooks_mappings"
}

// ToDomain converts the row to a Mapping
func (m *QuickBooksMappingModel) ToDomain() *integration.Mapping {
	return &integration.Mapping{
		ID:            m.ID,
		TenantID:      m.TenantID,
		EntityType:    m.EntityType,
		LocalID:       m.LocalID,
		QuickBooksID:  m.QuickBooksID,
		SyncStatus:    integration.SyncStatus(m.SyncStatus),
		LastSyncedAt:  m.LastSyncedAt,
		LastSyncError: m.LastSyncError,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// QuickBooksMappingModelFromDomain creates a row from a Mapping
func QuickBooksMappingModelFromDomain(mp *integration.Mapping) *QuickBooksMappingModel {
	return &QuickBooksMappingModel{
		ID:            mp.ID,
		TenantID:      mp.TenantID,
		EntityType:    mp.EntityType,
		LocalID:       mp.LocalID,
		QuickBooksID:  mp.QuickBooksID,
		SyncStatus:    string(mp.SyncStatus),
		LastSyncedAt:  mp.LastSyncedAt,
		LastSyncError: mp.LastSyncError,
		CreatedAt:     mp.CreatedAt,
		UpdatedAt:     mp.UpdatedAt,
	}
}

// QuickBooksSyncLogModel is one sync attempt
type QuickBooksSyncLogModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID     uuid.UUID `gorm:"type:uuid;not null;index:idx_qb_sync_log_tenant_created,priority:1"`
	EntityType   string    `gorm:"type:varchar(30);not null"`
	EntityID     uuid.UUID `gorm:"type:uuid;not null;index"`
	QuickBooksID string    `gorm:"column:quickbooks_id;type:varchar(50)"`
	Action       string    `gorm:"type:varchar(20);not null"`
	Status       string    `gorm:"type:varchar(20);not null"`
	Message      string    `gorm:"type:text"`
	Details      string    `gorm:"type:jsonb"`
	CreatedAt    time.Time `gorm:"not null;index:idx_qb_sync_log_tenant_created,priority:2"`
}

// TableName returns the table name for GORM
func (QuickBooksSyncLogModel) TableName() string {
	return "quickbooks_sync_log"
}

// ToDomain converts the row to a SyncLogEntry
func (m *QuickBooksSyncLogModel) ToDomain() integration.SyncLogEntry {
	e := integration.SyncLogEntry{
		ID:           m.ID,
		TenantID:     m.TenantID,
		EntityType:   m.EntityType,
		EntityID:     m.EntityID,
		QuickBooksID: m.QuickBooksID,
		Action:       m.Action,
		Status:       integration.SyncOutcome(m.Status),
		Message:      m.Message,
		Details:      map[string]any{},
		CreatedAt:    m.CreatedAt,
	}
	if m.Details != "" {
		_ = json.Unmarshal([]byte(m.Details), &e.Details)
	}
	return e
}

// QuickBooksSyncLogModelFromDomain creates a row from a SyncLogEntry
func QuickBooksSyncLogModelFromDomain(e *integration.SyncLogEntry) *QuickBooksSyncLogModel {
	return &QuickBooksSyncLogModel{
		ID:           e.ID,
		TenantID:     e.TenantID,
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		QuickBooksID: e.QuickBooksID,
		Action:       e.Action,
		Status:       string(e.Status),
		Message:      e.Message,
		Details:      marshalJSON(e.Details),
		CreatedAt:    e.CreatedAt,
	}
}

// QuickBooksAPILogModel is one outbound QuickBooks API call
type QuickBooksAPILogModel struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	FunctionName       string     `gorm:"type:varchar(100);not null"`
	EntityType         string     `gorm:"type:varchar(30)"`
	EntityID           *uuid.UUID `gorm:"type:uuid"`
	QuickBooksEntityID string     `gorm:"column:quickbooks_entity_id;type:varchar(50)"`
	Method             string     `gorm:"type:varchar(10);not null"`
	Endpoint           string     `gorm:"type:text;not null"`
	HTTPStatus         int        `gorm:"column:http_status"`
	RequestPayload     string     `gorm:"type:jsonb"`
	ResponsePayload    string     `gorm:"type:jsonb"`
	ErrorMessage       string     `gorm:"type:text"`
	InitiatedBy        *uuid.UUID `gorm:"type:uuid"`
	RequestSentAt      time.Time  `gorm:"not null"`
	ResponseReceivedAt *time.Time
}

// TableName returns the table name for GORM
func (QuickBooksAPILogModel) TableName() string {
	return "quickbooks_api_log"
}

// QuickBooksAPILogModelFromDomain creates a row from an APILogEntry.
// Payloads are stored as given; sanitizing is the caller's job.
func QuickBooksAPILogModelFromDomain(e *integration.APILogEntry) *QuickBooksAPILogModel {
	return &QuickBooksAPILogModel{
		ID:                 e.ID,
		TenantID:           e.TenantID,
		FunctionName:       e.FunctionName,
		EntityType:         e.EntityType,
		EntityID:           e.EntityID,
		QuickBooksEntityID: e.QuickBooksEntityID,
		Method:             e.Method,
		Endpoint:           e.Endpoint,
		HTTPStatus:         e.HTTPStatus,
		RequestPayload:     marshalJSON(e.RequestPayload),
		ResponsePayload:    marshalJSON(e.ResponsePayload),
		ErrorMessage:       e.ErrorMessage,
		InitiatedBy:        e.InitiatedBy,
		RequestSentAt:      e.RequestSentAt,
		ResponseReceivedAt: e.ResponseReceivedAt,
	}
}

func marshalJSON(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
