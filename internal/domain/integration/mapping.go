package integration

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SyncStatus is the state of a mapping's last sync
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSynced, SyncStatusFailed:
		return true
	default:
		return false
	}
}

// Mapping links a local record to the QuickBooks entity it was pushed as.
// EntityType is a local type name: "vendor", "customer" or a document type.
type Mapping struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	EntityType    string
	LocalID       uuid.UUID
	QuickBooksID  string
	SyncStatus    SyncStatus
	LastSyncedAt  *time.Time
	LastSyncError string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewMapping creates a synced mapping
func NewMapping(tenantID uuid.UUID, entityType string, localID uuid.UUID, quickBooksID string) (*Mapping, error) {
	entityType = strings.TrimSpace(entityType)
	quickBooksID = strings.TrimSpace(quickBooksID)
	if tenantID == uuid.Nil || localID == uuid.Nil || entityType == "" || quickBooksID == "" {
		return nil, ErrMappingInvalidData
	}
	now := time.Now()
	return &Mapping{
		ID:           uuid.New(),
		TenantID:     tenantID,
		EntityType:   entityType,
		LocalID:      localID,
		QuickBooksID: quickBooksID,
		SyncStatus:   SyncStatusSynced,
		LastSyncedAt: &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// RecordSyncSuccess records a successful sync
func (m *Mapping) RecordSyncSuccess() {
	now := time.Now()
	m.LastSyncedAt = &now
	m.SyncStatus = SyncStatusSynced
	m.LastSyncError = ""
	m.UpdatedAt = now
}

// RecordSyncFailure records a failed sync
func (m *Mapping) RecordSyncFailure(errMsg string) {
	now := time.Now()
	m.LastSyncedAt = &now
	m.SyncStatus = SyncStatusFailed
	m.LastSyncError = errMsg
	m.UpdatedAt = now
}
