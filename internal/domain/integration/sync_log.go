package integration

import (
	"time"

	"github.com/google/uuid"
)

// SyncOutcome is the result of one sync attempt
type SyncOutcome string

const (
	SyncOutcomeSuccess SyncOutcome = "success"
	SyncOutcomeSkipped SyncOutcome = "skipped"
	SyncOutcomeFailed  SyncOutcome = "failed"
)

// SyncLogEntry records one attempt to push a local record to QuickBooks
type SyncLogEntry struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	EntityType   string
	EntityID     uuid.UUID
	QuickBooksID string
	Action       string
	Status       SyncOutcome
	Message      string
	Details      map[string]any
	CreatedAt    time.Time
}

// NewSyncLogEntry creates a log entry stamped now
func NewSyncLogEntry(tenantID uuid.UUID, entityType string, entityID uuid.UUID, action string, status SyncOutcome, message string) *SyncLogEntry {
	return &SyncLogEntry{
		ID:         uuid.New(),
		TenantID:   tenantID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Status:     status,
		Message:    message,
		Details:    map[string]any{},
		CreatedAt:  time.Now(),
	}
}
