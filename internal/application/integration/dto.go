package integration

import (
	"time"

	"github.com/commandx/backend/internal/domain/integration"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sync DTOs
// ---------------------------------------------------------------------------

// SyncResult is the outcome of syncing one document
type SyncResult struct {
	DocumentID   uuid.UUID               `json:"document_id"`
	EntityType   string                  `json:"entity_type,omitempty"`
	Status       integration.SyncOutcome `json:"status"`
	QuickBooksID string                  `json:"quickbooks_id,omitempty"`
	DocNumber    string                  `json:"quickbooks_doc_number,omitempty"`
	// AlreadySynced is set when an existing mapping short-circuited the push
	AlreadySynced bool   `json:"already_synced,omitempty"`
	Message       string `json:"message,omitempty"`
	// ErrorCode carries the domain error code of a failed or skipped sync
	ErrorCode string `json:"error_code,omitempty"`
}

// BatchSyncRequest represents a request to sync many documents
type BatchSyncRequest struct {
	DocumentIDs []uuid.UUID `json:"document_ids" binding:"required,min=1,max=200,unique,dive,required"`
}

// BatchSyncResponse summarizes a batch sync
type BatchSyncResponse struct {
	Results   []SyncResult `json:"results"`
	Succeeded int          `json:"succeeded"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
}

// ---------------------------------------------------------------------------
// Sync log DTOs
// ---------------------------------------------------------------------------

// SyncLogResponse represents a sync log entry in API responses
type SyncLogResponse struct {
	ID           uuid.UUID               `json:"id"`
	EntityType   string                  `json:"entity_type"`
	EntityID     uuid.UUID               `json:"entity_id"`
	QuickBooksID string                  `json:"quickbooks_id,omitempty"`
	Action       string                  `json:"action"`
	Status       integration.SyncOutcome `json:"status"`
	Message      string                  `json:"message,omitempty"`
	Details      map[string]any          `json:"details,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
}

// SyncLogListFilter defines filtering options for sync log list queries
type SyncLogListFilter struct {
	EntityType string `form:"entity_type"`
	Status     string `form:"status" binding:"omitempty,oneof=success skipped failed"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

func toSyncLogResponse(e integration.SyncLogEntry) SyncLogResponse {
	return SyncLogResponse{
		ID:           e.ID,
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		QuickBooksID: e.QuickBooksID,
		Action:       e.Action,
		Status:       e.Status,
		Message:      e.Message,
		Details:      e.Details,
		CreatedAt:    e.CreatedAt,
	}
}
