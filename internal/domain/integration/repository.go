package integration

import (
	"context"

	"github.com/google/uuid"
)

// MappingRepository persists local-to-QuickBooks mappings
type MappingRepository interface {
	// FindByLocalID returns ErrMappingNotFound when no mapping exists
	FindByLocalID(ctx context.Context, tenantID uuid.UUID, entityType string, localID uuid.UUID) (*Mapping, error)
	Save(ctx context.Context, m *Mapping) error
}

// SyncLogFilter narrows a sync log listing
type SyncLogFilter struct {
	EntityType string
	Status     SyncOutcome
	Page       int
	PageSize   int
}

// SyncLogRepository is the append-only sync log
type SyncLogRepository interface {
	Append(ctx context.Context, e *SyncLogEntry) error
	List(ctx context.Context, tenantID uuid.UUID, filter SyncLogFilter) ([]SyncLogEntry, int64, error)
}

// APILogRepository is the append-only QuickBooks API log
type APILogRepository interface {
	Append(ctx context.Context, e *APILogEntry) error
}
