package accounting

import (
	"context"

	"github.com/commandx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DocumentFilter narrows a document listing
type DocumentFilter struct {
	EntityType EntityType
	// SortBy is a column name; the repository ignores columns it does not allow
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// DocumentRepository persists financial documents
type DocumentRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*FinancialDocument, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter DocumentFilter) ([]FinancialDocument, int64, error)
	ExistsByNumber(ctx context.Context, tenantID uuid.UUID, entityType EntityType, number string, excludeID *uuid.UUID) (bool, error)
	// Save inserts a document with Version 1 and otherwise updates the row
	// stored at Version-1. A stale version fails with shared.ErrConcurrencyConflict.
	Save(ctx context.Context, doc *FinancialDocument) error
}

// ErrDocumentNotFound is returned when a document does not exist for the tenant
var ErrDocumentNotFound = shared.NewDomainError("DOCUMENT_NOT_FOUND", "Document not found")
