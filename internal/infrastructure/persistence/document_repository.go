package persistence

import (
	"context"
	"errors"

	"github.com/commandx/backend/internal/domain/accounting"
	"github.com/commandx/backend/internal/domain/shared"
	"github.com/commandx/backend/internal/infrastructure/persistence/models"
	"github.com/commandx/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDocumentRepository implements accounting.DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID finds a document by ID within a tenant
func (r *GormDocumentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*accounting.FinancialDocument, error) {
	var model models.FinancialDocumentModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, accounting.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns a page of documents, most recent transaction date first
func (r *GormDocumentRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter accounting.DocumentFilter) ([]accounting.FinancialDocument, int64, error) {
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).
			Model(&models.FinancialDocumentModel{}).
			Scopes(tenant.Scope(tenantID))
		if filter.EntityType != "" {
			query = query.Where("entity_type = ?", filter.EntityType.String())
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := shared.NormalizePage(filter.Page, filter.PageSize)
	var rows []models.FinancialDocumentModel
	if err := scoped().
		Order(orderClause(filter.SortBy, filter.SortOrder, documentSortColumns, defaultDocumentOrder)).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	docs := make([]accounting.FinancialDocument, len(rows))
	for i := range rows {
		docs[i] = *rows[i].ToDomain()
	}
	return docs, total, nil
}

// ExistsByNumber reports whether another document of the same type uses number
func (r *GormDocumentRepository) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, entityType accounting.EntityType, number string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.FinancialDocumentModel{}).
		Where("tenant_id = ? AND entity_type = ? AND number = ?", tenantID, entityType.String(), number)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save inserts a new document or updates it with an optimistic version check
func (r *GormDocumentRepository) Save(ctx context.Context, doc *accounting.FinancialDocument) error {
	model := models.FinancialDocumentModelFromDomain(doc)
	if doc.Version <= 1 {
		return r.db.WithContext(ctx).Create(model).Error
	}

	result := r.db.WithContext(ctx).
		Model(&models.FinancialDocumentModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", doc.TenantID, doc.ID, doc.Version-1).
		Select("*").
		Omit("id", "tenant_id", "created_at", "created_by").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}
