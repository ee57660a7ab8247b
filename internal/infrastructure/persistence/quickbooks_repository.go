package persistence

import (
	"context"
	"errors"

	"github.com/commandx/backend/internal/domain/integration"
	"github.com/commandx/backend/internal/domain/shared"
	"github.com/commandx/backend/internal/infrastructure/persistence/models"
	"github.com/commandx/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMappingRepository implements integration.MappingRepository
type GormMappingRepository struct {
	db *gorm.DB
}

// NewGormMappingRepository creates a new GormMappingRepository
func NewGormMappingRepository(db *gorm.DB) *GormMappingRepository {
	return &GormMappingRepository{db: db}
}

// FindByLocalID returns the mapping of a local record
func (r *GormMappingRepository) FindByLocalID(ctx context.Context, tenantID uuid.UUID, entityType string, localID uuid.UUID) (*integration.Mapping, error) {
	var model models.QuickBooksMappingModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ? AND local_id = ?", tenantID, entityType, localID).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, integration.ErrMappingNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save inserts or updates a mapping
func (r *GormMappingRepository) Save(ctx context.Context, m *integration.Mapping) error {
	return r.db.WithContext(ctx).
		Scopes(tenant.Scope(m.TenantID)).
		Save(models.QuickBooksMappingModelFromDomain(m)).Error
}

// GormSyncLogRepository implements integration.SyncLogRepository
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Append inserts a sync log entry
func (r *GormSyncLogRepository) Append(ctx context.Context, e *integration.SyncLogEntry) error {
	return r.db.WithContext(ctx).Create(models.QuickBooksSyncLogModelFromDomain(e)).Error
}

// List returns a page of sync log entries, newest first
func (r *GormSyncLogRepository) List(ctx context.Context, tenantID uuid.UUID, filter integration.SyncLogFilter) ([]integration.SyncLogEntry, int64, error) {
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).
			Model(&models.QuickBooksSyncLogModel{}).
			Scopes(tenant.Scope(tenantID))
		if filter.EntityType != "" {
			query = query.Where("entity_type = ?", filter.EntityType)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", string(filter.Status))
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := shared.NormalizePage(filter.Page, filter.PageSize)
	var rows []models.QuickBooksSyncLogModel
	if err := scoped().
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]integration.SyncLogEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// GormAPILogRepository implements integration.APILogRepository
type GormAPILogRepository struct {
	db *gorm.DB
}

// NewGormAPILogRepository creates a new GormAPILogRepository
func NewGormAPILogRepository(db *gorm.DB) *GormAPILogRepository {
	return &GormAPILogRepository{db: db}
}

// Append inserts an API log entry
func (r *GormAPILogRepository) Append(ctx context.Context, e *integration.APILogEntry) error {
	return r.db.WithContext(ctx).Create(models.QuickBooksAPILogModelFromDomain(e)).Error
}
