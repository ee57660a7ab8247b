package persistence

import (
	"context"
	"errors"

	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/commandx/backend/internal/domain/shared"
	"github.com/commandx/backend/internal/infrastructure/persistence/models"
	"github.com/commandx/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPeriodStore implements periodlock.PeriodStore using GORM.
// Every read failure, including rows that cannot be mapped to valid
// periods, is returned as a periodlock.StoreError.
type GormPeriodStore struct {
	db *gorm.DB
}

// NewGormPeriodStore creates a new GormPeriodStore
func NewGormPeriodStore(db *gorm.DB) *GormPeriodStore {
	return &GormPeriodStore{db: db}
}

// LoadSnapshot reads the settings and all periods of the tenant
func (s *GormPeriodStore) LoadSnapshot(ctx context.Context, tenantID uuid.UUID) (periodlock.Snapshot, error) {
	settings, err := s.GetSettings(ctx, tenantID)
	if err != nil {
		return periodlock.Snapshot{}, err
	}
	periods, err := s.ListPeriods(ctx, tenantID)
	if err != nil {
		return periodlock.Snapshot{}, err
	}
	return periodlock.Snapshot{Settings: settings, Periods: periods}, nil
}

// GetSettings returns the tenant's global lock; a missing row is a disabled lock
func (s *GormPeriodStore) GetSettings(ctx context.Context, tenantID uuid.UUID) (periodlock.GlobalLockSetting, error) {
	var model models.CompanySettingsModel
	err := s.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return periodlock.DisabledSetting(tenantID), nil
	}
	if err != nil {
		return periodlock.GlobalLockSetting{}, periodlock.Unreachable("get settings", err)
	}
	return model.ToDomain(), nil
}

// SaveSettings upserts the tenant's global lock
func (s *GormPeriodStore) SaveSettings(ctx context.Context, settings *periodlock.GlobalLockSetting) error {
	model := models.CompanySettingsModelFromDomain(settings)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"lock_period_enabled", "lock_period_cutoff_date", "accounting_cutover_date", "updated_by", "updated_at",
			}),
		}).
		Create(model).Error
	return periodlock.Unreachable("save settings", err)
}

// FindLockedContaining returns the first locked period containing date
func (s *GormPeriodStore) FindLockedContaining(ctx context.Context, tenantID uuid.UUID, date periodlock.CalendarDate) (*periodlock.LockedPeriod, error) {
	var rows []models.AccountingPeriodModel
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND is_locked = ? AND start_date <= ? AND end_date >= ?",
			tenantID, true, date.Time(), date.Time()).
		Order("start_date ASC, id ASC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, periodlock.Unreachable("find locked period", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	period, err := rows[0].ToDomain()
	if err != nil {
		return nil, periodlock.Unreachable("find locked period", err)
	}
	return period, nil
}

// FindPeriodByID returns the period or periodlock.ErrPeriodNotFound
func (s *GormPeriodStore) FindPeriodByID(ctx context.Context, tenantID, id uuid.UUID) (*periodlock.LockedPeriod, error) {
	var model models.AccountingPeriodModel
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, periodlock.ErrPeriodNotFound
	}
	if err != nil {
		return nil, periodlock.Unreachable("find period", err)
	}
	period, err := model.ToDomain()
	if err != nil {
		return nil, periodlock.Unreachable("find period", err)
	}
	return period, nil
}

// ListPeriods returns every period of the tenant ordered by start date
func (s *GormPeriodStore) ListPeriods(ctx context.Context, tenantID uuid.UUID) ([]periodlock.LockedPeriod, error) {
	var rows []models.AccountingPeriodModel
	err := s.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Order("start_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, periodlock.Unreachable("list periods", err)
	}
	periods := make([]periodlock.LockedPeriod, 0, len(rows))
	for i := range rows {
		p, err := rows[i].ToDomain()
		if err != nil {
			return nil, periodlock.Unreachable("list periods", err)
		}
		periods = append(periods, *p)
	}
	return periods, nil
}

// SavePeriod inserts or updates a period
func (s *GormPeriodStore) SavePeriod(ctx context.Context, period *periodlock.LockedPeriod) error {
	model := models.AccountingPeriodModelFromDomain(period)
	return periodlock.Unreachable("save period", s.db.WithContext(ctx).Scopes(tenant.Scope(period.TenantID)).Save(model).Error)
}

// DeletePeriod removes a period
func (s *GormPeriodStore) DeletePeriod(ctx context.Context, tenantID, id uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.AccountingPeriodModel{})
	if result.Error != nil {
		return periodlock.Unreachable("delete period", result.Error)
	}
	if result.RowsAffected == 0 {
		return periodlock.ErrPeriodNotFound
	}
	return nil
}

// GormViolationRepository implements periodlock.ViolationRepository
type GormViolationRepository struct {
	db *gorm.DB
}

// NewGormViolationRepository creates a new GormViolationRepository
func NewGormViolationRepository(db *gorm.DB) *GormViolationRepository {
	return &GormViolationRepository{db: db}
}

// Append inserts a violation row
func (r *GormViolationRepository) Append(ctx context.Context, v *periodlock.Violation) error {
	return r.db.WithContext(ctx).Create(models.LockedPeriodViolationModelFromDomain(v)).Error
}

// List returns a page of violations, newest first
func (r *GormViolationRepository) List(ctx context.Context, tenantID uuid.UUID, filter periodlock.ViolationFilter) ([]periodlock.Violation, int64, error) {
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).
			Model(&models.LockedPeriodViolationModel{}).
			Scopes(tenant.Scope(tenantID))
		if filter.EntityType != "" {
			query = query.Where("entity_type = ?", filter.EntityType)
		}
		if filter.UserID != nil {
			query = query.Where("user_id = ?", *filter.UserID)
		}
		if filter.From != nil {
			query = query.Where("attempted_date >= ?", filter.From.Time())
		}
		if filter.To != nil {
			query = query.Where("attempted_date <= ?", filter.To.Time())
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := shared.NormalizePage(filter.Page, filter.PageSize)
	var rows []models.LockedPeriodViolationModel
	if err := scoped().
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]periodlock.Violation, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}
