package periodlock

import (
	"context"

	"github.com/google/uuid"
)

// PeriodStore is the persisted lock configuration.
//
// Read methods wrap backend failures so that errors.Is(err,
// ErrStoreUnreachable) holds. A tenant without settings yields
// DisabledSetting and a nil error; a tenant without periods yields an empty
// slice.
type PeriodStore interface {
	// LoadSnapshot reads the settings and every period of the tenant
	LoadSnapshot(ctx context.Context, tenantID uuid.UUID) (Snapshot, error)
	GetSettings(ctx context.Context, tenantID uuid.UUID) (GlobalLockSetting, error)
	SaveSettings(ctx context.Context, settings *GlobalLockSetting) error

	// FindLockedContaining returns the first locked period containing date
	// (ordered by start date), or nil when there is none.
	FindLockedContaining(ctx context.Context, tenantID uuid.UUID, date CalendarDate) (*LockedPeriod, error)
	FindPeriodByID(ctx context.Context, tenantID, id uuid.UUID) (*LockedPeriod, error)
	ListPeriods(ctx context.Context, tenantID uuid.UUID) ([]LockedPeriod, error)
	SavePeriod(ctx context.Context, period *LockedPeriod) error
	DeletePeriod(ctx context.Context, tenantID, id uuid.UUID) error
}

// ViolationFilter narrows a violation listing
type ViolationFilter struct {
	EntityType string
	UserID     *uuid.UUID
	From       *CalendarDate
	To         *CalendarDate
	Page       int
	PageSize   int
}

// ViolationRepository is the append-only violation log
type ViolationRepository interface {
	Append(ctx context.Context, v *Violation) error
	List(ctx context.Context, tenantID uuid.UUID, filter ViolationFilter) ([]Violation, int64, error)
}
