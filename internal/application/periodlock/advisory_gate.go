package periodlock

import (
	"context"
	"fmt"
	"strings"

	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CheckResult is the advisory verdict shown next to a form field
type CheckResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	// IsLegacy is set when the date predates the accounting cutover
	IsLegacy bool `json:"is_legacy,omitempty"`
}

// PeriodView is a locked period as exposed to forms
type PeriodView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"period_name"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	IsLocked  bool      `json:"is_locked"`
}

// StatusResponse is everything a form needs to constrain its date pickers
type StatusResponse struct {
	// Available is false when the lock configuration could not be loaded;
	// the remaining fields are then empty and nothing is restricted.
	Available        bool         `json:"available"`
	IsEnabled        bool         `json:"is_enabled"`
	LockedPeriodDate *string      `json:"locked_period_date"`
	MinAllowedDate   *string      `json:"min_allowed_date"`
	CutoverDate      *string      `json:"accounting_cutover_date"`
	LockedPeriods    []PeriodView `json:"locked_periods"`
}

// AdvisoryGate answers "may this date be used" for interactive forms.
// It is fail-open: when the period store is unreachable every date is
// reported as usable and the server-side EnforcementGate remains the
// authority.
type AdvisoryGate struct {
	store  periodlock.PeriodStore
	cache  SnapshotCache
	loads  singleflight.Group
	logger *zap.Logger
}

// AdvisoryGateConfig holds the dependencies of an AdvisoryGate
type AdvisoryGateConfig struct {
	Store  periodlock.PeriodStore
	Cache  SnapshotCache
	Logger *zap.Logger
}

// NewAdvisoryGate creates a new AdvisoryGate. A nil Cache disables caching.
func NewAdvisoryGate(cfg AdvisoryGateConfig) *AdvisoryGate {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var cache SnapshotCache = noopCache{}
	if cfg.Cache != nil {
		cache = cfg.Cache
	}
	return &AdvisoryGate{
		store:  cfg.Store,
		cache:  cache,
		logger: logger.Named("period_lock.advisory"),
	}
}

// snapshot returns the cached snapshot or loads it. Concurrent misses for
// the same tenant share one store read.
func (g *AdvisoryGate) snapshot(ctx context.Context, tenantID uuid.UUID) (periodlock.Snapshot, error) {
	if snap, ok := g.cache.Get(ctx, tenantID); ok {
		return snap, nil
	}

	v, err, _ := g.loads.Do(tenantID.String(), func() (v any, err error) {
		// singleflight re-raises a panic in every waiter
		defer func() {
			if r := recover(); r != nil {
				g.logger.Warn("loading lock configuration panicked",
					zap.String("tenant_id", tenantID.String()),
					zap.Any("panic", r),
					zap.Stack("stacktrace"),
				)
				v, err = nil, periodlock.Unreachable("load snapshot", fmt.Errorf("panic: %v", r))
			}
		}()
		snap, err := g.store.LoadSnapshot(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		g.cache.Set(ctx, tenantID, snap)
		return snap, nil
	})
	if err != nil {
		return periodlock.Snapshot{}, err
	}
	return v.(periodlock.Snapshot), nil
}

// CheckDate validates a form date. Only a lock blocks: empty and
// unparseable dates are valid here and left to the form's own validation.
func (g *AdvisoryGate) CheckDate(ctx context.Context, tenantID uuid.UUID, date, entityLabel string) CheckResult {
	if strings.TrimSpace(date) == "" {
		return CheckResult{Valid: true}
	}
	d, err := periodlock.ParseDate(date)
	if err != nil {
		g.logger.Debug("skipping lock check of unparseable date",
			zap.String("tenant_id", tenantID.String()),
			zap.String("date", date),
		)
		return CheckResult{Valid: true}
	}

	snap, err := g.snapshot(ctx, tenantID)
	if err != nil {
		g.logger.Warn("lock configuration unavailable, allowing date",
			zap.String("tenant_id", tenantID.String()),
			zap.String("date", d.String()),
			zap.Error(err),
		)
		return CheckResult{Valid: true}
	}

	result := snap.Evaluate(d)
	if result.Allowed {
		return CheckResult{Valid: true, IsLegacy: snap.Settings.IsLegacy(d)}
	}
	if strings.TrimSpace(entityLabel) == "" {
		entityLabel = "record"
	}
	return CheckResult{
		Valid:    false,
		Message:  advisoryMessage(entityLabel, d, result),
		IsLegacy: snap.Settings.IsLegacy(d),
	}
}

// IsDateLocked reports whether d is locked. It returns false when the store
// is unreachable.
func (g *AdvisoryGate) IsDateLocked(ctx context.Context, tenantID uuid.UUID, d periodlock.CalendarDate) bool {
	snap, err := g.snapshot(ctx, tenantID)
	if err != nil {
		g.logger.Warn("lock configuration unavailable", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return false
	}
	return !snap.Evaluate(d).Allowed
}

// MinAllowedDate is the day after the global cutoff, or nil when there is
// no active cutoff or the store is unreachable.
func (g *AdvisoryGate) MinAllowedDate(ctx context.Context, tenantID uuid.UUID) *periodlock.CalendarDate {
	snap, err := g.snapshot(ctx, tenantID)
	if err != nil {
		return nil
	}
	return snap.Settings.MinAllowedDate()
}

// Status summarizes the tenant's lock configuration
func (g *AdvisoryGate) Status(ctx context.Context, tenantID uuid.UUID) StatusResponse {
	snap, err := g.snapshot(ctx, tenantID)
	if err != nil {
		g.logger.Warn("lock configuration unavailable", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return StatusResponse{LockedPeriods: []PeriodView{}}
	}

	resp := StatusResponse{
		Available:     true,
		IsEnabled:     snap.Settings.Enabled,
		CutoverDate:   dateString(snap.Settings.CutoverDate),
		LockedPeriods: make([]PeriodView, 0, len(snap.Periods)),
	}
	if cutoff, ok := snap.Settings.ActiveCutoff(); ok {
		resp.LockedPeriodDate = dateString(&cutoff)
		resp.MinAllowedDate = dateString(snap.Settings.MinAllowedDate())
	}
	for _, p := range snap.LockedPeriods() {
		resp.LockedPeriods = append(resp.LockedPeriods, toPeriodView(p))
	}
	return resp
}

// Invalidate drops the cached snapshot of a tenant
func (g *AdvisoryGate) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	g.cache.Delete(ctx, tenantID)
}

func toPeriodView(p periodlock.LockedPeriod) PeriodView {
	return PeriodView{
		ID:        p.ID,
		Name:      p.Name,
		StartDate: p.StartDate.String(),
		EndDate:   p.EndDate.String(),
		IsLocked:  p.IsLocked,
	}
}

func dateString(d *periodlock.CalendarDate) *string {
	if d == nil || d.IsZero() {
		return nil
	}
	s := d.String()
	return &s
}
