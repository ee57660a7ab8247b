package periodlock

import (
	"context"
	"time"

	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/commandx/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CacheInvalidator drops cached lock snapshots after a configuration change
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

// AdminService manages the lock configuration of a tenant and exposes the
// violation log. Every write invalidates the advisory cache of the tenant.
type AdminService struct {
	store       periodlock.PeriodStore
	violations  periodlock.ViolationRepository
	invalidator CacheInvalidator
	logger      *zap.Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(
	store periodlock.PeriodStore,
	violations periodlock.ViolationRepository,
	invalidator CacheInvalidator,
	logger *zap.Logger,
) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		store:       store,
		violations:  violations,
		invalidator: invalidator,
		logger:      logger.Named("period_lock.admin"),
	}
}

// SettingsResponse represents the global lock setting in API responses
type SettingsResponse struct {
	Enabled          bool       `json:"locked_period_enabled"`
	LockedPeriodDate *string    `json:"locked_period_date"`
	MinAllowedDate   *string    `json:"min_allowed_date"`
	CutoverDate      *string    `json:"accounting_cutover_date"`
	UpdatedBy        *uuid.UUID `json:"updated_by,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// UpdateSettingsRequest replaces the global lock setting
type UpdateSettingsRequest struct {
	Enabled          bool    `json:"locked_period_enabled"`
	LockedPeriodDate *string `json:"locked_period_date"`
	CutoverDate      *string `json:"accounting_cutover_date"`
}

// PeriodResponse represents an accounting period in API responses
type PeriodResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"period_name"`
	StartDate string     `json:"start_date"`
	EndDate   string     `json:"end_date"`
	IsLocked  bool       `json:"is_locked"`
	LockedAt  *time.Time `json:"locked_at,omitempty"`
	LockedBy  *uuid.UUID `json:"locked_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CreatePeriodRequest represents a request to create an accounting period
type CreatePeriodRequest struct {
	Name      string `json:"period_name" binding:"required,max=100"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	IsLocked  bool   `json:"is_locked"`
}

// UpdatePeriodRequest represents a request to rename or reschedule a period
type UpdatePeriodRequest struct {
	Name      string `json:"period_name" binding:"required,max=100"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// ViolationResponse represents a violation row in API responses
type ViolationResponse struct {
	ID               uuid.UUID                   `json:"id"`
	UserID           uuid.UUID                   `json:"user_id"`
	EntityType       string                      `json:"entity_type"`
	EntityID         *uuid.UUID                  `json:"entity_id"`
	AttemptedDate    string                      `json:"attempted_date"`
	LockedPeriodDate *string                     `json:"locked_period_date"`
	Action           string                      `json:"action"`
	Blocked          bool                        `json:"blocked"`
	Details          periodlock.ViolationDetails `json:"details"`
	CreatedAt        time.Time                   `json:"created_at"`
}

// ViolationListFilter defines filtering options for violation list queries
type ViolationListFilter struct {
	EntityType string `form:"entity_type"`
	UserID     string `form:"user_id"`
	FromDate   string `form:"from_date"`
	ToDate     string `form:"to_date"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

// GetSettings returns the global lock setting
func (s *AdminService) GetSettings(ctx context.Context, tenantID uuid.UUID) (*SettingsResponse, error) {
	settings, err := s.store.GetSettings(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return toSettingsResponse(settings), nil
}

// UpdateSettings replaces the global lock setting
func (s *AdminService) UpdateSettings(ctx context.Context, tenantID, userID uuid.UUID, req UpdateSettingsRequest) (*SettingsResponse, error) {
	cutoff, err := parseOptionalDate(req.LockedPeriodDate)
	if err != nil {
		return nil, err
	}
	cutover, err := parseOptionalDate(req.CutoverDate)
	if err != nil {
		return nil, err
	}

	settings, err := s.store.GetSettings(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := settings.Update(req.Enabled, cutoff, cutover, userID); err != nil {
		return nil, err
	}
	if err := s.store.SaveSettings(ctx, &settings); err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenantID)

	s.logger.Info("global period lock updated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", userID.String()),
		zap.Bool("enabled", settings.Enabled),
		zap.Stringp("cutoff", dateString(settings.CutoffDate)),
	)
	return toSettingsResponse(settings), nil
}

// ListPeriods returns all periods of the tenant ordered by start date
func (s *AdminService) ListPeriods(ctx context.Context, tenantID uuid.UUID) ([]PeriodResponse, error) {
	periods, err := s.store.ListPeriods(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return toPeriodResponses(periods), nil
}

// GetPeriod returns one period
func (s *AdminService) GetPeriod(ctx context.Context, tenantID, id uuid.UUID) (*PeriodResponse, error) {
	p, err := s.store.FindPeriodByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return toPeriodResponse(p), nil
}

// CreatePeriod creates a period
func (s *AdminService) CreatePeriod(ctx context.Context, tenantID, userID uuid.UUID, req CreatePeriodRequest) (*PeriodResponse, error) {
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	p, err := periodlock.NewLockedPeriod(tenantID, req.Name, start, end, req.IsLocked, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SavePeriod(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenantID)
	return toPeriodResponse(p), nil
}

// UpdatePeriod renames or reschedules a period
func (s *AdminService) UpdatePeriod(ctx context.Context, tenantID, id uuid.UUID, req UpdatePeriodRequest) (*PeriodResponse, error) {
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	p, err := s.store.FindPeriodByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := p.Update(req.Name, start, end); err != nil {
		return nil, err
	}
	if err := s.store.SavePeriod(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenantID)
	return toPeriodResponse(p), nil
}

// LockPeriod locks a period
func (s *AdminService) LockPeriod(ctx context.Context, tenantID, userID, id uuid.UUID) (*PeriodResponse, error) {
	return s.setLocked(ctx, tenantID, userID, id, true)
}

// UnlockPeriod unlocks a period
func (s *AdminService) UnlockPeriod(ctx context.Context, tenantID, userID, id uuid.UUID) (*PeriodResponse, error) {
	return s.setLocked(ctx, tenantID, userID, id, false)
}

func (s *AdminService) setLocked(ctx context.Context, tenantID, userID, id uuid.UUID, locked bool) (*PeriodResponse, error) {
	p, err := s.store.FindPeriodByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if locked {
		p.Lock(userID)
	} else {
		p.Unlock()
	}
	if err := s.store.SavePeriod(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenantID)

	s.logger.Info("accounting period lock changed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", userID.String()),
		zap.String("period", p.Name),
		zap.Bool("locked", locked),
	)
	return toPeriodResponse(p), nil
}

// DeletePeriod removes a period
func (s *AdminService) DeletePeriod(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.store.DeletePeriod(ctx, tenantID, id); err != nil {
		return err
	}
	s.invalidate(ctx, tenantID)
	return nil
}

// MatchingPeriods lists every locked period containing date. Verdicts use
// only the first; this surfaces overlaps to administrators.
func (s *AdminService) MatchingPeriods(ctx context.Context, tenantID uuid.UUID, date string) ([]PeriodResponse, error) {
	d, err := periodlock.ParseDate(date)
	if err != nil {
		return nil, err
	}
	periods, err := s.store.ListPeriods(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return toPeriodResponses(periodlock.MatchingPeriods(d, periods)), nil
}

// ListViolations pages through the violation log, newest first
func (s *AdminService) ListViolations(ctx context.Context, tenantID uuid.UUID, f ViolationListFilter) (shared.Paginated[ViolationResponse], error) {
	page, pageSize := shared.NormalizePage(f.Page, f.PageSize)
	filter := periodlock.ViolationFilter{
		EntityType: f.EntityType,
		Page:       page,
		PageSize:   pageSize,
	}
	if f.UserID != "" {
		uid, err := uuid.Parse(f.UserID)
		if err != nil {
			return shared.Paginated[ViolationResponse]{}, shared.NewDomainError("INVALID_USER_ID", "Invalid user ID format")
		}
		filter.UserID = &uid
	}
	var err error
	if filter.From, err = parseOptionalDate(&f.FromDate); err != nil {
		return shared.Paginated[ViolationResponse]{}, err
	}
	if filter.To, err = parseOptionalDate(&f.ToDate); err != nil {
		return shared.Paginated[ViolationResponse]{}, err
	}

	rows, total, err := s.violations.List(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[ViolationResponse]{}, err
	}
	items := make([]ViolationResponse, len(rows))
	for i, v := range rows {
		items[i] = toViolationResponse(v)
	}
	return shared.NewPaginated(items, total, page, pageSize), nil
}

func (s *AdminService) invalidate(ctx context.Context, tenantID uuid.UUID) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, tenantID)
	}
}

func parseOptionalDate(s *string) (*periodlock.CalendarDate, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := periodlock.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseRange(start, end string) (periodlock.CalendarDate, periodlock.CalendarDate, error) {
	s, err := periodlock.ParseDate(start)
	if err != nil {
		return periodlock.CalendarDate{}, periodlock.CalendarDate{}, err
	}
	e, err := periodlock.ParseDate(end)
	if err != nil {
		return periodlock.CalendarDate{}, periodlock.CalendarDate{}, err
	}
	return s, e, nil
}

func toSettingsResponse(s periodlock.GlobalLockSetting) *SettingsResponse {
	resp := &SettingsResponse{
		Enabled:          s.Enabled,
		LockedPeriodDate: dateString(s.CutoffDate),
		MinAllowedDate:   dateString(s.MinAllowedDate()),
		CutoverDate:      dateString(s.CutoverDate),
	}
	if s.UpdatedBy != uuid.Nil {
		resp.UpdatedBy = &s.UpdatedBy
	}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = &s.UpdatedAt
	}
	return resp
}

func toPeriodResponse(p *periodlock.LockedPeriod) *PeriodResponse {
	return &PeriodResponse{
		ID:        p.ID,
		Name:      p.Name,
		StartDate: p.StartDate.String(),
		EndDate:   p.EndDate.String(),
		IsLocked:  p.IsLocked,
		LockedAt:  p.LockedAt,
		LockedBy:  p.LockedBy,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toPeriodResponses(periods []periodlock.LockedPeriod) []PeriodResponse {
	out := make([]PeriodResponse, len(periods))
	for i := range periods {
		out[i] = *toPeriodResponse(&periods[i])
	}
	return out
}

func toViolationResponse(v periodlock.Violation) ViolationResponse {
	return ViolationResponse{
		ID:               v.ID,
		UserID:           v.UserID,
		EntityType:       v.EntityType,
		EntityID:         v.EntityID,
		AttemptedDate:    v.AttemptedDate.String(),
		LockedPeriodDate: dateString(v.LockedPeriodDate),
		Action:           v.Action.String(),
		Blocked:          v.Blocked,
		Details:          v.Details,
		CreatedAt:        v.CreatedAt,
	}
}
