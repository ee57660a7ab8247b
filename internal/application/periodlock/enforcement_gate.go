package periodlock

import (
	"context"
	"errors"
	"strings"

	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/commandx/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds parallel checks in AuthorizeBatch
const DefaultBatchConcurrency = 8

// AuthorizeRequest asks whether a dated mutation may proceed
type AuthorizeRequest struct {
	TenantID   uuid.UUID
	Date       periodlock.CalendarDate
	EntityType string
	EntityID   *uuid.UUID
	UserID     uuid.UUID
	Action     periodlock.Action
	// Source names the calling path in violation rows, e.g. "document_service"
	Source string
}

func (r AuthorizeRequest) validate() error {
	switch {
	case r.TenantID == uuid.Nil:
		return errors.New("tenant is required")
	case r.Date.IsZero():
		return errors.New("transaction date is required")
	case strings.TrimSpace(r.EntityType) == "":
		return errors.New("entity type is required")
	case !r.Action.IsValid():
		return periodlock.ErrInvalidAction
	}
	return nil
}

// Decision is the binding verdict of the EnforcementGate. The zero value
// denies.
type Decision struct {
	Allowed    bool              `json:"allowed"`
	Message    string            `json:"message,omitempty"`
	Reason     periodlock.Reason `json:"reason,omitempty"`
	PeriodName string            `json:"period_name,omitempty"`
}

func blocked(message string, reason periodlock.Reason) Decision {
	return Decision{Allowed: false, Message: message, Reason: reason}
}

// DecisionRecorder receives one call per evaluated request
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, tenantID uuid.UUID, allowed bool, reason string)
}

// EnforcementGate is the authoritative period lock check in front of every
// mutation and sync path. It is fail-closed: anything that prevents a
// confident "allowed" yields a denial. It reads the store directly.
type EnforcementGate struct {
	store       periodlock.PeriodStore
	violations  periodlock.ViolationRepository
	recorder    DecisionRecorder
	concurrency int
	logger      *zap.Logger
}

// EnforcementGateConfig holds the dependencies of an EnforcementGate
type EnforcementGateConfig struct {
	Store      periodlock.PeriodStore
	Violations periodlock.ViolationRepository
	// Recorder is optional
	Recorder         DecisionRecorder
	BatchConcurrency int
	Logger           *zap.Logger
}

// NewEnforcementGate creates a new EnforcementGate
func NewEnforcementGate(cfg EnforcementGateConfig) *EnforcementGate {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.BatchConcurrency
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	return &EnforcementGate{
		store:       cfg.Store,
		violations:  cfg.Violations,
		recorder:    cfg.Recorder,
		concurrency: concurrency,
		logger:      logger.Named("period_lock.enforcement"),
	}
}

// Authorize decides whether req may proceed. It never panics and never
// returns an error: failures are folded into a denial. A blocked request on
// a locked date appends exactly one violation row; failing to write it is
// logged and does not change the decision.
func (g *EnforcementGate) Authorize(ctx context.Context, req AuthorizeRequest) (decision Decision) {
	ctx, span := telemetry.StartServiceSpan(ctx, "period_lock", "authorize",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, req.TenantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrEntityType, req.EntityType),
		telemetry.WithAttribute(telemetry.SpanAttrTxnDate, req.Date.String()),
	)
	defer span.End()

	log := g.logger.With(
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("entity_type", req.EntityType),
		zap.String("date", req.Date.String()),
		zap.String("action", req.Action.String()),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("period lock check panicked", zap.Any("panic", r), zap.Stack("stacktrace"))
			decision = blocked(MsgUnexpected, periodlock.ReasonStoreUnreachable)
		}
		telemetry.SetAttributes(span, "allowed", decision.Allowed, "reason", string(decision.Reason))
		if g.recorder != nil {
			g.recorder.RecordDecision(ctx, req.TenantID, decision.Allowed, string(decision.Reason))
		}
	}()

	if err := req.validate(); err != nil {
		log.Warn("rejecting malformed authorize request", zap.Error(err))
		return blocked("Invalid period lock request: "+err.Error(), periodlock.ReasonInvalidRequest)
	}

	settings, err := g.store.GetSettings(ctx, req.TenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return g.failClosed(log, "read lock settings", err)
	}

	result := periodlock.Evaluate(req.Date, settings, nil)
	if result.Reason == periodlock.ReasonGlobalCutoff {
		cutoff := result.BoundaryDate
		g.appendViolation(ctx, log, req, &cutoff, periodlock.ViolationDetails{
			Source: req.Source,
			Reason: periodlock.ViolationGlobalLockedPeriod,
		})
		return Decision{
			Allowed: false,
			Message: globalLockedMessage(req.Date, cutoff),
			Reason:  periodlock.ReasonGlobalCutoff,
		}
	}

	period, err := g.store.FindLockedContaining(ctx, req.TenantID, req.Date)
	if err != nil {
		telemetry.RecordError(span, err)
		return g.failClosed(log, "query locked periods", err)
	}
	if period == nil {
		return Decision{Allowed: true}
	}

	result = periodlock.Evaluate(req.Date, settings, []periodlock.LockedPeriod{*period})
	if result.Allowed {
		// the store returned a period that does not actually lock the date
		log.Error("locked period query returned a non-matching period",
			zap.String("period_id", period.ID.String()),
			zap.String("start_date", period.StartDate.String()),
			zap.String("end_date", period.EndDate.String()),
		)
		return blocked(MsgUnexpected, periodlock.ReasonStoreUnreachable)
	}

	var lockedThrough *periodlock.CalendarDate
	if cutoff, ok := settings.ActiveCutoff(); ok {
		lockedThrough = &cutoff
	}
	g.appendViolation(ctx, log, req, lockedThrough, periodlock.ViolationDetails{
		Source:     req.Source,
		Reason:     periodlock.ViolationAccountingPeriod,
		PeriodName: result.PeriodName,
	})
	return Decision{
		Allowed:    false,
		Message:    periodLockedMessage(req.Date, result.Period),
		Reason:     periodlock.ReasonAccountingPeriod,
		PeriodName: result.PeriodName,
	}
}

func (g *EnforcementGate) failClosed(log *zap.Logger, op string, err error) Decision {
	if errors.Is(err, periodlock.ErrStoreUnreachable) {
		log.Error("cannot verify accounting period status, blocking", zap.String("op", op), zap.Error(err))
		return blocked(MsgCannotVerify, periodlock.ReasonStoreUnreachable)
	}
	log.Error("unexpected error verifying accounting period status, blocking", zap.String("op", op), zap.Error(err))
	return blocked(MsgUnexpected, periodlock.ReasonStoreUnreachable)
}

func (g *EnforcementGate) appendViolation(
	ctx context.Context,
	log *zap.Logger,
	req AuthorizeRequest,
	lockedThrough *periodlock.CalendarDate,
	details periodlock.ViolationDetails,
) {
	if g.violations == nil {
		return
	}
	v := periodlock.NewViolation(req.TenantID, req.UserID, req.EntityType, req.EntityID,
		req.Date, lockedThrough, req.Action, details)
	if err := g.violations.Append(ctx, v); err != nil {
		log.Error("failed to log locked period violation", zap.Error(err))
	}
}

// AuthorizeBatch authorizes many requests in parallel, bounded by the
// configured concurrency. Decisions are returned in input order. Requests
// not evaluated before ctx is done are denied.
func (g *EnforcementGate) AuthorizeBatch(ctx context.Context, reqs []AuthorizeRequest) []Decision {
	decisions := make([]Decision, len(reqs))
	evaluated := make([]bool, len(reqs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i := range reqs {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if egCtx.Err() != nil {
				return nil
			}
			decisions[i] = g.Authorize(egCtx, reqs[i])
			evaluated[i] = true
			return nil
		})
	}
	_ = eg.Wait()

	for i := range decisions {
		if !evaluated[i] {
			decisions[i] = blocked(MsgCannotVerify, periodlock.ReasonStoreUnreachable)
		}
	}
	return decisions
}
