package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Metric attribute keys
var (
	AttrAllowed    = attribute.Key("allowed")
	AttrReason     = attribute.Key("reason")
	AttrFunction   = attribute.Key("function")
	AttrHTTPStatus = attribute.Key("http.status_code")
)

// PeriodLockMetrics counts enforcement decisions and times QuickBooks calls.
type PeriodLockMetrics struct {
	logger *zap.Logger

	decisions metric.Int64Counter
	qbCalls   metric.Float64Histogram
}

// PeriodLockMetricsConfig holds configuration for PeriodLockMetrics.
type PeriodLockMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewPeriodLockMetrics creates the instruments on cfg.Meter.
func NewPeriodLockMetrics(cfg PeriodLockMetricsConfig) (*PeriodLockMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	decisions, err := cfg.Meter.Int64Counter("period_lock_decisions_total",
		metric.WithDescription("Enforcement gate decisions by outcome and reason"),
		metric.WithUnit("{decisions}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter period_lock_decisions_total: %w", err)
	}
	qbCalls, err := cfg.Meter.Float64Histogram("quickbooks_api_call_duration_seconds",
		metric.WithDescription("Duration of outbound QuickBooks API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(HTTPDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram quickbooks_api_call_duration_seconds: %w", err)
	}

	return &PeriodLockMetrics{
		logger:    logger,
		decisions: decisions,
		qbCalls:   qbCalls,
	}, nil
}

// RecordDecision counts one enforcement decision. Tenant is left out of the
// attributes to keep cardinality bounded.
func (m *PeriodLockMetrics) RecordDecision(ctx context.Context, _ uuid.UUID, allowed bool, reason string) {
	if reason == "" {
		reason = "open"
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		AttrAllowed.Bool(allowed),
		AttrReason.String(reason),
	))
}

// RecordQuickBooksCall records the duration of one QuickBooks API call.
// status is 0 when no response was received.
func (m *PeriodLockMetrics) RecordQuickBooksCall(ctx context.Context, function string, status int, d time.Duration) {
	m.qbCalls.Record(ctx, d.Seconds(), metric.WithAttributes(
		AttrFunction.String(function),
		AttrHTTPStatus.String(strconv.Itoa(status)),
	))
}
