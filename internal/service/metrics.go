package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/alexanderramin/commitguard/internal/domain"
)

const meterName = "github.com/alexanderramin/commitguard/service"

// Metrics holds the coordination instruments. A nil *Metrics records
// nothing.
type Metrics struct {
	engageCount    metric.Int64Counter
	engageDuration metric.Int64Histogram
	releaseCount   metric.Int64Counter
	resetCount     metric.Int64Counter
	activeGauge    metric.Int64ObservableGauge
	activeLocks    atomic.Int64
}

// NewMetrics creates the instruments on provider, or on the global
// provider when provider is nil. Instrument errors are logged and the
// instrument is skipped.
func NewMetrics(provider metric.MeterProvider, logger *slog.Logger) *Metrics {
	var meter metric.Meter
	if provider != nil {
		meter = provider.Meter(meterName)
	} else {
		meter = otel.Meter(meterName)
	}
	m := &Metrics{}
	var err error

	m.engageCount, err = meter.Int64Counter(
		"commitguard.lock.engage",
		metric.WithDescription("Engage attempts by result"),
	)
	logMetricInitError(logger, "commitguard.lock.engage", err)

	m.engageDuration, err = meter.Int64Histogram(
		"commitguard.lock.engage.duration_ms",
		metric.WithDescription("Engage duration"),
		metric.WithUnit("ms"),
	)
	logMetricInitError(logger, "commitguard.lock.engage.duration_ms", err)

	m.releaseCount, err = meter.Int64Counter(
		"commitguard.lock.release",
		metric.WithDescription("Lock releases by audit kind"),
	)
	logMetricInitError(logger, "commitguard.lock.release", err)

	m.resetCount, err = meter.Int64Counter(
		"commitguard.node.reset",
		metric.WithDescription("Node resets"),
	)
	logMetricInitError(logger, "commitguard.node.reset", err)

	m.activeGauge, err = meter.Int64ObservableGauge(
		"commitguard.lock.active",
		metric.WithDescription("Locks currently held"),
	)
	logMetricInitError(logger, "commitguard.lock.active", err)

	if m.activeGauge != nil {
		if _, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(m.activeGauge, m.activeLocks.Load())
			return nil
		}, m.activeGauge); err != nil && logger != nil {
			logger.Warn("telemetry.metric.callback_failed", "name", "commitguard.lock.active", "error", err)
		}
	}
	return m
}

func logMetricInitError(logger *slog.Logger, name string, err error) {
	if err != nil && logger != nil {
		logger.Warn("telemetry.metric.init_failed", "name", name, "error", err)
	}
}

// SetActiveLocks seeds the active gauge, typically from the store at
// startup.
func (m *Metrics) SetActiveLocks(n int64) {
	if m == nil {
		return
	}
	m.activeLocks.Store(n)
}

// ActiveLocks returns the gauge's current value.
func (m *Metrics) ActiveLocks() int64 {
	if m == nil {
		return 0
	}
	return m.activeLocks.Load()
}

func (m *Metrics) recordEngage(ctx context.Context, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("commitguard.result", resultLabel(err)))
	if m.engageCount != nil {
		m.engageCount.Add(ctx, 1, attrs)
	}
	if m.engageDuration != nil {
		m.engageDuration.Record(ctx, d.Milliseconds(), attrs)
	}
	if err == nil {
		m.activeLocks.Add(1)
	}
}

// Release labels for locks dropped by node administration. Those drops
// write no audit entry, so they are kept apart from the audit kinds.
const (
	releaseNodeEdit   = "node_edit"
	releaseNodeDelete = "node_delete"
)

func (m *Metrics) recordRelease(ctx context.Context, kind domain.AuditKind, n int64) {
	m.recordReleaseAs(ctx, string(kind), n)
}

func (m *Metrics) recordReleaseAs(ctx context.Context, label string, n int64) {
	if m == nil || n == 0 {
		return
	}
	if m.releaseCount != nil {
		m.releaseCount.Add(ctx, n, metric.WithAttributes(attribute.String("commitguard.kind", label)))
	}
	m.activeLocks.Add(-n)
}

func (m *Metrics) recordReset(ctx context.Context, mode domain.ResetMode, locksReleased int64) {
	if m == nil {
		return
	}
	if m.resetCount != nil {
		m.resetCount.Add(ctx, 1, metric.WithAttributes(attribute.String("commitguard.reset_mode", string(mode))))
	}
	m.recordRelease(ctx, domain.AuditReset, locksReleased)
}

// resultLabel is "ok", the failure code, or "error".
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code := failureCode(err); code != "" {
		return code
	}
	return "error"
}
