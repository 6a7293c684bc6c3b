package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const careMeterName = "plant-care/engine"

// CareMetrics records engine activity. A nil *CareMetrics is a valid no-op.
type CareMetrics struct {
	triggers        metric.Int64Counter
	entriesPosted   metric.Int64Counter
	actions         metric.Int64Counter
	reconcileItems  metric.Int64Counter
	triggerDuration metric.Float64Histogram
}

func NewCareMetrics() (*CareMetrics, error) {
	meter := otel.Meter(careMeterName)

	triggers, err := meter.Int64Counter(
		"plantcare_triggers_total",
		metric.WithDescription("Daily trigger runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	entriesPosted, err := meter.Int64Counter(
		"plantcare_notification_entries_total",
		metric.WithDescription("Due schedules rendered into a notification batch"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	actions, err := meter.Int64Counter(
		"plantcare_actions_total",
		metric.WithDescription("Schedule mutations by action and outcome"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, err
	}

	reconcileItems, err := meter.Int64Counter(
		"plantcare_reconcile_items_total",
		metric.WithDescription("Reconciled recommendations by outcome"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	triggerDuration, err := meter.Float64Histogram(
		"plantcare_trigger_duration_seconds",
		metric.WithDescription("Time spent building the daily notification batch"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, err
	}

	return &CareMetrics{
		triggers:        triggers,
		entriesPosted:   entriesPosted,
		actions:         actions,
		reconcileItems:  reconcileItems,
		triggerDuration: triggerDuration,
	}, nil
}

func (m *CareMetrics) RecordTrigger(ctx context.Context, entrypoint, outcome string, entries int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("entrypoint", entrypoint),
		attribute.String("outcome", outcome),
	)
	m.triggers.Add(ctx, 1, attrs)
	m.triggerDuration.Record(ctx, duration.Seconds(), attrs)
	if entries > 0 {
		m.entriesPosted.Add(ctx, int64(entries))
	}
}

func (m *CareMetrics) RecordAction(ctx context.Context, action string, err error) {
	if m == nil {
		return
	}
	m.actions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome(err)),
	))
}

func (m *CareMetrics) RecordReconcileItem(ctx context.Context, outcome string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.reconcileItems.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
