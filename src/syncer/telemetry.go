package syncer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "budget-server/src/syncer"

// metrics are no-ops unless the host installs an OpenTelemetry SDK.
type metrics struct {
	recordsSynced  metric.Int64Counter
	recordsFailed  metric.Int64Counter
	legFailures    metric.Int64Counter
	recordsPruned  metric.Int64Counter
	cycleDurations metric.Float64Histogram
}

func initMetrics(meter metric.Meter) *metrics {
	recordsSynced, _ := meter.Int64Counter("sync.records.synced",
		metric.WithDescription("Records upserted into the local store"),
		metric.WithUnit("{record}"),
	)
	recordsFailed, _ := meter.Int64Counter("sync.records.failed",
		metric.WithDescription("Records skipped after a parse or write failure"),
		metric.WithUnit("{record}"),
	)
	legFailures, _ := meter.Int64Counter("sync.leg.failures",
		metric.WithDescription("Legs rolled back after a batch-level error"),
		metric.WithUnit("{leg}"),
	)
	recordsPruned, _ := meter.Int64Counter("sync.records.pruned",
		metric.WithDescription("Records deleted from the external source"),
		metric.WithUnit("{record}"),
	)
	cycleDurations, _ := meter.Float64Histogram("sync.cycle.duration",
		metric.WithDescription("Full sync cycle duration in seconds"),
		metric.WithUnit("s"),
	)

	return &metrics{
		recordsSynced:  recordsSynced,
		recordsFailed:  recordsFailed,
		legFailures:    legFailures,
		recordsPruned:  recordsPruned,
		cycleDurations: cycleDurations,
	}
}

func defaultMetrics() *metrics {
	return initMetrics(otel.Meter(instrumentationName))
}

func (m *metrics) recordLeg(ctx context.Context, typ string, res LegResult) {
	attrs := metric.WithAttributes(attribute.String("sync_type", typ))
	if res.Status != StatusSuccess {
		m.legFailures.Add(ctx, 1, attrs)
		return
	}
	if res.RecordsSynced != nil {
		m.recordsSynced.Add(ctx, *res.RecordsSynced, attrs)
	}
	m.recordsFailed.Add(ctx, int64(res.RecordsFailed), attrs)
}
