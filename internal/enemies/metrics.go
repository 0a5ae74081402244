package enemies

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/awareness/internal/enemies"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// metrics are best-effort: a failed instrument is left nil and skipped.
type metrics struct {
	owner attribute.KeyValue

	evicted metric.Int64Counter
	dropped metric.Int64Counter
	removed metric.Int64Counter

	tracked      atomic.Int64
	trackedReg   metric.Registration
	trackedGauge metric.Int64ObservableGauge
}

func newMetrics(owner string, logger Logger) *metrics {
	m := meter()
	ms := &metrics{owner: attribute.String("owner", owner)}

	var err error
	if ms.evicted, err = m.Int64Counter(
		"awareness.enemies.evicted",
		metric.WithDescription("Tracked enemies replaced by a more relevant one"),
	); err != nil {
		logger.Error("creating evicted counter", "error", err)
	}
	if ms.dropped, err = m.Int64Counter(
		"awareness.enemies.dropped",
		metric.WithDescription("Sightings ignored because no slot could be freed"),
	); err != nil {
		logger.Error("creating dropped counter", "error", err)
	}
	if ms.removed, err = m.Int64Counter(
		"awareness.enemies.removed",
		metric.WithDescription("Tracked enemies forgotten"),
	); err != nil {
		logger.Error("creating removed counter", "error", err)
	}

	ms.trackedGauge, err = m.Int64ObservableGauge(
		"awareness.enemies.tracked",
		metric.WithDescription("Current number of tracked enemies"),
	)
	if err != nil {
		logger.Error("creating tracked gauge", "error", err)
		return ms
	}
	ms.trackedReg, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(ms.trackedGauge, ms.tracked.Load(), metric.WithAttributes(ms.owner))
			return nil
		},
		ms.trackedGauge,
	)
	if err != nil {
		logger.Error("registering tracked callback", "error", err)
	}
	return ms
}

func (m *metrics) add(c metric.Int64Counter) {
	if c != nil {
		c.Add(context.Background(), 1, metric.WithAttributes(m.owner))
	}
}

func (m *metrics) close() {
	if m.trackedReg != nil {
		_ = m.trackedReg.Unregister()
	}
}
