package otel

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("test"))

	rm, err := p.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rm.ScopeMetrics)

	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutSinks(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "threatsim"})
	assert.ErrorIs(t, err, ErrNoLogSink)
}

func TestNew_CollectsMetrics(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{Enabled: true, ServiceName: "threatsim", LogWriter: &buf})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	require.NotNil(t, p.LoggerProvider())

	counter, err := p.Meter("test").Int64Counter("enemies.evicted")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rm, err := p.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)

	m := rm.ScopeMetrics[0].Metrics[0]
	assert.Equal(t, "enemies.evicted", m.Name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	assert.NoError(t, p.Flush(context.Background()))
}

func TestTotals_SumsAttributeSets(t *testing.T) {
	p, err := New(Config{Enabled: true, ServiceName: "threatsim", LogWriter: &bytes.Buffer{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	ctx := context.Background()
	dropped, err := p.Meter("b").Int64Counter("dropped")
	require.NoError(t, err)
	evicted, err := p.Meter("a").Int64Counter("evicted")
	require.NoError(t, err)
	hist, err := p.Meter("a").Float64Histogram("score")
	require.NoError(t, err)

	evicted.Add(ctx, 2, metric.WithAttributes(attribute.Int("agent", 1)))
	evicted.Add(ctx, 5, metric.WithAttributes(attribute.Int("agent", 2)))
	dropped.Add(ctx, 1)
	hist.Record(ctx, 0.5)

	totals, err := p.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Total{
		{Scope: "a", Name: "evicted", Value: 7},
		{Scope: "b", Name: "dropped", Value: 1},
	}, totals)
}

func TestShutdown_Idempotent(t *testing.T) {
	p, err := New(Config{Enabled: true, ServiceName: "threatsim", LogWriter: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}
