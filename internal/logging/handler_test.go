package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/OCAP2/awareness/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now   core.Timestamp
	frame core.Frame
}

func (c fakeClock) Now() core.Timestamp { return c.now }
func (c fakeClock) Frame() core.Frame   { return c.frame }

func textSink(buf *bytes.Buffer, level slog.Leveler) Sink {
	return Sink{
		Handler: slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		Level:   level,
	}
}

func TestFanout_PerSinkLevels(t *testing.T) {
	var all, warnings bytes.Buffer
	log := slog.New(NewFanout(nil, textSink(&all, nil), textSink(&warnings, slog.LevelWarn)))

	log.Debug("scan")
	log.Warn("queue full")

	assert.Contains(t, all.String(), "scan")
	assert.Contains(t, all.String(), "queue full")
	assert.NotContains(t, warnings.String(), "scan")
	assert.Contains(t, warnings.String(), "queue full")
}

func TestFanout_Enabled(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer

	warnOnly := NewFanout(nil, textSink(&buf, slog.LevelWarn))
	assert.False(t, warnOnly.Enabled(ctx, slog.LevelInfo))
	assert.True(t, warnOnly.Enabled(ctx, slog.LevelError))

	mixed := NewFanout(nil, textSink(&buf, slog.LevelWarn), textSink(&buf, slog.LevelDebug))
	assert.True(t, mixed.Enabled(ctx, slog.LevelDebug))

	assert.False(t, NewFanout(nil).Enabled(ctx, slog.LevelError))
}

func TestFanout_DropsEmptySinks(t *testing.T) {
	var buf bytes.Buffer
	f := NewFanout(nil, Sink{}, textSink(&buf, nil), Sink{Level: slog.LevelInfo})
	require.Len(t, f.sinks, 1)

	slog.New(f).Info("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestFanout_ContextOnEveryRecord(t *testing.T) {
	var buf bytes.Buffer
	clock := &struct{ fakeClock }{fakeClock{now: 32, frame: 2}}
	log := slog.New(NewFanout(ClockContext(clock), textSink(&buf, nil)))

	log.Info("one")
	clock.now, clock.frame = 48, 3
	log.With("agent", 1).Info("two")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "simTime=32 frame=2")
	assert.Contains(t, string(lines[1]), "agent=1")
	assert.Contains(t, string(lines[1]), "simTime=48 frame=3")
}

func TestFanout_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	f := NewFanout(nil, textSink(&buf, nil))
	assert.Same(t, f, f.WithGroup(""))

	slog.New(f.WithGroup("slot")).Info("evicted", "enemy", 9)
	assert.Contains(t, buf.String(), "slot.enemy=9")
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink down")
}

func TestFanout_KeepsGoingOnError(t *testing.T) {
	var buf bytes.Buffer
	f := NewFanout(nil, Sink{Handler: failingHandler{}}, textSink(&buf, nil))

	err := f.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "still written", 0))
	assert.EqualError(t, err, "sink down")
	assert.Contains(t, buf.String(), "still written")
}
