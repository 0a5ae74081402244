package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func newManager(stdout *bytes.Buffer) *SlogManager {
	m := NewSlogManager()
	m.stdout = stdout
	return m
}

func TestSetup_Destination(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		var stdout, file bytes.Buffer
		m := newManager(&stdout)
		m.Setup(&file, "info", nil)
		m.Logger().Info("agent attached", "agent", 3)

		assert.Contains(t, file.String(), "agent attached")
		assert.Contains(t, file.String(), "agent=3")
		assert.Empty(t, stdout.String())
	})

	t.Run("stdout", func(t *testing.T) {
		var stdout bytes.Buffer
		m := newManager(&stdout)
		m.Setup(nil, "info", nil)
		m.Logger().Info("agent attached")

		assert.Contains(t, stdout.String(), "agent attached")
	})
}

func TestSetup_GraylogOnlyGetsItsLevel(t *testing.T) {
	var file, gelf bytes.Buffer
	m := newManager(&bytes.Buffer{})
	m.SetGraylogWriter(&gelf, "warn")
	m.Setup(&file, "debug", nil)

	m.Logger().Info("slot evicted", "enemy", 7)
	m.Logger().Warn("command rejected", "command", ":PAIN:")

	assert.Contains(t, file.String(), "slot evicted")
	assert.Contains(t, file.String(), "command rejected")
	assert.NotContains(t, gelf.String(), "slot evicted")
	assert.Contains(t, gelf.String(), `"msg":"command rejected"`)
	assert.Contains(t, gelf.String(), `"command":":PAIN:"`)
}

func TestSetup_GraylogNeverBelowFileLevel(t *testing.T) {
	var gelf bytes.Buffer
	m := newManager(&bytes.Buffer{})
	m.SetGraylogWriter(&gelf, "debug")
	m.Setup(&bytes.Buffer{}, "error", nil)

	m.Logger().Warn("dropped")
	assert.Empty(t, gelf.String())
}

func TestSetup_StampsClock(t *testing.T) {
	var buf bytes.Buffer
	m := newManager(&bytes.Buffer{})
	m.SetContextProvider(ClockContext(fakeClock{now: 1600, frame: 100}))
	m.Setup(&buf, "info", nil)
	m.Logger().Info("tick")

	assert.Contains(t, buf.String(), "simTime=1600")
	assert.Contains(t, buf.String(), "frame=100")
}

func TestSetup_Levels(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
	}{
		{"debug", true},
		{"info", false},
		{"bogus", false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := newManager(&bytes.Buffer{})
			m.Setup(&buf, tt.level, nil)
			m.Logger().Debug("think")
			m.Logger().Info("select")

			assert.Equal(t, tt.debugSeen, bytes.Contains(buf.Bytes(), []byte("think")))
			assert.Contains(t, buf.String(), "select")
		})
	}
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var first, second bytes.Buffer
	m := newManager(&bytes.Buffer{})

	m.Setup(&first, "info", nil)
	m.Logger().Info("first")
	m.Setup(&second, "info", nil)
	m.Logger().Info("second")

	assert.NotContains(t, first.String(), "second")
	assert.Contains(t, second.String(), "second")
}

func TestSetup_WithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	var buf bytes.Buffer
	m := newManager(&bytes.Buffer{})
	m.Setup(&buf, "info", provider)

	m.Logger().Info("bridged")
	assert.Contains(t, buf.String(), "bridged")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"Info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}
