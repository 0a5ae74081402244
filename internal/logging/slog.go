package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const loggerName = "threatsim"

// SlogManager builds the process logger from a text sink, an optional GELF
// sink and the OpenTelemetry bridge.
type SlogManager struct {
	logger *slog.Logger

	stdout       io.Writer
	graylog      io.Writer
	graylogLevel slog.Level
	context      ContextProvider

	logProvider *sdklog.LoggerProvider
}

func NewSlogManager() *SlogManager {
	return &SlogManager{stdout: os.Stdout}
}

// SetGraylogWriter adds a GELF sink receiving records at level and above
// to the next Setup. A nil writer disables it.
func (m *SlogManager) SetGraylogWriter(w io.Writer, level string) {
	m.graylog = w
	m.graylogLevel = ParseLevel(level)
}

// SetContextProvider makes every record of the next Setup carry the
// attributes returned by p, typically the simulation clock.
func (m *SlogManager) SetContextProvider(p ContextProvider) { m.context = p }

// ParseLevel accepts slog level names in any case. Anything else is info.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func utcMillis(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	}
	return a
}

// Setup replaces the logger. Text records go to file, or stdout when file is
// nil. A nil provider disables the OTel bridge.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	lvl := ParseLevel(level)
	m.logProvider = provider

	opts := &slog.HandlerOptions{Level: lvl, ReplaceAttr: utcMillis}
	out := file
	if out == nil {
		out = m.stdout
	}

	sinks := []Sink{{Handler: slog.NewTextHandler(out, opts)}}
	if m.graylog != nil {
		sinks = append(sinks, Sink{
			Handler: slog.NewJSONHandler(m.graylog, &slog.HandlerOptions{ReplaceAttr: utcMillis}),
			Level:   max(lvl, m.graylogLevel),
		})
	}
	if provider != nil {
		sinks = append(sinks, Sink{
			Handler: otelslog.NewHandler(loggerName, otelslog.WithLoggerProvider(provider)),
			Level:   lvl,
		})
	}

	m.logger = slog.New(NewFanout(m.context, sinks...))
	m.logger.Info("Logging initialized", "level", lvl.String())
}

// Logger returns slog.Default until Setup has run.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes buffered OTel records out.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider == nil {
		return nil
	}
	return m.logProvider.ForceFlush(ctx)
}
