package logging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/OCAP2/awareness/pkg/core"
)

// ContextProvider returns attributes added to every record at handling time.
type ContextProvider func() []slog.Attr

// Clock is the part of the simulation a ContextProvider reads.
type Clock interface {
	Now() core.Timestamp
	Frame() core.Frame
}

// ClockContext stamps records with the simulation time and frame.
func ClockContext(c Clock) ContextProvider {
	return func() []slog.Attr {
		return []slog.Attr{
			slog.Int64("simTime", int64(c.Now())),
			slog.Uint64("frame", uint64(c.Frame())),
		}
	}
}

// Sink is one log destination. Records below Level never reach it; a nil
// Level lets the handler decide alone.
type Sink struct {
	Handler slog.Handler
	Level   slog.Leveler
}

func (s Sink) enabled(ctx context.Context, level slog.Level) bool {
	if s.Level != nil && level < s.Level.Level() {
		return false
	}
	return s.Handler.Enabled(ctx, level)
}

// Fanout sends each record to every sink that accepts its level, after
// stamping it with the context provider's attributes.
type Fanout struct {
	sinks   []Sink
	context ContextProvider
}

// NewFanout drops sinks without a handler. provider may be nil.
func NewFanout(provider ContextProvider, sinks ...Sink) *Fanout {
	f := &Fanout{context: provider}
	for _, s := range sinks {
		if s.Handler != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range f.sinks {
		if s.enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle keeps going when a sink fails and returns the joined failures.
func (f *Fanout) Handle(ctx context.Context, r slog.Record) error {
	if f.context != nil {
		r.AddAttrs(f.context()...)
	}
	var errs []error
	for _, s := range f.sinks {
		if !s.enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *Fanout) derive(fn func(slog.Handler) slog.Handler) *Fanout {
	sinks := make([]Sink, len(f.sinks))
	for i, s := range f.sinks {
		sinks[i] = Sink{Handler: fn(s.Handler), Level: s.Level}
	}
	return &Fanout{sinks: sinks, context: f.context}
}
