package storage

import (
	"errors"

	"github.com/OCAP2/awareness/pkg/core"
)

// Fanout forwards every call to each backend in order. Errors are joined;
// a failing backend does not stop the others.
type Fanout []Backend

var _ Backend = Fanout(nil)

func (f Fanout) each(fn func(Backend) error) error {
	var errs []error
	for _, b := range f {
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Init() error       { return f.each(Backend.Init) }
func (f Fanout) Close() error      { return f.each(Backend.Close) }
func (f Fanout) EndSession() error { return f.each(Backend.EndSession) }

func (f Fanout) StartSession(s *core.Session) error {
	return f.each(func(b Backend) error { return b.StartSession(s) })
}

func (f Fanout) RecordSelection(t *core.SelectionTrace) error {
	return f.each(func(b Backend) error { return b.RecordSelection(t) })
}

func (f Fanout) RecordEviction(t *core.EvictionTrace) error {
	return f.each(func(b Backend) error { return b.RecordEviction(t) })
}

func (f Fanout) RecordHurt(t *core.HurtTrace) error {
	return f.each(func(b Backend) error { return b.RecordHurt(t) })
}

// Exportable returns the first backend producing a trace file.
func (f Fanout) Exportable() (Exportable, bool) {
	for _, b := range f {
		if e, ok := b.(Exportable); ok {
			return e, true
		}
	}
	return nil, false
}
