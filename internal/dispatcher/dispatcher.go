// Package dispatcher routes simulator commands to their handlers. Queued
// handlers run when the simulation thread drains the queue, so command
// effects land at a well-defined point of the tick.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/awareness/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event represents an incoming command.
type Event struct {
	Command string
	Args    []string
	// Time is the simulation time the command was issued at.
	Time core.Timestamp
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	queueSize int
	blocking  bool
	logged    bool
}

// Queued defers the handler to the next Drain, holding at most size events.
func Queued(size int) Option {
	return func(c *config) {
		c.queueSize = size
	}
}

// Blocking makes a full queue drain itself instead of dropping the event.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type queuedEvent struct {
	event   Event
	handler HandlerFunc
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter

	// pending keeps arrival order across commands
	mu      sync.Mutex
	pending []queuedEvent
	depth   map[string]int
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		depth:    make(map[string]int),
		logger:   logger,
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events waiting for the next drain"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.Lock()
			defer d.mu.Unlock()
			for cmd, n := range d.depth {
				o.ObserveInt64(d.queueSize, int64(n),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total queued events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.events.failed",
		metric.WithDescription("Total queued events whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	if cfg.queueSize > 0 {
		handler = d.withQueue(command, cfg.queueSize, cfg.blocking, handler)
	}

	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Pending is the number of queued events.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Drain runs every queued event in arrival order and returns how many ran.
// Events queued by handlers during the drain wait for the next one.
func (d *Dispatcher) Drain(ctx context.Context) int {
	d.mu.Lock()
	batch := d.pending
	d.pending = nil
	clear(d.depth)
	d.mu.Unlock()

	for i, q := range batch {
		if ctx.Err() != nil {
			d.requeue(batch[i:])
			return i
		}
		d.run(ctx, q)
	}
	return len(batch)
}

func (d *Dispatcher) run(ctx context.Context, q queuedEvent) {
	cmdAttr := metric.WithAttributes(attribute.String("command", q.event.Command))
	if _, err := q.handler(q.event); err != nil {
		d.failed.Add(ctx, 1, cmdAttr)
		d.logger.Error("queued event failed", "command", q.event.Command, "error", err)
	}
	d.processed.Add(ctx, 1, cmdAttr)
}

func (d *Dispatcher) requeue(rest []queuedEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(rest, d.pending...)
	for _, q := range rest {
		d.depth[q.event.Command]++
	}
}

func (d *Dispatcher) withQueue(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	cmdAttr := metric.WithAttributes(attribute.String("command", command))

	return func(e Event) (any, error) {
		d.mu.Lock()
		full := d.depth[command] >= size
		if !full {
			d.pending = append(d.pending, queuedEvent{event: e, handler: h})
			d.depth[command]++
		}
		d.mu.Unlock()

		if !full {
			return "queued", nil
		}
		if blocking {
			d.Drain(context.Background())
			return d.handlers[command](e)
		}
		d.dropped.Add(context.Background(), 1, cmdAttr)
		return nil, fmt.Errorf("queue full: %s", command)
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args), "time", e.Time)

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
