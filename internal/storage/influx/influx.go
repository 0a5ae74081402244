// Package influxstorage writes session traces as InfluxDB points.
package influxstorage

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/OCAP2/awareness/internal/influx"
	"github.com/OCAP2/awareness/internal/storage"
	"github.com/OCAP2/awareness/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementSelection = "selection"
	MeasurementEviction  = "eviction"
	MeasurementHurt      = "hurt"
)

// Writer is the part of influx.Manager the backend needs.
type Writer interface {
	Connect(ctx context.Context) error
	WritePoint(point *influxdb2_write.Point) error
	Flush() error
	Close() error
}

var _ Writer = (*influx.Manager)(nil)

// Backend maps traces to points. Simulated milliseconds are offset from
// the session start so every session lands on its own stretch of the time axis.
type Backend struct {
	w       Writer
	mu      sync.RWMutex
	session *core.Session
}

var _ storage.Backend = (*Backend)(nil)

// New creates an influx backend on w.
func New(w Writer) *Backend {
	return &Backend{w: w}
}

// Init connects the writer.
func (b *Backend) Init() error {
	if err := b.w.Connect(context.Background()); err != nil {
		return fmt.Errorf("failed to connect to influx: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.w.Close()
}

func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = s
	return nil
}

func (b *Backend) EndSession() error {
	return b.w.Flush()
}

func (b *Backend) point(measurement string, t core.Timestamp) *influxdb2_write.Point {
	b.mu.RLock()
	defer b.mu.RUnlock()

	base := time.Unix(0, 0)
	p := influxdb2_write.NewPointWithMeasurement(measurement)
	if b.session != nil {
		base = b.session.StartedAt
		p.AddTag("session", b.session.ID.String())
		p.AddTag("scenario", b.session.Scenario)
	}
	return p.SetTime(base.Add(time.Duration(t) * time.Millisecond))
}

// finite clamps values line protocol cannot carry.
func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

func entityTag(id core.EntityID) string {
	return strconv.FormatUint(uint64(id), 10)
}

func (b *Backend) RecordSelection(t *core.SelectionTrace) error {
	p := b.point(MeasurementSelection, t.Time).
		AddTag("agent", entityTag(t.Agent)).
		AddField("frame", uint64(t.Frame)).
		AddField("primary", int64(t.Primary)).
		AddField("lost", int64(t.Lost)).
		AddField("active", len(t.Active)).
		AddField("tracked", t.Tracked).
		AddField("capacity", t.Capacity).
		AddField("max_threat", t.MaxThreat).
		AddField("can_hit", t.CanHit)
	if len(t.Scores) > 0 {
		p.AddField("top_score", finite(t.Scores[0]))
	}
	return b.w.WritePoint(p)
}

func (b *Backend) RecordEviction(t *core.EvictionTrace) error {
	p := b.point(MeasurementEviction, t.Time).
		AddTag("owner", t.Owner).
		AddField("incoming", int64(t.Incoming)).
		AddField("evicted", int64(t.Evicted)).
		AddField("score", finite(t.Score)).
		AddField("dropped", t.Dropped)
	return b.w.WritePoint(p)
}

func (b *Backend) RecordHurt(t *core.HurtTrace) error {
	p := b.point(MeasurementHurt, t.Time).
		AddTag("agent", entityTag(t.Agent)).
		AddField("inflictor", int64(t.Inflictor)).
		AddField("damage", t.TotalDamage).
		AddField("origin_x", t.PossibleOrigin.X).
		AddField("origin_y", t.PossibleOrigin.Y).
		AddField("origin_z", t.PossibleOrigin.Z)
	return b.w.WritePoint(p)
}
