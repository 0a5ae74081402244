// Package sim drives the awareness engine over a simulated world: commands
// are buffered between ticks, routed through the dispatcher and the worker
// handlers, and every tick's decisions are recorded to a trace backend.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/OCAP2/awareness/internal/awareness"
	"github.com/OCAP2/awareness/internal/dispatcher"
	"github.com/OCAP2/awareness/internal/enemies"
	"github.com/OCAP2/awareness/internal/logging"
	"github.com/OCAP2/awareness/internal/parser"
	"github.com/OCAP2/awareness/internal/perception"
	"github.com/OCAP2/awareness/internal/queue"
	"github.com/OCAP2/awareness/internal/session"
	"github.com/OCAP2/awareness/internal/squad"
	"github.com/OCAP2/awareness/internal/storage"
	"github.com/OCAP2/awareness/internal/worker"
	"github.com/OCAP2/awareness/internal/world"
	"github.com/OCAP2/awareness/pkg/core"
	"github.com/rs/zerolog"
)

var (
	// ErrAgentExists is returned when adding an agent twice.
	ErrAgentExists = errors.New("agent already exists")
	// ErrUnknownSquad is returned for squad operations on a squad nobody joined.
	ErrUnknownSquad = errors.New("unknown squad")
)

// Overrides replaces skill-derived table limits when set.
type Overrides struct {
	// Capacity overrides the table capacity when positive.
	Capacity         int
	ArmorProtection  float64
	ArmorDegradation float64
}

func (o Overrides) apply(t enemies.Tunables) enemies.Tunables {
	if o.Capacity > 0 {
		t.Capacity = o.Capacity
	}
	if o.ArmorProtection > 0 {
		t.ArmorProtection = o.ArmorProtection
	}
	if o.ArmorDegradation > 0 {
		t.ArmorDegradation = o.ArmorDegradation
	}
	return t
}

// Options configures a Driver.
type Options struct {
	World     world.Options
	Overrides Overrides
	// QueueSize bounds each queued perception command between ticks.
	QueueSize int
	// Backend receives traces; nil discards them.
	Backend storage.Backend
	Session *session.Context
	// Log is the application logger; CommandLog the per-tick command logger.
	Log        *slog.Logger
	CommandLog zerolog.Logger
	Seed       uint64
}

// Driver owns the world and every tracker and squad living in it.
// Tick and the worker.Engine methods must be called from one goroutine;
// Enqueue is safe from any goroutine.
type Driver struct {
	world   *world.Sim
	pvs     *perception.PVSCache
	scanner *perception.Scanner
	disp    *dispatcher.Dispatcher
	inbox   *queue.Queue[dispatcher.Event]

	agents map[core.EntityID]*awareness.Tracker
	squads map[string]*squad.Squad
	member map[core.EntityID]string

	overrides Overrides
	backend   storage.Backend
	session   *session.Context
	log       *slog.Logger
	cmdLog    zerolog.Logger
	tableLog  enemies.Logger
	rng       *rand.Rand

	stats    Stats
	statusMu sync.RWMutex
	status   Status
}

var _ worker.Engine = (*Driver)(nil)

// New creates a driver with an empty world and registers the command handlers.
func New(opts Options) (*Driver, error) {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Session == nil {
		opts.Session = session.NewContext()
	}

	d := &Driver{
		world:     world.NewSim(opts.World),
		inbox:     queue.New[dispatcher.Event](),
		agents:    make(map[core.EntityID]*awareness.Tracker),
		squads:    make(map[string]*squad.Squad),
		member:    make(map[core.EntityID]string),
		overrides: opts.Overrides,
		backend:   opts.Backend,
		session:   opts.Session,
		log:       opts.Log,
		cmdLog:    opts.CommandLog,
		rng:       rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5eed)),
	}
	d.pvs = perception.NewPVSCache(d.world)
	d.scanner = perception.NewScanner(d.world, d.pvs)

	dlog := logging.NewDispatcherLogger(opts.CommandLog)
	d.tableLog = dlog
	disp, err := dispatcher.New(dlog)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	d.disp = disp

	worker.NewManager(worker.Dependencies{
		ParserService: parser.NewParser(opts.Log),
		QueueSize:     opts.QueueSize,
	}, d).RegisterHandlers(disp)

	return d, nil
}

// World exposes the simulated world for setup and inspection.
func (d *Driver) World() *world.Sim { return d.world }

// Session is the session context the driver reports to.
func (d *Driver) Session() *session.Context { return d.session }

// Enqueue buffers a command until the next tick.
func (d *Driver) Enqueue(e dispatcher.Event) { d.inbox.Push(e) }

// Tracker returns the tracker of agent.
func (d *Driver) Tracker(agent core.EntityID) (*awareness.Tracker, bool) {
	t, ok := d.agents[agent]
	return t, ok
}

// Squad returns the named squad.
func (d *Driver) Squad(name string) (*squad.Squad, bool) {
	s, ok := d.squads[name]
	return s, ok
}

// Agents returns the agent ids in ascending order.
func (d *Driver) Agents() []core.EntityID {
	ids := make([]core.EntityID, 0, len(d.agents))
	for id := range d.agents {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (d *Driver) squadNames() []string {
	names := make([]string, 0, len(d.squads))
	for name := range d.squads {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Tick advances the world by one frame, applies the buffered commands and
// lets every agent and squad think. Agents run in ascending id order and
// squads in name order so that runs are reproducible.
func (d *Driver) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.world.Advance(d.world.FrameTime())
	now := d.world.Now()

	for _, e := range d.inbox.Drain() {
		if e.Time == 0 {
			e.Time = now
		}
		if _, err := d.disp.Dispatch(e); err != nil {
			d.stats.FailedCommands++
			d.cmdLog.Warn().Err(err).Str("command", e.Command).Strs("args", e.Args).Msg("command rejected")
		}
	}
	d.stats.DrainedCommands += d.disp.Drain(ctx)

	agents := d.Agents()
	for _, id := range agents {
		d.agents[id].Frame()
	}
	for _, name := range d.squadNames() {
		d.squads[name].Update()
	}
	for _, id := range agents {
		d.agents[id].Think()
	}

	for _, id := range agents {
		tr := d.selectionTrace(d.agents[id])
		d.record("selection", d.backendRecordSelection(&tr))
	}
	d.stats.Ticks++
	d.publishStatus()
	return nil
}

// Run ticks n times, feeding scheduled commands in on the tick whose time reaches them.
// schedule must be sorted by Time.
func (d *Driver) Run(ctx context.Context, n int, schedule []dispatcher.Event) error {
	next := 0
	for range n {
		due := d.world.Now() + d.world.FrameTime()
		for next < len(schedule) && schedule[next].Time <= due {
			e := schedule[next]
			e.Time = due
			d.Enqueue(e)
			next++
		}
		if err := d.Tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) selectionTrace(t *awareness.Tracker) core.SelectionTrace {
	tr := core.SelectionTrace{
		Time:     d.world.Now(),
		Frame:    d.world.Frame(),
		Agent:    t.Agent(),
		Tracked:  t.ActiveTable().Len(),
		Capacity: t.ActiveTable().Capacity(),
	}
	sel := t.SelectedEnemies()
	if p := sel.Primary(); p.IsValid() {
		tr.Primary = p.Entity()
		tr.MaxThreat = sel.MaxThreatFactor()
		tr.CanHit = sel.CanHit()
	}
	if lost := t.LostEnemy(); lost.IsValid() {
		tr.Lost = lost.Entity()
	}
	for _, e := range sel.Active() {
		tr.Active = append(tr.Active, e.Entity())
		tr.Scores = append(tr.Scores, e.ScoreAsActive())
	}
	return tr
}

func (d *Driver) backendRecordSelection(t *core.SelectionTrace) error {
	if d.backend == nil {
		return nil
	}
	return d.backend.RecordSelection(t)
}

func (d *Driver) record(kind string, err error) {
	if err != nil {
		d.stats.TraceErrors++
		d.cmdLog.Error().Err(err).Str("trace", kind).Msg("failed to record trace")
	}
}

// OnEviction records eviction decisions of every table.
func (d *Driver) OnEviction(t core.EvictionTrace) {
	d.stats.Evictions++
	if d.backend != nil {
		d.record("eviction", d.backend.RecordEviction(&t))
	}
}

func (d *Driver) onHurt(t core.HurtTrace) {
	d.stats.Hurts++
	if d.backend != nil {
		d.record("hurt", d.backend.RecordHurt(&t))
	}
}

// Start begins a trace session.
func (d *Driver) Start(s *core.Session) error {
	d.session.Set(s)
	if d.backend == nil {
		return nil
	}
	if err := d.backend.StartSession(s); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return nil
}

// Stop ends the trace session.
func (d *Driver) Stop() error {
	d.session.End()
	if d.backend == nil {
		return nil
	}
	if err := d.backend.EndSession(); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// Close releases every table.
func (d *Driver) Close() {
	for _, t := range d.agents {
		t.Close()
	}
	for _, s := range d.squads {
		s.Close()
	}
	clear(d.agents)
	clear(d.squads)
	clear(d.member)
}
