package sim

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/OCAP2/awareness/internal/dispatcher"
	"github.com/OCAP2/awareness/internal/scenario"
	"github.com/OCAP2/awareness/internal/worker"
	"github.com/OCAP2/awareness/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	mu         sync.Mutex
	started    *core.Session
	ended      bool
	selections []core.SelectionTrace
	evictions  []core.EvictionTrace
	hurts      []core.HurtTrace
	failWith   error
}

func (b *recordingBackend) Init() error  { return nil }
func (b *recordingBackend) Close() error { return nil }

func (b *recordingBackend) StartSession(s *core.Session) error {
	b.started = s
	return nil
}

func (b *recordingBackend) EndSession() error {
	b.ended = true
	return nil
}

func (b *recordingBackend) RecordSelection(t *core.SelectionTrace) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selections = append(b.selections, *t)
	return b.failWith
}

func (b *recordingBackend) RecordEviction(t *core.EvictionTrace) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evictions = append(b.evictions, *t)
	return nil
}

func (b *recordingBackend) RecordHurt(t *core.HurtTrace) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hurts = append(b.hurts, *t)
	return nil
}

func newDriver(t *testing.T, backend *recordingBackend) *Driver {
	t.Helper()
	opts := Options{CommandLog: zerolog.Nop(), Seed: 7}
	if backend != nil {
		opts.Backend = backend
	}
	d, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

// entityArgs builds a :ENTITY:STATE: payload facing +X.
func entityArgs(id core.EntityID, team int, x float64) []string {
	return []string{
		fmt.Sprint(id), fmt.Sprintf("e%d", id), fmt.Sprint(team),
		fmt.Sprintf("%v,0,0", x), "0,0,0", "1,0,0",
		"100", "0", "true", "0", "0", "", "0.5", "0",
	}
}

func cmd(command string, args ...string) dispatcher.Event {
	return dispatcher.Event{Command: command, Args: args}
}

func TestNew_RegistersCommands(t *testing.T) {
	d := newDriver(t, nil)
	for _, c := range []string{worker.CmdEntityState, worker.CmdAgentNew, worker.CmdEnemyViewed, worker.CmdSquadRole} {
		assert.True(t, d.disp.HasHandler(c), c)
	}
}

func TestAddAgent(t *testing.T) {
	d := newDriver(t, nil)

	require.NoError(t, d.AddAgent(1, 0.5))
	assert.ErrorIs(t, d.AddAgent(1, 0.5), ErrAgentExists)
	assert.Error(t, d.AddAgent(core.NoEntity, 0.5))

	a, ok := d.Agent(1)
	require.True(t, ok)
	assert.NotNil(t, a)

	a, ok = d.Agent(2)
	assert.False(t, ok)
	assert.Nil(t, a)

	assert.Equal(t, []core.EntityID{1}, d.Agents())
}

func TestAddAgent_AppliesOverrides(t *testing.T) {
	d, err := New(Options{CommandLog: zerolog.Nop(), Overrides: Overrides{Capacity: 2}})
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.AddAgent(1, 1))
	tr, ok := d.Tracker(1)
	require.True(t, ok)
	assert.Equal(t, 2, tr.Table().Capacity())
}

func TestRemoveAgent(t *testing.T) {
	d := newDriver(t, nil)
	assert.ErrorIs(t, d.RemoveAgent(5), worker.ErrUnknownAgent)

	require.NoError(t, d.AddAgent(5, 0.5))
	require.NoError(t, d.JoinSquad("red", 5))
	require.NoError(t, d.RemoveAgent(5))

	_, ok := d.Tracker(5)
	assert.False(t, ok)
	_, ok = d.Squad("red")
	assert.False(t, ok, "last member leaving closes the squad")
}

func TestSquadMembership(t *testing.T) {
	d := newDriver(t, nil)
	require.NoError(t, d.AddAgent(1, 0.5))
	require.NoError(t, d.AddAgent(2, 0.5))

	assert.ErrorIs(t, d.JoinSquad("red", 9), worker.ErrUnknownAgent)
	require.NoError(t, d.JoinSquad("red", 1))
	require.NoError(t, d.JoinSquad("red", 2))
	require.NoError(t, d.JoinSquad("red", 2), "joining twice is a no-op")

	s, ok := d.Squad("red")
	require.True(t, ok)
	assert.Len(t, s.Members(), 2)

	tr, _ := d.Tracker(1)
	assert.Same(t, s.Table(), tr.ActiveTable())

	require.NoError(t, d.SetRoleWeight("red", 1, 2))
	assert.ErrorIs(t, d.SetRoleWeight("blue", 1, 2), ErrUnknownSquad)

	// switching squads leaves the old one
	require.NoError(t, d.JoinSquad("blue", 2))
	assert.Len(t, s.Members(), 1)
	blue, ok := d.Squad("blue")
	require.True(t, ok)
	tr2, _ := d.Tracker(2)
	assert.Same(t, blue.Table(), tr2.ActiveTable())

	assert.ErrorIs(t, d.LeaveSquad("green", 1), ErrUnknownSquad)
	require.NoError(t, d.LeaveSquad("red", 1))
	_, ok = d.Squad("red")
	assert.False(t, ok)
	assert.Same(t, tr.Table(), tr.ActiveTable())
}

func TestRemoveEntity_ForgetsEverywhere(t *testing.T) {
	d := newDriver(t, nil)
	d.PutEntity(core.EntityState{ID: 1, Team: 1, InUse: true, IsClient: true, Health: 100, Forward: core.Vec3{X: 1}, FovDot: 0.5})
	d.PutEntity(core.EntityState{ID: 2, Team: 2, InUse: true, IsClient: true, Health: 100, Origin: core.Vec3{X: 500}})
	require.NoError(t, d.AddAgent(1, 1))

	ctx := context.Background()
	for range 3 {
		require.NoError(t, d.Tick(ctx))
	}
	tr, _ := d.Tracker(1)
	require.Equal(t, 1, tr.Table().Len())

	d.RemoveEntity(2)
	assert.Equal(t, 0, tr.Table().Len())

	d.RemoveEntity(1)
	_, ok := d.Tracker(1)
	assert.False(t, ok, "removing an agent's entity removes the agent")
}

func TestTick_SoundsReachEveryAgent(t *testing.T) {
	d := newDriver(t, nil)
	d.Enqueue(cmd(worker.CmdEntityState, entityArgs(1, 1, 0)...))
	d.Enqueue(cmd(worker.CmdEntityState, entityArgs(3, 3, 100)...))
	d.Enqueue(cmd(worker.CmdEntityState, entityArgs(2, 2, -600)...))
	d.Enqueue(cmd(worker.CmdAgentNew, "1", "1"))
	d.Enqueue(cmd(worker.CmdAgentNew, "3", "1"))
	d.Enqueue(cmd(worker.CmdSound, "2", "fire", "-600,0,0"))
	require.NoError(t, d.Tick(context.Background()))

	for _, id := range []core.EntityID{1, 3} {
		tr, ok := d.Tracker(id)
		require.True(t, ok)
		e := tr.Table().Lookup(2)
		require.NotNil(t, e, "agent %d", id)
		assert.Equal(t, core.Vec3{X: -600}, e.LastSeenOrigin())
	}
}

func TestTick_SelectsAndRecords(t *testing.T) {
	backend := &recordingBackend{}
	d := newDriver(t, backend)
	s := core.NewSession("tick", "inline", 1)
	require.NoError(t, d.Start(&s))
	assert.Same(t, &s, backend.started)

	d.Enqueue(cmd(worker.CmdEntityState, entityArgs(1, 1, 0)...))
	d.Enqueue(cmd(worker.CmdEntityState, entityArgs(2, 2, 500)...))
	d.Enqueue(cmd(worker.CmdAgentNew, "1", "1"))

	ctx := context.Background()
	for range 10 {
		require.NoError(t, d.Tick(ctx))
	}

	require.Len(t, backend.selections, 10)
	last := backend.selections[9]
	assert.Equal(t, core.EntityID(1), last.Agent)
	assert.Equal(t, core.EntityID(2), last.Primary)
	assert.Equal(t, []core.EntityID{2}, last.Active)
	require.Len(t, last.Scores, 1)
	assert.Equal(t, 1, last.Tracked)
	assert.Equal(t, core.Frame(10), last.Frame)
	assert.Equal(t, core.Timestamp(160), last.Time)
	assert.Zero(t, last.MaxThreat, "the enemy faces away")
	assert.False(t, last.CanHit)

	st := d.Status()
	assert.Equal(t, "tick", st.Session)
	assert.True(t, st.Running)
	assert.Equal(t, 10, st.Stats.Ticks)
	assert.Equal(t, 1, st.Agents)
	assert.Equal(t, 1, st.Tracked)
	assert.Zero(t, st.Pending)

	require.NoError(t, d.Stop())
	assert.True(t, backend.ended)
	assert.False(t, d.Session().Running())
}

func TestTick_PainRecordsHurt(t *testing.T) {
	backend := &recordingBackend{}
	d := newDriver(t, backend)

	d.Enqueue(cmd(worker.CmdEntityState, entityArgs(1, 1, 0)...))
	d.Enqueue(cmd(worker.CmdEntityState, entityArgs(3, 2, -300)...))
	d.Enqueue(cmd(worker.CmdAgentNew, "1", "0.5"))
	require.NoError(t, d.Tick(context.Background()))

	d.Enqueue(cmd(worker.CmdPain, "1", "3", "0", "25"))
	require.NoError(t, d.Tick(context.Background()))

	require.Len(t, backend.hurts, 1)
	assert.Equal(t, core.EntityID(3), backend.hurts[0].Inflictor)
	assert.Equal(t, 25.0, backend.hurts[0].TotalDamage)
	assert.Equal(t, 1, d.Status().Stats.Hurts)
}

func TestTick_RejectedCommandsAreCounted(t *testing.T) {
	d := newDriver(t, nil)
	d.Enqueue(cmd(":NOPE:"))
	d.Enqueue(cmd(worker.CmdAgentNew, "x"))
	require.NoError(t, d.Tick(context.Background()))

	assert.Equal(t, 2, d.Status().Stats.FailedCommands)
}

func TestTick_TraceErrorsAreCounted(t *testing.T) {
	backend := &recordingBackend{failWith: errors.New("disk full")}
	d := newDriver(t, backend)
	require.NoError(t, d.AddAgent(1, 0.5))
	require.NoError(t, d.Tick(context.Background()))

	assert.Equal(t, 1, d.Status().Stats.TraceErrors)
}

func TestTick_CancelledContext(t *testing.T) {
	d := newDriver(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, d.Tick(ctx), context.Canceled)
	assert.Equal(t, core.Frame(0), d.World().Frame())
}

func TestRun_FeedsSchedule(t *testing.T) {
	d := newDriver(t, nil)
	schedule := []dispatcher.Event{
		{Command: worker.CmdEntityState, Args: entityArgs(1, 1, 0), Time: 0},
		{Command: worker.CmdAgentNew, Args: []string{"1", "0.5"}, Time: 0},
		{Command: worker.CmdEntityState, Args: entityArgs(2, 2, 500), Time: 100},
	}

	require.NoError(t, d.Run(context.Background(), 5, schedule))
	assert.Equal(t, []core.EntityID{1}, d.Agents())
	_, ok := d.World().Entity(2)
	assert.False(t, ok, "not due before 100ms")

	require.NoError(t, d.Run(context.Background(), 2, schedule[2:]))
	_, ok = d.World().Entity(2)
	assert.True(t, ok)
}

func TestRun_Scenario(t *testing.T) {
	s, err := scenario.Load(filepath.Join("..", "scenario", "testdata", "squad.yaml"))
	require.NoError(t, err)

	backend := &recordingBackend{}
	d, err := New(Options{World: s.World.Options(), Backend: backend, CommandLog: zerolog.Nop(), Seed: 1})
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, s.Apply(d))
	session := core.NewSession(s.Name, s.Path, s.Skill)
	require.NoError(t, d.Start(&session))
	require.NoError(t, d.Run(context.Background(), s.Ticks, s.Events()))
	require.NoError(t, d.Stop())

	red, ok := d.Squad("red")
	require.True(t, ok)
	assert.Len(t, red.Members(), 2)
	assert.Positive(t, red.Table().Len())

	st := d.Status()
	assert.Equal(t, s.Ticks, st.Stats.Ticks)
	assert.Zero(t, st.Stats.FailedCommands)
	assert.Len(t, backend.selections, 2*s.Ticks)
	assert.Equal(t, core.Timestamp(20*s.Ticks), d.World().Now())
}
