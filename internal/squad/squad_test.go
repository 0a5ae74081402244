package squad

import (
	"math/rand/v2"
	"testing"

	"github.com/OCAP2/awareness/internal/awareness"
	"github.com/OCAP2/awareness/internal/world"
	"github.com/OCAP2/awareness/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	agentA core.EntityID = 1
	agentB core.EntityID = 3
)

type countingPlanner struct{ calls int }

func (p *countingPlanner) ForcePlanBuilding() { p.calls++ }

type fixture struct {
	sim      *world.Sim
	squad    *Squad
	a, b     *awareness.Tracker
	planners map[core.EntityID]*countingPlanner
}

func newFixture(t *testing.T) *fixture {
	sim := world.NewSim(world.Options{})
	f := &fixture{sim: sim, planners: make(map[core.EntityID]*countingPlanner)}
	f.squad = New(Options{Name: "alpha", World: sim, Skill: 1, Rand: rand.New(rand.NewPCG(1, 2))})
	t.Cleanup(f.squad.Close)

	f.a = f.member(t, agentA, core.Vec3{})
	f.b = f.member(t, agentB, core.Vec3{Y: 50})
	f.squad.Join(f.a)
	f.squad.Join(f.b)
	return f
}

func (f *fixture) member(t *testing.T, id core.EntityID, origin core.Vec3) *awareness.Tracker {
	f.sim.Put(core.EntityState{ID: id, Team: 1, InUse: true, IsClient: true, Health: 100,
		Origin: origin, Forward: core.Vec3{X: 1}, FovDot: 0.5})
	f.planners[id] = &countingPlanner{}
	tr := awareness.New(awareness.Options{Agent: id, Skill: 1, World: f.sim, Planner: f.planners[id]})
	t.Cleanup(tr.Close)
	return tr
}

func (f *fixture) putEnemy(id core.EntityID, origin core.Vec3) {
	f.sim.Put(core.EntityState{ID: id, Team: 2, InUse: true, IsClient: true, Health: 100,
		Origin: origin, Forward: core.Vec3{X: -1}})
}

// tick advances one frame per iteration. sight runs after the clock moves
// and before any table thinks.
func (f *fixture) tick(n int, sight func()) {
	for i := 0; i < n; i++ {
		f.sim.Advance(16)
		if sight != nil {
			sight()
		}
		f.a.Frame()
		f.b.Frame()
		f.squad.Update()
		f.a.Think()
		f.b.Think()
	}
}

func TestScenario_SquadSharing(t *testing.T) {
	f := newFixture(t)
	f.putEnemy(2, core.Vec3{X: 500})

	f.tick(3, func() { f.a.OnEnemyViewed(2) })

	require.NotNil(t, f.squad.Table().Lookup(2))
	require.NotNil(t, f.a.Table().Lookup(2))
	assert.Nil(t, f.b.Table().Lookup(2), "B never saw the enemy")

	sel := f.b.SelectedEnemies()
	require.True(t, sel.AreValid(f.sim.Now()))
	assert.Equal(t, core.EntityID(2), sel.Primary().Entity())
	assert.Equal(t, core.EntityID(2), f.squad.ChosenEnemy(agentA))
	assert.Equal(t, core.EntityID(2), f.squad.ChosenEnemy(agentB))
}

func TestSquad_RemovalReachesEveryMember(t *testing.T) {
	f := newFixture(t)
	f.putEnemy(2, core.Vec3{X: 500})
	f.tick(3, func() { f.a.OnEnemyViewed(2) })
	require.True(t, f.a.SelectedEnemies().AreValid(f.sim.Now()))
	require.True(t, f.b.SelectedEnemies().AreValid(f.sim.Now()))

	f.squad.Table().Forget(2)

	assert.False(t, f.a.SelectedEnemies().AreValid(f.sim.Now()))
	assert.False(t, f.b.SelectedEnemies().AreValid(f.sim.Now()))
	assert.Equal(t, 1, f.planners[agentA].calls)
	assert.Equal(t, 1, f.planners[agentB].calls)
}

func TestSquad_RoleWeightFavoursMatesEnemy(t *testing.T) {
	f := newFixture(t)
	f.putEnemy(2, core.Vec3{X: 500})
	f.putEnemy(4, core.Vec3{X: 600})
	f.tick(3, func() {
		f.a.OnEnemyViewed(2)
		f.a.OnEnemyViewed(4)
	})

	assert.Equal(t, core.EntityID(2), f.squad.Table().ChooseVisibleEnemy(agentB).Entity(), "closer enemy wins on its own")

	require.NoError(t, f.squad.SetBotRoleWeight(agentA, 2))
	f.squad.chosen[agentA] = 4

	h := &squadHooks{squad: f.squad}
	assert.Equal(t, 2.0, h.AdditionalEnemyWeight(agentB, 4))
	assert.Zero(t, h.AdditionalEnemyWeight(agentA, 4), "own role weight is not counted")
	assert.Zero(t, h.AdditionalEnemyWeight(agentB, 2))

	assert.Equal(t, core.EntityID(4), f.squad.Table().ChooseVisibleEnemy(agentB).Entity())
}

func TestSquad_Membership(t *testing.T) {
	f := newFixture(t)
	assert.Len(t, f.squad.Members(), 2)

	f.squad.Join(f.a)
	assert.Len(t, f.squad.Members(), 2, "joining twice is a no-op")
	assert.Same(t, f.squad.Table(), f.a.ActiveTable())

	require.NoError(t, f.squad.SetBotRoleWeight(agentA, 1))
	require.NoError(t, f.squad.Leave(f.a))
	assert.Same(t, f.a.Table(), f.a.ActiveTable())
	assert.Nil(t, f.a.Squad())
	assert.Len(t, f.squad.Members(), 1)

	assert.ErrorIs(t, f.squad.Leave(f.a), ErrNotMember)
	assert.ErrorIs(t, f.squad.SetBotRoleWeight(agentA, 1), ErrNotMember)
}

func TestSquad_HooksAggregateLiveMembers(t *testing.T) {
	f := newFixture(t)
	h := &squadHooks{squad: f.squad}

	assert.Equal(t, 200.0, h.DamageToBeKilled())
	assert.False(t, h.HasQuad())
	assert.Equal(t, 50.0, h.DistanceTo(core.Vec3{Y: 100}))

	f.sim.Update(agentA, func(s *core.EntityState) { s.Powerups |= core.PowerupQuad })
	assert.True(t, h.HasQuad())
	assert.False(t, h.HasShell())

	f.sim.Update(agentB, func(s *core.EntityState) { s.Ghosting = true })
	assert.Equal(t, 100.0, h.DamageToBeKilled())
	assert.Equal(t, 100.0, h.DistanceTo(core.Vec3{Y: 100}), "ghosting members are skipped")

	f.sim.Update(agentA, func(s *core.EntityState) { s.Ghosting = true })
	assert.Zero(t, h.DistanceTo(core.Vec3{Y: 100}))
	assert.False(t, h.HasQuad())
}

func TestSquad_IsEngagedByAnyMember(t *testing.T) {
	f := newFixture(t)
	f.putEnemy(5, core.Vec3{X: -300})
	h := &squadHooks{squad: f.squad}

	assert.False(t, h.IsEngaged(5))
	f.b.Table().OnPain(5, 0, 10)
	assert.True(t, h.IsEngaged(5))
}

func TestSquad_ThreatReachesEveryMember(t *testing.T) {
	f := newFixture(t)
	f.putEnemy(5, core.Vec3{X: -300})
	f.sim.Advance(100)

	f.a.OnPain(5, 0, 40)

	for _, m := range []*awareness.Tracker{f.a, f.b} {
		ev, ok := m.HurtEvent()
		require.True(t, ok, "agent %d", m.Agent())
		assert.Equal(t, core.EntityID(5), ev.Inflictor)
		assert.Equal(t, 40.0, ev.TotalDamage)
		assert.Equal(t, 1, f.planners[m.Agent()].calls)
	}
}
