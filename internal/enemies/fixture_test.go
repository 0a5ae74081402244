package enemies

import (
	"math/rand/v2"
	"testing"

	"github.com/OCAP2/awareness/internal/world"
	"github.com/OCAP2/awareness/pkg/core"
)

const agentID core.EntityID = 1

type testHooks struct {
	NopHooks
	damageToBeKilled float64
	origin           core.Vec3
	engaged          map[core.EntityID]bool

	removed  []core.EntityID
	threats  []core.EntityID
	assigned []core.EntityID
}

func (h *testHooks) OnEnemyRemoved(e *Enemy)             { h.removed = append(h.removed, e.Entity()) }
func (h *testHooks) DamageToBeKilled() float64           { return h.damageToBeKilled }
func (h *testHooks) OnNewThreat(id core.EntityID)        { h.threats = append(h.threats, id) }
func (h *testHooks) IsEngaged(id core.EntityID) bool     { return h.engaged[id] }
func (h *testHooks) DistanceTo(origin core.Vec3) float64 { return h.origin.DistanceTo(origin) }

func (h *testHooks) OnEnemyAssigned(_ core.EntityID, e *Enemy) {
	id := core.NoEntity
	if e != nil {
		id = e.Entity()
	}
	h.assigned = append(h.assigned, id)
}

type evictionLog []core.EvictionTrace

func (l *evictionLog) OnEviction(ev core.EvictionTrace) { *l = append(*l, ev) }

type fixture struct {
	sim       *world.Sim
	hooks     *testHooks
	evictions *evictionLog
	table     *Table
}

func testTunables() Tunables {
	return Tunables{
		Skill:          1,
		Capacity:       10,
		MaxActive:      3,
		MaxAttackers:   5,
		MaxTargets:     5,
		ReactionTime:   100,
		NotSeenTimeout: NotSeenUnlinkTimeout,
	}
}

func newFixture(t testing.TB, tun Tunables) *fixture {
	return newFixtureWithRand(t, tun, nil)
}

func newFixtureWithRand(t testing.TB, tun Tunables, rng *rand.Rand) *fixture {
	sim := world.NewSim(world.Options{})
	sim.Put(core.EntityState{ID: agentID, Team: 1, InUse: true, IsClient: true, Health: 100,
		Forward: core.Vec3{X: 1}})
	hooks := &testHooks{damageToBeKilled: 100, engaged: make(map[core.EntityID]bool)}
	evictions := &evictionLog{}
	table := New(Options{Name: "test", World: sim, Hooks: hooks, Tunables: tun, Tracer: evictions, Rand: rng})
	t.Cleanup(table.Close)
	return &fixture{sim: sim, hooks: hooks, evictions: evictions, table: table}
}

// addEnemy puts a non-client entity whose raw weight equals weight while
// nobody attacks or targets it.
func (f *fixture) addEnemy(id core.EntityID, origin core.Vec3, weight float64) {
	f.sim.Put(core.EntityState{
		ID:              id,
		Team:            2,
		InUse:           true,
		Origin:          origin,
		Forward:         core.Vec3{X: -1},
		IntrinsicWeight: weight,
		Health:          100,
		Mins:            core.Vec3{X: -16, Y: -16, Z: -24},
		Maxs:            core.Vec3{X: 16, Y: 16, Z: 40},
	})
}

// step advances the clock, records sightings and runs Frame and Think.
func (f *fixture) step(dt core.Timestamp, sighted ...core.EntityID) {
	f.sim.Advance(dt)
	for _, id := range sighted {
		f.table.OnEnemyViewed(id)
	}
	f.table.Frame()
	f.table.Think()
}

func (f *fixture) trackedIDs() []core.EntityID {
	var ids []core.EntityID
	for e := range f.table.TrackedEnemies() {
		ids = append(ids, e.Entity())
	}
	return ids
}

func entityIDs(es []*Enemy) []core.EntityID {
	out := make([]core.EntityID, len(es))
	for i, e := range es {
		out[i] = e.Entity()
	}
	return out
}
