// Package squad shares one enemy table between cooperating agents.
package squad

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/OCAP2/awareness/internal/awareness"
	"github.com/OCAP2/awareness/internal/enemies"
	"github.com/OCAP2/awareness/internal/world"
	"github.com/OCAP2/awareness/pkg/core"
)

// ErrNotMember is returned for operations on agents outside the squad.
var ErrNotMember = errors.New("not a squad member")

// Options configures a Squad.
type Options struct {
	Name  string
	World world.World
	// Skill is the average skill of the squad; it sizes the shared table.
	Skill    float64
	Tunables enemies.Tunables
	Logger   enemies.Logger
	Tracer   enemies.Tracer
	Rand     *rand.Rand
}

// Squad owns the shared table. Members are updated sequentially on the
// simulation thread; nothing here is safe for concurrent use.
type Squad struct {
	name   string
	world  world.World
	logger enemies.Logger
	table  *enemies.Table

	members     []*awareness.Tracker
	roleWeights map[core.EntityID]float64
	chosen      map[core.EntityID]core.EntityID
}

var _ awareness.Squad = (*Squad)(nil)

func New(opts Options) *Squad {
	if opts.Tunables == (enemies.Tunables{}) {
		opts.Tunables = enemies.TunablesForSkill(opts.Skill)
	}
	if opts.Logger == nil {
		opts.Logger = enemies.NopLogger{}
	}
	s := &Squad{
		name:        opts.Name,
		world:       opts.World,
		logger:      opts.Logger,
		roleWeights: make(map[core.EntityID]float64),
		chosen:      make(map[core.EntityID]core.EntityID),
	}
	s.table = enemies.New(enemies.Options{
		Name:     opts.Name,
		World:    opts.World,
		Hooks:    &squadHooks{squad: s},
		Tunables: opts.Tunables,
		Logger:   opts.Logger,
		Tracer:   opts.Tracer,
		Rand:     opts.Rand,
	})
	return s
}

func (s *Squad) Name() string { return s.name }

// Table is the shared enemy table.
func (s *Squad) Table() *enemies.Table { return s.table }

// Close releases the shared table.
func (s *Squad) Close() { s.table.Close() }

// Members returns the current members in join order.
func (s *Squad) Members() []*awareness.Tracker { return slices.Clone(s.members) }

func (s *Squad) indexOf(agent core.EntityID) int {
	return slices.IndexFunc(s.members, func(m *awareness.Tracker) bool { return m.Agent() == agent })
}

// Join attaches t to the squad. Joining twice is a no-op.
func (s *Squad) Join(t *awareness.Tracker) {
	if s.indexOf(t.Agent()) >= 0 {
		return
	}
	s.members = append(s.members, t)
	t.OnAttachedToSquad(s)
	s.logger.Info("agent joined squad", "squad", s.name, "agent", t.Agent(), "members", len(s.members))
}

// Leave detaches t from the squad.
func (s *Squad) Leave(t *awareness.Tracker) error {
	i := s.indexOf(t.Agent())
	if i < 0 {
		return fmt.Errorf("leaving squad %s: agent %d: %w", s.name, t.Agent(), ErrNotMember)
	}
	s.members = slices.Delete(s.members, i, i+1)
	delete(s.roleWeights, t.Agent())
	delete(s.chosen, t.Agent())
	if err := t.OnDetachedFromSquad(s); err != nil {
		return fmt.Errorf("leaving squad %s: %w", s.name, err)
	}
	s.logger.Info("agent left squad", "squad", s.name, "agent", t.Agent(), "members", len(s.members))
	return nil
}

// SetBotRoleWeight sets how much the other members favour the enemy agent is fighting.
func (s *Squad) SetBotRoleWeight(agent core.EntityID, weight float64) error {
	if s.indexOf(agent) < 0 {
		return fmt.Errorf("setting role weight in squad %s: agent %d: %w", s.name, agent, ErrNotMember)
	}
	s.roleWeights[agent] = weight
	return nil
}

// ChosenEnemy is the enemy agent last selected from the shared table.
func (s *Squad) ChosenEnemy(agent core.EntityID) core.EntityID { return s.chosen[agent] }

// Update runs the shared table maintenance. Call it once per tick, before
// the members select their enemies.
func (s *Squad) Update() {
	s.table.Frame()
	s.table.Think()
}

// squadHooks aggregate the members' view of the world. Ghosting members are
// skipped because the squad may think before they are removed.
type squadHooks struct {
	squad *Squad
}

var _ enemies.Hooks = (*squadHooks)(nil)

func (h *squadHooks) liveMembers(yield func(*awareness.Tracker, core.EntityState) bool) {
	for _, m := range h.squad.members {
		st, ok := m.State()
		if !ok || st.Ghosting {
			continue
		}
		if !yield(m, st) {
			return
		}
	}
}

func (h *squadHooks) OnEnemyRemoved(e *enemies.Enemy) {
	for _, m := range h.squad.members {
		m.OnEnemyRemoved(e)
	}
}

func (h *squadHooks) HasQuad() bool {
	for _, st := range h.liveMembers {
		if st.HasQuad() {
			return true
		}
	}
	return false
}

func (h *squadHooks) HasShell() bool {
	for _, st := range h.liveMembers {
		if st.HasShell() {
			return true
		}
	}
	return false
}

func (h *squadHooks) DamageToBeKilled() float64 {
	tun := h.squad.table.Tunables()
	total := 0.0
	for m := range h.liveMembers {
		total += h.squad.world.DamageToKill(m.Agent(), tun.ArmorProtection, tun.ArmorDegradation)
	}
	return total
}

// AdditionalEnemyWeight sums the role weights of the other members fighting entity.
func (h *squadHooks) AdditionalEnemyWeight(agent, entity core.EntityID) float64 {
	total := 0.0
	for _, m := range h.squad.members {
		other := m.Agent()
		if other == agent {
			continue
		}
		if h.squad.chosen[other] == entity {
			total += h.squad.roleWeights[other]
		}
	}
	return total
}

func (h *squadHooks) OnEnemyAssigned(agent core.EntityID, e *enemies.Enemy) {
	if e == nil {
		delete(h.squad.chosen, agent)
		return
	}
	h.squad.chosen[agent] = e.Entity()
}

func (h *squadHooks) OnNewThreat(entity core.EntityID) {
	for m := range h.liveMembers {
		m.OnNewThreat(entity)
	}
}

func (h *squadHooks) IsEngaged(entity core.EntityID) bool {
	return slices.ContainsFunc(h.squad.members, func(m *awareness.Tracker) bool { return m.IsEngaged(entity) })
}

// DistanceTo is the distance from origin to the nearest live member.
func (h *squadHooks) DistanceTo(origin core.Vec3) float64 {
	best := math.Inf(1)
	for _, st := range h.liveMembers {
		best = min(best, st.Origin.DistanceTo(origin))
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return best
}
