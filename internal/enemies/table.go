// Package enemies implements the bounded enemy memory of one agent or squad:
// an entity-indexed slot table with tracked and active lists, the weighting,
// eviction and active-selection engines, and attacker/target bookkeeping.
//
// A Table is not safe for concurrent use. All calls for one table happen on
// the simulation thread, within a tick, in the order Frame, Think, selection.
package enemies

import (
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"

	"github.com/OCAP2/awareness/internal/attackstats"
	"github.com/OCAP2/awareness/internal/world"
	"github.com/OCAP2/awareness/pkg/core"
)

// Options configures a Table.
type Options struct {
	// Name identifies the owner in logs, traces and metrics.
	Name  string
	World world.World
	// Hooks defaults to NopHooks.
	Hooks Hooks
	// Tunables defaults to TunablesForSkill(0) when left zero.
	Tunables Tunables
	Logger   Logger
	Tracer   Tracer
	// Rand drives the low-skill eviction gate. A fixed seed is used when nil.
	Rand *rand.Rand
}

// Table is the enemy memory of one owner.
type Table struct {
	name     string
	world    world.World
	hooks    Hooks
	tunables Tunables
	logger   Logger
	tracer   Tracer
	rng      *rand.Rand
	metrics  *metrics

	slots      []Enemy
	heads      [numLists]int32
	numTracked int
	numActive  int

	attackers *attackstats.Pool
	targets   *attackstats.Pool

	hasQuad          bool
	hasShell         bool
	damageToBeKilled float64
	prevThinkAt      core.Timestamp

	decisionRandom   float64
	decisionRandomAt core.Timestamp
	decisionRandomOk bool
}

// New creates an empty table. World is required.
func New(opts Options) *Table {
	if opts.World == nil {
		panic("enemies: nil world")
	}
	if opts.Tunables == (Tunables{}) {
		opts.Tunables = TunablesForSkill(0)
	}
	if opts.Hooks == nil {
		opts.Hooks = NopHooks{}
	}
	if opts.Logger == nil {
		opts.Logger = NopLogger{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(0x5eed, uint64(len(opts.Name))))
	}
	tun := opts.Tunables.withDefaults()

	t := &Table{
		name:      opts.Name,
		world:     opts.World,
		hooks:     opts.Hooks,
		tunables:  tun,
		logger:    opts.Logger,
		tracer:    opts.Tracer,
		rng:       opts.Rand,
		slots:     make([]Enemy, core.MaxEntities),
		heads:     [numLists]int32{nilIndex, nilIndex},
		attackers: attackstats.NewPool(tun.MaxAttackers, AttackerTimeout, attackerDamageBound),
		targets:   attackstats.NewPool(tun.MaxTargets, TargetTimeout, targetDamageBound),
	}
	for i := range t.slots {
		t.slots[i].table = t
		t.slots[i].clear()
	}
	t.metrics = newMetrics(opts.Name, opts.Logger)
	return t
}

// Close releases the table's metric registrations.
func (t *Table) Close() { t.metrics.close() }

func (t *Table) Name() string { return t.name }

func (t *Table) Tunables() Tunables { return t.tunables }

// Capacity is the maximum number of tracked enemies.
func (t *Table) Capacity() int { return t.tunables.Capacity }

// Len is the number of tracked enemies.
func (t *Table) Len() int { return t.numTracked }

// Lookup returns the record of entity, or nil when it is not tracked.
func (t *Table) Lookup(entity core.EntityID) *Enemy {
	if !entity.Valid() {
		return nil
	}
	e := &t.slots[entity]
	if !e.IsValid() {
		return nil
	}
	return e
}

// TrackedEnemies iterates the tracked list, most recently registered first.
// The sequence must not be used across mutating calls.
func (t *Table) TrackedEnemies() iter.Seq[*Enemy] {
	return func(yield func(*Enemy) bool) {
		for e := t.first(trackedList); e != nil; e = t.next(e, trackedList) {
			if !yield(e) {
				return
			}
		}
	}
}

// ActiveEnemies returns the active list, best first.
func (t *Table) ActiveEnemies() []*Enemy {
	out := make([]*Enemy, 0, t.numActive)
	for e := t.first(activeList); e != nil; e = t.next(e, activeList) {
		out = append(out, e)
	}
	return out
}

// PrimaryEnemy is the head of the active list, or nil.
func (t *Table) PrimaryEnemy() *Enemy { return t.first(activeList) }

// OnEnemyViewed records a sighting of entity at its true origin.
func (t *Table) OnEnemyViewed(entity core.EntityID) {
	t.view(entity, nil)
}

// OnEnemyOriginGuessed records a guess about where entity is. An existing
// record is refreshed only if it was last seen at least minStaleness ago, so
// a guess never overrides a fresher sighting. A nil origin means the
// entity's true origin.
func (t *Table) OnEnemyOriginGuessed(entity core.EntityID, minStaleness core.Timestamp, origin *core.Vec3) {
	if !entity.Valid() {
		return
	}
	if e := &t.slots[entity]; e.IsValid() {
		if e.lastSeenAt+minStaleness > t.world.Now() {
			return
		}
	}
	t.view(entity, origin)
}

func (t *Table) view(entity core.EntityID, origin *core.Vec3) {
	if !entity.Valid() {
		return
	}
	state, ok := t.world.Entity(entity)
	if !ok {
		return
	}
	now := t.world.Now()
	e := &t.slots[entity]
	if e.IsValid() {
		e.onViewed(now, state, origin)
		return
	}
	if t.numTracked >= t.tunables.Capacity && !t.tryEvictFor(entity, state, origin) {
		return
	}
	e.init(entity, now)
	t.link(e, trackedList)
	t.numTracked++
	t.metrics.tracked.Store(int64(t.numTracked))
	e.onViewed(now, state, origin)
}

// Forget removes entity. It is a no-op for untracked entities.
func (t *Table) Forget(entity core.EntityID) {
	if !entity.Valid() {
		return
	}
	t.removeEnemy(&t.slots[entity])
}

func (t *Table) removeEnemy(e *Enemy) {
	if !e.IsValid() {
		return
	}
	t.hooks.OnEnemyRemoved(e)
	if e.IsActive() {
		t.unlink(e, activeList)
		t.numActive--
	}
	t.unlink(e, trackedList)
	e.clear()
	t.numTracked--
	t.metrics.tracked.Store(int64(t.numTracked))
	t.metrics.add(t.metrics.removed)
}

// Frame advances the attack statistics by one frame and refreshes the
// position of enemies seen entering a teleporter.
func (t *Table) Frame() {
	now := t.world.Now()
	t.attackers.Frame(now)
	t.targets.Frame(now)

	for e := t.first(trackedList); e != nil; e = t.next(e, trackedList) {
		state, ok := t.world.Entity(e.entity)
		if !ok || state.Ghosting || !state.Teleported {
			continue
		}
		if now-e.lastSeenAt >= teleportRefreshWindow {
			continue
		}
		e.onViewed(now, state, nil)
	}
}

// Think runs the decision-cycle sweep: forgotten and ghosting enemies are
// removed, the remaining ones are weighted.
func (t *Table) Think() {
	t.preThink()
	now := t.world.Now()

	var next *Enemy
	for e := t.first(trackedList); e != nil; e = next {
		next = t.next(e, trackedList)

		if now-e.lastSeenAt > t.tunables.NotSeenTimeout {
			t.logger.Debug("forgetting enemy not seen", "owner", t.name, "entity", e.entity, "timeout", t.tunables.NotSeenTimeout)
			t.removeEnemy(e)
			continue
		}
		state, ok := t.world.Entity(e.entity)
		if !ok || state.Ghosting || !state.InUse {
			t.logger.Debug("forgetting invalid enemy", "owner", t.name, "entity", e.entity)
			t.removeEnemy(e)
			continue
		}
		if state.NoTarget || state.Busy {
			continue
		}
		if e.registeredAt+t.tunables.ReactionTime > now {
			continue
		}
		t.updateEnemyWeight(e)
	}

	t.postThink()
}

func (t *Table) preThink() {
	t.hasQuad = t.hooks.HasQuad()
	t.hasShell = t.hooks.HasShell()
	t.damageToBeKilled = t.hooks.DamageToBeKilled()
	if t.hasQuad {
		t.targets.SetDamageBound(4 * targetDamageBound)
	} else {
		t.targets.SetDamageBound(targetDamageBound)
	}

	now := t.world.Now()
	if !t.decisionRandomOk || now-t.decisionRandomAt >= decisionRandomPeriod {
		t.decisionRandom = t.rng.Float64()
		t.decisionRandomAt = now
		t.decisionRandomOk = true
	}
}

func (t *Table) postThink() {
	t.prevThinkAt = t.world.Now()
}

// OnPain records that attacker hurt the owner.
func (t *Table) OnPain(attacker core.EntityID, kick, damage float64) {
	if !attacker.Valid() {
		return
	}
	t.attackers.OnDamage(attacker, t.world.Now(), damage)

	if head := t.PrimaryEnemy(); head != nil && head.entity == attacker {
		return
	}
	t.hooks.OnNewThreat(attacker)
}

// OnEnemyDamaged records damage the owner dealt to a remembered target.
func (t *Table) OnEnemyDamaged(target core.EntityID, damage float64) {
	if !target.Valid() {
		return
	}
	if s := t.targets.Find(target); s != nil {
		s.OnDamage(t.world.Now(), damage)
	}
}

// EnqueueTarget remembers target as one the owner is engaging.
func (t *Table) EnqueueTarget(target core.EntityID) {
	if !target.Valid() {
		return
	}
	now := t.world.Now()
	if t.targets.Enqueue(target, now) != nil {
		t.targets.Touch(target, now)
	}
}

// LastAttackedByTime returns when entity last hurt the owner, or 0.
func (t *Table) LastAttackedByTime(entity core.EntityID) core.Timestamp {
	return t.attackers.LastActivityAt(entity)
}

// LastTargetTime returns when the owner last engaged entity, or 0.
func (t *Table) LastTargetTime(entity core.EntityID) core.Timestamp {
	return t.targets.LastActivityAt(entity)
}

func (t *Table) TotalDamageInflictedBy(entity core.EntityID) float64 {
	return t.attackers.TotalDamage(entity)
}

// IsAttacker reports whether entity is a remembered attacker.
func (t *Table) IsAttacker(entity core.EntityID) bool { return t.attackers.Contains(entity) }

// IsTarget reports whether entity is a remembered target.
func (t *Table) IsTarget(entity core.EntityID) bool { return t.targets.Contains(entity) }

// WillAssignAimEnemy reports whether an enemy seen this instant has been
// visible long enough to be reacted to.
func (t *Table) WillAssignAimEnemy() bool {
	now := t.world.Now()
	for e := t.first(trackedList); e != nil; e = t.next(e, trackedList) {
		if e.lastSeenAt == now && e.CouldReactBy(now, t.tunables.ReactionTime) {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants of the table.
func (t *Table) Validate() error {
	tracked := 0
	seen := make(map[core.EntityID]bool)
	for e := t.first(trackedList); e != nil; e = t.next(e, trackedList) {
		if !e.IsValid() {
			return errors.New("empty slot linked into tracked list")
		}
		if seen[e.entity] {
			return fmt.Errorf("entity %d linked twice", e.entity)
		}
		if &t.slots[e.entity] != e {
			return fmt.Errorf("entity %d stored in foreign slot", e.entity)
		}
		seen[e.entity] = true
		tracked++
	}
	if tracked != t.numTracked {
		return fmt.Errorf("tracked list has %d entries, count is %d", tracked, t.numTracked)
	}
	if tracked > t.tunables.Capacity {
		return fmt.Errorf("tracked %d exceeds capacity %d", tracked, t.tunables.Capacity)
	}

	active := 0
	for e := t.first(activeList); e != nil; e = t.next(e, activeList) {
		if !e.IsTracked() {
			return fmt.Errorf("entity %d active but not tracked", e.entity)
		}
		active++
	}
	if active != t.numActive {
		return fmt.Errorf("active list has %d entries, count is %d", active, t.numActive)
	}
	if active > t.tunables.MaxActive {
		return fmt.Errorf("active %d exceeds limit %d", active, t.tunables.MaxActive)
	}

	for i := range t.slots {
		e := &t.slots[i]
		if e.IsValid() && !seen[e.entity] {
			return fmt.Errorf("occupied slot %d not linked", i)
		}
	}
	return nil
}
