package enemies

import (
	"github.com/OCAP2/awareness/internal/perception"
	"github.com/OCAP2/awareness/internal/queue"
	"github.com/OCAP2/awareness/internal/world"
	"github.com/OCAP2/awareness/pkg/core"
)

// Snapshot is one remembered observation of an enemy.
type Snapshot struct {
	Origin   core.Vec3
	Velocity core.Vec3
	At       core.Timestamp
}

// Enemy is one slot of a Table. Records are mutated in place and never
// reallocated; an empty record has a null entity.
type Enemy struct {
	table  *Table
	entity core.EntityID

	registeredAt     core.Timestamp
	lastSeenAt       core.Timestamp
	lastSeenOrigin   core.Vec3
	lastSeenVelocity core.Vec3
	history          *queue.Ring[Snapshot]

	weight              float64
	maxPositiveWeight   float64
	avgPositiveWeight   float64
	positiveWeightCount int

	scoreAsActive float64
	heldOver      bool

	links [numLists]listLink

	lookDir   perception.Lazy[core.Vec3]
	leafs     perception.Lazy[perception.LeafSet]
	weaponFit perception.WeaponFitCache
}

func (e *Enemy) Entity() core.EntityID { return e.entity }

// IsValid reports whether the slot is occupied.
func (e *Enemy) IsValid() bool { return e != nil && e.entity != core.NoEntity }

func (e *Enemy) RegisteredAt() core.Timestamp { return e.registeredAt }

func (e *Enemy) LastSeenAt() core.Timestamp { return e.lastSeenAt }

func (e *Enemy) LastSeenOrigin() core.Vec3 { return e.lastSeenOrigin }

func (e *Enemy) LastSeenVelocity() core.Vec3 { return e.lastSeenVelocity }

// Weight is the latest weighting result, zero if not seen recently.
func (e *Enemy) Weight() float64 { return e.weight }

func (e *Enemy) MaxWeight() float64 { return e.maxPositiveWeight }

// AvgWeight is the mean of all positive weights observed so far.
func (e *Enemy) AvgWeight() float64 { return e.avgPositiveWeight }

func (e *Enemy) PositiveWeightCount() int { return e.positiveWeightCount }

// ScoreAsActive is the selection score the enemy was last activated with.
func (e *Enemy) ScoreAsActive() float64 { return e.scoreAsActive }

func (e *Enemy) IsActive() bool { return e.links[activeList].linked }

func (e *Enemy) IsTracked() bool { return e.links[trackedList].linked }

// Snapshots returns the sighting history, oldest first.
func (e *Enemy) Snapshots() []Snapshot {
	if e.history == nil {
		return nil
	}
	out := make([]Snapshot, 0, e.history.Len())
	for _, s := range e.history.All() {
		out = append(out, s)
	}
	return out
}

// CouldReactBy reports whether some sighting is at least reactionTime old at now.
func (e *Enemy) CouldReactBy(now, reactionTime core.Timestamp) bool {
	if e.history == nil {
		return false
	}
	for _, s := range e.history.All() {
		if s.At+reactionTime <= now {
			return true
		}
	}
	return false
}

// State returns the live world snapshot of the enemy entity.
func (e *Enemy) State() (core.EntityState, bool) {
	if !e.IsValid() {
		return core.EntityState{}, false
	}
	return e.table.world.Entity(e.entity)
}

func (e *Enemy) HasQuad() bool {
	s, ok := e.State()
	return ok && s.HasQuad()
}

func (e *Enemy) HasShell() bool {
	s, ok := e.State()
	return ok && s.HasShell()
}

func (e *Enemy) HasPowerups() bool {
	s, ok := e.State()
	return ok && s.Powerups != 0
}

func (e *Enemy) IsCarrier() bool {
	s, ok := e.State()
	return ok && s.IsCarrier
}

// TotalInflictedDamage is the damage this enemy recently dealt to the owner.
func (e *Enemy) TotalInflictedDamage() float64 {
	if !e.IsValid() {
		return 0
	}
	return e.table.TotalDamageInflictedBy(e.entity)
}

func (e *Enemy) LastAttackedByTime() core.Timestamp {
	if !e.IsValid() {
		return 0
	}
	return e.table.LastAttackedByTime(e.entity)
}

// LookDir is the enemy's view direction, computed at most once per frame.
func (e *Enemy) LookDir() core.Vec3 {
	return e.lookDir.Get(e.table.world.Frame(), func() core.Vec3 {
		s, ok := e.State()
		if !ok {
			return core.Vec3{}
		}
		return s.Forward.Normalize()
	})
}

// LeafSet is the set of world leaves around the last seen origin,
// computed at most once per frame.
func (e *Enemy) LeafSet() perception.LeafSet {
	return e.leafs.Get(e.table.world.Frame(), func() perception.LeafSet {
		s, ok := e.State()
		if !ok {
			return perception.LeafSet{}
		}
		s.Origin = e.lastSeenOrigin
		return perception.ComputeLeafSet(e.table.world, s)
	})
}

// WeaponFit returns the weapons this enemy could finish a target with.
func (e *Enemy) WeaponFit(damageToKillTarget float64) perception.WeaponFit {
	s, ok := e.State()
	if !ok {
		return 0
	}
	return e.weaponFit.Get(e.table.world.Frame(), s, damageToKillTarget)
}

// MightBlockSpot reports whether the enemy could shoot at agent while it
// passes spot. Rail-like weapons only count against an airborne agent.
// Beyond the close radius the enemy needs a fitting weapon and has to look
// roughly towards the spot.
func (e *Enemy) MightBlockSpot(agent core.EntityID, damageToKillAgent float64, spot core.Vec3, airborne bool) bool {
	state, ok := e.State()
	if !ok {
		return false
	}
	fit := e.WeaponFit(damageToKillAgent)
	if !airborne {
		fit &^= perception.FitRail
	}
	radius := blockRadius
	if state.HasQuad() {
		radius = blockQuadRadius
	}

	origin := e.lastSeenOrigin
	if distance := origin.DistanceTo(spot); distance > radius {
		if fit == 0 {
			return false
		}
		if fit&perception.FitRail == 0 && distance > blockNoRailRange {
			return false
		}
		// rockets are aimed at the feet
		if fit == perception.FitRocket && origin.Z < spot.Z {
			return false
		}
		dot := spot.Sub(origin).Scale(1 / distance).Dot(e.LookDir())
		if dot < 0 {
			return false
		}
		if dot < blockAwareDot && (state.IsClient || distance > blockUnawareRange) {
			return false
		}
	}
	return world.CanSee(e.table.world, spot, origin, agent, e.entity)
}

func (e *Enemy) init(entity core.EntityID, now core.Timestamp) {
	e.entity = entity
	e.registeredAt = now
	e.lastSeenAt = now
	e.weight = 0
	e.maxPositiveWeight = 0
	e.avgPositiveWeight = 0
	e.positiveWeightCount = 0
	e.scoreAsActive = 0
	e.heldOver = false
	if e.history == nil {
		e.history = queue.NewRing[Snapshot](MaxTrackedSnapshots)
	} else {
		e.history.Clear()
	}
	e.lookDir.Invalidate()
	e.leafs.Invalidate()
	e.weaponFit.Invalidate()
}

func (e *Enemy) clear() {
	history := e.history
	table := e.table
	*e = Enemy{table: table, history: history}
	if history != nil {
		history.Clear()
	}
	e.links = [numLists]listLink{{prev: nilIndex, next: nilIndex}, {prev: nilIndex, next: nilIndex}}
}

// onViewed records a sighting. A specified origin overrides the last seen
// origin only; the history always keeps the entity's true origin.
func (e *Enemy) onViewed(now core.Timestamp, state core.EntityState, origin *core.Vec3) {
	e.lastSeenOrigin = state.Origin
	if origin != nil {
		e.lastSeenOrigin = *origin
	}
	e.lastSeenVelocity = state.Velocity
	e.lastSeenAt = now
	e.history.Push(Snapshot{Origin: state.Origin, Velocity: state.Velocity, At: now})
	e.leafs.Invalidate()
}

// observeWeight stores w and folds positive values into the running statistics.
func (e *Enemy) observeWeight(w float64) {
	e.weight = w
	if w > e.maxPositiveWeight {
		e.maxPositiveWeight = w
	}
	if w > 0 {
		e.avgPositiveWeight = (e.avgPositiveWeight*float64(e.positiveWeightCount) + w) / float64(e.positiveWeightCount+1)
		e.positiveWeightCount++
	}
}
