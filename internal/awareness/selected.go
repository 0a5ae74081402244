package awareness

import (
	"math"
	"slices"

	"github.com/OCAP2/awareness/internal/enemies"
	"github.com/OCAP2/awareness/internal/perception"
	"github.com/OCAP2/awareness/internal/util"
	"github.com/OCAP2/awareness/internal/world"
	"github.com/OCAP2/awareness/pkg/core"
)

const (
	// clients facing further away than this can not be a threat
	threatMinDot = 0.2
	// below this the enemy is guaranteed to miss
	threatAimDot = 0.7

	recentAttackWindow core.Timestamp = 1000
	hazardDamageBound                 = 75.0
)

// SelectedEnemies is a snapshot of a selection: a primary enemy and the
// active list it was chosen from. It stays valid until its timeout or until
// any member is forgotten.
//
// Threat and hit queries are cached for the frame they were computed in.
type SelectedEnemies struct {
	primary   *enemies.Enemy
	active    []*enemies.Enemy
	entities  []core.EntityID
	timeoutAt core.Timestamp

	agent  core.EntityID
	world  world.World
	pvs    *perception.PVSCache
	hazard func() (Hazard, bool)

	armorProtection  float64
	armorDegradation float64
	damageToKill     func(id core.EntityID, protection, degradation float64) float64

	threats   []perception.Lazy[float64]
	canHit    []perception.Lazy[bool]
	maxThreat perception.Lazy[float64]
	anyCanHit perception.Lazy[bool]
	hittable  perception.Lazy[bool]
}

func (s *SelectedEnemies) set(primary *enemies.Enemy, active []*enemies.Enemy, timeoutAt core.Timestamp) {
	s.primary = primary
	s.active = slices.Clone(active)
	s.entities = make([]core.EntityID, len(active))
	for i, e := range active {
		s.entities[i] = e.Entity()
	}
	s.timeoutAt = timeoutAt
	s.resetCaches()
}

func (s *SelectedEnemies) resetCaches() {
	s.threats = make([]perception.Lazy[float64], len(s.active))
	s.canHit = make([]perception.Lazy[bool], len(s.active))
	s.maxThreat.Invalidate()
	s.anyCanHit.Invalidate()
	s.hittable.Invalidate()
}

// Invalidate drops the selection.
func (s *SelectedEnemies) Invalidate() {
	s.primary = nil
	s.active = nil
	s.entities = nil
	s.timeoutAt = 0
	s.resetCaches()
}

// AreValid reports whether the selection can still be used at now.
func (s *SelectedEnemies) AreValid(now core.Timestamp) bool {
	if s.primary == nil {
		return false
	}
	for i, e := range s.active {
		if !e.IsValid() || e.Entity() != s.entities[i] {
			return false
		}
	}
	return s.timeoutAt > now
}

func (s *SelectedEnemies) Primary() *enemies.Enemy { return s.primary }

// Active returns the selected enemies, best first.
func (s *SelectedEnemies) Active() []*enemies.Enemy { return s.active }

func (s *SelectedEnemies) TimeoutAt() core.Timestamp { return s.timeoutAt }

// Contains reports whether e is part of the selection.
func (s *SelectedEnemies) Contains(e *enemies.Enemy) bool {
	return e != nil && slices.Contains(s.active, e)
}

// ContainsEntity reports whether entity is part of the selection.
func (s *SelectedEnemies) ContainsEntity(entity core.EntityID) bool {
	return slices.Contains(s.entities, entity)
}

// LastSeenAt is when the primary enemy was last seen.
func (s *SelectedEnemies) LastSeenAt() core.Timestamp {
	if s.primary == nil {
		return 0
	}
	return s.primary.LastSeenAt()
}

// ClosestEnemyOrigin returns the last seen origin of the selected enemy
// nearest to from.
func (s *SelectedEnemies) ClosestEnemyOrigin(from core.Vec3) (core.Vec3, bool) {
	best := math.Inf(1)
	var origin core.Vec3
	for _, e := range s.active {
		if d := e.LastSeenOrigin().SquareDistanceTo(from); d < best {
			best = d
			origin = e.LastSeenOrigin()
		}
	}
	return origin, len(s.active) > 0
}

func (s *SelectedEnemies) damageToKillAgent() float64 {
	return s.damageToKill(s.agent, s.armorProtection, s.armorDegradation)
}

// DamageToKill sums the damage needed to kill every selected enemy.
func (s *SelectedEnemies) DamageToKill() float64 {
	total := 0.0
	for _, e := range s.active {
		dtk := s.damageToKill(e.Entity(), s.armorProtection, s.armorDegradation)
		if e.HasShell() {
			dtk *= 4
		}
		total += dtk
	}
	return total
}

func (s *SelectedEnemies) HaveQuad() bool {
	return slices.ContainsFunc(s.active, (*enemies.Enemy).HasQuad)
}

func (s *SelectedEnemies) HaveCarrier() bool {
	return slices.ContainsFunc(s.active, (*enemies.Enemy).IsCarrier)
}

// TotalInflictedDamage sums the damage the selected enemies recently dealt.
func (s *SelectedEnemies) TotalInflictedDamage() float64 {
	total := 0.0
	for _, e := range s.active {
		total += e.TotalInflictedDamage()
	}
	return total
}

func (s *SelectedEnemies) HaveGoodSniperRangeWeapons() bool {
	return s.anyArsenal(core.Arsenal.SniperRange)
}

func (s *SelectedEnemies) HaveGoodFarRangeWeapons() bool {
	return s.anyArsenal(core.Arsenal.FarRange)
}

func (s *SelectedEnemies) HaveGoodMiddleRangeWeapons() bool {
	return s.anyArsenal(core.Arsenal.MiddleRange)
}

func (s *SelectedEnemies) HaveGoodCloseRangeWeapons() bool {
	return s.anyArsenal(core.Arsenal.CloseRange)
}

func (s *SelectedEnemies) anyArsenal(has func(core.Arsenal) bool) bool {
	for _, e := range s.active {
		if st, ok := e.State(); ok && has(st.Arsenal) {
			return true
		}
	}
	return false
}

// MaxDotProductOfEnemyViewAndDirToAgent tells how directly the best aimed
// selected enemy looks at the agent. It is -1 for an empty selection.
func (s *SelectedEnemies) MaxDotProductOfEnemyViewAndDirToAgent() float64 {
	self, ok := s.world.Entity(s.agent)
	if !ok {
		return -1
	}
	best := -1.0
	for _, e := range s.active {
		toAgent := self.Origin.Sub(e.LastSeenOrigin()).Normalize()
		best = max(best, toAgent.Dot(e.LookDir()))
	}
	return best
}

// MaxThreatFactor is the highest ThreatFactor of the selection.
func (s *SelectedEnemies) MaxThreatFactor() float64 {
	return s.maxThreat.Get(s.world.Frame(), func() float64 {
		best := 0.0
		for i := range s.active {
			best = max(best, s.ThreatFactor(i))
		}
		return best
	})
}

// ThreatFactor rates in [0, 1] how dangerous the i-th selected enemy is to
// the agent right now. Enemies that recently hurt the agent rate higher.
func (s *SelectedEnemies) ThreatFactor(i int) float64 {
	return s.threats[i].Get(s.world.Frame(), func() float64 {
		e := s.active[i]
		factor := s.computeThreatFactor(i)
		if at := e.LastAttackedByTime(); at > 0 && s.world.Now()-at < recentAttackWindow {
			factor = math.Sqrt(factor)
		}
		return factor
	})
}

func (s *SelectedEnemies) computeThreatFactor(i int) float64 {
	e := s.active[i]
	enemy, ok := e.State()
	if !ok {
		return 0
	}
	self, ok := s.world.Entity(s.agent)
	if !ok {
		return 0
	}

	dot := self.Origin.Sub(enemy.Origin).Normalize().Dot(e.LookDir())
	if enemy.IsClient && dot < threatMinDot {
		return 0
	}
	if !s.pvs.AreInPVS(s.world.Frame(), s.agent, e.Entity()) {
		return 0
	}
	if enemy.HasQuad() || enemy.IsCarrier {
		return 1
	}
	if h, ok := s.hazard(); ok && h.Attacker == e.Entity() {
		return 0.5 + 0.5*util.BoundedFraction(h.Damage, hazardDamageBound)
	}
	if dot < threatAimDot {
		return max(0, 0.5*dot)
	}
	if !s.CanBeHitBy(i) {
		dot *= 0.5
	}
	return math.Sqrt(dot)
}

// CanHit reports whether any selected enemy can hit the agent.
func (s *SelectedEnemies) CanHit() bool {
	return s.anyCanHit.Get(s.world.Frame(), func() bool {
		for i := range s.active {
			if s.CanBeHitBy(i) {
				return true
			}
		}
		return false
	})
}

// CanBeHitBy reports whether the i-th selected enemy can hit the agent: it
// faces the agent and has a clear line from its eye to the agent's origin or
// eye.
func (s *SelectedEnemies) CanBeHitBy(i int) bool {
	return s.canHit[i].Get(s.world.Frame(), func() bool {
		return s.testCanHit(s.active[i])
	})
}

func (s *SelectedEnemies) testCanHit(e *enemies.Enemy) bool {
	enemy, ok := e.State()
	if !ok {
		return false
	}
	self, ok := s.world.Entity(s.agent)
	if !ok {
		return false
	}
	if enemy.IsClient && self.Origin.Sub(enemy.Origin).Normalize().Dot(e.LookDir()) < 0 {
		return false
	}
	if !s.pvs.AreInPVS(s.world.Frame(), s.agent, e.Entity()) {
		return false
	}
	eye := enemy.Origin.Add(core.Vec3{Z: perception.EyeHeight})
	if world.CanSee(s.world, eye, self.Origin, e.Entity(), s.agent) {
		return true
	}
	return world.CanSee(s.world, eye, self.Origin.Add(core.Vec3{Z: perception.EyeHeight}), e.Entity(), s.agent)
}

// ArePotentiallyHittable reports whether the agent has a clear line from its
// eye to the last seen origin of any selected enemy. Enemies last seen in a
// leaf the agent touches skip the PVS test.
func (s *SelectedEnemies) ArePotentiallyHittable() bool {
	return s.hittable.Get(s.world.Frame(), func() bool {
		self, ok := s.world.Entity(s.agent)
		if !ok {
			return false
		}
		selfLeafs := perception.ComputeLeafSet(s.world, self)
		eye := self.Origin.Add(core.Vec3{Z: perception.EyeHeight})
		for _, e := range s.active {
			if !e.LeafSet().Overlaps(selfLeafs) && !s.pvs.AreInPVS(s.world.Frame(), s.agent, e.Entity()) {
				continue
			}
			if world.CanSee(s.world, eye, e.LastSeenOrigin(), s.agent, e.Entity()) {
				return true
			}
		}
		return false
	})
}

// MightBlockSpot reports whether any selected enemy could shoot at the agent
// while it passes spot.
func (s *SelectedEnemies) MightBlockSpot(spot core.Vec3, airborne bool) bool {
	if len(s.active) == 0 {
		return false
	}
	damageToKill := s.damageToKillAgent()
	for _, e := range s.active {
		if e.MightBlockSpot(s.agent, damageToKill, spot, airborne) {
			return true
		}
	}
	return false
}
