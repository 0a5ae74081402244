package enemies

import (
	"math"

	"github.com/OCAP2/awareness/pkg/core"
)

// tryEvictFor frees a slot for a newly sighted entity. It reports false when
// every tracked enemy is more important than the incoming one, in which case
// the sighting is dropped.
func (t *Table) tryEvictFor(entity core.EntityID, state core.EntityState, origin *core.Vec3) bool {
	now := t.world.Now()
	skill := t.tunables.Skill
	newWeight := RawWeight(t.weightInputs(entity, state))
	isAttacker := t.attackers.Contains(entity)

	newOrigin := state.Origin
	if origin != nil {
		newOrigin = *origin
	}
	newDistance := t.hooks.DistanceTo(newOrigin)

	var (
		victim    *Enemy
		bestScore float64
	)
	for e := t.first(trackedList); e != nil; e = t.next(e, trackedList) {
		if !t.isEvictable(e) {
			continue
		}

		score := 0.0
		if isAttacker {
			score += attackerEvictionBonus
		}
		if diff := newWeight - e.weight; diff > 0 {
			score += diff
		} else if skill < randomEvictionMaxSkill && t.decisionRandom > skill {
			score += (1 - skill) * math.Exp(-math.Abs(diff))
		}

		// Distance and staleness only count against enemies not seen since the last think.
		if e.lastSeenAt < t.prevThinkAt {
			distance := t.hooks.DistanceTo(e.lastSeenOrigin)
			distanceFactor := min(evictionDistanceBound, max(0, distance-newDistance)) / evictionDistanceBound
			score += distanceFactor
			timeout := t.tunables.NotSeenTimeout
			timeFactor := float64(min(now-e.lastSeenAt, timeout)) / float64(timeout)
			score += timeFactor * (1 + distanceFactor)
		}

		if score > bestScore {
			bestScore = score
			victim = e
		}
	}

	if victim == nil || bestScore <= evictionEpsilon {
		t.logger.Debug("dropping sighting, table full", "owner", t.name, "entity", entity)
		t.metrics.add(t.metrics.dropped)
		t.trace(core.EvictionTrace{Time: now, Owner: t.name, Incoming: entity, Score: bestScore, Dropped: true})
		return false
	}

	evicted := victim.entity
	t.logger.Debug("evicting enemy", "owner", t.name, "evicted", evicted, "incoming", entity, "score", bestScore)
	t.removeEnemy(victim)
	t.metrics.add(t.metrics.evicted)
	t.trace(core.EvictionTrace{Time: now, Owner: t.name, Incoming: entity, Evicted: evicted, Score: bestScore})
	return true
}

// isEvictable excludes attackers, targets and enemies carrying something valuable.
func (t *Table) isEvictable(e *Enemy) bool {
	if t.attackers.Contains(e.entity) || t.targets.Contains(e.entity) {
		return false
	}
	if t.hooks.IsEngaged(e.entity) {
		return false
	}
	state, ok := t.world.Entity(e.entity)
	if !ok {
		return true
	}
	return !state.HasQuad() && !state.HasShell() && !state.IsCarrier
}

func (t *Table) trace(ev core.EvictionTrace) {
	if t.tracer != nil {
		t.tracer.OnEviction(ev)
	}
}
