package enemies

import (
	"cmp"
	"slices"

	"github.com/OCAP2/awareness/internal/util"
	"github.com/OCAP2/awareness/pkg/core"
)

type scoredEnemy struct {
	enemy *Enemy
	score float64
}

func byScoreDesc(a, b scoredEnemy) int { return cmp.Compare(b.score, a.score) }

// ChooseVisibleEnemy rebuilds the active list for agent and returns its best
// entry, or nil when nothing is currently weighted.
//
// Candidates scoring less than half of the best one are cut. Enemies active
// on the previous cycle that fell out are merged back with their previous
// score for one more cycle, so the selection does not flicker.
func (t *Table) ChooseVisibleEnemy(agent core.EntityID) *Enemy {
	self, ok := t.world.Entity(agent)
	if !ok {
		t.hooks.OnEnemyAssigned(agent, nil)
		return nil
	}
	forward := self.Forward.Normalize()

	var candidates []scoredEnemy
	for e := t.first(trackedList); e != nil; e = t.next(e, trackedList) {
		if e.weight <= 0 {
			continue
		}
		toEnemy := e.lastSeenOrigin.Sub(self.Origin)
		distance := toEnemy.Length()
		distanceFactor := 1 - 0.7*util.BoundedFraction(distance, activeDistanceBound)
		directionFactor := 0.7 + 0.3*toEnemy.Normalize().Dot(forward)
		weight := e.weight + t.hooks.AdditionalEnemyWeight(agent, e.entity)
		candidates = append(candidates, scoredEnemy{enemy: e, score: weight * distanceFactor * directionFactor})
	}
	if len(candidates) == 0 {
		// The active list is left as is; held over entries are only ever
		// merged behind a weighted candidate.
		t.hooks.OnEnemyAssigned(agent, nil)
		return nil
	}
	slices.SortStableFunc(candidates, byScoreDesc)

	maxActive := t.tunables.MaxActive
	merged := make([]scoredEnemy, 0, 2*maxActive)
	inMerged := make(map[core.EntityID]bool, 2*maxActive)
	for i, c := range candidates {
		if i == maxActive || c.score < activeRelevanceCliff*candidates[0].score {
			break
		}
		merged = append(merged, c)
		inMerged[c.enemy.entity] = true
	}

	var heldOver []*Enemy
	for e := t.first(activeList); e != nil; e = t.next(e, activeList) {
		if inMerged[e.entity] || e.heldOver {
			continue
		}
		merged = append(merged, scoredEnemy{enemy: e, score: e.scoreAsActive})
		heldOver = append(heldOver, e)
	}
	slices.SortStableFunc(merged, byScoreDesc)
	if len(merged) > maxActive {
		merged = merged[:maxActive]
	}

	for e := t.first(activeList); e != nil; e = t.first(activeList) {
		t.unlink(e, activeList)
		e.heldOver = false
	}
	t.numActive = 0

	// Link worst first so that the best ends up at the head.
	for i := len(merged) - 1; i >= 0; i-- {
		e := merged[i].enemy
		e.scoreAsActive = merged[i].score
		e.heldOver = slices.Contains(heldOver, e)
		t.link(e, activeList)
		t.numActive++
		t.EnqueueTarget(e.entity)
	}

	head := t.PrimaryEnemy()
	t.hooks.OnEnemyAssigned(agent, head)
	return head
}

// ChooseLostOrHiddenEnemy picks the unseen enemy agent should go looking
// for. Enemies last seen more than timeout ago score zero; timeout is capped
// at NotSeenSuggestTimeout. Low-skill owners never look for lost enemies.
func (t *Table) ChooseLostOrHiddenEnemy(agent core.EntityID, timeout core.Timestamp) *Enemy {
	if t.tunables.Skill < lostEnemyMinSkill {
		return nil
	}
	self, ok := t.world.Entity(agent)
	if !ok {
		return nil
	}
	if timeout <= 0 || timeout > NotSeenSuggestTimeout {
		timeout = NotSeenSuggestTimeout
	}
	forward := self.Forward.Normalize()
	now := t.world.Now()

	var (
		best      *Enemy
		bestScore float64
	)
	for e := t.first(trackedList); e != nil; e = t.next(e, trackedList) {
		if e.weight > 0 {
			continue
		}
		toSpot := e.lastSeenOrigin.Sub(self.Origin)
		directionFactor := 0.5
		distanceFactor := 1.0
		if sq := toSpot.SquaredLength(); sq > 1 {
			directionFactor = 0.3 + 0.7*toSpot.Normalize().Dot(forward)
			distanceFactor = 1 - 0.9*util.BoundedFraction(toSpot.Length(), lostDistanceBound)
		}
		timeFactor := 1 - util.BoundedFraction(float64(now-e.lastSeenAt), float64(timeout))

		score := 0.5 * (e.maxPositiveWeight + e.avgPositiveWeight)
		score *= directionFactor * distanceFactor * timeFactor
		if score > bestScore {
			bestScore = score
			best = e
		}
	}
	return best
}
