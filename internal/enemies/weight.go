package enemies

import (
	"math"

	"github.com/OCAP2/awareness/internal/util"
	"github.com/OCAP2/awareness/pkg/core"
)

// WeightInputs is everything RawWeight depends on.
type WeightInputs struct {
	IsClient        bool
	IntrinsicWeight float64

	// Attacked is set when the enemy is a remembered attacker of the owner,
	// SinceAttacked is the time since its last attack.
	Attacked      bool
	SinceAttacked core.Timestamp
	// Targeted is set when the owner recently engaged the enemy.
	Targeted      bool
	SinceTargeted core.Timestamp

	IsCarrier         bool
	EnemyDamageToKill float64
	EnemyHasShell     bool

	OwnerDamageToBeKilled float64
	OwnerHasQuad          bool
	OwnerHasShell         bool
}

// RawWeight scores how threatening an enemy is, in [0, MaxEnemyWeight].
func RawWeight(in WeightInputs) float64 {
	weight := clientBaseWeight
	if !in.IsClient {
		weight = in.IntrinsicWeight
		if weight <= 0 {
			return 0
		}
	}

	if in.Attacked {
		weight += attackerWeightBonus * (1 - util.BoundedFraction(float64(in.SinceAttacked), float64(AttackerTimeout)))
	}
	if in.Targeted {
		weight += targetWeightBonus * (1 - util.BoundedFraction(float64(in.SinceTargeted), float64(TargetTimeout)))
	}
	if in.IsCarrier {
		weight += carrierWeightBonus
	}

	damageToKill := in.EnemyDamageToKill
	if in.OwnerHasQuad {
		damageToKill /= 4
	}
	if in.EnemyHasShell {
		damageToKill *= 4
	}
	// may exceed 1 in magnitude
	weight += (in.OwnerDamageToBeKilled - damageToKill) / maxDamageToKill

	if weight > 0 {
		if in.OwnerHasQuad {
			weight *= 1.5
		}
		if in.OwnerHasShell {
			weight += 0.5
		}
		if in.OwnerHasQuad && in.OwnerHasShell {
			weight *= 1.5
		}
	}

	if math.IsNaN(weight) {
		return 0
	}
	return util.Clamp(weight, 0, MaxEnemyWeight)
}

// RawWeight scores entity as seen by the table's owner right now.
func (t *Table) RawWeight(entity core.EntityID) float64 {
	state, ok := t.world.Entity(entity)
	if !ok || state.Ghosting {
		return 0
	}
	return RawWeight(t.weightInputs(entity, state))
}

func (t *Table) weightInputs(entity core.EntityID, state core.EntityState) WeightInputs {
	now := t.world.Now()
	in := WeightInputs{
		IsClient:              state.IsClient,
		IntrinsicWeight:       state.IntrinsicWeight,
		IsCarrier:             state.IsCarrier,
		EnemyDamageToKill:     t.world.DamageToKill(entity, t.tunables.ArmorProtection, t.tunables.ArmorDegradation),
		EnemyHasShell:         state.HasShell(),
		OwnerDamageToBeKilled: t.damageToBeKilled,
		OwnerHasQuad:          t.hasQuad,
		OwnerHasShell:         t.hasShell,
	}
	if s := t.attackers.Find(entity); s != nil {
		in.Attacked = true
		in.SinceAttacked = now - s.LastActivityAt()
	}
	if s := t.targets.Find(entity); s != nil {
		in.Targeted = true
		in.SinceTargeted = now - s.LastActivityAt()
	}
	return in
}

// updateEnemyWeight zeroes the weight of an enemy not seen within the
// reaction window and otherwise recomputes it.
func (t *Table) updateEnemyWeight(e *Enemy) {
	window := max(minWeightVisibilityWindow, t.tunables.ReactionTime)
	if t.world.Now()-e.lastSeenAt > window {
		e.weight = 0
		return
	}
	e.observeWeight(t.RawWeight(e.entity))
}
