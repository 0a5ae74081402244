package perception

import "github.com/OCAP2/awareness/pkg/core"

// WeaponFit flags the weapon classes an enemy could finish a target with.
type WeaponFit uint8

const (
	FitRail WeaponFit = 1 << iota
	FitShaft
	FitRocket
)

// ComputeWeaponFit derives flags from the enemy state and the damage the
// target can still absorb.
func ComputeWeaponFit(enemy core.EntityState, damageToKillTarget float64) WeaponFit {
	if !enemy.IsClient {
		return 0
	}
	a := enemy.Arsenal
	quad := enemy.HasQuad()

	var flags WeaponFit
	if damageToKillTarget < 150 && (a.Rockets > 0 || a.Waves > 0) {
		flags |= FitRocket
	}
	if a.Instas > 0 {
		flags |= FitRail
	} else if (quad || damageToKillTarget < 140) && a.Bolts > 0 {
		flags |= FitRail
	}
	if a.Lasers > 0 && damageToKillTarget < 80 {
		flags |= FitShaft
	} else if a.Bullets > 0 && (quad || damageToKillTarget < 30) {
		flags |= FitShaft
	}
	return flags
}

// WeaponFitCache memoizes ComputeWeaponFit per frame and per target damage.
type WeaponFitCache struct {
	flags      WeaponFit
	damage     float64
	computedAt core.Frame
	valid      bool
}

func (c *WeaponFitCache) Get(frame core.Frame, enemy core.EntityState, damageToKillTarget float64) WeaponFit {
	if c.valid && c.computedAt == frame && c.damage == damageToKillTarget {
		return c.flags
	}
	c.flags = ComputeWeaponFit(enemy, damageToKillTarget)
	c.damage = damageToKillTarget
	c.computedAt = frame
	c.valid = true
	return c.flags
}

func (c *WeaponFitCache) Invalidate() { *c = WeaponFitCache{} }
