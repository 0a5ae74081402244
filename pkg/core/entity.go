package core

import "math"

// EntityID is the stable small-integer identifier of a game object.
type EntityID uint16

// NoEntity is the null entity reference.
const NoEntity EntityID = 0

// MaxEntities bounds every entity-indexed array.
const MaxEntities = 1024

// Valid reports whether id refers to an entity slot.
func (id EntityID) Valid() bool { return id != NoEntity && int(id) < MaxEntities }

// Timestamp is simulation time in milliseconds.
type Timestamp int64

// Frame is the simulation frame counter.
type Frame uint64

// Powerups is a bit set of held powerups.
type Powerups uint8

const (
	// PowerupQuad amplifies outgoing damage 4x.
	PowerupQuad Powerups = 1 << iota
	// PowerupShell reduces incoming damage 4x.
	PowerupShell
)

// Arsenal holds ammo counters relevant to weapon-fit and range checks.
type Arsenal struct {
	Rockets int `json:"rockets" yaml:"rockets"`
	Waves   int `json:"waves" yaml:"waves"`
	Instas  int `json:"instas" yaml:"instas"`
	Bolts   int `json:"bolts" yaml:"bolts"`
	Lasers  int `json:"lasers" yaml:"lasers"`
	Bullets int `json:"bullets" yaml:"bullets"`
	Plasmas int `json:"plasmas" yaml:"plasmas"`
	Shells  int `json:"shells" yaml:"shells"`
}

// SniperRange reports weapons that hit reliably from far away.
func (a Arsenal) SniperRange() bool { return a.Bolts > 0 || a.Bullets > 0 || a.Instas > 0 }

func (a Arsenal) FarRange() bool { return a.SniperRange() || a.Plasmas > 0 }

func (a Arsenal) MiddleRange() bool {
	return a.Rockets > 0 || a.Lasers > 0 || a.Plasmas > 0 || a.Waves > 0 ||
		a.Bullets > 0 || a.Shells > 0 || a.Instas > 0
}

func (a Arsenal) CloseRange() bool {
	return a.Rockets > 0 || a.Plasmas > 0 || a.Waves > 0 || a.Shells > 0
}

// EntityState is a read-only snapshot of one game object.
type EntityState struct {
	ID              EntityID `json:"id"`
	Name            string   `json:"name"`
	Team            int      `json:"team"`
	Origin          Vec3     `json:"origin"`
	Velocity        Vec3     `json:"velocity"`
	Forward         Vec3     `json:"forward"`
	Mins            Vec3     `json:"mins"`
	Maxs            Vec3     `json:"maxs"`
	IsClient        bool     `json:"isClient"`
	IntrinsicWeight float64  `json:"intrinsicWeight"`
	Health          float64  `json:"health"`
	Armor           float64  `json:"armor"`
	Powerups        Powerups `json:"powerups"`
	IsCarrier       bool     `json:"isCarrier"`
	Teleported      bool     `json:"teleported"`
	NoTarget        bool     `json:"noTarget"`
	Busy            bool     `json:"busy"`
	Ghosting        bool     `json:"ghosting"`
	InUse           bool     `json:"inUse"`
	VisibilityRange float64  `json:"visibilityRange"`
	FovDot          float64  `json:"fovDot"`
	Arsenal         Arsenal  `json:"arsenal"`
}

func (s EntityState) HasQuad() bool  { return s.Powerups&PowerupQuad != 0 }
func (s EntityState) HasShell() bool { return s.Powerups&PowerupShell != 0 }

// DamageToKill returns the damage needed to kill an entity with the given health and armor.
func DamageToKill(health, armor, protection, degradation float64) float64 {
	if armor <= 0 {
		return health
	}
	if protection >= 1 {
		return math.Inf(1)
	}
	if degradation != 0 {
		damageToWipeArmor := armor / degradation
		healthDamageToWipeArmor := damageToWipeArmor * (1 - protection)
		if healthDamageToWipeArmor < health {
			return damageToWipeArmor + (health - healthDamageToWipeArmor)
		}
	}
	return health / (1 - protection)
}
