package core

// Sighting reports that Agent currently sees Entity.
type Sighting struct {
	Agent  EntityID
	Entity EntityID
}

// Guess reports an inferred location of Entity.
// Origin is nil when the true origin should be used.
type Guess struct {
	Agent        EntityID
	Entity       EntityID
	MinStaleness Timestamp
	Origin       *Vec3
}

// Pain reports Agent being hurt by Attacker.
type Pain struct {
	Agent    EntityID
	Attacker EntityID
	Kick     float64
	Damage   float64
}

// Damage reports Agent damaging Target.
type Damage struct {
	Agent  EntityID
	Target EntityID
	Amount float64
}

// HazardReport describes an incoming area-effect danger for Agent.
type HazardReport struct {
	Agent        EntityID
	Attacker     EntityID
	Damage       float64
	HitPoint     Vec3
	Direction    Vec3
	SplashRadius float64
}

// Forget asks Agent to drop Entity from memory.
type Forget struct {
	Agent  EntityID
	Entity EntityID
}

// SoundKind classifies an audible world event.
type SoundKind uint8

const (
	SoundUnknown SoundKind = iota
	SoundFire
	SoundWeaponSwitch
	SoundNoAmmo
	SoundMovement
	SoundFall
	SoundRespawn
	SoundTeleportIn
	SoundImpact
	SoundPlasmaImpact
	SoundExplosion
)

var soundKindNames = [...]string{
	SoundUnknown:      "unknown",
	SoundFire:         "fire",
	SoundWeaponSwitch: "weaponswitch",
	SoundNoAmmo:       "noammo",
	SoundMovement:     "movement",
	SoundFall:         "fall",
	SoundRespawn:      "respawn",
	SoundTeleportIn:   "teleportin",
	SoundImpact:       "impact",
	SoundPlasmaImpact: "plasmaimpact",
	SoundExplosion:    "explosion",
}

// Hearing ranges are a bit below human perception, otherwise agents react
// to every minor event.
var soundKindRanges = [...]float64{
	SoundFire:         768,
	SoundWeaponSwitch: 512,
	SoundNoAmmo:       256,
	SoundMovement:     512,
	SoundFall:         512,
	SoundRespawn:      768,
	SoundTeleportIn:   768,
	SoundImpact:       1280,
	SoundPlasmaImpact: 1280,
	SoundExplosion:    2048,
}

func (k SoundKind) String() string {
	if int(k) < len(soundKindNames) {
		return soundKindNames[k]
	}
	return soundKindNames[SoundUnknown]
}

// ParseSoundKind maps a case-sensitive wire name to a kind.
func ParseSoundKind(s string) (SoundKind, bool) {
	for k, name := range soundKindNames {
		if k != int(SoundUnknown) && name == s {
			return SoundKind(k), true
		}
	}
	return SoundUnknown, false
}

// Range is how far the sound carries, 0 for unknown kinds.
func (k SoundKind) Range() float64 {
	if int(k) < len(soundKindRanges) {
		return soundKindRanges[k]
	}
	return 0
}

// IsImpact reports whether the sound happens where a shot of Source landed
// rather than at Source itself.
func (k SoundKind) IsImpact() bool {
	return k == SoundImpact || k == SoundPlasmaImpact || k == SoundExplosion
}

// IsAtPlayer reports whether the sound marks a player appearing at Origin.
// Such sounds cannot be confused with a teammate's.
func (k SoundKind) IsAtPlayer() bool {
	return k == SoundRespawn || k == SoundTeleportIn
}

// Sound is an audible event caused by Source at Origin.
type Sound struct {
	Source EntityID
	Kind   SoundKind
	Origin Vec3
}

// TeleportOut reports Player entering a teleporter at Origin that leads to
// Destination.
type TeleportOut struct {
	Player      EntityID
	Origin      Vec3
	Destination Vec3
}
