package awareness

import "github.com/OCAP2/awareness/pkg/core"

// HazardTimeout is how long a selected hazard stays primary.
const HazardTimeout core.Timestamp = 750

// Hazard is an incoming area-effect danger.
type Hazard struct {
	Damage       float64
	HitPoint     core.Vec3
	Direction    core.Vec3
	Attacker     core.EntityID
	SplashRadius float64
	TimeoutAt    core.Timestamp
}

func (h Hazard) IsValid(now core.Timestamp) bool { return h.TimeoutAt > now }

// HazardSelector keeps the single most damaging hazard of an update.
type HazardSelector struct {
	primary Hazard
	has     bool
}

// BeginUpdate drops the current hazard.
func (s *HazardSelector) BeginUpdate() {
	s.primary = Hazard{}
	s.has = false
}

// TryAddHazard replaces the primary hazard if damage is strictly greater.
func (s *HazardSelector) TryAddHazard(damage float64, hitPoint, direction core.Vec3, attacker core.EntityID, splashRadius float64) bool {
	if s.has && s.primary.Damage >= damage {
		return false
	}
	s.primary = Hazard{
		Damage:       damage,
		HitPoint:     hitPoint,
		Direction:    direction,
		Attacker:     attacker,
		SplashRadius: splashRadius,
	}
	s.has = true
	return true
}

// EndUpdate stamps the timeout of the selected hazard.
func (s *HazardSelector) EndUpdate(now core.Timestamp) {
	if s.has {
		s.primary.TimeoutAt = now + HazardTimeout
	}
}

// Primary returns the selected hazard while it is valid.
func (s *HazardSelector) Primary(now core.Timestamp) (Hazard, bool) {
	if !s.has || !s.primary.IsValid(now) {
		return Hazard{}, false
	}
	return s.primary, true
}
