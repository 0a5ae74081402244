// Package attackstats keeps short per-frame damage histories for attackers and targets.
package attackstats

import (
	"github.com/OCAP2/awareness/pkg/core"
)

// MaxKeptFrames is the ring length. It must be a power of two.
const MaxKeptFrames = 256

const maxFrameDamage = 255

type frameSample struct {
	damage  uint8
	attacks uint8
}

// Stats is the damage history of one entity.
type Stats struct {
	entity       core.EntityID
	samples      [MaxKeptFrames]frameSample
	index        int
	totalDamage  float64
	totalAttacks int
	lastDamageAt core.Timestamp
	lastTouchAt  core.Timestamp
}

// Clear resets the record and frees it.
func (s *Stats) Clear() {
	*s = Stats{}
}

func (s *Stats) Entity() core.EntityID { return s.entity }

func (s *Stats) TotalDamage() float64 { return s.totalDamage }

func (s *Stats) TotalAttacks() int { return s.totalAttacks }

func (s *Stats) LastDamageAt() core.Timestamp { return s.lastDamageAt }

func (s *Stats) LastTouchAt() core.Timestamp { return s.lastTouchAt }

// LastActivityAt is the later of the last damage and the last touch.
func (s *Stats) LastActivityAt() core.Timestamp {
	return max(s.lastDamageAt, s.lastTouchAt)
}

// Frame advances the ring by one slot. The slot being reused is
// subtracted from the totals before it is zeroed.
func (s *Stats) Frame() {
	s.index = (s.index + 1) & (MaxKeptFrames - 1)
	overwritten := s.samples[s.index]
	s.totalDamage -= float64(overwritten.damage)
	s.totalAttacks -= int(overwritten.attacks)
	s.samples[s.index] = frameSample{}
}

// OnDamage adds damage to the current frame sample.
// A single frame keeps at most 255 damage units.
func (s *Stats) OnDamage(now core.Timestamp, damage float64) {
	s.lastDamageAt = now
	if damage <= 0 {
		return
	}
	sample := &s.samples[s.index]
	room := float64(maxFrameDamage - int(sample.damage))
	added := min(damage, room)
	sample.damage += uint8(added)
	s.totalDamage += float64(uint8(added))
	if sample.attacks < 255 {
		sample.attacks++
		s.totalAttacks++
	}
}

// Touch marks the entity as still relevant without recording damage.
func (s *Stats) Touch(now core.Timestamp) {
	s.lastTouchAt = now
}

// ringSum recomputes the damage total from the ring.
func (s *Stats) ringSum() float64 {
	var sum float64
	for _, sample := range s.samples {
		sum += float64(sample.damage)
	}
	return sum
}
