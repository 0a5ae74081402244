package attackstats

import (
	"testing"

	"github.com/OCAP2/awareness/pkg/core"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestStats_OnDamageAccumulates(t *testing.T) {
	var s Stats
	s.OnDamage(100, 40)
	s.OnDamage(120, 35)

	assert.Equal(t, 75.0, s.TotalDamage())
	assert.Equal(t, 2, s.TotalAttacks())
	assert.Equal(t, core.Timestamp(120), s.LastDamageAt())
	assert.Equal(t, core.Timestamp(120), s.LastActivityAt())
}

func TestStats_FrameSaturation(t *testing.T) {
	var s Stats
	s.OnDamage(0, 200)
	s.OnDamage(0, 200)

	assert.Equal(t, 255.0, s.TotalDamage())
	assert.Equal(t, 2, s.TotalAttacks())
}

func TestStats_TouchExtendsActivity(t *testing.T) {
	var s Stats
	s.OnDamage(100, 10)
	s.Touch(500)
	assert.Equal(t, core.Timestamp(500), s.LastActivityAt())
	assert.Equal(t, core.Timestamp(100), s.LastDamageAt())
}

func TestStats_FullRingAdvanceForgetsDamage(t *testing.T) {
	var s Stats
	s.OnDamage(0, 50)
	s.Frame()
	s.OnDamage(16, 25)

	for i := 0; i < MaxKeptFrames-2; i++ {
		s.Frame()
	}
	assert.Equal(t, 75.0, s.TotalDamage())

	s.Frame()
	assert.Equal(t, 25.0, s.TotalDamage(), "first sample is overwritten first")

	s.Frame()
	assert.Equal(t, 0.0, s.TotalDamage())
	assert.Equal(t, 0, s.TotalAttacks())
}

func TestStats_RingTotalMatchesSamples(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var s Stats
		steps := rapid.IntRange(1, 3*MaxKeptFrames).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(rt, "damage") {
				s.OnDamage(core.Timestamp(i*16), rapid.Float64Range(0, 400).Draw(rt, "amount"))
			} else {
				s.Frame()
			}
			if s.TotalDamage() != s.ringSum() {
				rt.Fatalf("total %v != ring sum %v", s.TotalDamage(), s.ringSum())
			}
		}

		for i := 0; i < MaxKeptFrames; i++ {
			s.Frame()
		}
		if s.TotalDamage() != 0 || s.TotalAttacks() != 0 {
			rt.Fatalf("ring not drained: damage=%v attacks=%d", s.TotalDamage(), s.TotalAttacks())
		}
	})
}
