package enemies

import (
	"math"
	"testing"

	"github.com/OCAP2/awareness/pkg/core"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestRawWeight(t *testing.T) {
	tests := []struct {
		name string
		in   WeightInputs
		want float64
	}{
		{name: "client base", in: WeightInputs{IsClient: true}, want: 0.5},
		{name: "intrinsic weight", in: WeightInputs{IntrinsicWeight: 1.25}, want: 1.25},
		{name: "ignored non-client", in: WeightInputs{IntrinsicWeight: 0, IsCarrier: true}, want: 0},
		{name: "fresh attacker", in: WeightInputs{IsClient: true, Attacked: true}, want: 0.5 + 1.55},
		{name: "half-stale target", in: WeightInputs{IsClient: true, Targeted: true, SinceTargeted: 2000}, want: 0.5 + 1.55/2},
		{name: "expired attacker", in: WeightInputs{IsClient: true, Attacked: true, SinceAttacked: 9000}, want: 0.5},
		{name: "carrier", in: WeightInputs{IsClient: true, IsCarrier: true}, want: 2.5},
		{
			name: "weak enemy",
			in:   WeightInputs{IsClient: true, OwnerDamageToBeKilled: 200, EnemyDamageToKill: 25},
			want: 1.0,
		},
		{
			name: "shell makes enemy tough",
			in:   WeightInputs{IsClient: true, OwnerDamageToBeKilled: 100, EnemyDamageToKill: 100, EnemyHasShell: true},
			want: 0,
		},
		{
			name: "owner quad",
			in:   WeightInputs{IsClient: true, OwnerHasQuad: true, OwnerDamageToBeKilled: 100, EnemyDamageToKill: 400},
			want: 0.75,
		},
		{name: "owner shell", in: WeightInputs{IsClient: true, OwnerHasShell: true}, want: 1.0},
		{name: "owner quad and shell", in: WeightInputs{IsClient: true, OwnerHasQuad: true, OwnerHasShell: true}, want: 1.875},
		{
			name: "clamped to max",
			in:   WeightInputs{IntrinsicWeight: 4, IsCarrier: true, Attacked: true, Targeted: true},
			want: MaxEnemyWeight,
		},
		{
			name: "unknown enemy",
			in:   WeightInputs{IsClient: true, OwnerDamageToBeKilled: 100, EnemyDamageToKill: math.Inf(1)},
			want: 0,
		},
		{
			name: "not a number",
			in:   WeightInputs{IsClient: true, OwnerDamageToBeKilled: math.Inf(1), EnemyDamageToKill: math.Inf(1)},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RawWeight(tt.in), 1e-9)
		})
	}
}

func TestProperty_RawWeightBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	properties.Property("raw weight stays within [0, MaxEnemyWeight]", prop.ForAll(
		func(intrinsic, ownerDTBK, enemyDTK float64, since int64, flags uint8) bool {
			in := WeightInputs{
				IsClient:              flags&1 != 0,
				IntrinsicWeight:       intrinsic,
				Attacked:              flags&2 != 0,
				SinceAttacked:         core.Timestamp(since),
				Targeted:              flags&4 != 0,
				SinceTargeted:         core.Timestamp(since / 2),
				IsCarrier:             flags&8 != 0,
				EnemyDamageToKill:     enemyDTK,
				EnemyHasShell:         flags&16 != 0,
				OwnerDamageToBeKilled: ownerDTBK,
				OwnerHasQuad:          flags&32 != 0,
				OwnerHasShell:         flags&64 != 0,
			}
			w := RawWeight(in)
			return w >= 0 && w <= MaxEnemyWeight
		},
		gen.Float64Range(-10, 10),
		gen.Float64Range(0, 2000),
		gen.Float64Range(0, 2000),
		gen.Int64Range(-1000, 10000),
		gen.UInt8(),
	))

	properties.TestingRun(t)
}

// The running average counts positive samples only.
func TestProperty_AverageWeightOfPositiveSamples(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("avg equals mean of positive weights", prop.ForAll(
		func(samples []float64) bool {
			var e Enemy
			sum, n, maxW := 0.0, 0, 0.0
			for _, w := range samples {
				if w < 1 {
					w = 0
				}
				e.observeWeight(w)
				if w > 0 {
					sum += w
					n++
				}
				maxW = math.Max(maxW, w)
			}
			if e.PositiveWeightCount() != n || e.MaxWeight() != maxW {
				return false
			}
			if n == 0 {
				return e.AvgWeight() == 0
			}
			return math.Abs(e.AvgWeight()-sum/float64(n)) < 1e-9
		},
		gen.SliceOf(gen.Float64Range(0, MaxEnemyWeight)),
	))

	properties.TestingRun(t)
}
