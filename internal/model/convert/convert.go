package convert

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/awareness/internal/model"
	"github.com/OCAP2/awareness/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// pointToVec3 converts a PostGIS geom.Point to a core.Vec3
func pointToVec3(p geom.Point) core.Vec3 {
	coord, ok := p.Coordinates()
	if !ok {
		return core.Vec3{}
	}
	return core.Vec3{X: coord.XY.X, Y: coord.XY.Y, Z: coord.Z}
}

// SelectionToCore converts a GORM model.Selection to a core.SelectionTrace
func SelectionToCore(s model.Selection) (core.SelectionTrace, error) {
	t := core.SelectionTrace{
		Time:      core.Timestamp(s.SimTime),
		Frame:     core.Frame(s.Frame),
		Agent:     core.EntityID(s.Agent),
		Primary:   core.EntityID(s.Primary),
		Lost:      core.EntityID(s.Lost),
		Tracked:   s.Tracked,
		Capacity:  s.Capacity,
		MaxThreat: s.MaxThreat,
		CanHit:    s.CanHit,
	}
	if len(s.Active) > 0 {
		if err := json.Unmarshal(s.Active, &t.Active); err != nil {
			return t, fmt.Errorf("error unmarshalling active enemies: %w", err)
		}
	}
	if len(s.Scores) > 0 {
		if err := json.Unmarshal(s.Scores, &t.Scores); err != nil {
			return t, fmt.Errorf("error unmarshalling scores: %w", err)
		}
	}
	return t, nil
}

// EvictionToCore converts a GORM model.Eviction to a core.EvictionTrace
func EvictionToCore(e model.Eviction) core.EvictionTrace {
	return core.EvictionTrace{
		Time:     core.Timestamp(e.SimTime),
		Owner:    e.Owner,
		Incoming: core.EntityID(e.Incoming),
		Evicted:  core.EntityID(e.Evicted),
		Score:    e.Score,
		Dropped:  e.Dropped,
	}
}

// HurtToCore converts a GORM model.Hurt to a core.HurtTrace
func HurtToCore(h model.Hurt) core.HurtTrace {
	return core.HurtTrace{
		Time:           core.Timestamp(h.SimTime),
		Agent:          core.EntityID(h.Agent),
		Inflictor:      core.EntityID(h.Inflictor),
		TotalDamage:    h.TotalDamage,
		PossibleOrigin: pointToVec3(h.PossibleOrigin),
	}
}
