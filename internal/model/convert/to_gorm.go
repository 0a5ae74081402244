// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	"github.com/OCAP2/awareness/internal/model"
	"github.com/OCAP2/awareness/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// vec3ToPoint converts a core.Vec3 to a PostGIS geom.Point
func vec3ToPoint(v core.Vec3) geom.Point {
	coords := geom.Coordinates{XY: geom.XY{X: v.X, Y: v.Y}, Z: v.Z, Type: geom.DimXYZ}
	return geom.NewPoint(coords)
}

// finiteScores replaces infinities with the largest finite values so the scores survive JSON.
func finiteScores(scores []float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		switch {
		case math.IsInf(s, 1):
			out[i] = math.MaxFloat64
		case math.IsInf(s, -1):
			out[i] = -math.MaxFloat64
		case math.IsNaN(s):
			out[i] = 0
		default:
			out[i] = s
		}
	}
	return out
}

// CoreToSession converts a core.Session to a GORM model.Session
func CoreToSession(s core.Session) model.Session {
	return model.Session{
		UUID:      s.ID.String(),
		Name:      s.Name,
		Scenario:  s.Scenario,
		Skill:     s.Skill,
		StartedAt: s.StartedAt,
		EndedAt:   sql.NullTime{},
	}
}

// CoreToSelection converts a core.SelectionTrace to a GORM model.Selection
func CoreToSelection(t core.SelectionTrace) (model.Selection, error) {
	active := t.Active
	if active == nil {
		active = []core.EntityID{}
	}
	activeJSON, err := json.Marshal(active)
	if err != nil {
		return model.Selection{}, fmt.Errorf("error marshalling active enemies: %w", err)
	}
	scoresJSON, err := json.Marshal(finiteScores(t.Scores))
	if err != nil {
		return model.Selection{}, fmt.Errorf("error marshalling scores: %w", err)
	}

	return model.Selection{
		SimTime:   int64(t.Time),
		Frame:     uint64(t.Frame),
		Agent:     uint16(t.Agent),
		Primary:   uint16(t.Primary),
		Lost:      uint16(t.Lost),
		Active:    datatypes.JSON(activeJSON),
		Scores:    datatypes.JSON(scoresJSON),
		Tracked:   t.Tracked,
		Capacity:  t.Capacity,
		MaxThreat: t.MaxThreat,
		CanHit:    t.CanHit,
	}, nil
}

// CoreToEviction converts a core.EvictionTrace to a GORM model.Eviction
func CoreToEviction(t core.EvictionTrace) model.Eviction {
	return model.Eviction{
		SimTime:  int64(t.Time),
		Owner:    t.Owner,
		Incoming: uint16(t.Incoming),
		Evicted:  uint16(t.Evicted),
		Score:    finiteScores([]float64{t.Score})[0],
		Dropped:  t.Dropped,
	}
}

// CoreToHurt converts a core.HurtTrace to a GORM model.Hurt
func CoreToHurt(t core.HurtTrace) model.Hurt {
	return model.Hurt{
		SimTime:        int64(t.Time),
		Agent:          uint16(t.Agent),
		Inflictor:      uint16(t.Inflictor),
		TotalDamage:    t.TotalDamage,
		PossibleOrigin: vec3ToPoint(t.PossibleOrigin),
	}
}
