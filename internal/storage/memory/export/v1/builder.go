package v1

import (
	"math"
	"slices"
	"time"

	"github.com/OCAP2/awareness/pkg/core"
)

// SessionData contains all the data needed to build an export
type SessionData struct {
	Session    *core.Session
	Selections []core.SelectionTrace
	Evictions  []core.EvictionTrace
	Hurts      []core.HurtTrace
}

// Build creates an Export from the session data
func Build(data *SessionData) Export {
	export := Export{
		Version:   FormatVersion,
		Agents:    make([]Agent, 0),
		Evictions: make([][]any, 0, len(data.Evictions)),
		Hurts:     make([][]any, 0, len(data.Hurts)),
	}
	if s := data.Session; s != nil {
		export.SessionID = s.ID.String()
		export.SessionName = s.Name
		export.Scenario = s.Scenario
		export.Skill = s.Skill
		export.StartedAt = s.StartedAt.UTC().Format(time.RFC3339)
	}

	agents := make(map[core.EntityID]*Agent)
	lastPrimary := make(map[core.EntityID]core.EntityID)
	for _, sel := range data.Selections {
		a, ok := agents[sel.Agent]
		if !ok {
			a = &Agent{ID: uint16(sel.Agent), Selections: make([][]any, 0)}
			agents[sel.Agent] = a
		} else if lastPrimary[sel.Agent] != sel.Primary {
			a.PrimaryChanges++
		}
		lastPrimary[sel.Agent] = sel.Primary

		active := make([]uint16, len(sel.Active))
		for i, id := range sel.Active {
			active[i] = uint16(id)
		}
		a.Selections = append(a.Selections, []any{
			uint64(sel.Frame),   // [0] frame
			int64(sel.Time),     // [1] time
			uint16(sel.Primary), // [2] primary
			uint16(sel.Lost),    // [3] lost
			active,              // [4] active
			sel.Tracked,         // [5] tracked
			sel.Capacity,        // [6] capacity
		})
		export.EndTime = max(export.EndTime, int64(sel.Time))
		export.EndFrame = max(export.EndFrame, uint64(sel.Frame))
	}

	ids := make([]core.EntityID, 0, len(agents))
	for id := range agents {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		export.Agents = append(export.Agents, *agents[id])
	}

	for _, ev := range data.Evictions {
		export.Evictions = append(export.Evictions, []any{
			int64(ev.Time),
			ev.Owner,
			uint16(ev.Incoming),
			uint16(ev.Evicted),
			finite(ev.Score),
			ev.Dropped,
		})
		export.EndTime = max(export.EndTime, int64(ev.Time))
	}

	for _, h := range data.Hurts {
		export.Hurts = append(export.Hurts, []any{
			int64(h.Time),
			uint16(h.Agent),
			uint16(h.Inflictor),
			h.TotalDamage,
			[]float64{h.PossibleOrigin.X, h.PossibleOrigin.Y, h.PossibleOrigin.Z},
		})
		export.EndTime = max(export.EndTime, int64(h.Time))
	}

	return export
}

// finite clamps scores JSON cannot encode.
func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}
