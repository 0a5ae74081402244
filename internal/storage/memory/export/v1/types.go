// Package v1 contains the v1 export format for threat traces.
// Rows are positional arrays to keep multi-thousand tick traces small.
package v1

// FormatVersion is written to every export.
const FormatVersion = 1

// Export is the root JSON structure for v1 format
type Export struct {
	Version     int     `json:"version"`
	SessionID   string  `json:"sessionId"`
	SessionName string  `json:"sessionName"`
	Scenario    string  `json:"scenario"`
	Skill       float64 `json:"skill"`
	StartedAt   string  `json:"startedAt"`
	EndTime     int64   `json:"endTime"`
	EndFrame    uint64  `json:"endFrame"`
	Agents      []Agent `json:"agents"`
	// Evictions rows: [time, owner, incoming, evicted, score, dropped]
	Evictions [][]any `json:"evictions"`
	// Hurts rows: [time, agent, inflictor, totalDamage, [x, y, z]]
	Hurts [][]any `json:"hurts"`
}

// Agent holds the selection history of one bot.
type Agent struct {
	ID uint16 `json:"id"`
	// Selections rows: [frame, time, primary, lost, [active...], tracked, capacity]
	Selections [][]any `json:"selections"`
	// PrimaryChanges counts ticks whose primary differs from the tick before.
	PrimaryChanges int `json:"primaryChanges"`
}
