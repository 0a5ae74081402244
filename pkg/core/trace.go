package core

import (
	"time"

	"github.com/google/uuid"
)

// Session identifies one simulation run.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Scenario  string    `json:"scenario"`
	Skill     float64   `json:"skill"`
	StartedAt time.Time `json:"startedAt"`
}

// NewSession creates a session with a fresh random id.
func NewSession(name, scenario string, skill float64) Session {
	return Session{
		ID:        uuid.New(),
		Name:      name,
		Scenario:  scenario,
		Skill:     skill,
		StartedAt: time.Now(),
	}
}

// SelectionTrace records what an agent selected on one tick.
type SelectionTrace struct {
	Time      Timestamp  `json:"time"`
	Frame     Frame      `json:"frame"`
	Agent     EntityID   `json:"agent"`
	Primary   EntityID   `json:"primary"`
	Lost      EntityID   `json:"lost"`
	Active    []EntityID `json:"active"`
	Scores    []float64  `json:"scores"`
	Tracked   int        `json:"tracked"`
	Capacity  int        `json:"capacity"`
	MaxThreat float64    `json:"maxThreat"`
	CanHit    bool       `json:"canHit"`
}

// EvictionTrace records an eviction decision.
type EvictionTrace struct {
	Time     Timestamp `json:"time"`
	Owner    string    `json:"owner"`
	Incoming EntityID  `json:"incoming"`
	Evicted  EntityID  `json:"evicted"`
	Score    float64   `json:"score"`
	Dropped  bool      `json:"dropped"`
}

// HurtTrace records a latched hurt event.
type HurtTrace struct {
	Time           Timestamp `json:"time"`
	Agent          EntityID  `json:"agent"`
	Inflictor      EntityID  `json:"inflictor"`
	TotalDamage    float64   `json:"totalDamage"`
	PossibleOrigin Vec3      `json:"possibleOrigin"`
}
