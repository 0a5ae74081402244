package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&TrackerInfo{},
	&Session{},
	&Selection{},
	&Eviction{},
	&Hurt{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// TrackerInfo records the engine build that wrote the database.
type TrackerInfo struct {
	gorm.Model
	Engine  string `json:"engine" gorm:"size:64"`
	Version string `json:"version" gorm:"size:32"`
}

func (*TrackerInfo) TableName() string {
	return "tracker_infos"
}

////////////////////////
// SESSION
////////////////////////

// Session is one simulation run. Every trace row references it.
type Session struct {
	ID        uint         `json:"id" gorm:"primarykey;autoIncrement;"`
	UUID      string       `json:"uuid" gorm:"size:36;uniqueIndex:idx_session_uuid"`
	Name      string       `json:"name" gorm:"size:127"`
	Scenario  string       `json:"scenario" gorm:"size:255"`
	Skill     float64      `json:"skill"`
	StartedAt time.Time    `json:"startedAt" gorm:"type:timestamptz;index:idx_session_start"`
	EndedAt   sql.NullTime `json:"endedAt" gorm:"type:timestamptz;default:NULL"`
}

func (*Session) TableName() string {
	return "sessions"
}

////////////////////////
// TRACES
////////////////////////

// Selection is what one agent selected on one tick.
//
// Active and Scores are parallel JSON arrays ordered by descending score.
type Selection struct {
	ID        uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID uint    `json:"sessionId" gorm:"index:idx_selection_session_id"`
	Session   Session `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`

	SimTime   int64          `json:"simTime" gorm:"index:idx_selection_sim_time"` // Simulation time in ms
	Frame     uint64         `json:"frame"`
	Agent     uint16         `json:"agent" gorm:"index:idx_selection_agent"`
	Primary   uint16         `json:"primary"` // 0 when nothing is selected
	Lost      uint16         `json:"lost"`
	Active    datatypes.JSON `json:"active" gorm:"type:jsonb;default:'[]'"`
	Scores    datatypes.JSON `json:"scores" gorm:"type:jsonb;default:'[]'"`
	Tracked   int            `json:"tracked"`
	Capacity  int            `json:"capacity"`
	MaxThreat float64        `json:"maxThreat"`
	CanHit    bool           `json:"canHit"`
}

func (*Selection) TableName() string {
	return "selections"
}

// Eviction records one capacity decision of an enemy table.
type Eviction struct {
	ID        uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID uint    `json:"sessionId" gorm:"index:idx_eviction_session_id"`
	Session   Session `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`

	SimTime  int64   `json:"simTime" gorm:"index:idx_eviction_sim_time"`
	Owner    string  `json:"owner" gorm:"size:64"` // agent-N or squad name
	Incoming uint16  `json:"incoming"`
	Evicted  uint16  `json:"evicted"`
	Score    float64 `json:"score"`
	Dropped  bool    `json:"dropped" gorm:"default:false"` // incoming was rejected instead
}

func (*Eviction) TableName() string {
	return "evictions"
}

// Hurt records a latched hurt event.
type Hurt struct {
	ID        uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID uint    `json:"sessionId" gorm:"index:idx_hurt_session_id"`
	Session   Session `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`

	SimTime        int64      `json:"simTime" gorm:"index:idx_hurt_sim_time"`
	Agent          uint16     `json:"agent" gorm:"index:idx_hurt_agent"`
	Inflictor      uint16     `json:"inflictor"`
	TotalDamage    float64    `json:"totalDamage"`
	PossibleOrigin geom.Point `json:"possibleOrigin"` // Noisy guess of the attacker position
}

func (*Hurt) TableName() string {
	return "hurts"
}
