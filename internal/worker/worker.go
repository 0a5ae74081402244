// Package worker turns dispatched simulator commands into engine calls.
package worker

import (
	"errors"
	"fmt"

	"github.com/OCAP2/awareness/internal/parser"
	"github.com/OCAP2/awareness/pkg/core"
)

// ErrUnknownAgent is returned for perception events addressed to an agent without a tracker.
var ErrUnknownAgent = errors.New("unknown agent")

// DefaultQueueSize bounds each queued perception command between drains.
const DefaultQueueSize = 4096

// Agent is the perception surface of one tracked bot.
type Agent interface {
	OnEnemyViewed(entity core.EntityID)
	OnEnemyOriginGuessed(entity core.EntityID, minStaleness core.Timestamp, origin *core.Vec3)
	OnPain(attacker core.EntityID, kick, damage float64)
	OnEnemyDamaged(target core.EntityID, damage float64)
	Forget(entity core.EntityID)
	ReportHazard(h core.HazardReport)
}

// Engine is the simulation the handlers drive.
type Engine interface {
	PutEntity(state core.EntityState)
	RemoveEntity(id core.EntityID)
	AddObstacle(mins, maxs core.Vec3)
	AddAgent(agent core.EntityID, skill float64) error
	RemoveAgent(agent core.EntityID) error
	Agent(agent core.EntityID) (Agent, bool)
	JoinSquad(squad string, agent core.EntityID) error
	LeaveSquad(squad string, agent core.EntityID) error
	SetRoleWeight(squad string, agent core.EntityID, weight float64) error
	EmitSound(s core.Sound)
	TeleportOut(t core.TeleportOut)
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	ParserService parser.Service
	// QueueSize defaults to DefaultQueueSize.
	QueueSize int
}

// Manager owns the command handlers.
type Manager struct {
	deps   Dependencies
	engine Engine
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, engine Engine) *Manager {
	if deps.QueueSize <= 0 {
		deps.QueueSize = DefaultQueueSize
	}
	return &Manager{
		deps:   deps,
		engine: engine,
	}
}

func (m *Manager) agent(id core.EntityID) (Agent, error) {
	a, ok := m.engine.Agent(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	return a, nil
}
