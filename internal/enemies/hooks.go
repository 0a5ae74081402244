package enemies

import "github.com/OCAP2/awareness/pkg/core"

// Hooks is what a table needs to know about its owner, a lone agent or a squad.
type Hooks interface {
	// OnEnemyRemoved is called before a record is cleared.
	OnEnemyRemoved(e *Enemy)
	HasQuad() bool
	HasShell() bool
	// DamageToBeKilled is the damage the owner can still absorb.
	DamageToBeKilled() float64
	// AdditionalEnemyWeight is added to an enemy's weight when agent selects targets.
	AdditionalEnemyWeight(agent, entity core.EntityID) float64
	// OnEnemyAssigned reports the primary enemy chosen for agent, possibly nil.
	OnEnemyAssigned(agent core.EntityID, e *Enemy)
	// OnNewThreat reports an attacker that is not the current primary enemy.
	OnNewThreat(entity core.EntityID)
	// IsEngaged protects owner-specific attackers and targets from eviction.
	IsEngaged(entity core.EntityID) bool
	// DistanceTo measures how far origin is from the owner.
	DistanceTo(origin core.Vec3) float64
}

// NopHooks is a Hooks implementation that does nothing.
// Embed it to override only the methods you need.
type NopHooks struct{}

func (NopHooks) OnEnemyRemoved(*Enemy)                                     {}
func (NopHooks) HasQuad() bool                                             { return false }
func (NopHooks) HasShell() bool                                            { return false }
func (NopHooks) DamageToBeKilled() float64                                 { return 0 }
func (NopHooks) AdditionalEnemyWeight(agent, entity core.EntityID) float64 { return 0 }
func (NopHooks) OnEnemyAssigned(core.EntityID, *Enemy)                     {}
func (NopHooks) OnNewThreat(core.EntityID)                                 {}
func (NopHooks) IsEngaged(core.EntityID) bool                              { return false }
func (NopHooks) DistanceTo(core.Vec3) float64                              { return 0 }

var _ Hooks = NopHooks{}

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// Tracer receives eviction decisions.
type Tracer interface {
	OnEviction(core.EvictionTrace)
}
