package worker

import (
	"fmt"

	"github.com/OCAP2/awareness/internal/dispatcher"
)

// Command names understood by the simulator.
const (
	CmdEntityState  = ":ENTITY:STATE:"
	CmdEntityRemove = ":ENTITY:REMOVE:"
	CmdObstacle     = ":OBSTACLE:"
	CmdAgentNew     = ":AGENT:NEW:"
	CmdAgentRemove  = ":AGENT:REMOVE:"
	CmdEnemyViewed  = ":ENEMY:VIEWED:"
	CmdEnemyGuessed = ":ENEMY:GUESSED:"
	CmdPain         = ":PAIN:"
	CmdDamaged      = ":DAMAGED:"
	CmdForget       = ":FORGET:"
	CmdHazard       = ":HAZARD:"
	CmdSound        = ":SOUND:"
	CmdTeleportOut  = ":TELEPORT:OUT:"
	CmdSquadJoin    = ":SQUAD:JOIN:"
	CmdSquadLeave   = ":SQUAD:LEAVE:"
	CmdSquadRole    = ":SQUAD:ROLE:"
)

// RegisterHandlers registers all command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// World and membership changes - sync (perception of the same tick depends on them)
	d.Register(CmdEntityState, m.handleEntityState, dispatcher.Logged())
	d.Register(CmdEntityRemove, m.handleEntityRemove, dispatcher.Logged())
	d.Register(CmdObstacle, m.handleObstacle, dispatcher.Logged())
	d.Register(CmdAgentNew, m.handleAgentNew, dispatcher.Logged())
	d.Register(CmdAgentRemove, m.handleAgentRemove, dispatcher.Logged())
	d.Register(CmdSquadJoin, m.handleSquadJoin, dispatcher.Logged())
	d.Register(CmdSquadLeave, m.handleSquadLeave, dispatcher.Logged())
	d.Register(CmdSquadRole, m.handleSquadRole, dispatcher.Logged())

	// High-volume perception events - queued until the tick drains them
	size := m.deps.QueueSize
	d.Register(CmdEnemyViewed, m.handleEnemyViewed, dispatcher.Queued(size), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(CmdEnemyGuessed, m.handleEnemyGuessed, dispatcher.Queued(size), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(CmdPain, m.handlePain, dispatcher.Queued(size), dispatcher.Logged())
	d.Register(CmdDamaged, m.handleDamaged, dispatcher.Queued(size), dispatcher.Logged())
	d.Register(CmdForget, m.handleForget, dispatcher.Queued(size), dispatcher.Logged())
	d.Register(CmdHazard, m.handleHazard, dispatcher.Queued(size), dispatcher.Logged())
	d.Register(CmdSound, m.handleSound, dispatcher.Queued(size), dispatcher.Logged())
	d.Register(CmdTeleportOut, m.handleTeleportOut, dispatcher.Queued(size), dispatcher.Logged())
}

func (m *Manager) handleEntityState(e dispatcher.Event) (any, error) {
	state, err := m.deps.ParserService.ParseEntityState(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to update entity: %w", err)
	}
	m.engine.PutEntity(state)
	return nil, nil
}

func (m *Manager) handleEntityRemove(e dispatcher.Event) (any, error) {
	id, err := m.deps.ParserService.ParseEntityRef(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to remove entity: %w", err)
	}
	m.engine.RemoveEntity(id)
	return nil, nil
}

func (m *Manager) handleObstacle(e dispatcher.Event) (any, error) {
	o, err := m.deps.ParserService.ParseObstacle(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to add obstacle: %w", err)
	}
	m.engine.AddObstacle(o.Mins, o.Maxs)
	return nil, nil
}

func (m *Manager) handleAgentNew(e dispatcher.Event) (any, error) {
	spec, err := m.deps.ParserService.ParseAgent(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to add agent: %w", err)
	}
	if err := m.engine.AddAgent(spec.Agent, spec.Skill); err != nil {
		return nil, fmt.Errorf("failed to add agent %d: %w", spec.Agent, err)
	}
	return nil, nil
}

func (m *Manager) handleAgentRemove(e dispatcher.Event) (any, error) {
	id, err := m.deps.ParserService.ParseEntityRef(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to remove agent: %w", err)
	}
	if err := m.engine.RemoveAgent(id); err != nil {
		return nil, fmt.Errorf("failed to remove agent %d: %w", id, err)
	}
	return nil, nil
}

func (m *Manager) handleSquadJoin(e dispatcher.Event) (any, error) {
	ms, err := m.deps.ParserService.ParseSquadMembership(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to join squad: %w", err)
	}
	if err := m.engine.JoinSquad(ms.Squad, ms.Agent); err != nil {
		return nil, fmt.Errorf("failed to join squad %s: %w", ms.Squad, err)
	}
	return nil, nil
}

func (m *Manager) handleSquadLeave(e dispatcher.Event) (any, error) {
	ms, err := m.deps.ParserService.ParseSquadMembership(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to leave squad: %w", err)
	}
	if err := m.engine.LeaveSquad(ms.Squad, ms.Agent); err != nil {
		return nil, fmt.Errorf("failed to leave squad %s: %w", ms.Squad, err)
	}
	return nil, nil
}

func (m *Manager) handleSquadRole(e dispatcher.Event) (any, error) {
	rw, err := m.deps.ParserService.ParseRoleWeight(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to set role weight: %w", err)
	}
	if err := m.engine.SetRoleWeight(rw.Squad, rw.Agent, rw.Weight); err != nil {
		return nil, fmt.Errorf("failed to set role weight in %s: %w", rw.Squad, err)
	}
	return nil, nil
}

func (m *Manager) handleEnemyViewed(e dispatcher.Event) (any, error) {
	s, err := m.deps.ParserService.ParseSighting(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log sighting: %w", err)
	}
	a, err := m.agent(s.Agent)
	if err != nil {
		return nil, err
	}
	a.OnEnemyViewed(s.Entity)
	return nil, nil
}

func (m *Manager) handleEnemyGuessed(e dispatcher.Event) (any, error) {
	g, err := m.deps.ParserService.ParseGuess(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log guess: %w", err)
	}
	a, err := m.agent(g.Agent)
	if err != nil {
		return nil, err
	}
	a.OnEnemyOriginGuessed(g.Entity, g.MinStaleness, g.Origin)
	return nil, nil
}

func (m *Manager) handlePain(e dispatcher.Event) (any, error) {
	p, err := m.deps.ParserService.ParsePain(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log pain: %w", err)
	}
	a, err := m.agent(p.Agent)
	if err != nil {
		return nil, err
	}
	a.OnPain(p.Attacker, p.Kick, p.Damage)
	return nil, nil
}

func (m *Manager) handleDamaged(e dispatcher.Event) (any, error) {
	d, err := m.deps.ParserService.ParseDamage(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log damage: %w", err)
	}
	a, err := m.agent(d.Agent)
	if err != nil {
		return nil, err
	}
	a.OnEnemyDamaged(d.Target, d.Amount)
	return nil, nil
}

func (m *Manager) handleForget(e dispatcher.Event) (any, error) {
	f, err := m.deps.ParserService.ParseForget(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to forget enemy: %w", err)
	}
	a, err := m.agent(f.Agent)
	if err != nil {
		return nil, err
	}
	a.Forget(f.Entity)
	return nil, nil
}

func (m *Manager) handleHazard(e dispatcher.Event) (any, error) {
	h, err := m.deps.ParserService.ParseHazard(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log hazard: %w", err)
	}
	a, err := m.agent(h.Agent)
	if err != nil {
		return nil, err
	}
	a.ReportHazard(h)
	return nil, nil
}

func (m *Manager) handleSound(e dispatcher.Event) (any, error) {
	s, err := m.deps.ParserService.ParseSound(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log sound: %w", err)
	}
	m.engine.EmitSound(s)
	return nil, nil
}

func (m *Manager) handleTeleportOut(e dispatcher.Event) (any, error) {
	t, err := m.deps.ParserService.ParseTeleportOut(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log teleport: %w", err)
	}
	m.engine.TeleportOut(t)
	return nil, nil
}
