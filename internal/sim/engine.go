package sim

import (
	"fmt"
	"math/rand/v2"

	"github.com/OCAP2/awareness/internal/awareness"
	"github.com/OCAP2/awareness/internal/enemies"
	"github.com/OCAP2/awareness/internal/squad"
	"github.com/OCAP2/awareness/internal/worker"
	"github.com/OCAP2/awareness/internal/world"
	"github.com/OCAP2/awareness/pkg/core"
)

func (d *Driver) PutEntity(state core.EntityState) { d.world.Put(state) }

// RemoveEntity drops id from the world and from every table tracking it.
func (d *Driver) RemoveEntity(id core.EntityID) {
	d.world.Remove(id)
	for _, t := range d.agents {
		t.Forget(id)
	}
	if _, ok := d.agents[id]; ok {
		if err := d.RemoveAgent(id); err != nil {
			d.log.Warn("failed to remove agent with its entity", "agent", id, "error", err)
		}
	}
}

func (d *Driver) AddObstacle(mins, maxs core.Vec3) {
	d.world.AddObstacle(world.Box{Mins: mins, Maxs: maxs})
}

func (d *Driver) tunables(skill float64) enemies.Tunables {
	return d.overrides.apply(enemies.TunablesForSkill(skill))
}

func (d *Driver) childRand() *rand.Rand {
	return rand.New(rand.NewPCG(d.rng.Uint64(), d.rng.Uint64()))
}

// AddAgent starts tracking threats on behalf of agent.
func (d *Driver) AddAgent(agent core.EntityID, skill float64) error {
	if !agent.Valid() {
		return fmt.Errorf("adding agent %d: invalid entity", agent)
	}
	if _, ok := d.agents[agent]; ok {
		return fmt.Errorf("adding agent %d: %w", agent, ErrAgentExists)
	}
	d.agents[agent] = awareness.New(awareness.Options{
		Agent:      agent,
		Skill:      skill,
		World:      d.world,
		Tunables:   d.tunables(skill),
		Scanner:    d.scanner,
		Candidates: d.world.Entities,
		PVS:        d.pvs,
		Logger:     d.tableLog,
		Tracer:     d,
		OnHurt:     d.onHurt,
		Rand:       d.childRand(),
	})
	d.log.Info("agent added", "agent", agent, "skill", skill)
	return nil
}

// RemoveAgent leaves the agent's squad and releases its tracker.
func (d *Driver) RemoveAgent(agent core.EntityID) error {
	t, ok := d.agents[agent]
	if !ok {
		return fmt.Errorf("removing agent %d: %w", agent, worker.ErrUnknownAgent)
	}
	var err error
	if name, ok := d.member[agent]; ok {
		err = d.LeaveSquad(name, agent)
	}
	t.Close()
	delete(d.agents, agent)
	d.log.Info("agent removed", "agent", agent)
	return err
}

// EmitSound lets every agent try to hear s.
func (d *Driver) EmitSound(s core.Sound) {
	for _, id := range d.Agents() {
		d.agents[id].RegisterSound(s)
	}
}

// TeleportOut lets every agent notice a player entering a teleporter.
func (d *Driver) TeleportOut(t core.TeleportOut) {
	for _, id := range d.Agents() {
		d.agents[id].RegisterTeleportOut(t)
	}
}

// Agent returns the tracker of agent as the perception surface of the handlers.
func (d *Driver) Agent(agent core.EntityID) (worker.Agent, bool) {
	t, ok := d.agents[agent]
	if !ok {
		return nil, false
	}
	return t, true
}

// JoinSquad attaches agent to the named squad, creating the squad on first
// join. An agent in another squad leaves it first.
func (d *Driver) JoinSquad(name string, agent core.EntityID) error {
	t, ok := d.agents[agent]
	if !ok {
		return fmt.Errorf("joining squad %s: agent %d: %w", name, agent, worker.ErrUnknownAgent)
	}
	if current, ok := d.member[agent]; ok {
		if current == name {
			return nil
		}
		if err := d.LeaveSquad(current, agent); err != nil {
			return err
		}
	}

	s, ok := d.squads[name]
	if !ok {
		s = squad.New(squad.Options{
			Name:     name,
			World:    d.world,
			Skill:    t.Skill(),
			Tunables: d.tunables(t.Skill()),
			Logger:   d.tableLog,
			Tracer:   d,
			Rand:     d.childRand(),
		})
		d.squads[name] = s
		d.log.Info("squad created", "squad", name)
	}
	s.Join(t)
	d.member[agent] = name
	return nil
}

// LeaveSquad detaches agent from the named squad. The last member to leave
// closes the squad.
func (d *Driver) LeaveSquad(name string, agent core.EntityID) error {
	s, ok := d.squads[name]
	if !ok {
		return fmt.Errorf("leaving squad %s: %w", name, ErrUnknownSquad)
	}
	t, ok := d.agents[agent]
	if !ok {
		return fmt.Errorf("leaving squad %s: agent %d: %w", name, agent, worker.ErrUnknownAgent)
	}
	if err := s.Leave(t); err != nil {
		return err
	}
	delete(d.member, agent)
	if len(s.Members()) == 0 {
		s.Close()
		delete(d.squads, name)
		d.log.Info("squad closed", "squad", name)
	}
	return nil
}

func (d *Driver) SetRoleWeight(name string, agent core.EntityID, weight float64) error {
	s, ok := d.squads[name]
	if !ok {
		return fmt.Errorf("setting role weight in squad %s: %w", name, ErrUnknownSquad)
	}
	return s.SetBotRoleWeight(agent, weight)
}
