// Package scenario loads simulation scenarios: world geometry, the entities
// living in it, the agents tracking them and a timeline of commands.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/OCAP2/awareness/internal/dispatcher"
	"github.com/OCAP2/awareness/internal/worker"
	"github.com/OCAP2/awareness/internal/world"
	"github.com/OCAP2/awareness/pkg/core"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid scenario")

// Vec accepts "x,y,z", [x, y, z] or {x: .., y: .., z: ..}.
type Vec core.Vec3

func (v *Vec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		p, err := core.ParseVec3(node.Value)
		if err != nil {
			return err
		}
		*v = Vec(p)
	case yaml.SequenceNode:
		var xyz []float64
		if err := node.Decode(&xyz); err != nil {
			return err
		}
		if len(xyz) != 3 {
			return fmt.Errorf("line %d: %w: want 3 components, got %d", node.Line, core.ErrInvalidVector, len(xyz))
		}
		*v = Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	case yaml.MappingNode:
		var m struct {
			X float64 `yaml:"x"`
			Y float64 `yaml:"y"`
			Z float64 `yaml:"z"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		*v = Vec{X: m.X, Y: m.Y, Z: m.Z}
	default:
		return fmt.Errorf("line %d: %w", node.Line, core.ErrInvalidVector)
	}
	return nil
}

func (v Vec) core() core.Vec3 { return core.Vec3(v) }

// World configures the simulated world. Zero values fall back to world.DefaultOptions.
type World struct {
	LeafSize  float64 `yaml:"leafSize"`
	PVSRadius int     `yaml:"pvsRadius"`
	FrameTime int64   `yaml:"frameTime"`
}

func (w World) Options() world.Options {
	return world.Options{LeafSize: w.LeafSize, PVSRadius: w.PVSRadius, FrameTime: core.Timestamp(w.FrameTime)}
}

type Obstacle struct {
	Mins Vec `yaml:"mins"`
	Maxs Vec `yaml:"maxs"`
}

// Entity is the initial state of a world entity.
type Entity struct {
	ID              core.EntityID `yaml:"id"`
	Name            string        `yaml:"name"`
	Team            int           `yaml:"team"`
	Origin          Vec           `yaml:"origin"`
	Velocity        Vec           `yaml:"velocity"`
	Forward         Vec           `yaml:"forward"`
	Mins            Vec           `yaml:"mins"`
	Maxs            Vec           `yaml:"maxs"`
	Health          float64       `yaml:"health"`
	Armor           float64       `yaml:"armor"`
	Client          *bool         `yaml:"client"`
	Weight          float64       `yaml:"weight"`
	Powerups        []string      `yaml:"powerups"`
	Carrier         bool          `yaml:"carrier"`
	FovDot          float64       `yaml:"fovDot"`
	VisibilityRange float64       `yaml:"visibilityRange"`
	Arsenal         core.Arsenal  `yaml:"arsenal"`
}

var powerupNames = map[string]core.Powerups{
	"quad":  core.PowerupQuad,
	"shell": core.PowerupShell,
}

// State converts the entity into a world snapshot. Entities are clients
// unless told otherwise.
func (e Entity) State() (core.EntityState, error) {
	s := core.EntityState{
		ID:              e.ID,
		Name:            e.Name,
		Team:            e.Team,
		Origin:          e.Origin.core(),
		Velocity:        e.Velocity.core(),
		Forward:         e.Forward.core(),
		Mins:            e.Mins.core(),
		Maxs:            e.Maxs.core(),
		Health:          e.Health,
		Armor:           e.Armor,
		IsClient:        e.Client == nil || *e.Client,
		IntrinsicWeight: e.Weight,
		IsCarrier:       e.Carrier,
		FovDot:          e.FovDot,
		VisibilityRange: e.VisibilityRange,
		Arsenal:         e.Arsenal,
		InUse:           true,
	}
	if s.Health == 0 {
		s.Health = 100
	}
	if s.Forward == (core.Vec3{}) {
		s.Forward = core.Vec3{X: 1}
	}
	for _, name := range e.Powerups {
		p, ok := powerupNames[strings.ToLower(name)]
		if !ok {
			return s, fmt.Errorf("entity %d: unknown powerup %q", e.ID, name)
		}
		s.Powerups |= p
	}
	return s, nil
}

// Agent is a bot tracking threats. Skill defaults to the scenario skill.
type Agent struct {
	ID    core.EntityID `yaml:"id"`
	Skill *float64      `yaml:"skill"`
	Squad string        `yaml:"squad"`
	Role  float64       `yaml:"role"`
}

// Step is a command sent to the simulation at a point in simulated time.
type Step struct {
	At      int64    `yaml:"at"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Scenario is a complete simulation setup.
type Scenario struct {
	Name      string     `yaml:"name"`
	Skill     float64    `yaml:"skill"`
	Ticks     int        `yaml:"ticks"`
	World     World      `yaml:"world"`
	Obstacles []Obstacle `yaml:"obstacles"`
	Entities  []Entity   `yaml:"entities"`
	Agents    []Agent    `yaml:"agents"`
	Timeline  []Step     `yaml:"timeline"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	s.Path = path
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse decodes and validates a YAML scenario. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks ids, references between sections and timeline commands.
func (s *Scenario) Validate() error {
	if s.Skill < 0 || s.Skill > 1 {
		return fmt.Errorf("%w: skill %v outside [0, 1]", ErrInvalid, s.Skill)
	}
	if s.Ticks < 0 {
		return fmt.Errorf("%w: negative ticks", ErrInvalid)
	}

	ids := make(map[core.EntityID]bool, len(s.Entities))
	for _, e := range s.Entities {
		if !e.ID.Valid() {
			return fmt.Errorf("%w: entity id %d", ErrInvalid, e.ID)
		}
		if ids[e.ID] {
			return fmt.Errorf("%w: duplicate entity %d", ErrInvalid, e.ID)
		}
		ids[e.ID] = true
	}

	agents := make(map[core.EntityID]bool, len(s.Agents))
	for _, a := range s.Agents {
		if !ids[a.ID] {
			return fmt.Errorf("%w: agent %d has no entity", ErrInvalid, a.ID)
		}
		if agents[a.ID] {
			return fmt.Errorf("%w: duplicate agent %d", ErrInvalid, a.ID)
		}
		agents[a.ID] = true
		if a.Skill != nil && (*a.Skill < 0 || *a.Skill > 1) {
			return fmt.Errorf("%w: agent %d skill %v outside [0, 1]", ErrInvalid, a.ID, *a.Skill)
		}
		if a.Role < 0 {
			return fmt.Errorf("%w: agent %d negative role weight", ErrInvalid, a.ID)
		}
	}

	for i, o := range s.Obstacles {
		if o.Mins.X > o.Maxs.X || o.Mins.Y > o.Maxs.Y || o.Mins.Z > o.Maxs.Z {
			return fmt.Errorf("%w: obstacle %d mins exceed maxs", ErrInvalid, i)
		}
	}

	for i, step := range s.Timeline {
		if step.At < 0 {
			return fmt.Errorf("%w: timeline step %d at negative time", ErrInvalid, i)
		}
		if !slices.Contains(commands, step.Command) {
			return fmt.Errorf("%w: timeline step %d: unknown command %q", ErrInvalid, i, step.Command)
		}
	}
	return nil
}

var commands = []string{
	worker.CmdEntityState, worker.CmdEntityRemove, worker.CmdObstacle,
	worker.CmdAgentNew, worker.CmdAgentRemove,
	worker.CmdEnemyViewed, worker.CmdEnemyGuessed, worker.CmdPain, worker.CmdDamaged,
	worker.CmdForget, worker.CmdHazard, worker.CmdSound, worker.CmdTeleportOut,
	worker.CmdSquadJoin, worker.CmdSquadLeave, worker.CmdSquadRole,
}

// Apply builds the initial world: obstacles, entities, then agents and
// their squads in file order.
func (s *Scenario) Apply(engine worker.Engine) error {
	for _, o := range s.Obstacles {
		engine.AddObstacle(o.Mins.core(), o.Maxs.core())
	}
	for _, e := range s.Entities {
		state, err := e.State()
		if err != nil {
			return err
		}
		engine.PutEntity(state)
	}
	for _, a := range s.Agents {
		skill := s.Skill
		if a.Skill != nil {
			skill = *a.Skill
		}
		if err := engine.AddAgent(a.ID, skill); err != nil {
			return err
		}
		if a.Squad == "" {
			continue
		}
		if err := engine.JoinSquad(a.Squad, a.ID); err != nil {
			return err
		}
		if a.Role > 0 {
			if err := engine.SetRoleWeight(a.Squad, a.ID, a.Role); err != nil {
				return err
			}
		}
	}
	return nil
}

// Events returns the timeline ordered by time. Steps at the same time keep
// their file order.
func (s *Scenario) Events() []dispatcher.Event {
	events := make([]dispatcher.Event, 0, len(s.Timeline))
	for _, step := range s.Timeline {
		events = append(events, dispatcher.Event{
			Command: step.Command,
			Args:    slices.Clone(step.Args),
			Time:    core.Timestamp(step.At),
		})
	}
	slices.SortStableFunc(events, func(a, b dispatcher.Event) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
	return events
}
