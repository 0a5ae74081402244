package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/awareness/internal/worker"
	"github.com/OCAP2/awareness/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// fakeEngine records setup calls in order.
type fakeEngine struct {
	calls   []string
	states  map[core.EntityID]core.EntityState
	failAdd bool
}

func (e *fakeEngine) PutEntity(s core.EntityState) {
	if e.states == nil {
		e.states = make(map[core.EntityID]core.EntityState)
	}
	e.states[s.ID] = s
	e.calls = append(e.calls, fmt.Sprintf("entity %d", s.ID))
}

func (e *fakeEngine) RemoveEntity(id core.EntityID) {}

func (e *fakeEngine) AddObstacle(mins, maxs core.Vec3) {
	e.calls = append(e.calls, fmt.Sprintf("obstacle %v", mins))
}

func (e *fakeEngine) AddAgent(agent core.EntityID, skill float64) error {
	if e.failAdd {
		return fmt.Errorf("boom")
	}
	e.calls = append(e.calls, fmt.Sprintf("agent %d %v", agent, skill))
	return nil
}

func (e *fakeEngine) RemoveAgent(agent core.EntityID) error          { return nil }
func (e *fakeEngine) Agent(agent core.EntityID) (worker.Agent, bool) { return nil, false }
func (e *fakeEngine) EmitSound(s core.Sound)                         {}
func (e *fakeEngine) TeleportOut(t core.TeleportOut)                 {}

func (e *fakeEngine) JoinSquad(squad string, agent core.EntityID) error {
	e.calls = append(e.calls, fmt.Sprintf("join %s %d", squad, agent))
	return nil
}

func (e *fakeEngine) LeaveSquad(squad string, agent core.EntityID) error { return nil }

func (e *fakeEngine) SetRoleWeight(squad string, agent core.EntityID, weight float64) error {
	e.calls = append(e.calls, fmt.Sprintf("role %s %d %v", squad, agent, weight))
	return nil
}

var _ worker.Engine = (*fakeEngine)(nil)

func TestVec_Forms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Vec
	}{
		{"string", `"1,2,3"`, Vec{X: 1, Y: 2, Z: 3}},
		{"bracketed string", `"[1, 2, 3]"`, Vec{X: 1, Y: 2, Z: 3}},
		{"sequence", `[4, 5.5, -6]`, Vec{X: 4, Y: 5.5, Z: -6}},
		{"mapping", `{x: 7, z: 9}`, Vec{X: 7, Z: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Vec
			require.NoError(t, yaml.Unmarshal([]byte(tt.in), &v))
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestVec_Invalid(t *testing.T) {
	for _, in := range []string{`"1,2"`, `[1, 2]`, `[1, 2, 3, 4]`, `"a,b,c"`} {
		var v Vec
		assert.ErrorIs(t, yaml.Unmarshal([]byte(in), &v), core.ErrInvalidVector, in)
	}
}

func TestLoad_Testdata(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "squad.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "squad ambush", s.Name)
	assert.Equal(t, 0.8, s.Skill)
	assert.Equal(t, 120, s.Ticks)
	assert.Equal(t, 256.0, s.World.Options().LeafSize)
	assert.Equal(t, core.Timestamp(20), s.World.Options().FrameTime)
	require.Len(t, s.Obstacles, 1)
	require.Len(t, s.Entities, 4)
	assert.Equal(t, Vec{Y: 300}, s.Entities[1].Origin)
	require.Len(t, s.Agents, 2)
	assert.Equal(t, "red", s.Agents[0].Squad)
}

func TestLoad_NameFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "night_raid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("skill: 0.5\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "night_raid", s.Name)
	assert.Equal(t, path, s.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("skil: 0.5\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	skill := 1.5
	tests := []struct {
		name string
		s    Scenario
	}{
		{"skill", Scenario{Skill: 2}},
		{"ticks", Scenario{Ticks: -1}},
		{"entity id", Scenario{Entities: []Entity{{ID: 0}}}},
		{"duplicate entity", Scenario{Entities: []Entity{{ID: 3}, {ID: 3}}}},
		{"agent without entity", Scenario{Agents: []Agent{{ID: 3}}}},
		{"duplicate agent", Scenario{Entities: []Entity{{ID: 3}}, Agents: []Agent{{ID: 3}, {ID: 3}}}},
		{"agent skill", Scenario{Entities: []Entity{{ID: 3}}, Agents: []Agent{{ID: 3, Skill: &skill}}}},
		{"role", Scenario{Entities: []Entity{{ID: 3}}, Agents: []Agent{{ID: 3, Role: -1}}}},
		{"obstacle", Scenario{Obstacles: []Obstacle{{Mins: Vec{X: 5}, Maxs: Vec{X: 1}}}}},
		{"step time", Scenario{Timeline: []Step{{At: -1, Command: worker.CmdPain}}}},
		{"step command", Scenario{Timeline: []Step{{Command: ":JUMP:"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.s.Validate(), ErrInvalid)
		})
	}
}

func TestValidate_WorldEventCommands(t *testing.T) {
	s := Scenario{Timeline: []Step{
		{At: 100, Command: worker.CmdSound, Args: []string{"7", "fire", "600,150,0"}},
		{At: 200, Command: worker.CmdTeleportOut, Args: []string{"7", "600,150,0", "0,900,0"}},
	}}
	assert.NoError(t, s.Validate())
}

func TestEntity_State(t *testing.T) {
	client := false
	e := Entity{ID: 4, Name: "turret", Team: 2, Origin: Vec{X: 10}, Client: &client, Weight: 0.7, Powerups: []string{"Quad", "shell"}}

	s, err := e.State()
	require.NoError(t, err)
	assert.True(t, s.InUse)
	assert.False(t, s.IsClient)
	assert.Equal(t, 100.0, s.Health, "default health")
	assert.Equal(t, core.Vec3{X: 1}, s.Forward, "default forward")
	assert.True(t, s.HasQuad())
	assert.True(t, s.HasShell())
	assert.Equal(t, 0.7, s.IntrinsicWeight)

	_, err = Entity{ID: 5, Powerups: []string{"haste"}}.State()
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "squad.yaml"))
	require.NoError(t, err)

	var e fakeEngine
	require.NoError(t, s.Apply(&e))

	assert.Equal(t, []string{
		"obstacle 200.00,-100.00,-100.00",
		"entity 1", "entity 2", "entity 7", "entity 9",
		"agent 1 0.8", "join red 1", "role red 1 1.5",
		"agent 2 0.4", "join red 2",
	}, e.calls)
	assert.True(t, e.states[7].HasQuad())
	assert.False(t, e.states[9].IsClient)
}

func TestApply_PropagatesErrors(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "squad.yaml"))
	require.NoError(t, err)
	assert.Error(t, s.Apply(&fakeEngine{failAdd: true}))
}

func TestEvents_SortedStable(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "squad.yaml"))
	require.NoError(t, err)

	events := s.Events()
	require.Len(t, events, 3)
	assert.Equal(t, worker.CmdEnemyViewed, events[0].Command)
	assert.Equal(t, core.Timestamp(100), events[0].Time)
	assert.Equal(t, worker.CmdPain, events[1].Command)
	assert.Equal(t, worker.CmdDamaged, events[2].Command)

	events[1].Args[0] = "99"
	assert.Equal(t, "1", s.Timeline[0].Args[0], "events own their args")
}
