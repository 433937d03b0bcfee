package scenario

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/maildelivery/pkg/actions"
	"github.com/picogrid/maildelivery/pkg/agents"
	"github.com/picogrid/maildelivery/pkg/driver"
	"github.com/picogrid/maildelivery/pkg/world"
)

const minimal = `
name: minimal
world:
  locations:
    - { id: 1, x: 1, y: 0, kind: house }
    - { id: 0, x: 0, y: 0, kind: dock }
  roads: [[0, 1]]
  packages:
    - { id: 0, location: 0, goal: 1 }
fleet:
  robots:
    - { id: 3, location: 0, facing: 1 }
plan:
  - { agent: 3, action: pickup, package: 0, location: 0 }
  - { agent: 3, action: move, from: 0, to: 1, time_start: 0.5, time_end: 1.5 }
  - { agent: 3, action: drop, package: 0, location: 1 }
`

func TestParseAndBuild(t *testing.T) {
	s, err := Parse([]byte(minimal))
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)

	b, err := Build(s, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 0.1, b.DT)
	assert.Equal(t, world.KindDock, b.Env.Location(0).Kind)
	require.Len(t, b.Robots, 1)
	assert.Equal(t, 3, b.Robots[0].ID())
	assert.Equal(t, 0.0, b.Robots[0].Pose().Theta)

	require.Len(t, b.Plan, 3)
	assert.Equal(t, actions.NewPickup(3, 0, 0), b.Plan[0])
	assert.Equal(t, actions.At(0.5, 1.5), b.Plan[1].Schedule())
	assert.Equal(t, actions.NewDrop(3, 0, 1), b.Plan[2])
}

func TestValidateRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"missing plan", "name: x\nworld: {locations: [{id: 0, x: 0, y: 0, kind: dock}]}\nfleet: {}\n"},
		{"bad kind", "name: x\nworld: {locations: [{id: 0, x: 0, y: 0, kind: castle}]}\nfleet: {}\nplan: []\n"},
		{"bad action", "name: x\nworld: {locations: [{id: 0, x: 0, y: 0, kind: dock}]}\nfleet: {}\nplan: [{agent: 0, action: teleport}]\n"},
		{"unknown field", "name: x\ncolour: red\nworld: {locations: [{id: 0, x: 0, y: 0, kind: dock}]}\nfleet: {}\nplan: []\n"},
		{"negative dt", "name: x\ndt: -1\nworld: {locations: [{id: 0, x: 0, y: 0, kind: dock}]}\nfleet: {}\nplan: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Validate([]byte(tt.doc)))
		})
	}
}

func TestBuildRejectsBadPlans(t *testing.T) {
	base := func() *Scenario {
		s, err := Parse([]byte(minimal))
		require.NoError(t, err)
		return s
	}
	ptr := func(v int) *int { return &v }

	tests := []struct {
		name   string
		mutate func(s *Scenario)
	}{
		{"unknown agent", func(s *Scenario) { s.Plan[0].Agent = 9 }},
		{"no road", func(s *Scenario) {
			s.World.Roads = nil
		}},
		{"robot cannot fly", func(s *Scenario) {
			s.Plan = append(s.Plan, Step{Agent: 3, Action: "fly", From: ptr(0), To: ptr(1)})
		}},
		{"missing package", func(s *Scenario) { s.Plan[0].Package = nil }},
		{"unknown package", func(s *Scenario) { s.Plan[0].Package = ptr(5) }},
		{"duplicate agent", func(s *Scenario) {
			s.Fleet.Drones = append(s.Fleet.Drones, AgentSpec{ID: 3, Location: 0})
		}},
		{"passenger is a drone", func(s *Scenario) {
			s.Fleet.Drones = append(s.Fleet.Drones, AgentSpec{ID: 4, Location: 0})
			s.Plan = append(s.Plan, Step{Agent: 4, Action: "fly_with_passenger", Passenger: ptr(4), From: ptr(0), To: ptr(1)})
		}},
		{"bad start", func(s *Scenario) { s.Fleet.Robots[0].Location = 8 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(s)
			_, err := Build(s, DefaultOptions())
			assert.Error(t, err)
		})
	}
}

func TestAgentOverrides(t *testing.T) {
	s, err := Parse([]byte(minimal))
	require.NoError(t, err)
	charge, velocity := 40.0, 0.5
	s.Fleet.Robots[0].Charge = &charge
	s.Fleet.Robots[0].Velocity = &velocity

	b, err := Build(s, DefaultOptions())
	require.NoError(t, err)
	r := b.Robots[0]
	assert.Equal(t, 40.0, r.Charge())

	r.Act(actions.NewMove(3, 0, 1), b.Env)
	assert.InDelta(t, 0.05, r.Pose().X, 1e-12)
}

func TestBundledScenariosComplete(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := Load(path)
			require.NoError(t, err)
			b, err := Build(s, DefaultOptions())
			require.NoError(t, err)

			mode, err := driver.ParseMode(s.Mode)
			require.NoError(t, err)
			cfg := driver.DefaultConfig()
			cfg.DT = b.DT
			cfg.Mode = mode
			cfg.RespectSchedule = true

			d, err := driver.New(b.Env, cfg, b.Agents()...)
			require.NoError(t, err)
			require.NoError(t, d.Load(b.Plan))

			res, err := d.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, b.Env.NumPackages(), res.Delivered)
			assert.Equal(t, len(b.Plan)-countKind(b.Plan, actions.KindPrepareFly), res.Completed)
			for _, st := range res.Agents {
				if st.Kind == agents.KindRobot {
					assert.Greater(t, st.Charge, 0.0)
				}
			}
		})
	}
}

func countKind(plan []actions.Action, k actions.Kind) int {
	n := 0
	for _, a := range plan {
		if a.Kind() == k {
			n++
		}
	}
	return n
}

func TestSaveRoundTrip(t *testing.T) {
	s, err := Parse([]byte(minimal))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(s, path))

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, again)
}
