package scenario

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/picogrid/maildelivery/pkg/actions"
	"github.com/picogrid/maildelivery/pkg/agents"
	"github.com/picogrid/maildelivery/pkg/geometry"
	"github.com/picogrid/maildelivery/pkg/world"
)

// Options supply the defaults applied while building a scenario.
type Options struct {
	DT    float64
	Robot agents.RobotConfig
	Drone agents.DroneConfig
}

// DefaultOptions returns stock agent settings at 10 Hz.
func DefaultOptions() Options {
	return Options{
		DT:    0.1,
		Robot: agents.DefaultRobotConfig(),
		Drone: agents.DefaultDroneConfig(),
	}
}

// Built is a scenario ready to be driven.
type Built struct {
	Env    *world.Environment
	Robots []*agents.Robot
	Drones []*agents.Drone
	Plan   []actions.Action
	DT     float64
}

// Agents returns robots followed by drones.
func (b *Built) Agents() []agents.Agent {
	out := make([]agents.Agent, 0, len(b.Robots)+len(b.Drones))
	for _, r := range b.Robots {
		out = append(out, r)
	}
	for _, d := range b.Drones {
		out = append(out, d)
	}
	return out
}

// Build turns a scenario into an environment, a fleet and a typed plan.
// A dt set in the scenario wins over opts.DT.
func Build(s *Scenario, opts Options) (*Built, error) {
	dt := opts.DT
	if s.DT > 0 {
		dt = s.DT
	}
	if dt <= 0 {
		return nil, fmt.Errorf("dt must be positive")
	}

	env, err := buildEnvironment(s.World)
	if err != nil {
		return nil, err
	}

	b := &Built{Env: env, DT: dt}
	kinds := make(map[int]agents.Kind)

	for _, spec := range s.Fleet.Robots {
		if _, dup := kinds[spec.ID]; dup {
			return nil, fmt.Errorf("agent id %d used twice", spec.ID)
		}
		pose, err := placement(env, spec)
		if err != nil {
			return nil, fmt.Errorf("robot %d: %w", spec.ID, err)
		}
		cfg := opts.Robot
		if spec.Velocity != nil {
			cfg.Kinematics.Velocity = *spec.Velocity
		}
		if spec.MaxRotate != nil {
			cfg.Kinematics.MaxRotate = *spec.MaxRotate
		}
		r := agents.NewRobot(spec.ID, pose, dt, cfg)
		if spec.Charge != nil {
			r.SetCharge(*spec.Charge)
		}
		r.SetLastLocation(spec.Location)
		b.Robots = append(b.Robots, r)
		kinds[spec.ID] = agents.KindRobot
	}

	for _, spec := range s.Fleet.Drones {
		if _, dup := kinds[spec.ID]; dup {
			return nil, fmt.Errorf("agent id %d used twice", spec.ID)
		}
		pose, err := placement(env, spec)
		if err != nil {
			return nil, fmt.Errorf("drone %d: %w", spec.ID, err)
		}
		cfg := opts.Drone
		if spec.Velocity != nil {
			cfg.Kinematics.Velocity = *spec.Velocity
		}
		if spec.MaxRotate != nil {
			cfg.Kinematics.MaxRotate = *spec.MaxRotate
		}
		d := agents.NewDrone(spec.ID, pose, dt, cfg)
		d.SetLastLocation(spec.Location)
		b.Drones = append(b.Drones, d)
		kinds[spec.ID] = agents.KindDrone
	}

	for i, step := range s.Plan {
		a, err := step.action(env, kinds)
		if err != nil {
			return nil, fmt.Errorf("plan step %d: %w", i, err)
		}
		b.Plan = append(b.Plan, a)
	}
	return b, nil
}

func buildEnvironment(w World) (*world.Environment, error) {
	locs := make([]world.Location, 0, len(w.Locations))
	for _, l := range w.Locations {
		kind, err := world.ParseLocationKind(l.Kind)
		if err != nil {
			return nil, fmt.Errorf("location %d: %w", l.ID, err)
		}
		locs = append(locs, world.Location{ID: l.ID, Point: orb.Point{l.X, l.Y}, Kind: kind})
	}

	roads := make([]world.Road, 0, len(w.Roads))
	for _, r := range w.Roads {
		roads = append(roads, world.Road(r))
	}

	pkgs := make([]world.Package, 0, len(w.Packages))
	for _, p := range w.Packages {
		pkgs = append(pkgs, world.Package{
			ID:           p.ID,
			Owner:        p.Location,
			OwnerKind:    world.OwnerLocation,
			Goal:         p.Goal,
			DeliveryTime: p.DeliveryTime,
		})
	}

	env, err := world.NewEnvironment(locs, roads, pkgs)
	if err != nil {
		return nil, fmt.Errorf("failed to build world: %w", err)
	}
	return env, nil
}

func placement(env *world.Environment, spec AgentSpec) (geometry.Pose2, error) {
	if !env.HasLocation(spec.Location) {
		return geometry.Pose2{}, fmt.Errorf("unknown start location %d", spec.Location)
	}
	start := env.Location(spec.Location)
	theta := 0.0
	switch {
	case spec.Theta != nil:
		theta = *spec.Theta
	case spec.Facing != nil:
		if !env.HasLocation(*spec.Facing) {
			return geometry.Pose2{}, fmt.Errorf("unknown facing location %d", *spec.Facing)
		}
		theta = start.Angle(env.Location(*spec.Facing))
	}
	return geometry.FromPoint(start.Point, theta), nil
}

// robotOnly lists the action kinds only robots perform; droneOnly those only drones perform.
var (
	robotOnly = map[actions.Kind]bool{
		actions.KindMove: true, actions.KindPickup: true, actions.KindDrop: true,
		actions.KindChargeup: true, actions.KindPrepareFly: true,
	}
	droneOnly = map[actions.Kind]bool{
		actions.KindFly: true, actions.KindFlyWithPassenger: true,
	}
)

func (s Step) action(env *world.Environment, kinds map[int]agents.Kind) (actions.Action, error) {
	kind, ok := kinds[s.Agent]
	if !ok {
		return nil, fmt.Errorf("unknown agent %d", s.Agent)
	}
	ak := actions.Kind(s.Action)
	if (robotOnly[ak] && kind != agents.KindRobot) || (droneOnly[ak] && kind != agents.KindDrone) {
		return nil, fmt.Errorf("%s cannot %s", kind, ak)
	}

	loc := func(name string, v *int) (int, error) {
		if v == nil {
			return 0, fmt.Errorf("%s requires %s", ak, name)
		}
		if !env.HasLocation(*v) {
			return 0, fmt.Errorf("%s references unknown location %d", ak, *v)
		}
		return *v, nil
	}
	pkg := func() (int, error) {
		if s.Package == nil {
			return 0, fmt.Errorf("%s requires package", ak)
		}
		if !env.HasPackage(*s.Package) {
			return 0, fmt.Errorf("%s references unknown package %d", ak, *s.Package)
		}
		return *s.Package, nil
	}

	var a actions.Action
	switch ak {
	case actions.KindWait:
		a = actions.NewWait(s.Agent)
	case actions.KindPrepareFly:
		a = actions.NewPrepareFly(s.Agent)
	case actions.KindMove, actions.KindFly, actions.KindFlyWithPassenger:
		from, err := loc("from", s.From)
		if err != nil {
			return nil, err
		}
		to, err := loc("to", s.To)
		if err != nil {
			return nil, err
		}
		switch ak {
		case actions.KindMove:
			if !env.Connected(from, to) {
				return nil, fmt.Errorf("no road from l%d to l%d", from, to)
			}
			a = actions.NewMove(s.Agent, from, to)
		case actions.KindFly:
			a = actions.NewFly(s.Agent, from, to)
		default:
			if s.Passenger == nil {
				return nil, fmt.Errorf("%s requires passenger", ak)
			}
			if kinds[*s.Passenger] != agents.KindRobot {
				return nil, fmt.Errorf("passenger %d is not a robot", *s.Passenger)
			}
			a = actions.NewFlyWithPassenger(s.Agent, *s.Passenger, from, to)
		}
	case actions.KindPickup, actions.KindDrop:
		p, err := pkg()
		if err != nil {
			return nil, err
		}
		l, err := loc("location", s.Location)
		if err != nil {
			return nil, err
		}
		if ak == actions.KindPickup {
			a = actions.NewPickup(s.Agent, p, l)
		} else {
			a = actions.NewDrop(s.Agent, p, l)
		}
	case actions.KindChargeup:
		l, err := loc("location", s.Location)
		if err != nil {
			return nil, err
		}
		a = actions.NewChargeup(s.Agent, l)
	default:
		return nil, fmt.Errorf("unknown action %q", s.Action)
	}

	if s.TimeStart != nil || s.TimeEnd != nil {
		var t actions.Timing
		if s.TimeStart != nil {
			t.Start = *s.TimeStart
		}
		if s.TimeEnd != nil {
			t.End = *s.TimeEnd
		}
		t.Scheduled = true
		a = actions.WithTiming(a, t)
	}
	return a, nil
}
