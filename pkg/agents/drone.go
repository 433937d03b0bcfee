package agents

import (
	"github.com/paulmach/orb"

	"github.com/picogrid/maildelivery/pkg/actions"
	"github.com/picogrid/maildelivery/pkg/geometry"
	"github.com/picogrid/maildelivery/pkg/world"
)

// DroneConfig holds the tunables of a drone. Drones have no battery.
type DroneConfig struct {
	Thresholds Thresholds `yaml:"thresholds"`
	Kinematics Kinematics `yaml:"kinematics"`
}

// DefaultDroneConfig returns a drone with stock limits.
func DefaultDroneConfig() DroneConfig {
	return DroneConfig{
		Thresholds: DefaultThresholds(),
		Kinematics: DefaultKinematics(),
	}
}

// Drone flies point to point and can carry a robot.
type Drone struct {
	id         int
	pose       geometry.Pose2
	ctl        Controller
	current    actions.Action
	passengers Passengers
	phase      Phase

	lastLocation int
}

// NewDrone creates a drone at pose stepping with period dt.
func NewDrone(id int, pose geometry.Pose2, dt float64, cfg DroneConfig) *Drone {
	return &Drone{
		id:      id,
		pose:    pose,
		ctl:     Controller{Thresholds: cfg.Thresholds, Kinematics: cfg.Kinematics, DT: dt},
		current: actions.NewWait(id),
	}
}

func (d *Drone) ID() int              { return d.id }
func (d *Drone) Kind() Kind           { return KindDrone }
func (d *Drone) Pose() geometry.Pose2 { return d.pose }
func (d *Drone) Sense() orb.Point     { return d.pose.Translation() }
func (d *Drone) LastPhase() Phase     { return d.phase }
func (d *Drone) LastLocation() int    { return d.lastLocation }

// SetLastLocation records where the drone starts.
func (d *Drone) SetLastLocation(id int) { d.lastLocation = id }

func (d *Drone) CurrentAction() actions.Action     { return d.current }
func (d *Drone) SetCurrentAction(a actions.Action) { d.current = a }

// SetPassengers sets the lookup used to resolve carried robots.
func (d *Drone) SetPassengers(p Passengers) {
	d.passengers = p
}

// Act runs one control step of a.
func (d *Drone) Act(a actions.Action, env *world.Environment) bool {
	if a.Agent() != d.id {
		violate(d.id, a, ErrWrongAgent)
	}

	switch v := a.(type) {
	case actions.Wait:
		return true

	case actions.Fly:
		goal := location(d.id, a, env, v.To)
		d.pose, d.phase = d.ctl.Step(d.pose, goal.Point, nil)
		if d.ctl.Reached(d.pose, goal.Point) {
			d.lastLocation = v.To
			return true
		}
		return false

	case actions.FlyWithPassenger:
		goal := location(d.id, a, env, v.To)
		p := d.passenger(a, v.Passenger)
		if cur := p.CurrentAction(); cur == nil || cur.Kind() != actions.KindPrepareFly {
			d.phase = PhaseHold
			return false
		}
		d.pose, d.phase = d.ctl.Step(d.pose, goal.Point, nil)
		p.Carry(d.pose, env)
		if d.ctl.Reached(d.pose, goal.Point) {
			d.lastLocation = v.To
			p.SetCurrentAction(actions.NewWait(p.ID()))
			return true
		}
		return false

	default:
		violate(d.id, a, ErrUnsupportedAction)
		return false
	}
}

func (d *Drone) passenger(a actions.Action, id int) Passenger {
	if d.passengers == nil {
		violate(d.id, a, ErrUnknownPassenger)
	}
	p, ok := d.passengers.Passenger(id)
	if !ok {
		violate(d.id, a, ErrUnknownPassenger)
	}
	return p
}
