package agents

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/picogrid/maildelivery/pkg/actions"
	"github.com/picogrid/maildelivery/pkg/geometry"
	"github.com/picogrid/maildelivery/pkg/world"
)

// RobotConfig holds the tunables of a ground robot.
type RobotConfig struct {
	Thresholds Thresholds `yaml:"thresholds"`
	Kinematics Kinematics `yaml:"kinematics"`
	Energy     Energy     `yaml:"energy"`
	// Charge is the starting charge. Zero or negative means a full battery.
	Charge float64 `yaml:"charge"`
}

// DefaultRobotConfig returns a robot with stock limits and a full battery.
func DefaultRobotConfig() RobotConfig {
	e := DefaultEnergy()
	return RobotConfig{
		Thresholds: DefaultThresholds(),
		Kinematics: DefaultKinematics(),
		Energy:     e,
		Charge:     e.Max,
	}
}

// Robot is a battery powered ground agent that drives along roads and
// carries packages.
type Robot struct {
	id      int
	pose    geometry.Pose2
	ctl     Controller
	energy  Energy
	charge  float64
	held    []int
	current actions.Action
	phase   Phase

	lastLocation int
	goalLocation int
}

// NewRobot creates a robot at pose stepping with period dt.
func NewRobot(id int, pose geometry.Pose2, dt float64, cfg RobotConfig) *Robot {
	charge := cfg.Charge
	if charge <= 0 || charge > cfg.Energy.Max {
		charge = cfg.Energy.Max
	}
	return &Robot{
		id:      id,
		pose:    pose,
		ctl:     Controller{Thresholds: cfg.Thresholds, Kinematics: cfg.Kinematics, DT: dt},
		energy:  cfg.Energy,
		charge:  charge,
		current: actions.NewWait(id),
	}
}

func (r *Robot) ID() int              { return r.id }
func (r *Robot) Kind() Kind           { return KindRobot }
func (r *Robot) Pose() geometry.Pose2 { return r.pose }
func (r *Robot) Sense() orb.Point     { return r.pose.Translation() }
func (r *Robot) Charge() float64      { return r.charge }
func (r *Robot) MaxCharge() float64   { return r.energy.Max }

// SetCharge overrides the battery level, clamped to [0, max].
func (r *Robot) SetCharge(c float64) {
	r.charge = math.Max(0, math.Min(c, r.energy.Max))
}

// NeedsCharge reports whether the battery is at or below half capacity.
func (r *Robot) NeedsCharge() bool {
	return r.charge <= r.energy.Max/2
}

// Starved reports whether the last control step wanted to drive but lacked charge.
func (r *Robot) Starved() bool {
	return r.phase == PhaseStarved
}

// LastPhase returns what the most recent control step did.
func (r *Robot) LastPhase() Phase { return r.phase }

// LastLocation is the last location the robot arrived at.
func (r *Robot) LastLocation() int { return r.lastLocation }

// SetLastLocation records where the robot starts.
func (r *Robot) SetLastLocation(id int) { r.lastLocation = id }

// GoalLocation is the destination of the most recent move.
func (r *Robot) GoalLocation() int { return r.goalLocation }

func (r *Robot) CurrentAction() actions.Action     { return r.current }
func (r *Robot) SetCurrentAction(a actions.Action) { r.current = a }

// Held returns the ids of the packages the robot believes it carries.
func (r *Robot) Held() []int {
	return append([]int(nil), r.held...)
}

// SyncHeld rebuilds the held list from the package records in env.
func (r *Robot) SyncHeld(env *world.Environment) {
	r.held = env.HeldBy(r.id)
	r.syncCargo(env)
}

// Carry moves the robot to pose together with its cargo.
func (r *Robot) Carry(pose geometry.Pose2, env *world.Environment) {
	r.pose = pose
	r.syncCargo(env)
}

// Act runs one control step of a.
func (r *Robot) Act(a actions.Action, env *world.Environment) bool {
	if a.Agent() != r.id {
		violate(r.id, a, ErrWrongAgent)
	}

	switch v := a.(type) {
	case actions.Wait:
		return true

	case actions.Move:
		goal := location(r.id, a, env, v.To)
		r.goalLocation = v.To
		r.pose, r.phase = r.ctl.Step(r.pose, goal.Point, r.spend)
		r.syncCargo(env)
		if r.ctl.Reached(r.pose, goal.Point) {
			r.lastLocation = v.To
			return true
		}
		return false

	case actions.Pickup:
		loc := location(r.id, a, env, v.Location)
		p := r.pkg(a, env, v.Package)
		// The package record may lag its nominal location while another
		// agent is still delivering it, so both points must be reached.
		if !r.ctl.Reached(r.pose, loc.Point) || !r.ctl.Reached(r.pose, p.Point) {
			return false
		}
		p.TransferToRobot(r.id)
		r.hold(p.ID)
		return true

	case actions.Drop:
		loc := location(r.id, a, env, v.Location)
		p := r.pkg(a, env, v.Package)
		if !p.HeldBy(r.id) {
			violate(r.id, a, ErrPackageNotHeld)
		}
		if !r.ctl.Reached(r.pose, loc.Point) {
			return false
		}
		p.TransferToLocation(loc)
		r.release(p.ID)
		return true

	case actions.Chargeup:
		loc := location(r.id, a, env, v.Location)
		if r.ctl.Reached(r.pose, loc.Point) {
			r.charge = math.Min(r.charge+r.energy.ChargeRate(r.ctl.DT), r.energy.Max)
		}
		return r.charge == r.energy.Max

	case actions.PrepareFly:
		// Completed by the carrying drone, which resets the robot to Wait on landing.
		return false

	default:
		violate(r.id, a, ErrUnsupportedAction)
		return false
	}
}

func (r *Robot) spend(step float64) bool {
	cost := r.energy.Cost(step)
	if r.charge < cost {
		return false
	}
	r.charge -= cost
	return true
}

func (r *Robot) pkg(a actions.Action, env *world.Environment, id int) *world.Package {
	if !env.HasPackage(id) {
		violate(r.id, a, ErrUnknownPackage)
	}
	return env.Package(id)
}

func (r *Robot) hold(id int) {
	for _, h := range r.held {
		if h == id {
			return
		}
	}
	r.held = append(r.held, id)
}

func (r *Robot) release(id int) {
	for i, h := range r.held {
		if h == id {
			r.held = append(r.held[:i], r.held[i+1:]...)
			return
		}
	}
}

func (r *Robot) syncCargo(env *world.Environment) {
	for _, id := range r.held {
		if p := env.Package(id); p.HeldBy(r.id) {
			p.Point = r.pose.Translation()
		}
	}
}
