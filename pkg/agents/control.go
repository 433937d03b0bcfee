// Package agents implements the per-agent control state machines that turn
// plan actions into closed-loop motion over fixed simulation ticks.
package agents

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/picogrid/maildelivery/pkg/geometry"
)

// Thresholds are the convergence tolerances of the control law.
type Thresholds struct {
	// Theta is the bearing error, in radians, above which the agent turns in place.
	Theta float64 `yaml:"theta"`
	// Dist is the range error above which the agent drives forward.
	Dist float64 `yaml:"dist"`
	// Reach is the range under which a location counts as reached.
	Reach float64 `yaml:"reach"`
}

// DefaultThresholds returns the stock tolerances.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Theta: geometry.Radians(0.01),
		Dist:  0.001,
		Reach: 0.001,
	}
}

// Kinematics bounds how far an agent may move in one tick.
type Kinematics struct {
	Velocity  float64 `yaml:"velocity"`   // length units per second
	MaxRotate float64 `yaml:"max_rotate"` // radians per tick
}

// DefaultKinematics returns the stock limits shared by robots and drones.
func DefaultKinematics() Kinematics {
	return Kinematics{Velocity: 1.0, MaxRotate: math.Pi}
}

// Phase reports what a control step did.
type Phase int

const (
	// PhaseHold means the agent was already within tolerance and did nothing.
	PhaseHold Phase = iota
	// PhaseRotate means the agent turned in place.
	PhaseRotate
	// PhaseTranslate means the agent drove forward.
	PhaseTranslate
	// PhaseStarved means a forward step was needed but the energy budget refused it.
	PhaseStarved
)

func (p Phase) String() string {
	switch p {
	case PhaseRotate:
		return "rotate"
	case PhaseTranslate:
		return "translate"
	case PhaseStarved:
		return "starved"
	default:
		return "hold"
	}
}

// Controller runs the rotate-then-translate control law.
type Controller struct {
	Thresholds Thresholds
	Kinematics Kinematics
	DT         float64
}

// Step advances pose one tick toward goal. The agent first turns in place
// until it faces the goal, then drives straight, never further than the
// remaining distance. When spend is non-nil it is asked to pay for the
// forward step and the step is skipped if it refuses.
func (c Controller) Step(pose geometry.Pose2, goal orb.Point, spend func(step float64) bool) (geometry.Pose2, Phase) {
	eTheta := pose.Bearing(goal)
	if math.Abs(eTheta) > c.Thresholds.Theta {
		u := math.Copysign(math.Min(math.Abs(eTheta), c.Kinematics.MaxRotate), eTheta)
		return pose.Compose(geometry.Pose2{Theta: u}), PhaseRotate
	}

	eDist := pose.Range(goal)
	if eDist <= c.Thresholds.Dist {
		return pose, PhaseHold
	}

	u := math.Min(eDist, c.Kinematics.Velocity*c.DT)
	if spend != nil && !spend(u) {
		return pose, PhaseStarved
	}
	return pose.Compose(geometry.Pose2{X: u}), PhaseTranslate
}

// Reached reports whether pose is within the reach tolerance of goal.
func (c Controller) Reached(pose geometry.Pose2, goal orb.Point) bool {
	return pose.Range(goal) < c.Thresholds.Reach
}
