package agents

import (
	"github.com/paulmach/orb"

	"github.com/picogrid/maildelivery/pkg/actions"
	"github.com/picogrid/maildelivery/pkg/geometry"
	"github.com/picogrid/maildelivery/pkg/world"
)

// Kind tells robots and drones apart.
type Kind string

const (
	KindRobot Kind = "robot"
	KindDrone Kind = "drone"
)

// Agent is the contract shared by every agent kind.
type Agent interface {
	ID() int
	Kind() Kind
	Pose() geometry.Pose2
	// Sense returns the agent position, as a positioning sensor would.
	Sense() orb.Point
	// Act runs one control step of a and reports whether it is complete.
	// Actions that do not belong to the agent cause a *ContractError panic.
	Act(a actions.Action, env *world.Environment) bool
	CurrentAction() actions.Action
	SetCurrentAction(a actions.Action)
}

// Passenger is an agent a drone can carry.
type Passenger interface {
	ID() int
	CurrentAction() actions.Action
	SetCurrentAction(a actions.Action)
	// Carry places the passenger at pose along with everything it holds.
	Carry(pose geometry.Pose2, env *world.Environment)
}

// Passengers resolves passenger ids for drones.
type Passengers interface {
	Passenger(id int) (Passenger, bool)
}

// Fleet is a static Passengers lookup keyed by agent id.
type Fleet map[int]Passenger

// Passenger returns the passenger with the given id.
func (f Fleet) Passenger(id int) (Passenger, bool) {
	p, ok := f[id]
	return p, ok
}

func location(id int, a actions.Action, env *world.Environment, loc int) world.Location {
	if !env.HasLocation(loc) {
		violate(id, a, ErrUnknownLocation)
	}
	return env.Location(loc)
}
