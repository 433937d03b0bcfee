// Package actions defines the closed set of plan steps an agent can execute.
// Every action names the agent that must perform it and is immutable once built.
package actions

import "fmt"

// Kind identifies the concrete type of an action
type Kind string

const (
	KindWait             Kind = "wait"
	KindMove             Kind = "move"
	KindPickup           Kind = "pickup"
	KindDrop             Kind = "drop"
	KindChargeup         Kind = "chargeup"
	KindPrepareFly       Kind = "prepare_fly"
	KindFly              Kind = "fly"
	KindFlyWithPassenger Kind = "fly_with_passenger"
)

// Kinds lists every action kind in declaration order.
var Kinds = []Kind{
	KindWait, KindMove, KindPickup, KindDrop, KindChargeup,
	KindPrepareFly, KindFly, KindFlyWithPassenger,
}

// Timing holds the planner's schedule for an action, in simulation seconds.
// It is informational unless the driver is asked to respect it.
type Timing struct {
	Start     float64 `json:"time_start,omitempty" yaml:"time_start,omitempty"`
	End       float64 `json:"time_end,omitempty" yaml:"time_end,omitempty"`
	Scheduled bool    `json:"-" yaml:"-"`
}

// At returns a schedule spanning start to end.
func At(start, end float64) Timing {
	return Timing{Start: start, End: end, Scheduled: true}
}

// Action is implemented only by the types in this package.
type Action interface {
	Kind() Kind
	Agent() int
	Schedule() Timing
	String() string

	sealed()
}

// Base carries the fields shared by every action.
type Base struct {
	AgentID int
	Timing  Timing
}

// Agent returns the id of the agent that must perform the action.
func (b Base) Agent() int { return b.AgentID }

// Schedule returns the planner timing of the action.
func (b Base) Schedule() Timing { return b.Timing }

func (Base) sealed() {}

// Wait is the idle action. It completes immediately.
type Wait struct {
	Base
}

// Move drives a robot along the road from one location to another.
type Move struct {
	Base
	From int
	To   int
}

// Pickup transfers a package from a location to the robot.
type Pickup struct {
	Base
	Package  int
	Location int
}

// Drop leaves a held package at a location.
type Drop struct {
	Base
	Package  int
	Location int
}

// Chargeup recharges a robot at a location until its battery is full.
type Chargeup struct {
	Base
	Location int
}

// PrepareFly parks a robot until a drone has carried it to its destination.
type PrepareFly struct {
	Base
}

// Fly moves a drone between two locations.
type Fly struct {
	Base
	From int
	To   int
}

// FlyWithPassenger moves a drone carrying a robot between two locations.
type FlyWithPassenger struct {
	Base
	Passenger int
	From      int
	To        int
}

func (Wait) Kind() Kind             { return KindWait }
func (Move) Kind() Kind             { return KindMove }
func (Pickup) Kind() Kind           { return KindPickup }
func (Drop) Kind() Kind             { return KindDrop }
func (Chargeup) Kind() Kind         { return KindChargeup }
func (PrepareFly) Kind() Kind       { return KindPrepareFly }
func (Fly) Kind() Kind              { return KindFly }
func (FlyWithPassenger) Kind() Kind { return KindFlyWithPassenger }

func (a Wait) String() string {
	return fmt.Sprintf("agent %d waits", a.AgentID)
}

func (a Move) String() string {
	return fmt.Sprintf("agent %d moves from l%d to l%d", a.AgentID, a.From, a.To)
}

func (a Pickup) String() string {
	return fmt.Sprintf("agent %d picks up p%d at l%d", a.AgentID, a.Package, a.Location)
}

func (a Drop) String() string {
	return fmt.Sprintf("agent %d drops p%d at l%d", a.AgentID, a.Package, a.Location)
}

func (a Chargeup) String() string {
	return fmt.Sprintf("agent %d charges at l%d", a.AgentID, a.Location)
}

func (a PrepareFly) String() string {
	return fmt.Sprintf("agent %d prepares to fly", a.AgentID)
}

func (a Fly) String() string {
	return fmt.Sprintf("agent %d flies from l%d to l%d", a.AgentID, a.From, a.To)
}

func (a FlyWithPassenger) String() string {
	return fmt.Sprintf("agent %d carries agent %d from l%d to l%d", a.AgentID, a.Passenger, a.From, a.To)
}

// NewWait returns the idle action for an agent.
func NewWait(agent int) Wait {
	return Wait{Base: Base{AgentID: agent}}
}

// NewMove returns a move between two locations.
func NewMove(agent, from, to int) Move {
	return Move{Base: Base{AgentID: agent}, From: from, To: to}
}

// NewPickup returns a pickup of pkg at loc.
func NewPickup(agent, pkg, loc int) Pickup {
	return Pickup{Base: Base{AgentID: agent}, Package: pkg, Location: loc}
}

// NewDrop returns a drop of pkg at loc.
func NewDrop(agent, pkg, loc int) Drop {
	return Drop{Base: Base{AgentID: agent}, Package: pkg, Location: loc}
}

// NewChargeup returns a recharge at loc.
func NewChargeup(agent, loc int) Chargeup {
	return Chargeup{Base: Base{AgentID: agent}, Location: loc}
}

// NewPrepareFly returns the marker a robot holds while being carried.
func NewPrepareFly(agent int) PrepareFly {
	return PrepareFly{Base: Base{AgentID: agent}}
}

// NewFly returns a drone flight between two locations.
func NewFly(agent, from, to int) Fly {
	return Fly{Base: Base{AgentID: agent}, From: from, To: to}
}

// NewFlyWithPassenger returns a drone flight carrying a robot.
func NewFlyWithPassenger(agent, passenger, from, to int) FlyWithPassenger {
	return FlyWithPassenger{Base: Base{AgentID: agent}, Passenger: passenger, From: from, To: to}
}

// WithTiming returns a copy of a carrying the given schedule.
func WithTiming(a Action, t Timing) Action {
	switch v := a.(type) {
	case Wait:
		v.Timing = t
		return v
	case Move:
		v.Timing = t
		return v
	case Pickup:
		v.Timing = t
		return v
	case Drop:
		v.Timing = t
		return v
	case Chargeup:
		v.Timing = t
		return v
	case PrepareFly:
		v.Timing = t
		return v
	case Fly:
		v.Timing = t
		return v
	case FlyWithPassenger:
		v.Timing = t
		return v
	default:
		panic(fmt.Sprintf("actions: unknown action type %T", a))
	}
}

// Destination returns the location an action ends at, if it has one.
func Destination(a Action) (int, bool) {
	switch v := a.(type) {
	case Move:
		return v.To, true
	case Fly:
		return v.To, true
	case FlyWithPassenger:
		return v.To, true
	case Pickup:
		return v.Location, true
	case Drop:
		return v.Location, true
	case Chargeup:
		return v.Location, true
	default:
		return 0, false
	}
}

// IsWait reports whether a is nil or the idle action.
func IsWait(a Action) bool {
	return a == nil || a.Kind() == KindWait
}
