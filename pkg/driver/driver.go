// Package driver steps a fleet of agents through their plans on a fixed
// timestep until every agent is idle.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/picogrid/maildelivery/pkg/actions"
	"github.com/picogrid/maildelivery/pkg/agents"
	"github.com/picogrid/maildelivery/pkg/world"
)

var (
	// ErrStalled is returned when the tick budget runs out before the fleet is idle.
	ErrStalled = errors.New("simulation stalled")

	// ErrUnknownAgent is returned when a plan references an agent that was not added.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrDuplicateAgent is returned when two agents share an id.
	ErrDuplicateAgent = errors.New("duplicate agent id")
)

// Mode selects how plans are consumed.
type Mode string

const (
	// ModeConcurrent gives each agent its own queue and steps all agents every tick.
	ModeConcurrent Mode = "concurrent"
	// ModeSequential executes one global list of actions, one action at a time.
	ModeSequential Mode = "sequential"
)

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeConcurrent, ModeSequential:
		return Mode(s), nil
	case "":
		return ModeConcurrent, nil
	default:
		return "", fmt.Errorf("unknown driver mode %q", s)
	}
}

// Config controls the simulation loop.
type Config struct {
	DT       float64
	MaxTicks int // zero disables the watchdog
	Mode     Mode
	// RespectSchedule holds an action back until the simulation clock reaches its start time.
	RespectSchedule bool
}

// DefaultConfig returns a concurrent loop at 10 Hz with a generous watchdog.
func DefaultConfig() Config {
	return Config{DT: 0.1, MaxTicks: 100000, Mode: ModeConcurrent}
}

// Result summarizes a finished run.
type Result struct {
	Ticks     int
	SimTime   float64
	Completed int
	Delivered int
	Agents    []AgentState
}

// Driver owns the agents, their plans and the shared environment of one run.
type Driver struct {
	cfg       Config
	env       *world.Environment
	agents    map[int]agents.Agent
	order     []int
	queues    map[int][]actions.Action
	sequence  []actions.Action
	active    actions.Action
	observers []Observer
	tick      int
	completed int
}

// New creates a driver over env for the given agents. Drones are wired to
// resolve their passengers through the driver and robots adopt the packages
// env says they hold.
func New(env *world.Environment, cfg Config, fleet ...agents.Agent) (*Driver, error) {
	if cfg.DT <= 0 {
		return nil, fmt.Errorf("dt must be positive, got %v", cfg.DT)
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeConcurrent
	}
	d := &Driver{
		cfg:    cfg,
		env:    env,
		agents: make(map[int]agents.Agent, len(fleet)),
		queues: make(map[int][]actions.Action, len(fleet)),
	}
	for _, a := range fleet {
		if _, exists := d.agents[a.ID()]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateAgent, a.ID())
		}
		d.agents[a.ID()] = a
		d.order = append(d.order, a.ID())
	}
	sort.Ints(d.order)

	for _, a := range fleet {
		switch v := a.(type) {
		case *agents.Drone:
			v.SetPassengers(d)
		case *agents.Robot:
			v.SyncHeld(env)
		}
	}
	return d, nil
}

// Passenger resolves a carried agent for drones.
func (d *Driver) Passenger(id int) (agents.Passenger, bool) {
	a, ok := d.agents[id]
	if !ok {
		return nil, false
	}
	p, ok := a.(agents.Passenger)
	return p, ok
}

// AddObserver registers an observer for subsequent ticks.
func (d *Driver) AddObserver(o Observer) {
	d.observers = append(d.observers, o)
}

// Load appends a plan. Actions keep their relative order per agent, and in
// sequential mode also globally.
func (d *Driver) Load(plan []actions.Action) error {
	for i, a := range plan {
		if _, ok := d.agents[a.Agent()]; !ok {
			return fmt.Errorf("plan step %d (%s): %w %d", i, a, ErrUnknownAgent, a.Agent())
		}
	}
	for _, a := range plan {
		if d.cfg.Mode == ModeSequential {
			d.sequence = append(d.sequence, a)
			continue
		}
		d.queues[a.Agent()] = append(d.queues[a.Agent()], a)
	}
	return nil
}

// ReplaceQueue discards the pending actions of an agent and queues plan instead.
// The action currently executing is not interrupted.
func (d *Driver) ReplaceQueue(agentID int, plan []actions.Action) error {
	if _, ok := d.agents[agentID]; !ok {
		return fmt.Errorf("%w %d", ErrUnknownAgent, agentID)
	}
	for i, a := range plan {
		if a.Agent() != agentID {
			return fmt.Errorf("plan step %d (%s) does not belong to agent %d", i, a, agentID)
		}
	}
	d.queues[agentID] = append([]actions.Action(nil), plan...)
	return nil
}

// Environment returns the shared world.
func (d *Driver) Environment() *world.Environment { return d.env }

// Agent returns the agent with the given id.
func (d *Driver) Agent(id int) (agents.Agent, bool) {
	a, ok := d.agents[id]
	return a, ok
}

// Agents returns the fleet ordered by id.
func (d *Driver) Agents() []agents.Agent {
	out := make([]agents.Agent, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.agents[id])
	}
	return out
}

// Tick returns the number of completed ticks.
func (d *Driver) Tick() int { return d.tick }

// Time returns the simulation clock in seconds.
func (d *Driver) Time() float64 { return float64(d.tick) * d.cfg.DT }

// Idle reports whether every agent waits with nothing left to do.
func (d *Driver) Idle() bool {
	if len(d.sequence) > 0 || d.active != nil {
		return false
	}
	for _, id := range d.order {
		if len(d.queues[id]) > 0 || !actions.IsWait(d.agents[id].CurrentAction()) {
			return false
		}
	}
	return true
}

// Step advances the simulation by one tick and notifies observers.
// Contract violations raised by agents propagate as panics.
func (d *Driver) Step() error {
	var events []Event
	if d.cfg.Mode == ModeSequential {
		events = d.stepSequential()
	} else {
		events = d.stepConcurrent()
	}
	d.tick++

	if len(d.observers) == 0 {
		return nil
	}
	s := d.snapshot(events)
	for _, o := range d.observers {
		if err := o.OnTick(s); err != nil {
			return fmt.Errorf("observer failed at tick %d: %w", d.tick, err)
		}
	}
	return nil
}

func (d *Driver) stepConcurrent() []Event {
	var events []Event
	for _, id := range d.order {
		a := d.agents[id]
		cur := a.CurrentAction()
		if cur == nil {
			cur = actions.NewWait(id)
		}
		if !a.Act(cur, d.env) {
			continue
		}
		if !actions.IsWait(cur) {
			d.completed++
			events = append(events, d.event(EventActionCompleted, cur))
		}
		a.SetCurrentAction(actions.NewWait(id))
		if next, ok := d.dequeue(id); ok {
			a.SetCurrentAction(next)
			events = append(events, d.event(EventActionStarted, next))
		}
	}
	return events
}

func (d *Driver) dequeue(id int) (actions.Action, bool) {
	q := d.queues[id]
	if len(q) == 0 || !d.ready(q[0]) {
		return nil, false
	}
	d.queues[id] = q[1:]
	return q[0], true
}

func (d *Driver) stepSequential() []Event {
	var events []Event
	if d.active == nil {
		if len(d.sequence) == 0 || !d.ready(d.sequence[0]) {
			return nil
		}
		next := d.sequence[0]
		d.sequence = d.sequence[1:]
		d.agents[next.Agent()].SetCurrentAction(next)
		events = append(events, d.event(EventActionStarted, next))
		if next.Kind() == actions.KindPrepareFly {
			// The robot keeps the marker until a drone lands it; the
			// sequence moves on so that flight can run.
			return events
		}
		d.active = next
	}

	a := d.agents[d.active.Agent()]
	if a.Act(d.active, d.env) {
		d.completed++
		events = append(events, d.event(EventActionCompleted, d.active))
		a.SetCurrentAction(actions.NewWait(a.ID()))
		d.active = nil
	}
	return events
}

func (d *Driver) ready(a actions.Action) bool {
	if !d.cfg.RespectSchedule {
		return true
	}
	t := a.Schedule()
	return !t.Scheduled || t.Start <= d.Time()
}

func (d *Driver) event(typ EventType, a actions.Action) Event {
	return Event{
		Tick:       d.tick + 1,
		Time:       d.Time(),
		Type:       typ,
		Agent:      a.Agent(),
		ActionKind: a.Kind(),
		Action:     a.String(),
		Ref:        a,
	}
}

// Run steps until the fleet is idle, the context is cancelled or the
// watchdog fires. A contract violation aborts the run and is returned as
// an error wrapping the agents.ContractError.
func (d *Driver) Run(ctx context.Context) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			ce, ok := agents.AsContractError(r)
			if !ok {
				panic(r)
			}
			res = d.result()
			err = fmt.Errorf("plan aborted at tick %d: %w", d.tick, ce)
		}
	}()

	for !d.Idle() {
		if err := ctx.Err(); err != nil {
			return d.result(), err
		}
		if d.cfg.MaxTicks > 0 && d.tick >= d.cfg.MaxTicks {
			return d.result(), fmt.Errorf("%w after %d ticks, busy agents %v", ErrStalled, d.tick, d.busy())
		}
		if err := d.Step(); err != nil {
			return d.result(), err
		}
	}
	return d.result(), nil
}

func (d *Driver) busy() []int {
	var ids []int
	for _, id := range d.order {
		if len(d.queues[id]) > 0 || !actions.IsWait(d.agents[id].CurrentAction()) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (d *Driver) result() Result {
	states := make([]AgentState, 0, len(d.order))
	for _, id := range d.order {
		states = append(states, d.agentState(id))
	}
	return Result{
		Ticks:     d.tick,
		SimTime:   d.Time(),
		Completed: d.completed,
		Delivered: d.env.Delivered(),
		Agents:    states,
	}
}
