package driver

import (
	"github.com/picogrid/maildelivery/pkg/actions"
	"github.com/picogrid/maildelivery/pkg/agents"
	"github.com/picogrid/maildelivery/pkg/geometry"
	"github.com/picogrid/maildelivery/pkg/world"
)

// EventType names a lifecycle transition of an action.
type EventType string

const (
	EventActionStarted   EventType = "action_started"
	EventActionCompleted EventType = "action_completed"
)

// Event records an action starting or completing on a given tick.
type Event struct {
	Tick       int            `json:"tick"`
	Time       float64        `json:"time"`
	Type       EventType      `json:"type"`
	Agent      int            `json:"agent"`
	ActionKind actions.Kind   `json:"action_kind"`
	Action     string         `json:"action"`
	Ref        actions.Action `json:"-"`
}

// AgentState is the observable state of one agent after a tick.
type AgentState struct {
	ID      int            `json:"id"`
	Kind    agents.Kind    `json:"kind"`
	Pose    geometry.Pose2 `json:"pose"`
	Action  actions.Kind   `json:"action"`
	Charge  float64        `json:"charge,omitempty"`
	Starved bool           `json:"starved,omitempty"`
	Held    []int          `json:"held,omitempty"`
	Queued  int            `json:"queued"`
}

// Snapshot is the state of the simulation at the end of a tick.
type Snapshot struct {
	Tick     int             `json:"tick"`
	Time     float64         `json:"time"`
	Agents   []AgentState    `json:"agents"`
	Packages []world.Package `json:"packages"`
	Events   []Event         `json:"events,omitempty"`
}

// Observer receives a snapshot after every tick. Returning an error aborts the run.
type Observer interface {
	OnTick(s *Snapshot) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(s *Snapshot) error

// OnTick calls f(s).
func (f ObserverFunc) OnTick(s *Snapshot) error {
	return f(s)
}

// Snapshot returns the current state without events.
func (d *Driver) Snapshot() *Snapshot {
	return d.snapshot(nil)
}

func (d *Driver) snapshot(events []Event) *Snapshot {
	s := &Snapshot{
		Tick:     d.tick,
		Time:     d.Time(),
		Agents:   make([]AgentState, 0, len(d.order)),
		Packages: d.env.Packages(),
		Events:   events,
	}
	for _, id := range d.order {
		s.Agents = append(s.Agents, d.agentState(id))
	}
	return s
}

func (d *Driver) agentState(id int) AgentState {
	a := d.agents[id]
	st := AgentState{
		ID:     id,
		Kind:   a.Kind(),
		Pose:   a.Pose(),
		Queued: len(d.queues[id]),
	}
	if cur := a.CurrentAction(); cur != nil {
		st.Action = cur.Kind()
	}
	if r, ok := a.(*agents.Robot); ok {
		st.Charge = r.Charge()
		st.Starved = r.Starved()
		st.Held = r.Held()
	}
	return st
}
