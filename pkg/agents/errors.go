package agents

import (
	"errors"
	"fmt"

	"github.com/picogrid/maildelivery/pkg/actions"
)

var (
	// ErrWrongAgent is raised when an action is handed to an agent other
	// than the one it names.
	ErrWrongAgent = errors.New("action given to wrong agent")

	// ErrUnsupportedAction is raised when an agent kind cannot perform an action kind.
	ErrUnsupportedAction = errors.New("action not supported by agent")

	// ErrPackageNotHeld is raised when a robot drops a package it does not own.
	ErrPackageNotHeld = errors.New("package not held by agent")

	// ErrUnknownPackage is raised when an action references a missing package.
	ErrUnknownPackage = errors.New("unknown package")

	// ErrUnknownLocation is raised when an action references a missing location.
	ErrUnknownLocation = errors.New("unknown location")

	// ErrUnknownPassenger is raised when a drone is asked to carry an agent it cannot reach.
	ErrUnknownPassenger = errors.New("unknown passenger")
)

// ContractError describes a caller bug in plan construction. Agents panic
// with a *ContractError instead of reporting it through Act's result.
type ContractError struct {
	Agent  int
	Action actions.Action
	Err    error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("agent %d: %v: %s", e.Agent, e.Err, e.Action)
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

func violate(agent int, a actions.Action, err error) {
	panic(&ContractError{Agent: agent, Action: a, Err: err})
}

// AsContractError extracts a contract violation from a recovered panic value.
func AsContractError(recovered interface{}) (*ContractError, bool) {
	err, ok := recovered.(error)
	if !ok {
		return nil, false
	}
	var ce *ContractError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
