package simulation

import (
	"context"

	"github.com/picogrid/maildelivery/pkg/config"
	"github.com/picogrid/maildelivery/pkg/driver"
)

// Simulation defines the interface that all simulations must implement
type Simulation interface {
	// Name returns the name of the simulation
	Name() string

	// Description returns a brief description of what the simulation does
	Description() string

	// Configure builds the world, fleet and plan from the run settings and
	// the parameters declared in simulation.yaml.
	Configure(cfg *config.SimulationConfig, params map[string]interface{}) error

	// Scenario names the scenario loaded by Configure.
	Scenario() string

	// Driver exposes the configured driver. It is nil before Configure.
	Driver() *driver.Driver

	// Run steps the simulation to completion, notifying the observers after
	// every tick.
	Run(ctx context.Context, observers ...driver.Observer) (driver.Result, error)

	// Stop interrupts a running simulation
	Stop() error
}
