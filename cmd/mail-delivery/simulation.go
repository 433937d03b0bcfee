// Package maildelivery runs a scenario file through the simulation driver.
package maildelivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/picogrid/maildelivery/pkg/config"
	"github.com/picogrid/maildelivery/pkg/driver"
	"github.com/picogrid/maildelivery/pkg/logger"
	"github.com/picogrid/maildelivery/pkg/scenario"
	"github.com/picogrid/maildelivery/pkg/simulation"
)

// Name is the registry name of the simulation.
const Name = "mail-delivery"

// MailDeliverySimulation drives the plan of one scenario file.
type MailDeliverySimulation struct {
	params   *Config
	settings *config.SimulationConfig
	scenario *scenario.Scenario
	built    *scenario.Built
	driver   *driver.Driver

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// NewMailDeliverySimulation creates an unconfigured simulation
func NewMailDeliverySimulation() simulation.Simulation {
	return &MailDeliverySimulation{}
}

// Name returns the name of the simulation
func (s *MailDeliverySimulation) Name() string {
	return Name
}

// Description returns a brief description of what the simulation does
func (s *MailDeliverySimulation) Description() string {
	return "Robots and drones deliver packages along a road network following a scripted plan"
}

// Configure loads the scenario and prepares the driver. Settings are layered
// as cfg, then the scenario file, then explicit parameters.
func (s *MailDeliverySimulation) Configure(cfg *config.SimulationConfig, params map[string]interface{}) error {
	parsed, err := ValidateAndParse(params)
	if err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}

	settings := config.GetDefaultConfig()
	if cfg != nil {
		copied := *cfg
		settings = &copied
	}

	sc, err := scenario.Load(parsed.ScenarioPath)
	if err != nil {
		return err
	}
	if sc.DT > 0 {
		settings.Simulation.DT = sc.DT
	}
	if sc.Mode != "" {
		settings.Simulation.Mode = sc.Mode
	}
	if sc.RespectSchedule != nil {
		settings.Simulation.RespectSchedule = *sc.RespectSchedule
	}
	config.MergeWithCLIOverrides(settings, parsed.Overrides())
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	buildable := *sc
	buildable.DT = settings.Simulation.DT
	built, err := scenario.Build(&buildable, settings.ScenarioOptions())
	if err != nil {
		return fmt.Errorf("failed to build scenario %s: %w", sc.Name, err)
	}

	dc, err := settings.DriverConfig()
	if err != nil {
		return err
	}
	d, err := driver.New(built.Env, dc, built.Agents()...)
	if err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}
	if err := d.Load(built.Plan); err != nil {
		return fmt.Errorf("failed to load plan: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"scenario": sc.Name,
		"mode":     dc.Mode,
		"dt":       dc.DT,
		"robots":   len(built.Robots),
		"drones":   len(built.Drones),
		"steps":    len(built.Plan),
	}).Debug("Simulation configured")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = parsed
	s.settings = settings
	s.scenario = sc
	s.built = built
	s.driver = d
	return nil
}

// Scenario names the loaded scenario
func (s *MailDeliverySimulation) Scenario() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scenario == nil {
		return ""
	}
	return s.scenario.Name
}

// Settings returns the effective run settings after Configure
func (s *MailDeliverySimulation) Settings() *config.SimulationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Driver exposes the configured driver
func (s *MailDeliverySimulation) Driver() *driver.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver
}

// Run steps the plan to completion
func (s *MailDeliverySimulation) Run(ctx context.Context, observers ...driver.Observer) (driver.Result, error) {
	s.mu.Lock()
	if s.driver == nil {
		s.mu.Unlock()
		return driver.Result{}, fmt.Errorf("simulation not configured")
	}
	if s.running {
		s.mu.Unlock()
		return driver.Result{}, fmt.Errorf("simulation already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	d := s.driver
	name, steps := s.scenario.Name, len(s.built.Plan)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	for _, o := range observers {
		d.AddObserver(o)
	}

	logger.Infof("Running %s: %d agents, %d plan steps", name, len(d.Agents()), steps)
	return d.Run(ctx)
}

// Stop interrupts a running simulation
func (s *MailDeliverySimulation) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func init() {
	if err := simulation.DefaultRegistry.Register(Name, NewMailDeliverySimulation); err != nil {
		logger.Errorf("Failed to register simulation: %v", err)
	}
}
