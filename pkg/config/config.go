// Package config holds the settings of a simulation run: timing, control
// tolerances, agent limits, recording and logging.
package config

import (
	"fmt"
	"math"

	"github.com/picogrid/maildelivery/pkg/agents"
	"github.com/picogrid/maildelivery/pkg/driver"
	"github.com/picogrid/maildelivery/pkg/geometry"
	"github.com/picogrid/maildelivery/pkg/scenario"
)

// SimulationConfig holds the complete simulation configuration
type SimulationConfig struct {
	Simulation SimulationSettings `yaml:"simulation"`
	Control    ControlConfig      `yaml:"control"`
	Robot      RobotConfig        `yaml:"robot"`
	Drone      DroneConfig        `yaml:"drone"`
	Recording  RecordingConfig    `yaml:"recording"`
	Logging    LoggingConfig      `yaml:"logging"`
}

// SimulationSettings holds the driver settings
type SimulationSettings struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	DT          float64 `yaml:"dt"`        // seconds per tick
	MaxTicks    int     `yaml:"max_ticks"` // 0 disables the watchdog
	Mode        string  `yaml:"mode"`      // "concurrent", "sequential"
	// RespectSchedule delays actions until their time_start
	RespectSchedule bool `yaml:"respect_schedule"`
}

// ControlConfig holds the convergence tolerances shared by all agents
type ControlConfig struct {
	ThetaThresholdDeg float64 `yaml:"theta_threshold_deg"`
	DistThreshold     float64 `yaml:"dist_threshold"`
	ReachDelta        float64 `yaml:"reach_delta"`
}

// RobotConfig holds ground robot limits and the battery model
type RobotConfig struct {
	Velocity             float64 `yaml:"velocity"`   // units per second
	MaxRotate            float64 `yaml:"max_rotate"` // radians per tick
	MaxCharge            float64 `yaml:"max_charge"`
	InitialCharge        float64 `yaml:"initial_charge"` // 0 means full
	EnergyPerMeter       float64 `yaml:"energy_per_meter"`
	ChargeSecondsPerUnit float64 `yaml:"charge_seconds_per_unit"`
}

// DroneConfig holds drone limits
type DroneConfig struct {
	Velocity  float64 `yaml:"velocity"`
	MaxRotate float64 `yaml:"max_rotate"`
}

// RecordingConfig selects the run artifacts to write
type RecordingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	TrajectoryDir string `yaml:"trajectory_dir"`
	IndexPath     string `yaml:"index_path"`
	GeoJSONPath   string `yaml:"geojson_path,omitempty"`
	ReportFormat  string `yaml:"report_format,omitempty"` // "", "json", "markdown"
	ReportDir     string `yaml:"report_dir,omitempty"`
}

// LoggingConfig configures console output
type LoggingConfig struct {
	ConsoleLevel  string `yaml:"console_level"` // "debug", "info", "warn", "error"
	EnableSummary bool   `yaml:"enable_summary"`
	Progress      bool   `yaml:"progress"`
}

var (
	validModes  = []string{string(driver.ModeConcurrent), string(driver.ModeSequential)}
	validLevels = []string{"debug", "info", "warn", "error"}
	validReport = []string{"json", "markdown"}
)

func oneOf(v string, valid []string) bool {
	for _, s := range valid {
		if v == s {
			return true
		}
	}
	return false
}

// Validate checks if the configuration is valid
func (c *SimulationConfig) Validate() error {
	if c.Simulation.Name == "" {
		return fmt.Errorf("simulation name is required")
	}

	if c.Simulation.DT <= 0 {
		return fmt.Errorf("dt must be positive")
	}

	if c.Simulation.MaxTicks < 0 {
		return fmt.Errorf("max ticks must not be negative")
	}

	if c.Simulation.Mode != "" && !oneOf(c.Simulation.Mode, validModes) {
		return fmt.Errorf("mode must be one of %v, got %q", validModes, c.Simulation.Mode)
	}

	if c.Control.ThetaThresholdDeg <= 0 || c.Control.ThetaThresholdDeg >= 180 {
		return fmt.Errorf("theta threshold must be in (0, 180) degrees")
	}

	if c.Control.DistThreshold < 0 || c.Control.ReachDelta <= 0 {
		return fmt.Errorf("dist threshold must not be negative and reach delta must be positive")
	}

	if c.Robot.Velocity <= 0 || c.Drone.Velocity <= 0 {
		return fmt.Errorf("velocities must be positive")
	}

	if c.Robot.MaxRotate <= 0 || c.Robot.MaxRotate > math.Pi || c.Drone.MaxRotate <= 0 || c.Drone.MaxRotate > math.Pi {
		return fmt.Errorf("max rotate must be in (0, pi]")
	}

	if c.Robot.MaxCharge <= 0 {
		return fmt.Errorf("max charge must be positive")
	}

	if c.Robot.InitialCharge < 0 || c.Robot.InitialCharge > c.Robot.MaxCharge {
		return fmt.Errorf("initial charge must be between 0 and max charge")
	}

	if c.Robot.EnergyPerMeter < 0 {
		return fmt.Errorf("energy per meter must not be negative")
	}

	if c.Robot.ChargeSecondsPerUnit <= 0 {
		return fmt.Errorf("charge seconds per unit must be positive")
	}

	if c.Recording.Enabled && (c.Recording.TrajectoryDir == "" || c.Recording.IndexPath == "") {
		return fmt.Errorf("recording needs a trajectory dir and an index path")
	}

	if c.Recording.ReportFormat != "" && !oneOf(c.Recording.ReportFormat, validReport) {
		return fmt.Errorf("report format must be one of %v, got %q", validReport, c.Recording.ReportFormat)
	}

	if c.Recording.ReportFormat != "" && c.Recording.ReportDir == "" {
		return fmt.Errorf("report needs a report dir")
	}

	if c.Logging.ConsoleLevel != "" && !oneOf(c.Logging.ConsoleLevel, validLevels) {
		return fmt.Errorf("console level must be one of %v", validLevels)
	}

	return nil
}

// String returns a human-readable representation of the configuration
func (c *SimulationConfig) String() string {
	return fmt.Sprintf(`Simulation Configuration:
  Name: %s
  Description: %s
  Time Step: %.3fs
  Max Ticks: %d
  Mode: %s
  Respect Schedule: %t

Control:
  Theta Threshold: %.3f deg
  Dist Threshold: %g
  Reach Delta: %g

Robot:
  Velocity: %.2f
  Max Rotate: %.3f rad/tick
  Charge: %.1f / %.1f
  Energy Per Meter: %.2f
  Charge Seconds Per Unit: %.3f

Drone:
  Velocity: %.2f
  Max Rotate: %.3f rad/tick

Recording:
  Enabled: %t
  Trajectory Dir: %s
  Index: %s
  GeoJSON: %s
  Report: %s (%s)

Logging:
  Console Level: %s
  Summary: %t`,
		c.Simulation.Name,
		c.Simulation.Description,
		c.Simulation.DT,
		c.Simulation.MaxTicks,
		c.Simulation.Mode,
		c.Simulation.RespectSchedule,
		c.Control.ThetaThresholdDeg,
		c.Control.DistThreshold,
		c.Control.ReachDelta,
		c.Robot.Velocity,
		c.Robot.MaxRotate,
		c.Robot.InitialCharge,
		c.Robot.MaxCharge,
		c.Robot.EnergyPerMeter,
		c.Robot.ChargeSecondsPerUnit,
		c.Drone.Velocity,
		c.Drone.MaxRotate,
		c.Recording.Enabled,
		c.Recording.TrajectoryDir,
		c.Recording.IndexPath,
		c.Recording.GeoJSONPath,
		c.Recording.ReportFormat,
		c.Recording.ReportDir,
		c.Logging.ConsoleLevel,
		c.Logging.EnableSummary,
	)
}

// GetDefaultConfig returns the stock configuration: 10 Hz ticks and the
// reference robot and drone limits.
func GetDefaultConfig() *SimulationConfig {
	return &SimulationConfig{
		Simulation: SimulationSettings{
			Name:        "mail-delivery",
			Description: "Robot and drone mail delivery over a road network",
			DT:          0.1,
			MaxTicks:    100000,
			Mode:        string(driver.ModeConcurrent),
		},

		Control: ControlConfig{
			ThetaThresholdDeg: 0.01,
			DistThreshold:     0.001,
			ReachDelta:        0.001,
		},

		Robot: RobotConfig{
			Velocity:             1.0,
			MaxRotate:            math.Pi,
			MaxCharge:            100,
			EnergyPerMeter:       2,
			ChargeSecondsPerUnit: 0.01,
		},

		Drone: DroneConfig{
			Velocity:  1.0,
			MaxRotate: math.Pi,
		},

		Recording: RecordingConfig{
			Enabled:       false,
			TrajectoryDir: "runs",
			IndexPath:     "runs/index.sqlite",
			ReportDir:     "reports",
		},

		Logging: LoggingConfig{
			ConsoleLevel:  "info",
			EnableSummary: true,
			Progress:      true,
		},
	}
}

// Thresholds converts the control section.
func (c *SimulationConfig) Thresholds() agents.Thresholds {
	return agents.Thresholds{
		Theta: geometry.Radians(c.Control.ThetaThresholdDeg),
		Dist:  c.Control.DistThreshold,
		Reach: c.Control.ReachDelta,
	}
}

// DriverConfig converts the simulation section.
func (c *SimulationConfig) DriverConfig() (driver.Config, error) {
	mode, err := driver.ParseMode(c.Simulation.Mode)
	if err != nil {
		return driver.Config{}, err
	}
	return driver.Config{
		DT:              c.Simulation.DT,
		MaxTicks:        c.Simulation.MaxTicks,
		Mode:            mode,
		RespectSchedule: c.Simulation.RespectSchedule,
	}, nil
}

// ScenarioOptions returns the agent defaults used to build scenarios.
func (c *SimulationConfig) ScenarioOptions() scenario.Options {
	th := c.Thresholds()
	charge := c.Robot.InitialCharge
	if charge <= 0 {
		charge = c.Robot.MaxCharge
	}
	return scenario.Options{
		DT: c.Simulation.DT,
		Robot: agents.RobotConfig{
			Thresholds: th,
			Kinematics: agents.Kinematics{Velocity: c.Robot.Velocity, MaxRotate: c.Robot.MaxRotate},
			Energy: agents.Energy{
				PerMeter:       c.Robot.EnergyPerMeter,
				SecondsPerUnit: c.Robot.ChargeSecondsPerUnit,
				Max:            c.Robot.MaxCharge,
			},
			Charge: charge,
		},
		Drone: agents.DroneConfig{
			Thresholds: th,
			Kinematics: agents.Kinematics{Velocity: c.Drone.Velocity, MaxRotate: c.Drone.MaxRotate},
		},
	}
}
