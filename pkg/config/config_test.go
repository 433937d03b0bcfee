package config

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/picogrid/maildelivery/pkg/driver"
)

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig("../../configs/maildelivery.yaml")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Simulation.Name != "mail-delivery" {
		t.Errorf("Expected simulation name 'mail-delivery', got '%s'", config.Simulation.Name)
	}

	if config.Simulation.DT != 0.1 {
		t.Errorf("Expected dt 0.1, got %v", config.Simulation.DT)
	}

	if config.Simulation.Mode != "concurrent" {
		t.Errorf("Expected mode 'concurrent', got '%s'", config.Simulation.Mode)
	}

	if config.Robot.MaxRotate != math.Pi {
		t.Errorf("Expected robot max rotate pi, got %v", config.Robot.MaxRotate)
	}

	if !config.Recording.Enabled {
		t.Error("Expected recording to be enabled")
	}

	if config.Recording.IndexPath != "runs/index.sqlite" {
		t.Errorf("Unexpected index path: %s", config.Recording.IndexPath)
	}

	if config.Recording.ReportFormat != "markdown" {
		t.Errorf("Expected report format 'markdown', got '%s'", config.Recording.ReportFormat)
	}
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	cfg := GetDefaultConfig()
	cfg.Simulation.DT = 0.05
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Simulation.DT != 0.05 {
		t.Errorf("Expected dt 0.05, got %v", loaded.Simulation.DT)
	}
	if loaded.Robot.EnergyPerMeter != 2 {
		t.Errorf("Expected energy per meter 2, got %v", loaded.Robot.EnergyPerMeter)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := GetDefaultConfig()

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}

	if config.Robot.MaxCharge != 100 {
		t.Errorf("Expected max charge 100, got %v", config.Robot.MaxCharge)
	}

	if config.Robot.ChargeSecondsPerUnit != 0.01 {
		t.Errorf("Expected 0.01 seconds per unit, got %v", config.Robot.ChargeSecondsPerUnit)
	}

	if config.Control.ThetaThresholdDeg != 0.01 {
		t.Errorf("Expected theta threshold 0.01 deg, got %v", config.Control.ThetaThresholdDeg)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*SimulationConfig)
		wantErr bool
	}{
		{
			name:    "valid config",
			modify:  func(c *SimulationConfig) {},
			wantErr: false,
		},
		{
			name:    "empty name",
			modify:  func(c *SimulationConfig) { c.Simulation.Name = "" },
			wantErr: true,
		},
		{
			name:    "zero dt",
			modify:  func(c *SimulationConfig) { c.Simulation.DT = 0 },
			wantErr: true,
		},
		{
			name:    "unknown mode",
			modify:  func(c *SimulationConfig) { c.Simulation.Mode = "parallel" },
			wantErr: true,
		},
		{
			name:    "empty mode defaults to concurrent",
			modify:  func(c *SimulationConfig) { c.Simulation.Mode = "" },
			wantErr: false,
		},
		{
			name:    "theta threshold too large",
			modify:  func(c *SimulationConfig) { c.Control.ThetaThresholdDeg = 180 },
			wantErr: true,
		},
		{
			name:    "max rotate above pi",
			modify:  func(c *SimulationConfig) { c.Drone.MaxRotate = 4 },
			wantErr: true,
		},
		{
			name:    "initial charge above max",
			modify:  func(c *SimulationConfig) { c.Robot.InitialCharge = 101 },
			wantErr: true,
		},
		{
			name: "recording without index",
			modify: func(c *SimulationConfig) {
				c.Recording.Enabled = true
				c.Recording.IndexPath = ""
			},
			wantErr: true,
		},
		{
			name:    "unknown report format",
			modify:  func(c *SimulationConfig) { c.Recording.ReportFormat = "html" },
			wantErr: true,
		},
		{
			name:    "bad log level",
			modify:  func(c *SimulationConfig) { c.Logging.ConsoleLevel = "loud" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := GetDefaultConfig()
			tt.modify(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("MAILSIM_DT", "0.05")
	t.Setenv("MAILSIM_MAX_TICKS", "500")
	t.Setenv("MAILSIM_MODE", "Sequential")
	t.Setenv("MAILSIM_RESPECT_SCHEDULE", "true")
	t.Setenv("MAILSIM_ROBOT_VELOCITY", "-1")
	t.Setenv("MAILSIM_LOG_LEVEL", "debug")
	t.Setenv("MAILSIM_INDEX_PATH", "/tmp/idx.sqlite")
	t.Setenv("MAILSIM_REPORT_FORMAT", "JSON")

	config := GetDefaultConfig()
	MergeWithEnvironment(config)

	if config.Simulation.DT != 0.05 {
		t.Errorf("Expected dt 0.05, got %v", config.Simulation.DT)
	}
	if config.Simulation.MaxTicks != 500 {
		t.Errorf("Expected max ticks 500, got %d", config.Simulation.MaxTicks)
	}
	if config.Simulation.Mode != "sequential" {
		t.Errorf("Expected mode 'sequential', got '%s'", config.Simulation.Mode)
	}
	if !config.Simulation.RespectSchedule {
		t.Error("Expected respect schedule to be enabled")
	}
	if config.Robot.Velocity != 1.0 {
		t.Errorf("Negative velocity should be ignored, got %v", config.Robot.Velocity)
	}
	if config.Logging.ConsoleLevel != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", config.Logging.ConsoleLevel)
	}
	if config.Recording.IndexPath != "/tmp/idx.sqlite" {
		t.Errorf("Unexpected index path: %s", config.Recording.IndexPath)
	}
	if config.Recording.ReportFormat != "json" {
		t.Errorf("Expected report format 'json', got '%s'", config.Recording.ReportFormat)
	}
}

func TestCLIOverrides(t *testing.T) {
	config := GetDefaultConfig()

	MergeWithCLIOverrides(config, map[string]interface{}{
		"dt":               0.2,
		"max_ticks":        42,
		"mode":             "sequential",
		"respect_schedule": true,
		"robot_velocity":   "fast",
		"log_level":        "warn",
		"unknown_key":      1,
	})

	if config.Simulation.DT != 0.2 {
		t.Errorf("Expected dt 0.2, got %v", config.Simulation.DT)
	}
	if config.Simulation.MaxTicks != 42 {
		t.Errorf("Expected max ticks 42, got %d", config.Simulation.MaxTicks)
	}
	if config.Simulation.Mode != "sequential" {
		t.Errorf("Expected mode 'sequential', got '%s'", config.Simulation.Mode)
	}
	if config.Robot.Velocity != 1.0 {
		t.Errorf("Wrongly typed override should be ignored, got %v", config.Robot.Velocity)
	}
	if config.Logging.ConsoleLevel != "warn" {
		t.Errorf("Expected log level 'warn', got '%s'", config.Logging.ConsoleLevel)
	}
}

func TestConversions(t *testing.T) {
	config := GetDefaultConfig()
	config.Simulation.Mode = "sequential"
	config.Robot.InitialCharge = 40

	dc, err := config.DriverConfig()
	if err != nil {
		t.Fatalf("DriverConfig failed: %v", err)
	}
	if dc.Mode != driver.ModeSequential || dc.DT != 0.1 || dc.MaxTicks != 100000 {
		t.Errorf("Unexpected driver config: %+v", dc)
	}

	opts := config.ScenarioOptions()
	if opts.Robot.Charge != 40 {
		t.Errorf("Expected initial charge 40, got %v", opts.Robot.Charge)
	}
	if opts.Robot.Energy.Max != 100 || opts.Robot.Energy.PerMeter != 2 {
		t.Errorf("Unexpected energy model: %+v", opts.Robot.Energy)
	}
	if math.Abs(opts.Drone.Thresholds.Theta-0.01*math.Pi/180) > 1e-15 {
		t.Errorf("Unexpected theta threshold: %v", opts.Drone.Thresholds.Theta)
	}

	config.Robot.InitialCharge = 0
	if got := config.ScenarioOptions().Robot.Charge; got != 100 {
		t.Errorf("Zero initial charge should mean full, got %v", got)
	}
}

func TestLoadConfigWithOverrides(t *testing.T) {
	t.Setenv("MAILSIM_DT", "0.5")
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := SaveConfig(GetDefaultConfig(), path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	config, err := LoadConfigWithOverrides(path, map[string]interface{}{"dt": 0.25})
	if err != nil {
		t.Fatalf("LoadConfigWithOverrides failed: %v", err)
	}
	if config.Simulation.DT != 0.25 {
		t.Errorf("CLI override should win over environment, got %v", config.Simulation.DT)
	}
}
