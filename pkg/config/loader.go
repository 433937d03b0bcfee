package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/picogrid/maildelivery/pkg/logger"
)

// EnvPrefix prefixes every environment variable read by MergeWithEnvironment.
const EnvPrefix = "MAILSIM_"

// UserConfigDir returns ~/.maildelivery-sim.
func UserConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".maildelivery-sim"), nil
}

// DefaultPaths lists the files LoadConfigOrDefault tries, in order.
func DefaultPaths() []string {
	paths := []string{
		"maildelivery.yaml",
		"config.yaml",
		filepath.Join("configs", "maildelivery.yaml"),
	}
	if dir, err := UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "config.yaml"))
	}
	return paths
}

// LoadConfig loads configuration from a YAML file. Keys missing from the
// file keep their default values.
func LoadConfig(path string) (*SimulationConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads config from path, then from the default
// locations, then falls back to defaults. Environment overrides are always
// applied.
func LoadConfigOrDefault(path string) (*SimulationConfig, error) {
	var config *SimulationConfig
	var err error

	if path != "" {
		config, err = LoadConfig(path)
		if err != nil {
			logger.Warnf("Could not load config from %s: %v", path, err)
			config = nil
		}
	}

	if config == nil {
		for _, p := range DefaultPaths() {
			if _, statErr := os.Stat(p); statErr != nil {
				continue
			}
			if config, err = LoadConfig(p); err == nil {
				logger.Debugf("Loaded config from: %s", p)
				break
			}
			logger.Warnf("Ignoring %s: %v", p, err)
			config = nil
		}
	}

	if config == nil {
		logger.Debug("Using default configuration")
		config = GetDefaultConfig()
	}

	MergeWithEnvironment(config)

	return config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *SimulationConfig, path string) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// MergeWithCLIOverrides applies CLI parameter overrides to the configuration.
// Values of the wrong type or out of range are ignored.
func MergeWithCLIOverrides(config *SimulationConfig, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "dt":
			if dt, ok := value.(float64); ok && dt > 0 {
				config.Simulation.DT = dt
			}
		case "max_ticks":
			if n, ok := value.(int); ok && n >= 0 {
				config.Simulation.MaxTicks = n
			}
		case "mode":
			if mode, ok := value.(string); ok && oneOf(mode, validModes) {
				config.Simulation.Mode = mode
			}
		case "respect_schedule":
			if b, ok := value.(bool); ok {
				config.Simulation.RespectSchedule = b
			}
		case "robot_velocity":
			if v, ok := value.(float64); ok && v > 0 {
				config.Robot.Velocity = v
			}
		case "drone_velocity":
			if v, ok := value.(float64); ok && v > 0 {
				config.Drone.Velocity = v
			}
		case "initial_charge":
			if c, ok := value.(float64); ok && c >= 0 {
				config.Robot.InitialCharge = c
			}
		case "record":
			if b, ok := value.(bool); ok {
				config.Recording.Enabled = b
			}
		case "geojson_path":
			if p, ok := value.(string); ok {
				config.Recording.GeoJSONPath = p
			}
		case "report_format":
			if f, ok := value.(string); ok && (f == "" || oneOf(f, validReport)) {
				config.Recording.ReportFormat = f
			}
		case "log_level":
			if level, ok := value.(string); ok && oneOf(level, validLevels) {
				config.Logging.ConsoleLevel = level
			}
		case "summary":
			if b, ok := value.(bool); ok {
				config.Logging.EnableSummary = b
			}
		}
	}
}

// LoadConfigWithOverrides loads config and applies both environment and CLI overrides
func LoadConfigWithOverrides(path string, cliOverrides map[string]interface{}) (*SimulationConfig, error) {
	config, err := LoadConfigOrDefault(path)
	if err != nil {
		return nil, err
	}

	if cliOverrides != nil {
		MergeWithCLIOverrides(config, cliOverrides)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed after overrides: %w", err)
	}

	return config, nil
}

func envFloat(name string, ok func(float64) bool, set func(float64)) {
	if raw := os.Getenv(EnvPrefix + name); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && ok(v) {
			set(v)
		}
	}
}

func envBool(name string, set func(bool)) {
	if raw := os.Getenv(EnvPrefix + name); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			set(v)
		}
	}
}

func positive(v float64) bool { return v > 0 }

// MergeWithEnvironment merges config with MAILSIM_* environment variables
func MergeWithEnvironment(config *SimulationConfig) {
	envFloat("DT", positive, func(v float64) { config.Simulation.DT = v })

	if raw := os.Getenv(EnvPrefix + "MAX_TICKS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			config.Simulation.MaxTicks = n
		}
	}

	if mode := strings.ToLower(os.Getenv(EnvPrefix + "MODE")); oneOf(mode, validModes) {
		config.Simulation.Mode = mode
	}

	envBool("RESPECT_SCHEDULE", func(b bool) { config.Simulation.RespectSchedule = b })

	envFloat("ROBOT_VELOCITY", positive, func(v float64) { config.Robot.Velocity = v })
	envFloat("DRONE_VELOCITY", positive, func(v float64) { config.Drone.Velocity = v })
	envFloat("MAX_CHARGE", positive, func(v float64) { config.Robot.MaxCharge = v })
	envFloat("INITIAL_CHARGE", func(v float64) bool { return v >= 0 }, func(v float64) { config.Robot.InitialCharge = v })

	envBool("RECORD", func(b bool) { config.Recording.Enabled = b })
	if dir := os.Getenv(EnvPrefix + "TRAJECTORY_DIR"); dir != "" {
		config.Recording.TrajectoryDir = dir
	}
	if p := os.Getenv(EnvPrefix + "INDEX_PATH"); p != "" {
		config.Recording.IndexPath = p
	}
	if p := os.Getenv(EnvPrefix + "GEOJSON_PATH"); p != "" {
		config.Recording.GeoJSONPath = p
	}
	if f := strings.ToLower(os.Getenv(EnvPrefix + "REPORT_FORMAT")); oneOf(f, validReport) {
		config.Recording.ReportFormat = f
	}
	if dir := os.Getenv(EnvPrefix + "REPORT_DIR"); dir != "" {
		config.Recording.ReportDir = dir
	}

	if level := strings.ToLower(os.Getenv(EnvPrefix + "LOG_LEVEL")); oneOf(level, validLevels) {
		config.Logging.ConsoleLevel = level
	}
	envBool("SUMMARY", func(b bool) { config.Logging.EnableSummary = b })
}
