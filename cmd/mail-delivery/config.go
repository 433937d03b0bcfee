package maildelivery

import (
	"fmt"
)

// ModeFromScenario keeps the mode declared by the scenario file.
const ModeFromScenario = "scenario"

// Config holds the parsed parameters of a mail delivery run
type Config struct {
	ScenarioPath    string
	Mode            string
	DT              float64
	MaxTicks        int
	RespectSchedule bool
	// set records which optional parameters were supplied
	set map[string]bool
}

// ValidateAndParse validates and parses the raw parameters into a Config
func ValidateAndParse(params map[string]interface{}) (*Config, error) {
	config := &Config{Mode: ModeFromScenario, set: make(map[string]bool)}

	if v, ok := params["scenario"]; ok && v != nil {
		config.ScenarioPath = fmt.Sprintf("%v", v)
	}
	if config.ScenarioPath == "" {
		return nil, fmt.Errorf("scenario is required")
	}

	if v, ok := params["mode"]; ok && v != nil {
		config.Mode = fmt.Sprintf("%v", v)
	}
	validModes := map[string]bool{ModeFromScenario: true, "concurrent": true, "sequential": true}
	if !validModes[config.Mode] {
		return nil, fmt.Errorf("mode must be one of: scenario, concurrent, sequential")
	}

	if v, ok := params["dt"]; ok && v != nil {
		switch val := v.(type) {
		case float64:
			config.DT = val
		case int:
			config.DT = float64(val)
		default:
			return nil, fmt.Errorf("dt must be a number")
		}
		if config.DT < 0 {
			return nil, fmt.Errorf("dt must not be negative")
		}
		config.set["dt"] = config.DT > 0
	}

	if v, ok := params["max_ticks"]; ok && v != nil {
		switch val := v.(type) {
		case int:
			config.MaxTicks = val
		case float64:
			config.MaxTicks = int(val)
		default:
			return nil, fmt.Errorf("max_ticks must be an integer")
		}
		if config.MaxTicks < 0 {
			return nil, fmt.Errorf("max_ticks must not be negative")
		}
		config.set["max_ticks"] = true
	}

	if v, ok := params["respect_schedule"]; ok && v != nil {
		b, isBool := v.(bool)
		if !isBool {
			return nil, fmt.Errorf("respect_schedule must be a boolean")
		}
		config.RespectSchedule = b
		config.set["respect_schedule"] = b
	}

	return config, nil
}

// Overrides returns the supplied parameters in the form accepted by
// config.MergeWithCLIOverrides.
func (c *Config) Overrides() map[string]interface{} {
	out := make(map[string]interface{})
	if c.set["dt"] {
		out["dt"] = c.DT
	}
	if c.set["max_ticks"] {
		out["max_ticks"] = c.MaxTicks
	}
	if c.set["respect_schedule"] {
		out["respect_schedule"] = c.RespectSchedule
	}
	if c.Mode != ModeFromScenario {
		out["mode"] = c.Mode
	}
	return out
}
