package simulation

import (
	"fmt"
)

// Descriptor is the content of a simulation.yaml file
type Descriptor struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Version     string      `yaml:"version"`
	Category    string      `yaml:"category"`
	Parameters  []Parameter `yaml:"parameters"`
}

// Parameter defines a configurable parameter for a simulation
type Parameter struct {
	Name        string      `yaml:"name"`
	Type        string      `yaml:"type"` // integer, float, string, boolean, scenario
	Description string      `yaml:"description"`
	Default     interface{} `yaml:"default"`
	Required    bool        `yaml:"required"`
	Min         interface{} `yaml:"min,omitempty"`
	Max         interface{} `yaml:"max,omitempty"`
	Options     []string    `yaml:"options,omitempty"` // For string enums
}

// Parameter types
const (
	TypeInteger  = "integer"
	TypeFloat    = "float"
	TypeString   = "string"
	TypeBoolean  = "boolean"
	TypeScenario = "scenario" // path to a scenario file, offered from the scenarios directory
)

// Validate checks that the descriptor is usable.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("simulation name is required")
	}
	seen := make(map[string]bool, len(d.Parameters))
	for _, p := range d.Parameters {
		if p.Name == "" {
			return fmt.Errorf("parameter without a name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate parameter %s", p.Name)
		}
		seen[p.Name] = true
		switch p.Type {
		case TypeInteger, TypeFloat, TypeString, TypeBoolean, TypeScenario:
		default:
			return fmt.Errorf("parameter %s has unsupported type %q", p.Name, p.Type)
		}
	}
	return nil
}

// Parameter returns the parameter with the given name.
func (d *Descriptor) Parameter(name string) (Parameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}
