// Package scenario reads scenario files: a world, a fleet and the plan the
// fleet executes. Files are YAML and are checked against an embedded JSON
// schema before they are decoded.
package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "scenario.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(schemaURL, schemaJSON)
	})
	return schema, schemaErr
}

// Scenario is the decoded form of a scenario file.
type Scenario struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Version     string  `yaml:"version,omitempty"`
	DT          float64 `yaml:"dt,omitempty"`
	Mode        string  `yaml:"mode,omitempty"`
	World       World   `yaml:"world"`
	Fleet       Fleet   `yaml:"fleet"`
	Plan        []Step  `yaml:"plan"`

	// RespectSchedule, when set, overrides the run setting of the same name.
	RespectSchedule *bool `yaml:"respect_schedule,omitempty"`
}

// World describes the road graph and the packages on it.
type World struct {
	Locations []LocationSpec `yaml:"locations"`
	Roads     [][2]int       `yaml:"roads,omitempty"`
	Packages  []PackageSpec  `yaml:"packages,omitempty"`
}

// LocationSpec is a road graph node.
type LocationSpec struct {
	ID   int     `yaml:"id"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	Kind string  `yaml:"kind"`
}

// PackageSpec places a package at a location.
type PackageSpec struct {
	ID           int     `yaml:"id"`
	Location     int     `yaml:"location"`
	Goal         int     `yaml:"goal"`
	DeliveryTime float64 `yaml:"delivery_time,omitempty"`
}

// Fleet lists the agents of the scenario.
type Fleet struct {
	Robots []AgentSpec `yaml:"robots,omitempty"`
	Drones []AgentSpec `yaml:"drones,omitempty"`
}

// AgentSpec places an agent at a location. The heading comes from Theta or,
// when Facing is set, points at that location. Optional fields override the
// configured defaults for this agent only.
type AgentSpec struct {
	ID        int      `yaml:"id"`
	Location  int      `yaml:"location"`
	Facing    *int     `yaml:"facing,omitempty"`
	Theta     *float64 `yaml:"theta,omitempty"`
	Velocity  *float64 `yaml:"velocity,omitempty"`
	MaxRotate *float64 `yaml:"max_rotate,omitempty"`
	Charge    *float64 `yaml:"charge,omitempty"`
}

// Step is one plan entry. Which id fields are required depends on Action.
type Step struct {
	Agent     int      `yaml:"agent"`
	Action    string   `yaml:"action"`
	From      *int     `yaml:"from,omitempty"`
	To        *int     `yaml:"to,omitempty"`
	Location  *int     `yaml:"location,omitempty"`
	Package   *int     `yaml:"package,omitempty"`
	Passenger *int     `yaml:"passenger,omitempty"`
	TimeStart *float64 `yaml:"time_start,omitempty"`
	TimeEnd   *float64 `yaml:"time_end,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse validates data against the scenario schema and decodes it.
func Parse(data []byte) (*Scenario, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	return &s, nil
}

// Validate checks a YAML document against the scenario schema.
func Validate(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse scenario: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("scenario is empty")
	}

	// The validator expects JSON-shaped values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to convert scenario: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("failed to convert scenario: %w", err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile scenario schema: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("scenario does not match schema: %w", err)
	}
	return nil
}

// Save writes a scenario as YAML.
func Save(s *Scenario, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("error marshaling scenario: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing scenario: %w", err)
	}
	return nil
}
