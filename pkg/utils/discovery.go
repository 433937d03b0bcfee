package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/picogrid/maildelivery/pkg/logger"
	"github.com/picogrid/maildelivery/pkg/scenario"
	"github.com/picogrid/maildelivery/pkg/simulation"
)

// SimulationInfo contains information about a discovered simulation
type SimulationInfo struct {
	Path   string
	Config simulation.Descriptor
}

// ScenarioInfo describes a scenario file found on disk
type ScenarioInfo struct {
	Path        string
	Name        string
	Description string
	Robots      int
	Drones      int
	Steps       int
}

// DiscoverSimulations finds all simulation.yaml files under <root>/cmd
func DiscoverSimulations() ([]SimulationInfo, error) {
	rootDir, err := FindProjectRoot()
	if err != nil {
		return nil, err
	}
	return DiscoverSimulationsIn(filepath.Join(rootDir, "cmd"))
}

// DiscoverSimulationsIn finds all simulation.yaml files under dir
func DiscoverSimulationsIn(dir string) ([]SimulationInfo, error) {
	var simulations []SimulationInfo

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.Name() == "simulation.yaml" {
			simInfo, err := loadSimulationConfig(path)
			if err != nil {
				logger.Warnf("failed to load %s: %v", path, err)
				return nil
			}
			simulations = append(simulations, *simInfo)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan for simulations: %w", err)
	}

	sort.Slice(simulations, func(i, j int) bool { return simulations[i].Config.Name < simulations[j].Config.Name })
	return simulations, nil
}

// FindSimulation returns the descriptor of the named simulation
func FindSimulation(name string) (*SimulationInfo, error) {
	infos, err := DiscoverSimulations()
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].Config.Name == name {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("simulation configuration not found for %s", name)
}

func loadSimulationConfig(path string) (*SimulationInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read simulation config: %w", err)
	}

	var config simulation.Descriptor
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse simulation config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SimulationInfo{
		Path:   filepath.Dir(path),
		Config: config,
	}, nil
}

// ScenarioDir returns <root>/scenarios
func ScenarioDir() (string, error) {
	rootDir, err := FindProjectRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(rootDir, "scenarios"), nil
}

// DiscoverScenarios lists the valid scenario files in dir, sorted by name.
// Invalid files are reported and skipped.
func DiscoverScenarios(dir string) ([]ScenarioInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var out []ScenarioInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		path := filepath.Join(dir, name)
		s, err := scenario.Load(path)
		if err != nil {
			logger.Warnf("skipping %s: %v", path, err)
			continue
		}
		out = append(out, ScenarioInfo{
			Path:        path,
			Name:        s.Name,
			Description: s.Description,
			Robots:      len(s.Fleet.Robots),
			Drones:      len(s.Fleet.Drones),
			Steps:       len(s.Plan),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FindProjectRoot walks up from the working directory to the go.mod
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (no go.mod found)")
		}
		dir = parent
	}
}
