package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/picogrid/maildelivery/pkg/config"
	"github.com/picogrid/maildelivery/pkg/logger"
	"github.com/picogrid/maildelivery/pkg/scenario"
	"github.com/picogrid/maildelivery/pkg/utils"
)

var validateCmd = &cobra.Command{
	Use:   "validate [scenario...]",
	Short: "Check scenario files",
	Long: `Validate scenario files against the schema and build their world and
plan without running them. With no arguments every bundled scenario is checked.`,
	RunE: validateScenarios,
}

func validateScenarios(_ *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigOrDefault(configPath())
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(args))
	for _, ref := range args {
		path, err := utils.ResolveScenario(ref)
		if err != nil {
			return err
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		dir, err := utils.ScenarioDir()
		if err != nil {
			return err
		}
		infos, err := utils.DiscoverScenarios(dir)
		if err != nil {
			return err
		}
		for _, info := range infos {
			paths = append(paths, info.Path)
		}
	}

	failed := 0
	for _, path := range paths {
		if err := validateScenario(path, cfg); err != nil {
			failed++
			logger.WithField("scenario", path).Error(err)
			continue
		}
		logger.Successf("%s", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios are invalid", failed, len(paths))
	}
	return nil
}

func validateScenario(path string, cfg *config.SimulationConfig) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}
	_, err = scenario.Build(sc, cfg.ScenarioOptions())
	return err
}
