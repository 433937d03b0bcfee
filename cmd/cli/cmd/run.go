package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/picogrid/maildelivery/pkg/config"
	"github.com/picogrid/maildelivery/pkg/driver"
	"github.com/picogrid/maildelivery/pkg/export"
	"github.com/picogrid/maildelivery/pkg/logger"
	"github.com/picogrid/maildelivery/pkg/recorder"
	"github.com/picogrid/maildelivery/pkg/reporting"
	"github.com/picogrid/maildelivery/pkg/simulation"
	"github.com/picogrid/maildelivery/pkg/utils"

	// Import simulations to register them
	_ "github.com/picogrid/maildelivery/cmd/mail-delivery"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation",
	Long: `Run a simulation interactively or with specified parameters.

Settings are layered: config file and MAILSIM_* environment, then the
scenario file, then command line flags.`,
	RunE: runSimulation,
}

func init() {
	runCmd.Flags().StringP("simulation", "s", "", "simulation name to run")
	runCmd.Flags().String("scenario", "", "scenario file or bundled scenario name")
	runCmd.Flags().String("mode", "", "scheduling mode (concurrent, sequential)")
	runCmd.Flags().Float64("dt", 0, "seconds per tick")
	runCmd.Flags().Int("max-ticks", 0, "abort after this many ticks (0 disables)")
	runCmd.Flags().Bool("respect-schedule", false, "hold actions until their start time")
	runCmd.Flags().Bool("record", false, "write the trajectory log and run index")
	runCmd.Flags().String("geojson", "", "write agent tracks as GeoJSON to this path")
	runCmd.Flags().String("report", "", "write a run report (json, markdown)")
	runCmd.Flags().Bool("summary", true, "print the run summary")
}

// settingsOverrides collects the flags that feed config.MergeWithCLIOverrides.
func settingsOverrides(cmd *cobra.Command) map[string]interface{} {
	overrides := make(map[string]interface{})
	flags := cmd.Flags()
	if flags.Changed("record") {
		v, _ := flags.GetBool("record")
		overrides["record"] = v
	}
	if flags.Changed("geojson") {
		v, _ := flags.GetString("geojson")
		overrides["geojson_path"] = v
	}
	if flags.Changed("report") {
		v, _ := flags.GetString("report")
		overrides["report_format"] = v
	}
	if flags.Changed("summary") {
		v, _ := flags.GetBool("summary")
		overrides["summary"] = v
	}
	if rootCmd.PersistentFlags().Changed("log-level") {
		overrides["log_level"] = logLevel
	}
	return overrides
}

// parameterPresets maps flags onto simulation parameters so they are not prompted for.
func parameterPresets(cmd *cobra.Command) map[string]interface{} {
	preset := make(map[string]interface{})
	flags := cmd.Flags()
	if flags.Changed("scenario") {
		v, _ := flags.GetString("scenario")
		preset["scenario"] = v
	}
	if flags.Changed("mode") {
		v, _ := flags.GetString("mode")
		preset["mode"] = v
	}
	if flags.Changed("dt") {
		v, _ := flags.GetFloat64("dt")
		preset["dt"] = v
	}
	if flags.Changed("max-ticks") {
		v, _ := flags.GetInt("max-ticks")
		preset["max_ticks"] = v
	}
	if flags.Changed("respect-schedule") {
		v, _ := flags.GetBool("respect-schedule")
		preset["respect_schedule"] = v
	}
	return preset
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfigWithOverrides(configPath(), settingsOverrides(cmd))
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.ConsoleLevel))

	simInfo, err := selectSimulation(cmd)
	if err != nil {
		return fmt.Errorf("failed to select simulation: %w", err)
	}

	sim, err := simulation.DefaultRegistry.Get(simInfo.Config.Name)
	if err != nil {
		return fmt.Errorf("failed to get simulation: %w", err)
	}

	params, err := utils.PromptForParameters(simInfo.Config.Parameters, parameterPresets(cmd))
	if err != nil {
		return fmt.Errorf("failed to get parameters: %w", err)
	}
	scenarioPath := ""
	if ref, ok := params["scenario"].(string); ok {
		if scenarioPath, err = utils.ResolveScenario(ref); err != nil {
			return err
		}
		params["scenario"] = scenarioPath
	}

	if err := sim.Configure(cfg, params); err != nil {
		return fmt.Errorf("failed to configure simulation: %w", err)
	}
	if s, ok := sim.(interface {
		Settings() *config.SimulationConfig
	}); ok {
		cfg = s.Settings()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		logger.Warn("Received interrupt signal, stopping simulation...")
		if err := sim.Stop(); err != nil {
			logger.Errorf("Failed to stop simulation: %v", err)
		}
		cancel()
	}()

	run, err := newRunArtifacts(ctx, sim, cfg, scenarioPath)
	if err != nil {
		return err
	}
	defer run.close()

	logger.LogSection(fmt.Sprintf("Starting %s", sim.Name()))
	logger.LogKeyValues(map[string]interface{}{
		"Scenario": sim.Scenario(),
		"Mode":     cfg.Simulation.Mode,
		"dt":       cfg.Simulation.DT,
		"Run ID":   run.id,
	})

	res, runErr := sim.Run(ctx, run.observers...)
	if run.progress != nil {
		run.progress.Finish()
	}
	run.finish(res, runErr)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warnf("Simulation stopped after %d ticks", res.Ticks)
			return nil
		}
		return fmt.Errorf("simulation failed: %w", runErr)
	}

	logger.Successf("Simulation completed: %d packages delivered in %.2fs simulated (%d ticks)",
		res.Delivered, res.SimTime, res.Ticks)
	return nil
}

// runArtifacts owns the observers attached to one run.
type runArtifacts struct {
	id        string
	cfg       *config.SimulationConfig
	sim       simulation.Simulation
	observers []driver.Observer

	log      *reporting.RunLogger
	progress *logger.ProgressBar
	traj     *recorder.TrajectoryLog
	index    *recorder.Index
	tracks   *export.TrackCollector
}

// newRunArtifacts builds the observers enabled by cfg. The index records
// scenarioPath so the run can be exported later.
func newRunArtifacts(ctx context.Context, sim simulation.Simulation, cfg *config.SimulationConfig, scenarioPath string) (*runArtifacts, error) {
	d := sim.Driver()
	if d == nil {
		return nil, fmt.Errorf("simulation %s is not configured", sim.Name())
	}

	a := &runArtifacts{
		id:  uuid.New().String(),
		cfg: cfg,
		sim: sim,
	}
	a.log = reporting.NewRunLogger(reporting.Options{
		RunID:       a.id,
		MinSeverity: cfg.Logging.ConsoleLevel,
	})
	a.observers = append(a.observers, a.log)

	if total := d.Environment().NumPackages(); cfg.Logging.Progress && total > 0 {
		a.progress = logger.NewProgressBar(total, "Delivering")
		a.observers = append(a.observers, driver.ObserverFunc(func(s *driver.Snapshot) error {
			delivered := 0
			for i := range s.Packages {
				if s.Packages[i].Delivered() {
					delivered++
				}
			}
			a.progress.Update(delivered, fmt.Sprintf("t=%.1fs", s.Time))
			return nil
		}))
	}

	if cfg.Recording.Enabled {
		traj, err := recorder.NewTrajectoryLog(cfg.Recording.TrajectoryDir, a.id)
		if err != nil {
			return nil, err
		}
		a.traj = traj

		index, err := recorder.OpenIndex(cfg.Recording.IndexPath)
		if err != nil {
			a.close()
			return nil, err
		}
		a.index = index

		err = index.BeginRun(ctx, recorder.RunInfo{
			ID:         a.id,
			Scenario:   scenarioPath,
			Mode:       cfg.Simulation.Mode,
			DT:         cfg.Simulation.DT,
			Trajectory: traj.Path(),
			StartedAt:  time.Now(),
		})
		if err != nil {
			a.close()
			return nil, err
		}
		a.observers = append(a.observers, traj, index.Observer(ctx, a.id))
	}

	if cfg.Recording.GeoJSONPath != "" {
		a.tracks = export.NewTrackCollector(d.Snapshot().Agents)
		a.observers = append(a.observers, a.tracks)
	}
	return a, nil
}

// finish writes the run outcome to every enabled sink.
func (a *runArtifacts) finish(res driver.Result, runErr error) {
	a.log.RecordResult(res)
	if runErr != nil {
		a.log.LogError("Run ended early", runErr, map[string]interface{}{"ticks": res.Ticks})
	}

	if a.traj != nil {
		if err := a.traj.Close(); err != nil {
			logger.Errorf("Failed to close trajectory log: %v", err)
		} else {
			logger.Infof("Trajectory written to %s", a.traj.Path())
		}
		a.traj = nil
	}

	if a.index != nil {
		// The run context may already be cancelled.
		if err := a.index.FinishRun(context.Background(), a.id, res, runErr); err != nil {
			logger.Errorf("Failed to update run index: %v", err)
		}
	}

	if a.tracks != nil {
		fc := export.FeatureCollection(a.sim.Driver().Environment(), a.tracks.Packages(), a.tracks.Tracks())
		path := a.cfg.Recording.GeoJSONPath
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			logger.Errorf("Failed to create %s: %v", filepath.Dir(path), err)
		} else if err := export.WriteFile(fc, path); err != nil {
			logger.Errorf("Failed to write GeoJSON: %v", err)
		} else {
			logger.Infof("Tracks written to %s", path)
		}
	}

	if a.cfg.Logging.EnableSummary {
		a.log.PrintSummary()
	}

	if format := a.cfg.Recording.ReportFormat; format != "" {
		detail := "summary"
		if a.cfg.Logging.ConsoleLevel == "debug" {
			detail = "full"
		}
		gen := reporting.NewReportGenerator(a.log, reporting.ReportConfig{
			OutputDir:   a.cfg.Recording.ReportDir,
			Format:      format,
			DetailLevel: detail,
			Settings: map[string]interface{}{
				"scenario":         a.sim.Scenario(),
				"mode":             a.cfg.Simulation.Mode,
				"dt":               a.cfg.Simulation.DT,
				"respect_schedule": a.cfg.Simulation.RespectSchedule,
			},
		})
		if _, err := gen.Save(gen.Generate()); err != nil {
			logger.Errorf("Failed to write report: %v", err)
		}
	}
}

func (a *runArtifacts) close() {
	if a.traj != nil {
		_ = a.traj.Close()
	}
	if a.index != nil {
		_ = a.index.Close()
	}
}

func selectSimulation(cmd *cobra.Command) (*utils.SimulationInfo, error) {
	// Check if simulation is specified via flag
	simName, _ := cmd.Flags().GetString("simulation")
	if simName != "" {
		return utils.FindSimulation(simName)
	}

	simInfos, err := utils.DiscoverSimulations()
	if err != nil {
		return nil, err
	}

	if len(simInfos) == 0 {
		return nil, fmt.Errorf("no simulations found")
	}
	if len(simInfos) == 1 || utils.SkipPrompts() {
		return &simInfos[0], nil
	}

	options := make([]string, len(simInfos))
	descriptions := make(map[string]string)
	for i, info := range simInfos {
		options[i] = info.Config.Name
		descriptions[info.Config.Name] = info.Config.Description
	}

	var selected string
	prompt := &survey.Select{
		Message: "Select simulation:",
		Options: options,
		Description: func(value string, index int) string {
			return descriptions[value]
		},
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return nil, err
	}
	return utils.FindSimulation(selected)
}
