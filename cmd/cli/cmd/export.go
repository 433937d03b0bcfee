package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/picogrid/maildelivery/pkg/driver"
	"github.com/picogrid/maildelivery/pkg/export"
	"github.com/picogrid/maildelivery/pkg/logger"
	"github.com/picogrid/maildelivery/pkg/recorder"
	"github.com/picogrid/maildelivery/pkg/scenario"
	"github.com/picogrid/maildelivery/pkg/utils"
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id | trajectory.jsonl.zst>",
	Short: "Export a recorded run as GeoJSON",
	Long: `Rebuild agent tracks from a trajectory log and write them, together with
the road network and package positions, as a GeoJSON feature collection.

A run id is looked up in the run index. A trajectory file needs --scenario.`,
	Args: cobra.ExactArgs(1),
	RunE: exportRun,
}

func init() {
	exportCmd.Flags().String("scenario", "", "scenario the trajectory was recorded from")
	exportCmd.Flags().String("index", "", "run index path (default from config)")
	exportCmd.Flags().StringP("output", "o", "", "output file (default <run>.geojson)")
}

func exportRun(cmd *cobra.Command, args []string) error {
	trajectory, scenarioRef, err := exportSource(cmd, args[0])
	if err != nil {
		return err
	}

	scenarioPath, err := utils.ResolveScenario(scenarioRef)
	if err != nil {
		return err
	}
	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		return err
	}
	built, err := scenario.Build(sc, scenario.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to build scenario: %w", err)
	}

	snaps, err := recorder.ReadTrajectory(trajectory)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return fmt.Errorf("trajectory %s is empty", trajectory)
	}
	packages := snaps[len(snaps)-1].Packages
	tracks := export.TracksFromSnapshots(append([]driver.Snapshot{initialSnapshot(built)}, snaps...))

	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = trimTrajectoryExt(trajectory) + ".geojson"
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := export.WriteFile(export.FeatureCollection(built.Env, packages, tracks), out); err != nil {
		return err
	}
	logger.Successf("Exported %d ticks to %s", len(snaps), out)
	return nil
}

// exportSource resolves the argument to a trajectory file and a scenario reference.
func exportSource(cmd *cobra.Command, ref string) (string, string, error) {
	scenarioRef, _ := cmd.Flags().GetString("scenario")
	if _, err := os.Stat(ref); err == nil {
		if scenarioRef == "" {
			return "", "", fmt.Errorf("--scenario is required when exporting a trajectory file")
		}
		return ref, scenarioRef, nil
	}

	idx, err := openIndex(cmd)
	if err != nil {
		return "", "", err
	}
	defer idx.Close()

	run, err := idx.Run(context.Background(), ref)
	if err != nil {
		return "", "", err
	}
	if run.Trajectory == "" {
		return "", "", fmt.Errorf("run %s has no trajectory", run.ID)
	}
	if scenarioRef == "" {
		scenarioRef = run.Scenario
	}
	return run.Trajectory, scenarioRef, nil
}

// initialSnapshot places every agent at its starting pose.
func initialSnapshot(b *scenario.Built) driver.Snapshot {
	var snap driver.Snapshot
	for _, a := range b.Agents() {
		snap.Agents = append(snap.Agents, driver.AgentState{ID: a.ID(), Kind: a.Kind(), Pose: a.Pose()})
	}
	return snap
}

func trimTrajectoryExt(path string) string {
	for _, ext := range []string{".zst", ".jsonl"} {
		if filepath.Ext(path) == ext {
			path = path[:len(path)-len(ext)]
		}
	}
	return path
}
