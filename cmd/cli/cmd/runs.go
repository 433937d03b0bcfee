package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/picogrid/maildelivery/pkg/config"
	"github.com/picogrid/maildelivery/pkg/logger"
	"github.com/picogrid/maildelivery/pkg/recorder"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Browse recorded runs",
	Long:  `List the runs stored in the run index, most recent first`,
	RunE:  listRuns,
}

var runEventsCmd = &cobra.Command{
	Use:   "events <run-id>",
	Short: "Show the action events of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  showRunEvents,
}

func init() {
	runsCmd.PersistentFlags().String("index", "", "run index path (default from config)")
	runsCmd.Flags().IntP("limit", "n", 20, "number of runs to show")
	runsCmd.AddCommand(runEventsCmd)
}

// openIndex opens the index named by --index or the settings.
func openIndex(cmd *cobra.Command) (*recorder.Index, error) {
	path, _ := cmd.Flags().GetString("index")
	if path == "" {
		cfg, err := config.LoadConfigOrDefault(configPath())
		if err != nil {
			return nil, err
		}
		path = cfg.Recording.IndexPath
	}
	return recorder.OpenIndex(path)
}

func listRuns(cmd *cobra.Command, _ []string) error {
	idx, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer idx.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := idx.Runs(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		logger.Info("No recorded runs")
		return nil
	}

	table := logger.NewTable("ID", "STARTED", "SCENARIO", "MODE", "STATUS", "TICKS", "SIM TIME", "DELIVERED")
	for _, r := range runs {
		table.AddRow(
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Scenario,
			r.Mode,
			r.Status,
			strconv.Itoa(r.Ticks),
			fmt.Sprintf("%.2fs", r.SimTime),
			strconv.Itoa(r.Delivered),
		)
	}
	table.Print()
	return nil
}

func showRunEvents(cmd *cobra.Command, args []string) error {
	idx, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer idx.Close()

	ctx := context.Background()
	run, err := idx.Run(ctx, args[0])
	if err != nil {
		return err
	}
	events, err := idx.Events(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}

	logger.LogSection(fmt.Sprintf("Run %s", run.ID))
	logger.LogKeyValues(map[string]interface{}{
		"Scenario": run.Scenario,
		"Status":   run.Status,
		"Ticks":    run.Ticks,
	})
	if run.Error != "" {
		logger.LogKeyValue("Error", run.Error)
	}

	table := logger.NewTable("TICK", "TIME", "EVENT", "AGENT", "ACTION")
	for _, ev := range events {
		table.AddRow(
			strconv.Itoa(ev.Tick),
			fmt.Sprintf("%.2f", ev.Time),
			string(ev.Type),
			strconv.Itoa(ev.Agent),
			ev.Action,
		)
	}
	table.Print()
	return nil
}
