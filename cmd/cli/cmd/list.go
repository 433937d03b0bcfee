package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/picogrid/maildelivery/pkg/utils"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available simulations and scenarios",
	Long:  `List all available simulations and the bundled scenario files`,
	RunE:  listSimulations,
}

func init() {
	listCmd.Flags().String("scenarios", "", "scenario directory (default is <project>/scenarios)")
}

func listSimulations(cmd *cobra.Command, args []string) error {
	// Discover available simulations
	simInfos, err := utils.DiscoverSimulations()
	if err != nil {
		return fmt.Errorf("failed to discover simulations: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if len(simInfos) == 0 {
		fmt.Println("No simulations found")
	} else {
		_, _ = fmt.Fprintln(w, "NAME\tVERSION\tCATEGORY\tDESCRIPTION")
		_, _ = fmt.Fprintln(w, "----\t-------\t--------\t-----------")
		for _, info := range simInfos {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				info.Config.Name,
				info.Config.Version,
				info.Config.Category,
				info.Config.Description,
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	dir, _ := cmd.Flags().GetString("scenarios")
	if dir == "" {
		if dir, err = utils.ScenarioDir(); err != nil {
			return err
		}
	}
	scenarios, err := utils.DiscoverScenarios(dir)
	if err != nil {
		return fmt.Errorf("failed to discover scenarios: %w", err)
	}

	fmt.Println()
	if len(scenarios) == 0 {
		fmt.Printf("No scenarios found in %s\n", dir)
		return nil
	}
	_, _ = fmt.Fprintln(w, "SCENARIO\tROBOTS\tDRONES\tSTEPS\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "--------\t------\t------\t-----\t-----------")
	for _, sc := range scenarios {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			sc.Name,
			strconv.Itoa(sc.Robots),
			strconv.Itoa(sc.Drones),
			strconv.Itoa(sc.Steps),
			sc.Description,
		)
	}
	return w.Flush()
}
