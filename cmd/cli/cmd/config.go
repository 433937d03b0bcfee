package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/picogrid/maildelivery/pkg/config"
	"github.com/picogrid/maildelivery/pkg/logger"
	"github.com/picogrid/maildelivery/pkg/utils"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create settings files",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Long:  `Print the settings after applying the config file and MAILSIM_* environment variables`,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfigOrDefault(configPath())
		if err != nil {
			return err
		}
		if path := configPath(); path != "" {
			logger.LogKeyValue("Config file", path)
		}
		fmt.Println(cfg.String())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a settings file with the default values",
	Args:  cobra.MaximumNArgs(1),
	RunE:  initSettingsFile,
}

func init() {
	configInitCmd.Flags().BoolP("force", "f", false, "overwrite an existing file without asking")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func initSettingsFile(cmd *cobra.Command, args []string) error {
	path := "maildelivery.yaml"
	if len(args) == 1 {
		path = args[0]
	} else if dir, err := config.UserConfigDir(); err == nil && !inProject() {
		path = filepath.Join(dir, "config.yaml")
	}

	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		if utils.SkipPrompts() {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		overwrite := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("%s already exists. Overwrite?", path),
			Default: false,
		}
		if err := survey.AskOne(prompt, &overwrite); err != nil {
			return err
		}
		if !overwrite {
			logger.Info("Keeping existing settings file")
			return nil
		}
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
		return err
	}
	logger.Successf("Settings written to %s", path)
	return nil
}

// inProject reports whether the working directory is inside the project tree.
func inProject() bool {
	_, err := utils.FindProjectRoot()
	return err == nil
}
