package cmd

import (
	"log"

	"github.com/josephlewis42/pipesh/core/config"
	"github.com/spf13/cobra"
)

// initCmd writes the default config.yaml into the --config directory
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a pipesh configuration directory.",
	Long: `Creates the directory named by --config if needed and writes the default
config.yaml into it. An existing config.yaml is validated and left untouched.

The history file and event log named in config.yaml are resolved relative to
this directory. Without a configuration pipesh keeps neither.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger := log.New(cmd.ErrOrStderr(), "", 0)

		cfg, err := config.Initialize(cfgPath, logger)
		if err != nil {
			return err
		}

		logger.Printf("Configuration directory: %s", cfg.Dir())
		if path := cfg.HistoryPath(); path != "" {
			logger.Printf("History file: %s", path)
		}
		if cfg.HasEventLog() {
			logger.Printf("Event log: %s (see %s events report)", cfg.EventLog, cmd.Root().Name())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
