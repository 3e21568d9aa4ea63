package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/josephlewis42/pipesh/core/config"
	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/josephlewis42/pipesh/core/shell"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	script  string
)

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// loadConfigOrDefault falls back to the built-in configuration when none has
// been initialized.
func loadConfigOrDefault() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return configuration, err
}

// runShell runs the shell until it exits and returns its status. Everything
// it opens is closed before it returns so the caller can exit directly.
func runShell(cmd *cobra.Command, cfg *config.Configuration, script string) (int, error) {
	appLog := log.New(cmd.ErrOrStderr(), "["+cmd.Root().Name()+"] ", 0)

	events := logger.NewNopLogger()
	if cfg.HasEventLog() {
		logFd, err := cfg.OpenEventLog()
		if err != nil {
			return 0, err
		}
		defer logFd.Close()
		events = logger.NewJsonLinesLogRecorder(logFd)
	}

	sh := shell.NewShell(cfg, shell.Options{
		Events: events,
		Log:    appLog,
	})

	if script != "" {
		return sh.RunScript(script), nil
	}

	if err := sh.Run(); err != nil {
		return 0, err
	}
	return sh.ExitCode, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pipesh",
	Short: "A command pipeline shell",
	Long: `Runs commands connected by pipes with optional file redirection.

Reads commands from standard input, or runs the command given with -c.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfigOrDefault()
		if err != nil {
			return err
		}

		status, err := runShell(cmd, configuration, script)
		if err != nil {
			return err
		}
		if status != 0 {
			os.Exit(status)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
	rootCmd.Flags().StringVarP(&script, "command", "c", "", "run the given commands and exit")
}
