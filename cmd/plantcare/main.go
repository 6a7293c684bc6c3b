package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"plant-care/internal/config"
	"plant-care/internal/logger"
)

var version = "dev"

// cfg is loaded once before any subcommand runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "plantcare",
	Short:         "Plant care scheduling and reminders",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg = loaded
		return logger.Init(logger.Config{Level: cfg.LogLevel, Dir: cfg.LogDir})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, triggerCmd, reconcileCmd, plantCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
