// Package cmd wires the CLI surface of the watcher.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/choksense/gosi-watcher/internal/config"
	"github.com/choksense/gosi-watcher/internal/logging"
	"github.com/choksense/gosi-watcher/internal/metrics"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gosiwatch",
		Short: "Watches the Busan notice board for redevelopment announcements.",
		Long: `gosiwatch scans the Busan metropolitan notice board for new
redevelopment and reconstruction announcements, extracts the key facts
from the attached PDF, and delivers a summary with page images to a
KakaoTalk channel. Delivered announcements are remembered so each one
is sent exactly once.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/gosiwatch, $HOME/.gosiwatch)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

// loadEnvironment builds the config and logger shared by subcommands.
func loadEnvironment() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
