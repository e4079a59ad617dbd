package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/choksense/gosi-watcher/internal/app"
)

// newRunCmd performs a single sweep and exits. An empty board is a
// successful run; only startup problems produce a non-zero exit.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Scan the board once and deliver anything new.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := cfg.ValidateCredentials(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			defer a.Close()

			summary, err := a.Pipeline.Run(ctx)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			logger.Info("sweep finished",
				zap.String("run_id", summary.RunID),
				zap.Int("discovered", summary.Discovered),
				zap.Int("delivered", summary.Delivered),
				zap.Int("skipped", summary.Skipped),
				zap.Int("failed", summary.Failed))
			return nil
		},
	}
}
