package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/choksense/gosi-watcher/internal/app"
	"github.com/choksense/gosi-watcher/internal/server"
)

// newWatchCmd sweeps the board repeatedly until interrupted. When a
// server address is configured, health and metrics endpoints are
// served alongside.
func newWatchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scan the board on an interval until interrupted.",
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

			if cfg.Server.Addr != "" {
				srv := server.New(cfg.Server.Addr, logger)
				go func() {
					if err := srv.Start(); err != nil {
						logger.Error("http server failed", zap.Error(err))
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
			}

			logger.Info("watching", zap.Duration("interval", interval))
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				summary, err := a.Pipeline.Run(ctx)
				if err != nil {
					if ctx.Err() != nil {
						logger.Info("watch interrupted")
						return nil
					}
					// A failed sweep is logged and retried on the next tick.
					logger.Error("sweep failed", zap.Error(err))
				} else {
					logger.Info("sweep finished",
						zap.String("run_id", summary.RunID),
						zap.Int("discovered", summary.Discovered),
						zap.Int("delivered", summary.Delivered),
						zap.Int("skipped", summary.Skipped),
						zap.Int("failed", summary.Failed))
				}

				select {
				case <-ctx.Done():
					logger.Info("watch interrupted")
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 30*time.Minute, "time between sweeps")
	return cmd
}
