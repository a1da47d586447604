package cli

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/workshop-checkin/internal/app"
	"github.com/kursadbilgin/workshop-checkin/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSweepCommand runs one retry sweep against the configured providers and
// exits. A zero limit uses RETRY_SWEEP_LIMIT.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Resend to attendees with incomplete delivery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return WrapExitError(ExitCommandError, "invalid limit", fmt.Errorf("limit must be >= 0, got %d", limit))
			}

			cfg, err := rootOpts.LoadConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot load config", err)
			}
			logger, err := observability.NewLogger(cfg.LogLevel)
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot initialize logger", err)
			}
			defer logger.Sync() //nolint:errcheck

			startCtx, cancel := context.WithTimeout(cmd.Context(), connectTimeout)
			defer cancel()

			rt, err := app.Build(startCtx, cfg, logger)
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot start runtime", err)
			}
			defer func() {
				if err := rt.Close(); err != nil {
					logger.Warn("runtime close failed", zap.Error(err))
				}
			}()

			result, err := rt.Sweeper.ResendPending(cmd.Context(), limit)
			if err != nil {
				return WrapExitError(ExitFailure, "sweep failed", err)
			}

			return writeResult(cmd.OutOrStdout(), rootOpts.Format, result,
				fmt.Sprintf("attempted=%d succeeded=%d failed=%d", result.Attempted, result.Succeeded, result.Failed))
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum attendees to retry (0 uses RETRY_SWEEP_LIMIT)")

	return cmd
}
