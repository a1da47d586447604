// Package cli implements workshopctl, the operator command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/kursadbilgin/workshop-checkin/internal/config"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string

	// LoadConfig is swapped in tests.
	LoadConfig func() (*config.Config, error)
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{LoadConfig: config.Load})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workshopctl",
		Short: "Operator tools for the workshop check-in service",
		Long: `Operator tools for the workshop check-in service.

Issues staff bearer tokens, applies database migrations, runs a one-shot
retry sweep and previews how contacts are normalized for messaging.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewNormalizeCommand(opts))

	return cmd
}
