package cli

import (
	"github.com/kursadbilgin/workshop-checkin/internal/phone"
	"github.com/spf13/cobra"
)

type normalizeResult struct {
	Input     string `json:"input"`
	Recipient string `json:"recipient"`
}

// NewNormalizeCommand prints the messaging recipient a contact string maps to.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	var countryCode string

	cmd := &cobra.Command{
		Use:   "normalize <contact>",
		Short: "Show the messaging recipient for a contact number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipient := phone.Normalize(args[0], countryCode)
			return writeResult(cmd.OutOrStdout(), rootOpts.Format, normalizeResult{
				Input:     args[0],
				Recipient: recipient,
			}, recipient)
		},
	}

	cmd.Flags().StringVar(&countryCode, "country-code", "91", "prefix for 10-digit local numbers")

	return cmd
}
