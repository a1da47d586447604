package cli

import (
	"os"
	"time"

	"github.com/kursadbilgin/workshop-checkin/internal/auth"
	"github.com/kursadbilgin/workshop-checkin/internal/domain"
	"github.com/spf13/cobra"
)

type tokenOptions struct {
	subject string
	role    string
	ttl     time.Duration
	secret  string
}

type tokenResult struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewTokenCommand issues a staff bearer token signed with JWT_SECRET.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a staff bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := opts.secret
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			signer, err := auth.NewJWT(secret)
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot sign token", err)
			}

			identity := domain.StaffIdentity{ID: opts.subject, Role: domain.Role(opts.role)}
			token, err := signer.Issue(identity, opts.ttl)
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot sign token", err)
			}

			return writeResult(cmd.OutOrStdout(), rootOpts.Format, tokenResult{
				Token:     token,
				Subject:   identity.ID,
				Role:      string(identity.Role),
				ExpiresAt: time.Now().Add(opts.ttl).UTC().Truncate(time.Second),
			}, token)
		},
	}

	cmd.Flags().StringVar(&opts.subject, "subject", "", "staff id placed in the sub claim")
	cmd.Flags().StringVar(&opts.role, "role", string(domain.RoleStaff), "staff role (staff|admin)")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 12*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&opts.secret, "secret", "", "signing secret (defaults to JWT_SECRET)")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
