package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/workshop-checkin/internal/infra/postgresql"
	"github.com/kursadbilgin/workshop-checkin/internal/infra/postgresql/migrations"
	"github.com/kursadbilgin/workshop-checkin/internal/repository"
	"github.com/spf13/cobra"
)

const connectTimeout = 30 * time.Second

type migrateResult struct {
	AuditSchema string `json:"auditSchema"`
}

// NewMigrateCommand applies pending migrations and reports which audit log
// layout the service will write to.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.LoadConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot load config", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), connectTimeout)
			defer cancel()

			db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN, postgresql.PoolConfig{
				MaxOpenConns: cfg.DBMaxOpenConns,
				MaxIdleConns: cfg.DBMaxIdleConns,
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot connect to postgres", err)
			}
			defer postgresql.Close(db) //nolint:errcheck

			if err := migrations.Migrate(db); err != nil {
				return WrapExitError(ExitFailure, "migration failed", err)
			}

			schema := repository.ProbeAuditSchema(db)
			return writeResult(cmd.OutOrStdout(), rootOpts.Format, migrateResult{
				AuditSchema: string(schema),
			}, fmt.Sprintf("migrations applied, audit log schema: %s", schema))
		},
	}
}
