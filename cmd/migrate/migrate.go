// Package migrate implements the migrate command.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/reader/cmd/common"
	"github.com/jonesrussell/north-cloud/reader/internal/config"
	"github.com/jonesrussell/north-cloud/reader/internal/logger"
	"github.com/jonesrussell/north-cloud/reader/internal/storage/postgres"
)

// Command returns the migrate command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the PostgreSQL schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return err
			}

			if deps.Config.Storage.Driver != config.DriverPostgres {
				fmt.Fprintln(cmd.OutOrStdout(), "Storage driver is memory; nothing to migrate")
				return nil
			}

			store, err := postgres.Open(cmd.Context(), deps.Config.Database.DSN())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() { _ = store.Close() }()

			if migrateErr := store.Migrate(cmd.Context()); migrateErr != nil {
				return migrateErr
			}

			deps.Logger.Info("schema applied",
				logger.String("host", deps.Config.Database.Host),
				logger.String("database", deps.Config.Database.DBName),
			)
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}
