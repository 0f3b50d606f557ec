package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	postgresstor "vigil-go/internal/store/postgres"
)

var errMemoryMode = errors.New("storage.mode is 'memory'; nothing to migrate")

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the PostgreSQL tables and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.migrate(cmd.Context())
		},
	}
}

func (a *app) migrate(ctx context.Context) error {
	if a.cfg.Storage.UseMemory() {
		a.logger.Warn("skipping migrations", "error", errMemoryMode)
		return errMemoryMode
	}

	db, err := postgresstor.NewDB(ctx, &a.cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		return err
	}

	a.logger.Info("database migrations completed")
	return nil
}
