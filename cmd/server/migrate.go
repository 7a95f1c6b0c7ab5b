package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"clockgate/internal/platform/logger"
	"clockgate/internal/platform/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded SQL schema to the configured database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Storage.Driver != "postgres" {
			return errors.New("migrate requires storage.driver=postgres")
		}
		log := logger.New(cfg.Log.Level, cfg.Log.Format)
		ctx := cmd.Context()

		db, err := postgres.Open(ctx, cfg.Storage.Client, cfg.Storage.PostgresDSN, cfg.Storage.MaxOpenConn)
		if err != nil {
			return err
		}
		defer db.Close()

		applied, err := postgres.Migrate(ctx, db)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.InfoContext(ctx, "migrations applied", "count", len(applied), "files", applied)
		return nil
	},
}
