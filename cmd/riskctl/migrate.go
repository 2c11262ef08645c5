package main

import (
	"fmt"

	"riskgate/internal/app"
	"riskgate/internal/repositories"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the transaction log and results tables",
		RunE:  runMigrate,
	}
	cmd.Flags().Bool("bigquery", false, "also create the BigQuery results table")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := loadConfig()

	stores, err := app.OpenStores(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = stores.Close() }()

	log.Info().Str("database", cfg.Database.Name).Msg("running database migrations")
	if err := repositories.Migrate(stores.DB.WithContext(ctx)); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if withBQ, _ := cmd.Flags().GetBool("bigquery"); withBQ {
		cfg.Backtest.ResultsSink = app.SinkBigQuery
		_, closeResults, err := app.OpenResults(ctx, cfg, stores)
		if err != nil {
			return err
		}
		_ = closeResults()
		log.Info().Str("table", cfg.BigQuery.Dataset+"."+cfg.BigQuery.Table).Msg("bigquery results table ready")
	}

	log.Info().Msg("database migrations completed")
	return nil
}
