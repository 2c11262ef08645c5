package main

import (
	"fmt"

	"riskgate/internal/app"
	"riskgate/internal/services/backtest"

	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <run-id>",
		Short: "Recompute accuracy for a stored backtest run",
		Args:  cobra.ExactArgs(1),
		RunE:  runReport,
	}
	cmd.Flags().String("sink", app.SinkPostgres, "results sink (postgres, bigquery)")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := bindFlags(cmd, map[string]string{"backtest.sink": "sink"}); err != nil {
		return err
	}
	cfg := loadConfig()

	var stores *app.Stores
	if cfg.Backtest.ResultsSink != app.SinkBigQuery {
		var err error
		if stores, err = app.OpenStores(cfg, log); err != nil {
			return err
		}
		defer func() { _ = stores.Close() }()
	}

	results, closeResults, err := app.OpenResults(ctx, cfg, stores)
	if err != nil {
		return err
	}
	defer func() { _ = closeResults() }()

	summary, err := results.SummarizeRun(ctx, args[0])
	if err != nil {
		return err
	}
	acc := backtest.Accuracy{Persisted: summary.Total, Correct: summary.Correct}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %d persisted, %d correct\n", summary.RunID, summary.Total, summary.Correct)
	fmt.Fprintf(out, "Accuracy: %s\n", acc)
	return nil
}
