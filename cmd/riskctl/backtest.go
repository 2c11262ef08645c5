package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"riskgate/internal/app"
	"riskgate/internal/client"
	"riskgate/internal/config"
	"riskgate/internal/dataset"
	"riskgate/internal/repositories"
	"riskgate/internal/repositories/memory"
	"riskgate/internal/services/backtest"
	"riskgate/internal/services/evaluation"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func backtestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay labelled transactions and measure recommendation accuracy",
		Long: `Send every transaction of a labelled dataset through the evaluation
engine, append each recommendation to the results store and report the
share of recommendations that match the known chargeback outcome.

Results are appended. Use --truncate to clear the results store first.`,
		RunE: runBacktest,
	}

	cmd.Flags().Int("workers", backtest.DefaultWorkers, "concurrent evaluation calls")
	cmd.Flags().Int("batch-size", backtest.DefaultBatchSize, "results per bulk write")
	cmd.Flags().Int("progress-every", backtest.DefaultProgressEvery, "log progress every N completions")
	cmd.Flags().String("sink", app.SinkPostgres, "results sink (postgres, bigquery, memory)")
	cmd.Flags().String("evaluator-url", "", "evaluation endpoint (default: EVALUATOR_URL)")
	cmd.Flags().String("source", "postgres", "dataset source (postgres, csv)")
	cmd.Flags().String("path", "", "CSV path or gs://bucket/object for --source csv")
	cmd.Flags().String("table", "transactions", "dataset table for --source postgres")
	cmd.Flags().Bool("local", false, "evaluate in-process instead of calling the API")
	cmd.Flags().String("store", "postgres", "transaction log for --local (postgres, memory)")
	cmd.Flags().Bool("truncate", false, "clear the results store before the run")
	cmd.Flags().Bool("no-progress", false, "disable the progress bar")

	return cmd
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := bindFlags(cmd, map[string]string{
		"backtest.workers":        "workers",
		"backtest.batch_size":     "batch-size",
		"backtest.progress_every": "progress-every",
		"backtest.sink":           "sink",
		"evaluator.url":           "evaluator-url",
	}); err != nil {
		return err
	}
	cfg := loadConfig()

	source, _ := cmd.Flags().GetString("source")
	path, _ := cmd.Flags().GetString("path")
	table, _ := cmd.Flags().GetString("table")
	local, _ := cmd.Flags().GetBool("local")
	storeKind, _ := cmd.Flags().GetString("store")
	truncate, _ := cmd.Flags().GetBool("truncate")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	needDB := source == "postgres" ||
		cfg.Backtest.ResultsSink == app.SinkPostgres ||
		(local && storeKind == "postgres")

	var stores *app.Stores
	if needDB {
		var err error
		stores, err = app.OpenStores(cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = stores.Close() }()
	}

	rows, err := loadDataset(ctx, cfg, source, path, table)
	if err != nil {
		return err
	}
	log.Info().Int("rows", len(rows)).Str("source", source).Msg("dataset loaded")

	results, closeResults, err := openSink(ctx, cfg, stores)
	if err != nil {
		return err
	}
	defer func() { _ = closeResults() }()

	if truncate {
		if err := results.Truncate(ctx); err != nil {
			return fmt.Errorf("truncate results: %w", err)
		}
		log.Info().Str("sink", cfg.Backtest.ResultsSink).Msg("results store cleared")
	}

	eval, err := newEvaluator(cfg, local, storeKind, stores)
	if err != nil {
		return err
	}

	opts := []backtest.Option{}
	if !noProgress {
		bar := progressbar.NewOptions(len(rows),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Evaluating transactions..."),
		)
		defer func() { _ = bar.Finish() }()
		opts = append(opts, backtest.WithProgress(func(p backtest.Progress) {
			_ = bar.Set(p.Completed)
		}))
	}

	orchestrator := backtest.New(eval, results, backtest.Config{
		Workers:       cfg.Backtest.Workers,
		BatchSize:     cfg.Backtest.BatchSize,
		ProgressEvery: cfg.Backtest.ProgressEvery,
	}, log, opts...)

	report, err := orchestrator.Run(ctx, rows)
	if report != nil {
		printReport(cmd, report)
	}
	return err
}

func loadDataset(ctx context.Context, cfg config.Config, source, path, table string) ([]dataset.Row, error) {
	switch source {
	case "postgres":
		db, err := dataset.OpenPostgres(cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return dataset.NewPostgresSource(db, table).Load(ctx)
	case "csv":
		if path == "" {
			return nil, fmt.Errorf("--path is required for --source csv")
		}
		return dataset.NewCSVSource(path).Load(ctx)
	default:
		return nil, fmt.Errorf("unknown dataset source %q", source)
	}
}

func openSink(ctx context.Context, cfg config.Config, stores *app.Stores) (repositories.ResultsRepository, func() error, error) {
	if cfg.Backtest.ResultsSink == "memory" {
		return memory.NewResults(), func() error { return nil }, nil
	}
	return app.OpenResults(ctx, cfg, stores)
}

func newEvaluator(cfg config.Config, local bool, storeKind string, stores *app.Stores) (backtest.Evaluator, error) {
	if !local {
		return newHTTPEvaluator(cfg, 12*time.Hour)
	}

	var repo repositories.TransactionLogRepository
	switch storeKind {
	case "memory":
		repo = memory.NewTransactionLog()
	case "postgres":
		repo = stores.TransactionLog
	default:
		return nil, fmt.Errorf("unknown store %q", storeKind)
	}
	return client.NewLocalEvaluator(evaluation.NewService(repo, nil, log)), nil
}

func printReport(cmd *cobra.Command, r *backtest.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nRun %s\n", r.RunID)
	fmt.Fprintf(out, "  transactions:    %d\n", r.Total)
	fmt.Fprintf(out, "  evaluated:       %d\n", r.Succeeded)
	fmt.Fprintf(out, "  call failures:   %d\n", r.CallFailures)
	fmt.Fprintf(out, "  batches:         %d (%d failed, %d results discarded)\n", r.Batches, r.FlushFailures, r.Discarded)
	fmt.Fprintf(out, "  persisted:       %d\n", r.Accuracy.Persisted)
	fmt.Fprintf(out, "  duration:        %s\n", r.Duration.Round(time.Millisecond))
	if r.Accuracy.Defined() {
		fmt.Fprintf(out, "Accuracy: %s\n", r.Accuracy)
	} else {
		fmt.Fprintln(out, "Accuracy: undefined (no results were persisted)")
	}
}
