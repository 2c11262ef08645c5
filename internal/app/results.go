package app

import (
	"context"
	"fmt"

	"riskgate/internal/config"
	"riskgate/internal/repositories"
	bq "riskgate/internal/repositories/bigquery"

	"cloud.google.com/go/bigquery"
)

const (
	SinkPostgres = "postgres"
	SinkBigQuery = "bigquery"
)

// OpenResults selects the backtest results sink. The returned close func is
// never nil.
func OpenResults(ctx context.Context, cfg config.Config, s *Stores) (repositories.ResultsRepository, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backtest.ResultsSink {
	case SinkPostgres, "":
		return s.Results, noop, nil
	case SinkBigQuery:
		if cfg.BigQuery.Project == "" {
			return nil, noop, fmt.Errorf("BIGQUERY_PROJECT is required for the bigquery sink")
		}
		client, err := bigquery.NewClient(ctx, cfg.BigQuery.Project)
		if err != nil {
			return nil, noop, fmt.Errorf("bigquery client: %w", err)
		}
		results := bq.NewResults(client, cfg.BigQuery.Dataset, cfg.BigQuery.Table)
		if err := results.EnsureTable(ctx); err != nil {
			client.Close()
			return nil, noop, err
		}
		return results, client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown results sink %q", cfg.Backtest.ResultsSink)
	}
}
