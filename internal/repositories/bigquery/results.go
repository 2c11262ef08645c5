// Package bigquery stores backtest results in a BigQuery table for analysis
// alongside other warehouse data.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"riskgate/internal/models"
	"riskgate/internal/repositories"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// ResultRow is the BigQuery shape of models.BatchResultRecord.
type ResultRow struct {
	RunID          string    `bigquery:"run_id"`
	TransactionID  int64     `bigquery:"transaction_id"`
	HasChargeback  bool      `bigquery:"has_cbk"`
	Recommendation string    `bigquery:"recommendation"`
	CreatedAt      time.Time `bigquery:"created_at"`
}

func newResultRow(rec *models.BatchResultRecord) *ResultRow {
	return &ResultRow{
		RunID:          rec.RunID,
		TransactionID:  rec.TransactionID,
		HasChargeback:  rec.HasChargeback,
		Recommendation: string(rec.Recommendation),
		CreatedAt:      rec.CreatedAt,
	}
}

// Results is a ResultsRepository backed by one BigQuery table.
type Results struct {
	client  *bigquery.Client
	dataset string
	table   string
}

func NewResults(client *bigquery.Client, dataset, table string) *Results {
	return &Results{client: client, dataset: dataset, table: table}
}

func (r *Results) tableRef() string {
	return fmt.Sprintf("`%s.%s.%s`", r.client.Project(), r.dataset, r.table)
}

// EnsureTable creates the results table from ResultRow when it does not exist.
func (r *Results) EnsureTable(ctx context.Context) error {
	t := r.client.Dataset(r.dataset).Table(r.table)
	_, err := t.Metadata(ctx)
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusNotFound {
		return fmt.Errorf("%w: table metadata: %w", repositories.ErrStore, err)
	}

	schema, err := bigquery.InferSchema(ResultRow{})
	if err != nil {
		return fmt.Errorf("infer schema: %w", err)
	}
	if err := t.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		return fmt.Errorf("%w: create table: %w", repositories.ErrStore, err)
	}
	return nil
}

// BulkInsert streams records in one insertAll request. BigQuery may accept
// part of a request; a PutMultiError is still reported as a failed flush.
func (r *Results) BulkInsert(ctx context.Context, records []*models.BatchResultRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]*ResultRow, len(records))
	for i, rec := range records {
		rows[i] = newResultRow(rec)
	}
	inserter := r.client.Dataset(r.dataset).Table(r.table).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("%w: insert results: %w", repositories.ErrStore, err)
	}
	return nil
}

func (r *Results) summarizeSQL() string {
	return fmt.Sprintf(`
		SELECT
			COUNT(*) AS total,
			COUNTIF(recommendation = IF(has_cbk, @deny, @approve)) AS correct
		FROM %s
		WHERE run_id = @run_id
	`, r.tableRef())
}

func (r *Results) SummarizeRun(ctx context.Context, runID string) (repositories.RunSummary, error) {
	q := r.client.Query(r.summarizeSQL())
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "deny", Value: string(models.RecommendationDeny)},
		{Name: "approve", Value: string(models.RecommendationApprove)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return repositories.RunSummary{}, fmt.Errorf("%w: summarize run: %w", repositories.ErrStore, err)
	}
	var row struct {
		Total   int64 `bigquery:"total"`
		Correct int64 `bigquery:"correct"`
	}
	err = it.Next(&row)
	if err != nil && err != iterator.Done {
		return repositories.RunSummary{}, fmt.Errorf("%w: read summary: %w", repositories.ErrStore, err)
	}
	return repositories.RunSummary{RunID: runID, Total: row.Total, Correct: row.Correct}, nil
}

func (r *Results) Truncate(ctx context.Context) error {
	job, err := r.client.Query("TRUNCATE TABLE " + r.tableRef()).Run(ctx)
	if err != nil {
		return fmt.Errorf("%w: truncate: %w", repositories.ErrStore, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%w: truncate wait: %w", repositories.ErrStore, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%w: truncate job: %w", repositories.ErrStore, err)
	}
	return nil
}

var _ repositories.ResultsRepository = (*Results)(nil)
