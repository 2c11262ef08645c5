package repositories

import (
	"context"
	"fmt"

	"riskgate/internal/models"

	"gorm.io/gorm"
)

type resultsRepository struct {
	db *gorm.DB
}

// NewResultsRepository returns the postgres-backed append-only results store.
func NewResultsRepository(db *gorm.DB) ResultsRepository {
	return &resultsRepository{db: db}
}

func (r *resultsRepository) BulkInsert(ctx context.Context, records []*models.BatchResultRecord) error {
	if len(records) == 0 {
		return nil
	}
	// A slice Create is a single multi-row INSERT inside gorm's implicit transaction.
	if err := r.db.WithContext(ctx).Create(records).Error; err != nil {
		return fmt.Errorf("%w: bulk insert %d results: %w", ErrStore, len(records), err)
	}
	return nil
}

func (r *resultsRepository) SummarizeRun(ctx context.Context, runID string) (RunSummary, error) {
	summary := RunSummary{RunID: runID}
	row := r.db.WithContext(ctx).Model(&models.BatchResultRecord{}).
		Where("run_id = ?", runID).
		Select(`COUNT(*),
			COUNT(*) FILTER (WHERE recommendation = CASE WHEN has_cbk THEN ? ELSE ? END)`,
			string(models.RecommendationDeny), string(models.RecommendationApprove)).
		Row()
	if err := row.Scan(&summary.Total, &summary.Correct); err != nil {
		return RunSummary{}, fmt.Errorf("%w: summarize run %s: %w", ErrStore, runID, err)
	}
	return summary, nil
}

func (r *resultsRepository) Truncate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Exec("TRUNCATE TABLE transactions_api_results").Error; err != nil {
		return fmt.Errorf("%w: truncate results: %w", ErrStore, err)
	}
	return nil
}
