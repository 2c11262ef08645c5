package memory

import (
	"context"
	"sync"

	"riskgate/internal/models"
	"riskgate/internal/repositories"
)

// Results is an in-memory append-only ResultsRepository.
type Results struct {
	mu      sync.Mutex
	records []*models.BatchResultRecord
}

// NewResults creates an empty results store.
func NewResults() *Results {
	return &Results{}
}

func (r *Results) BulkInsert(ctx context.Context, records []*models.BatchResultRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		cp := *rec
		r.records = append(r.records, &cp)
	}
	return nil
}

func (r *Results) SummarizeRun(ctx context.Context, runID string) (repositories.RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := repositories.RunSummary{RunID: runID}
	for _, rec := range r.records {
		if rec.RunID != runID {
			continue
		}
		summary.Total++
		if rec.Correct() {
			summary.Correct++
		}
	}
	return summary, nil
}

func (r *Results) Truncate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
	return nil
}

// Records returns a copy of everything stored so far.
func (r *Results) Records() []*models.BatchResultRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.BatchResultRecord, len(r.records))
	copy(out, r.records)
	return out
}
