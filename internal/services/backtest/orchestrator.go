package backtest

import (
	"context"
	"fmt"
	"time"

	"riskgate/internal/dataset"
	"riskgate/internal/models"
	"riskgate/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Orchestrator drives a dataset through an Evaluator with a bounded worker
// pool and appends the outcomes to a ResultsRepository in batches.
type Orchestrator struct {
	eval     Evaluator
	results  repositories.ResultsRepository
	cfg      Config
	log      zerolog.Logger
	progress ProgressFunc
	now      func() time.Time
}

type Option func(*Orchestrator)

// WithProgress registers fn to receive progress snapshots.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

func New(eval Evaluator, results repositories.ResultsRepository, cfg Config, log zerolog.Logger, opts ...Option) *Orchestrator {
	if eval == nil || results == nil {
		panic("evaluator and results repository are required")
	}
	o := &Orchestrator{
		eval:    eval,
		results: results,
		cfg:     cfg.withDefaults(),
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type outcome struct {
	transactionID int64
	record        *models.BatchResultRecord
	err           error
}

// Run evaluates every row and returns the run report. Call and flush failures
// are logged and counted, never returned. An error is returned only when ctx
// is cancelled; whatever completed before cancellation is still flushed.
func (o *Orchestrator) Run(ctx context.Context, rows []dataset.Row) (*Report, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := o.log.With().Str("run_id", runID).Logger()
	log.Info().
		Int("transactions", len(rows)).
		Int("workers", o.cfg.Workers).
		Int("batch_size", o.cfg.BatchSize).
		Msg("backtest started")

	outcomes := make(chan outcome, o.cfg.Workers)

	go func() {
		defer close(outcomes)
		var g errgroup.Group
		g.SetLimit(o.cfg.Workers)
		for i := range rows {
			if ctx.Err() != nil {
				break
			}
			row := &rows[i]
			g.Go(func() error {
				outcomes <- o.call(ctx, runID, row)
				return nil
			})
		}
		_ = g.Wait()
	}()

	report := o.aggregate(ctx, log, runID, len(rows), outcomes)
	report.Duration = time.Since(start)

	log.Info().
		Int("succeeded", report.Succeeded).
		Int("call_failures", report.CallFailures).
		Int("flush_failures", report.FlushFailures).
		Int64("persisted", report.Accuracy.Persisted).
		Stringer("accuracy", report.Accuracy).
		Dur("duration", report.Duration).
		Msg("backtest finished")

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (o *Orchestrator) call(ctx context.Context, runID string, row *dataset.Row) outcome {
	id := row.Transaction.TransactionID
	res, err := o.eval.Evaluate(ctx, models.NewEvaluationRequest(&row.Transaction))
	if err != nil {
		return outcome{transactionID: id, err: fmt.Errorf("%w: transaction %d: %w", ErrCall, id, err)}
	}
	if res == nil || !res.Recommendation.Valid() {
		return outcome{transactionID: id, err: fmt.Errorf("%w: transaction %d: unusable response", ErrCall, id)}
	}
	return outcome{
		transactionID: id,
		record: &models.BatchResultRecord{
			RunID:          runID,
			TransactionID:  id,
			HasChargeback:  row.HasChargeback,
			Recommendation: res.Recommendation,
			CreatedAt:      o.now(),
		},
	}
}

// aggregate is the only owner of the buffer. It flushes whenever the buffer
// reaches BatchSize and once more for the remainder after outcomes closes.
func (o *Orchestrator) aggregate(ctx context.Context, log zerolog.Logger, runID string, total int, outcomes <-chan outcome) *Report {
	report := &Report{RunID: runID, Total: total}
	buf := make([]*models.BatchResultRecord, 0, o.cfg.BatchSize)
	completed := 0
	flushCtx := context.WithoutCancel(ctx)

	flush := func() {
		if len(buf) == 0 {
			return
		}
		n := len(buf)
		report.Batches++
		if err := o.results.BulkInsert(flushCtx, buf); err != nil {
			report.FlushFailures++
			report.Discarded += n
			log.Error().Err(fmt.Errorf("%w: %d records: %w", ErrAggregation, n, err)).Msg("discarding batch")
		} else {
			for _, rec := range buf {
				report.Accuracy.Persisted++
				if rec.Correct() {
					report.Accuracy.Correct++
				}
			}
			log.Debug().Int("records", n).Msg("batch flushed")
		}
		buf = make([]*models.BatchResultRecord, 0, o.cfg.BatchSize)
	}

	for out := range outcomes {
		completed++
		if out.err != nil {
			report.CallFailures++
			log.Warn().Err(out.err).Int64("transaction_id", out.transactionID).Msg("dropping transaction")
		} else {
			report.Succeeded++
			buf = append(buf, out.record)
			if len(buf) >= o.cfg.BatchSize {
				flush()
			}
		}

		if completed%o.cfg.ProgressEvery == 0 || completed == total {
			log.Info().Int("completed", completed).Int("total", total).Msg("backtest progress")
			if o.progress != nil {
				o.progress(Progress{Completed: completed, Total: total, Failed: report.CallFailures})
			}
		}
	}

	flush()
	return report
}
