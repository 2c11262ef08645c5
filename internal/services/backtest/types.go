// Package backtest replays a labelled dataset through the evaluation API and
// scores the recommendations against known chargebacks.
package backtest

import (
	"context"
	"fmt"
	"time"

	"riskgate/internal/models"
)

// Evaluator is the call contract of the evaluation API.
type Evaluator interface {
	Evaluate(ctx context.Context, req *models.EvaluationRequest) (*models.EvaluationResult, error)
}

// Config sizes a run. Zero values select the defaults.
type Config struct {
	Workers       int
	BatchSize     int
	ProgressEvery int
}

const (
	DefaultWorkers       = 10
	DefaultBatchSize     = 100
	DefaultProgressEvery = 25
)

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = DefaultProgressEvery
	}
	return c
}

// Progress is a snapshot of a run in flight. It is telemetry only.
type Progress struct {
	Completed int
	Total     int
	Failed    int
}

// ProgressFunc receives progress snapshots from the aggregator goroutine.
type ProgressFunc func(Progress)

// Accuracy is the share of persisted rows whose recommendation matches the
// ground truth. It is undefined when nothing was persisted.
type Accuracy struct {
	Persisted int64
	Correct   int64
}

// Value returns the ratio, or ok=false when no rows were persisted.
func (a Accuracy) Value() (ratio float64, ok bool) {
	if a.Persisted == 0 {
		return 0, false
	}
	return float64(a.Correct) / float64(a.Persisted), true
}

// Defined reports whether at least one row was persisted.
func (a Accuracy) Defined() bool {
	return a.Persisted > 0
}

func (a Accuracy) String() string {
	v, ok := a.Value()
	if !ok {
		return "undefined"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// Report summarizes a finished run.
type Report struct {
	RunID         string
	Total         int
	Succeeded     int
	CallFailures  int
	Batches       int
	FlushFailures int
	Discarded     int
	Accuracy      Accuracy
	Duration      time.Duration
}
