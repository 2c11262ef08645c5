package backtest

import "errors"

var (
	// ErrCall marks an evaluation call that failed or returned an unusable
	// response. The transaction is dropped from the run.
	ErrCall = errors.New("evaluation call failed")
	// ErrAggregation marks a bulk flush that failed. The batch is discarded.
	ErrAggregation = errors.New("results flush failed")
)
