package evaluation

import "errors"

// Service errors
var (
	// ErrValidation marks a malformed payload or an unparseable transaction_date.
	ErrValidation = errors.New("invalid transaction")
	// ErrEvaluationFailed marks any store failure during an evaluation. Nothing
	// from the failed evaluation is left in the log.
	ErrEvaluationFailed = errors.New("transaction evaluation failed")
	// ErrTransactionNotFound is returned for lookups of ids never evaluated.
	ErrTransactionNotFound = errors.New("transaction not found")
)
