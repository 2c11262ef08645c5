package repositories

import (
	"context"
	"time"

	"riskgate/internal/models"

	"github.com/shopspring/decimal"
)

// DeviceWindow is the trailing interval used for device frequency aggregation.
const DeviceWindow = time.Hour

// HistoryQuery selects log rows related to a transaction by any shared identifier.
type HistoryQuery struct {
	UserID     int64
	MerchantID int64
	CardNumber string
}

// WindowQuery selects log rows for one device in [End-DeviceWindow, End].
// ExcludeID keeps the transaction being evaluated out of its own window when
// it is re-evaluated.
type WindowQuery struct {
	DeviceID  int64
	End       time.Time
	ExcludeID int64
}

// Start is the inclusive lower bound of the window.
func (q WindowQuery) Start() time.Time {
	return q.End.Add(-DeviceWindow)
}

// DeviceStats aggregates the rows matched by a WindowQuery.
type DeviceStats struct {
	Count int64
	Sum   decimal.Decimal
}

// TransactionLogRepository is the durable keyed store of past evaluation outcomes.
type TransactionLogRepository interface {
	// FindChargebackHistory reports whether any row shares the user, merchant
	// or card of q and has has_chargeback set. No match is (false, nil).
	FindChargebackHistory(ctx context.Context, q HistoryQuery) (bool, error)
	// WindowedDeviceStats returns count and amount sum for the device window;
	// zero stats when nothing matches.
	WindowedDeviceStats(ctx context.Context, q WindowQuery) (DeviceStats, error)
	// Upsert writes entry keyed by transaction id. On conflict only the
	// outcome columns are overwritten; last write wins.
	Upsert(ctx context.Context, entry *models.TransactionLogEntry) error
	// GetByTransactionID returns ErrNotFound when the id was never logged.
	GetByTransactionID(ctx context.Context, id int64) (*models.TransactionLogEntry, error)
	// MarkChargeback sets has_chargeback on an existing row.
	MarkChargeback(ctx context.Context, id int64) error
	// ExecuteInTransaction runs fn against a repository bound to one store
	// transaction. Writes made by fn are discarded if fn returns an error.
	ExecuteInTransaction(ctx context.Context, fn func(repo TransactionLogRepository) error) error
}

// RunSummary aggregates persisted results for one backtest run.
type RunSummary struct {
	RunID   string
	Total   int64
	Correct int64
}

// ResultsRepository is the append-only store of backtest outcomes.
type ResultsRepository interface {
	// BulkInsert appends all records in one write; either every record is
	// stored or none is.
	BulkInsert(ctx context.Context, records []*models.BatchResultRecord) error
	// SummarizeRun counts persisted and correctly predicted rows for runID.
	SummarizeRun(ctx context.Context, runID string) (RunSummary, error)
	// Truncate removes every stored result.
	Truncate(ctx context.Context) error
}
