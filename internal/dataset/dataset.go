// Package dataset loads labelled historical transactions for backtesting.
package dataset

import (
	"context"
	"errors"

	"riskgate/internal/models"
)

var (
	// ErrSource marks a dataset that could not be opened or read.
	ErrSource = errors.New("dataset source error")
	// ErrMalformedRow marks a row whose fields cannot be converted.
	ErrMalformedRow = errors.New("malformed dataset row")
)

// Row is one historical transaction and its ground-truth chargeback label.
type Row struct {
	Transaction   models.Transaction
	HasChargeback bool
}

// Source yields the full dataset for a backtest run.
type Source interface {
	Load(ctx context.Context) ([]Row, error)
}

// Columns lists the fields every source provides, in query order.
var Columns = []string{
	"transaction_id",
	"merchant_id",
	"user_id",
	"card_number",
	"transaction_date",
	"transaction_amount",
	"device_id",
	"has_cbk",
}
