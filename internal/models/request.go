package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// transaction_amount travels as a JSON number, not a quoted string.
	decimal.MarshalJSONWithoutQuotes = true
}

// TimestampLayout is used when a Transaction is serialized back into a request.
const TimestampLayout = "2006-01-02T15:04:05.999999"

// EvaluationRequest is the wire payload of the evaluation call.
type EvaluationRequest struct {
	TransactionID     int64           `json:"transaction_id"`
	UserID            int64           `json:"user_id"`
	MerchantID        int64           `json:"merchant_id"`
	CardNumber        string          `json:"card_number"`
	TransactionDate   string          `json:"transaction_date"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	DeviceID          *int64          `json:"device_id"`
}

// NewEvaluationRequest renders tx as a wire payload. Zone information is kept
// only when the timestamp is not UTC.
func NewEvaluationRequest(tx *Transaction) *EvaluationRequest {
	date := tx.TransactionDate.Format(TimestampLayout)
	if tx.TransactionDate.Location() != time.UTC {
		date = tx.TransactionDate.Format(time.RFC3339Nano)
	}
	return &EvaluationRequest{
		TransactionID:     tx.TransactionID,
		UserID:            tx.UserID,
		MerchantID:        tx.MerchantID,
		CardNumber:        tx.CardNumber,
		TransactionDate:   date,
		TransactionAmount: tx.TransactionAmount,
		DeviceID:          tx.DeviceID,
	}
}
