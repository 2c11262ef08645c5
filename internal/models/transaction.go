package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recommendation is the verdict the rule engine returns for a transaction.
type Recommendation string

const (
	RecommendationApprove Recommendation = "approve"
	RecommendationDeny    Recommendation = "deny"
)

// Rule identifies which rule produced a verdict.
type Rule string

const (
	RuleHistoricalChargeback Rule = "historical_chargeback"
	RuleHighValueNight       Rule = "high_value_night"
	RuleFrequencyValue       Rule = "frequency_value"
	RuleDefault              Rule = "default"
)

// Valid reports whether r is one of the known recommendations.
func (r Recommendation) Valid() bool {
	return r == RecommendationApprove || r == RecommendationDeny
}

// Transaction is an externally sourced payment record. It is never mutated here.
type Transaction struct {
	TransactionID     int64
	UserID            int64
	MerchantID        int64
	CardNumber        string
	TransactionAmount decimal.Decimal
	TransactionDate   time.Time
	DeviceID          *int64
}

// HasDevice reports whether the transaction carries a device id.
func (t *Transaction) HasDevice() bool {
	return t.DeviceID != nil
}

// TransactionLogEntry is the single stored outcome for a transaction id.
//
// HasChargeback carries the chargeback signal as last written: it is true when
// the historical_chargeback rule found a flagged related transaction, or when a
// confirmed chargeback was recorded against this transaction afterwards. The
// two sources share the column.
type TransactionLogEntry struct {
	TransactionID     int64           `gorm:"primaryKey;autoIncrement:false" json:"transaction_id"`
	UserID            int64           `gorm:"not null;index" json:"user_id"`
	MerchantID        int64           `gorm:"not null;index" json:"merchant_id"`
	CardNumber        string          `gorm:"not null;index" json:"card_number"`
	TransactionDate   time.Time       `gorm:"not null;index:idx_log_device_date,priority:2" json:"transaction_date"`
	TransactionAmount decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"transaction_amount"`
	DeviceID          *int64          `gorm:"index:idx_log_device_date,priority:1" json:"device_id"`
	Recommendation    Recommendation  `gorm:"type:varchar(16);not null" json:"recommendation"`
	RuleApplied       Rule            `gorm:"type:varchar(32);not null" json:"rule_applied"`
	HasChargeback     bool            `gorm:"not null;default:false" json:"has_chargeback"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (TransactionLogEntry) TableName() string {
	return "transactions_log"
}

// NewLogEntry builds the log row for tx with the given outcome.
func NewLogEntry(tx *Transaction, rec Recommendation, rule Rule, hasChargeback bool) *TransactionLogEntry {
	return &TransactionLogEntry{
		TransactionID:     tx.TransactionID,
		UserID:            tx.UserID,
		MerchantID:        tx.MerchantID,
		CardNumber:        tx.CardNumber,
		TransactionDate:   tx.TransactionDate,
		TransactionAmount: tx.TransactionAmount,
		DeviceID:          tx.DeviceID,
		Recommendation:    rec,
		RuleApplied:       rule,
		HasChargeback:     hasChargeback,
	}
}

// EvaluationResult is what callers of the engine get back.
type EvaluationResult struct {
	TransactionID  int64          `json:"transaction_id"`
	Recommendation Recommendation `json:"recommendation"`
}
