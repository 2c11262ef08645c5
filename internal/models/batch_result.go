package models

import "time"

// BatchResultRecord is one backtest outcome. Rows are appended, never upserted,
// so re-running a dataset without truncating first produces duplicates.
type BatchResultRecord struct {
	ID             uint           `gorm:"primarykey" json:"-"`
	RunID          string         `gorm:"type:varchar(36);index;not null" json:"run_id"`
	TransactionID  int64          `gorm:"not null;index" json:"transaction_id"`
	HasChargeback  bool           `gorm:"column:has_cbk;not null" json:"has_chargeback"`
	Recommendation Recommendation `gorm:"type:varchar(16);not null" json:"recommendation"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
}

func (BatchResultRecord) TableName() string {
	return "transactions_api_results"
}

// Expected is the recommendation a perfect scorer would have produced given
// the ground-truth chargeback label.
func (r *BatchResultRecord) Expected() Recommendation {
	if r.HasChargeback {
		return RecommendationDeny
	}
	return RecommendationApprove
}

// Correct reports whether the predicted recommendation matches Expected.
func (r *BatchResultRecord) Correct() bool {
	return r.Recommendation == r.Expected()
}
