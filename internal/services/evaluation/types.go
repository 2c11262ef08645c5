package evaluation

import (
	"riskgate/internal/models"

	"github.com/shopspring/decimal"
)

// Decision is the engine's full verdict for one transaction.
type Decision struct {
	TransactionID  int64
	Recommendation models.Recommendation
	RuleApplied    models.Rule
	HasChargeback  bool
}

// Result trims the decision to what callers of the evaluation API receive.
func (d *Decision) Result() models.EvaluationResult {
	return models.EvaluationResult{
		TransactionID:  d.TransactionID,
		Recommendation: d.Recommendation,
	}
}

// Thresholds parameterize the built-in rules.
type Thresholds struct {
	// HighValueAmount is the strict lower bound for high_value_night.
	HighValueAmount decimal.Decimal
	// NightStartHour and NightEndHour bound the night window [start,24) ∪ [0,end).
	NightStartHour int
	NightEndHour   int
	// FrequencyCount and FrequencySum are strict lower bounds for frequency_value.
	FrequencyCount int64
	FrequencySum   decimal.Decimal
}

// DefaultThresholds returns the production rule parameters.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighValueAmount: decimal.NewFromInt(1800),
		NightStartHour:  20,
		NightEndHour:    4,
		FrequencyCount:  3,
		FrequencySum:    decimal.NewFromInt(2500),
	}
}
