package evaluation

import (
	"context"

	"riskgate/internal/models"
	"riskgate/internal/repositories"
)

// RuleContext is what a rule predicate sees: the transaction and a log
// repository bound to the evaluation's store transaction.
type RuleContext struct {
	Tx   *models.Transaction
	Repo repositories.TransactionLogRepository
}

// Rule is one link of the evaluation chain. A matching rule denies the
// transaction; Chargeback additionally marks the outcome as chargeback-related.
type Rule struct {
	Name       models.Rule
	Chargeback bool
	Match      func(ctx context.Context, rc *RuleContext) (bool, error)
}

// NewRules returns the built-in chain in priority order.
func NewRules(th Thresholds) []Rule {
	return []Rule{
		{
			Name:       models.RuleHistoricalChargeback,
			Chargeback: true,
			Match:      historicalChargeback,
		},
		{
			Name:  models.RuleHighValueNight,
			Match: highValueNight(th),
		},
		{
			Name:  models.RuleFrequencyValue,
			Match: frequencyValue(th),
		},
	}
}

func historicalChargeback(ctx context.Context, rc *RuleContext) (bool, error) {
	return rc.Repo.FindChargebackHistory(ctx, repositories.HistoryQuery{
		UserID:     rc.Tx.UserID,
		MerchantID: rc.Tx.MerchantID,
		CardNumber: rc.Tx.CardNumber,
	})
}

func highValueNight(th Thresholds) func(context.Context, *RuleContext) (bool, error) {
	return func(_ context.Context, rc *RuleContext) (bool, error) {
		if !rc.Tx.TransactionAmount.GreaterThan(th.HighValueAmount) {
			return false, nil
		}
		return IsNight(rc.Tx.TransactionDate.Hour(), th), nil
	}
}

func frequencyValue(th Thresholds) func(context.Context, *RuleContext) (bool, error) {
	return func(ctx context.Context, rc *RuleContext) (bool, error) {
		if !rc.Tx.HasDevice() {
			return false, nil
		}
		stats, err := rc.Repo.WindowedDeviceStats(ctx, repositories.WindowQuery{
			DeviceID:  *rc.Tx.DeviceID,
			End:       rc.Tx.TransactionDate,
			ExcludeID: rc.Tx.TransactionID,
		})
		if err != nil {
			return false, err
		}
		return stats.Count > th.FrequencyCount && stats.Sum.GreaterThan(th.FrequencySum), nil
	}
}

// IsNight reports whether hour falls in [NightStartHour,24) ∪ [0,NightEndHour).
func IsNight(hour int, th Thresholds) bool {
	return hour >= th.NightStartHour || hour < th.NightEndHour
}

// Apply runs rules in order and stops at the first match. No match approves
// with the default rule.
func Apply(ctx context.Context, rules []Rule, rc *RuleContext) (*Decision, error) {
	for _, rule := range rules {
		matched, err := rule.Match(ctx, rc)
		if err != nil {
			return nil, err
		}
		if matched {
			return &Decision{
				TransactionID:  rc.Tx.TransactionID,
				Recommendation: models.RecommendationDeny,
				RuleApplied:    rule.Name,
				HasChargeback:  rule.Chargeback,
			}, nil
		}
	}
	return &Decision{
		TransactionID:  rc.Tx.TransactionID,
		Recommendation: models.RecommendationApprove,
		RuleApplied:    models.RuleDefault,
	}, nil
}
