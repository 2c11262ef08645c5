package evaluation

import (
	"context"
	"errors"
	"fmt"

	"riskgate/internal/models"
	"riskgate/internal/repositories"
	"riskgate/internal/validation"

	"github.com/rs/zerolog"
)

// Service defines the rule evaluation engine
type Service interface {
	// Evaluate decides on tx and upserts the outcome into the log.
	Evaluate(ctx context.Context, tx *models.Transaction) (*Decision, error)
	// EvaluateRequest validates a wire payload before any store access, then evaluates it.
	EvaluateRequest(ctx context.Context, req *models.EvaluationRequest) (*Decision, error)
	// GetLogEntry returns the stored outcome for a transaction id.
	GetLogEntry(ctx context.Context, id int64) (*models.TransactionLogEntry, error)
	// RecordChargeback flags a previously evaluated transaction as charged back.
	RecordChargeback(ctx context.Context, id int64) error
}

type service struct {
	repo  repositories.TransactionLogRepository
	rules []Rule
	log   zerolog.Logger
}

// NewService creates the engine. A nil rules slice selects the built-in chain
// with DefaultThresholds.
func NewService(repo repositories.TransactionLogRepository, rules []Rule, log zerolog.Logger) Service {
	if repo == nil {
		panic("transaction log repository is required")
	}
	if rules == nil {
		rules = NewRules(DefaultThresholds())
	}
	return &service{
		repo:  repo,
		rules: rules,
		log:   log,
	}
}

func (s *service) EvaluateRequest(ctx context.Context, req *models.EvaluationRequest) (*Decision, error) {
	tx, err := validation.EvaluationRequest(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return s.Evaluate(ctx, tx)
}

func (s *service) Evaluate(ctx context.Context, tx *models.Transaction) (*Decision, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: transaction cannot be nil", ErrValidation)
	}

	var decision *Decision
	err := s.repo.ExecuteInTransaction(ctx, func(repo repositories.TransactionLogRepository) error {
		d, err := Apply(ctx, s.rules, &RuleContext{Tx: tx, Repo: repo})
		if err != nil {
			return err
		}
		entry := models.NewLogEntry(tx, d.Recommendation, d.RuleApplied, d.HasChargeback)
		if err := repo.Upsert(ctx, entry); err != nil {
			return err
		}
		decision = d
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Int64("transaction_id", tx.TransactionID).Msg("error evaluating transaction")
		return nil, fmt.Errorf("%w: transaction %d: %w", ErrEvaluationFailed, tx.TransactionID, err)
	}

	s.log.Debug().
		Int64("transaction_id", decision.TransactionID).
		Str("recommendation", string(decision.Recommendation)).
		Str("rule_applied", string(decision.RuleApplied)).
		Msg("transaction evaluated")
	return decision, nil
}

func (s *service) GetLogEntry(ctx context.Context, id int64) (*models.TransactionLogEntry, error) {
	entry, err := s.repo.GetByTransactionID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return entry, nil
}

func (s *service) RecordChargeback(ctx context.Context, id int64) error {
	if err := s.repo.MarkChargeback(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrTransactionNotFound
		}
		return fmt.Errorf("failed to record chargeback for %d: %w", id, err)
	}
	s.log.Info().Int64("transaction_id", id).Msg("chargeback recorded")
	return nil
}
