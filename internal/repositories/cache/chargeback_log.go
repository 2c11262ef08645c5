package cache

import (
	"context"
	"time"

	"riskgate/internal/models"
	"riskgate/internal/repositories"

	"github.com/rs/zerolog"
)

// ChargebackLog decorates a TransactionLogRepository with a read-through flag
// cache for the chargeback history lookup. Flags are only ever written for
// rows stored with has_chargeback set, so a hit is always a positive answer;
// misses and cache failures fall through to the wrapped repository.
type ChargebackLog struct {
	next  repositories.TransactionLogRepository
	flags FlagStore
	ttl   time.Duration
	log   zerolog.Logger

	// pending collects flagged rows written inside a transaction; nil outside one.
	pending *[]*models.TransactionLogEntry
}

// NewChargebackLog wraps next with the flag cache.
func NewChargebackLog(next repositories.TransactionLogRepository, flags FlagStore, ttl time.Duration, log zerolog.Logger) *ChargebackLog {
	if next == nil {
		panic("transaction log repository is required")
	}
	if flags == nil {
		panic("flag store is required")
	}
	return &ChargebackLog{next: next, flags: flags, ttl: ttl, log: log}
}

func (c *ChargebackLog) FindChargebackHistory(ctx context.Context, q repositories.HistoryQuery) (bool, error) {
	hit, err := c.flags.AnyFlagged(ctx, ChargebackKeys(q.UserID, q.MerchantID, q.CardNumber)...)
	if err != nil {
		c.log.Warn().Err(err).Msg("chargeback cache lookup failed, using store")
	} else if hit {
		return true, nil
	}
	return c.next.FindChargebackHistory(ctx, q)
}

func (c *ChargebackLog) WindowedDeviceStats(ctx context.Context, q repositories.WindowQuery) (repositories.DeviceStats, error) {
	return c.next.WindowedDeviceStats(ctx, q)
}

func (c *ChargebackLog) Upsert(ctx context.Context, entry *models.TransactionLogEntry) error {
	if err := c.next.Upsert(ctx, entry); err != nil {
		return err
	}
	if entry.HasChargeback {
		c.flagAfterCommit(ctx, entry)
	}
	return nil
}

func (c *ChargebackLog) GetByTransactionID(ctx context.Context, id int64) (*models.TransactionLogEntry, error) {
	return c.next.GetByTransactionID(ctx, id)
}

func (c *ChargebackLog) MarkChargeback(ctx context.Context, id int64) error {
	if err := c.next.MarkChargeback(ctx, id); err != nil {
		return err
	}
	entry, err := c.next.GetByTransactionID(ctx, id)
	if err != nil {
		c.log.Warn().Err(err).Int64("transaction_id", id).Msg("could not reload row to flag chargeback")
		return nil
	}
	c.flagAfterCommit(ctx, entry)
	return nil
}

// ExecuteInTransaction defers flag writes until the wrapped transaction commits.
func (c *ChargebackLog) ExecuteInTransaction(ctx context.Context, fn func(repo repositories.TransactionLogRepository) error) error {
	if c.pending != nil {
		return fn(c)
	}

	var flagged []*models.TransactionLogEntry
	err := c.next.ExecuteInTransaction(ctx, func(tx repositories.TransactionLogRepository) error {
		return fn(&ChargebackLog{next: tx, flags: c.flags, ttl: c.ttl, log: c.log, pending: &flagged})
	})
	if err != nil {
		return err
	}
	for _, entry := range flagged {
		c.flag(ctx, entry)
	}
	return nil
}

func (c *ChargebackLog) flagAfterCommit(ctx context.Context, entry *models.TransactionLogEntry) {
	if c.pending != nil {
		*c.pending = append(*c.pending, entry)
		return
	}
	c.flag(ctx, entry)
}

func (c *ChargebackLog) flag(ctx context.Context, entry *models.TransactionLogEntry) {
	keys := ChargebackKeys(entry.UserID, entry.MerchantID, entry.CardNumber)
	if err := c.flags.Flag(ctx, c.ttl, keys...); err != nil {
		c.log.Warn().Err(err).Int64("transaction_id", entry.TransactionID).Msg("failed to cache chargeback flags")
	}
}
