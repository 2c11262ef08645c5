package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"riskgate/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertColumns are overwritten when a transaction id is evaluated again.
var upsertColumns = []string{"recommendation", "rule_applied", "has_chargeback", "updated_at"}

type transactionLogRepository struct {
	db *gorm.DB
}

// NewTransactionLogRepository returns the postgres-backed transaction log.
func NewTransactionLogRepository(db *gorm.DB) TransactionLogRepository {
	return &transactionLogRepository{db: db}
}

func (r *transactionLogRepository) FindChargebackHistory(ctx context.Context, q HistoryQuery) (bool, error) {
	var found bool
	err := r.db.WithContext(ctx).Raw(`
		SELECT EXISTS (
			SELECT 1 FROM transactions_log
			WHERE (user_id = ? OR merchant_id = ? OR card_number = ?)
			  AND has_chargeback = TRUE
		)`, q.UserID, q.MerchantID, q.CardNumber).
		Scan(&found).Error
	if err != nil {
		return false, fmt.Errorf("%w: find chargeback history: %w", ErrStore, err)
	}
	return found, nil
}

func (r *transactionLogRepository) WindowedDeviceStats(ctx context.Context, q WindowQuery) (DeviceStats, error) {
	var stats DeviceStats
	err := r.db.WithContext(ctx).Model(&models.TransactionLogEntry{}).
		Select("COUNT(*) AS count, COALESCE(SUM(transaction_amount), 0) AS sum").
		Where("device_id = ? AND transaction_date BETWEEN ? AND ? AND transaction_id <> ?",
			q.DeviceID, q.Start(), q.End, q.ExcludeID).
		Scan(&stats).Error
	if err != nil {
		return DeviceStats{}, fmt.Errorf("%w: device window stats: %w", ErrStore, err)
	}
	return stats, nil
}

func (r *transactionLogRepository) Upsert(ctx context.Context, entry *models.TransactionLogEntry) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("%w: upsert transaction %d: %w", ErrStore, entry.TransactionID, err)
	}
	return nil
}

func (r *transactionLogRepository) GetByTransactionID(ctx context.Context, id int64) (*models.TransactionLogEntry, error) {
	var entry models.TransactionLogEntry
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", id).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get transaction %d: %w", ErrStore, id, err)
	}
	return &entry, nil
}

func (r *transactionLogRepository) MarkChargeback(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Model(&models.TransactionLogEntry{}).
		Where("transaction_id = ?", id).
		Updates(map[string]interface{}{
			"has_chargeback": true,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("%w: mark chargeback %d: %w", ErrStore, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *transactionLogRepository) ExecuteInTransaction(ctx context.Context, fn func(repo TransactionLogRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&transactionLogRepository{db: tx})
	})
}
