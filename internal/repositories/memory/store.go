// Package memory provides in-process implementations of the transaction log
// and results repositories. They are safe for concurrent use and suitable for
// tests and single-instance local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"riskgate/internal/models"
	"riskgate/internal/repositories"

	"github.com/shopspring/decimal"
)

// TransactionLog is an in-memory TransactionLogRepository.
type TransactionLog struct {
	mu      sync.RWMutex
	entries map[int64]*models.TransactionLogEntry
	now     func() time.Time
}

// NewTransactionLog creates an empty in-memory transaction log.
func NewTransactionLog() *TransactionLog {
	return &TransactionLog{
		entries: make(map[int64]*models.TransactionLogEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Len returns the number of stored rows.
func (s *TransactionLog) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *TransactionLog) FindChargebackHistory(ctx context.Context, q repositories.HistoryQuery) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&txView{s: s}).findChargebackHistory(q), nil
}

func (s *TransactionLog) WindowedDeviceStats(ctx context.Context, q repositories.WindowQuery) (repositories.DeviceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&txView{s: s}).windowedDeviceStats(q), nil
}

func (s *TransactionLog) Upsert(ctx context.Context, entry *models.TransactionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(s.merge(entry))
	return nil
}

func (s *TransactionLog) GetByTransactionID(ctx context.Context, id int64) (*models.TransactionLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

func (s *TransactionLog) MarkChargeback(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return repositories.ErrNotFound
	}
	cp := *entry
	cp.HasChargeback = true
	cp.UpdatedAt = s.now()
	s.entries[id] = &cp
	return nil
}

// ExecuteInTransaction holds the write lock for the duration of fn. Upserts made
// by fn are staged and only applied when fn returns nil.
func (s *TransactionLog) ExecuteInTransaction(ctx context.Context, fn func(repo repositories.TransactionLogRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := &txView{s: s, pending: make(map[int64]*models.TransactionLogEntry)}
	if err := fn(view); err != nil {
		return err
	}
	for _, entry := range view.pending {
		s.apply(entry)
	}
	return nil
}

// merge mirrors the postgres ON CONFLICT clause: identifying columns keep their
// first-written values, outcome columns are replaced. Callers hold the lock.
func (s *TransactionLog) merge(entry *models.TransactionLogEntry) *models.TransactionLogEntry {
	now := s.now()
	existing, ok := s.entries[entry.TransactionID]
	if !ok {
		cp := *entry
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = now
		}
		cp.UpdatedAt = now
		return &cp
	}
	cp := *existing
	cp.Recommendation = entry.Recommendation
	cp.RuleApplied = entry.RuleApplied
	cp.HasChargeback = entry.HasChargeback
	cp.UpdatedAt = now
	return &cp
}

func (s *TransactionLog) apply(entry *models.TransactionLogEntry) {
	s.entries[entry.TransactionID] = entry
}

// txView reads committed rows overlaid with rows staged in pending. Views with
// a nil pending map are read-only. The owning store's lock must be held while a
// txView is in use.
type txView struct {
	s       *TransactionLog
	pending map[int64]*models.TransactionLogEntry
}

func (v *txView) each(fn func(*models.TransactionLogEntry) bool) {
	for id, entry := range v.s.entries {
		if staged, ok := v.pending[id]; ok {
			entry = staged
		}
		if !fn(entry) {
			return
		}
	}
	for id, entry := range v.pending {
		if _, ok := v.s.entries[id]; ok {
			continue
		}
		if !fn(entry) {
			return
		}
	}
}

func (v *txView) findChargebackHistory(q repositories.HistoryQuery) bool {
	found := false
	v.each(func(e *models.TransactionLogEntry) bool {
		if e.HasChargeback && (e.UserID == q.UserID || e.MerchantID == q.MerchantID || e.CardNumber == q.CardNumber) {
			found = true
			return false
		}
		return true
	})
	return found
}

func (v *txView) windowedDeviceStats(q repositories.WindowQuery) repositories.DeviceStats {
	stats := repositories.DeviceStats{Sum: decimal.Zero}
	start := q.Start()
	v.each(func(e *models.TransactionLogEntry) bool {
		if e.DeviceID == nil || *e.DeviceID != q.DeviceID || e.TransactionID == q.ExcludeID {
			return true
		}
		if e.TransactionDate.Before(start) || e.TransactionDate.After(q.End) {
			return true
		}
		stats.Count++
		stats.Sum = stats.Sum.Add(e.TransactionAmount)
		return true
	})
	return stats
}

func (v *txView) lookup(id int64) (*models.TransactionLogEntry, bool) {
	if staged, ok := v.pending[id]; ok {
		return staged, true
	}
	entry, ok := v.s.entries[id]
	return entry, ok
}

func (v *txView) FindChargebackHistory(ctx context.Context, q repositories.HistoryQuery) (bool, error) {
	return v.findChargebackHistory(q), nil
}

func (v *txView) WindowedDeviceStats(ctx context.Context, q repositories.WindowQuery) (repositories.DeviceStats, error) {
	return v.windowedDeviceStats(q), nil
}

func (v *txView) Upsert(ctx context.Context, entry *models.TransactionLogEntry) error {
	merged := v.s.merge(entry)
	if staged, ok := v.pending[entry.TransactionID]; ok {
		cp := *staged
		cp.Recommendation = entry.Recommendation
		cp.RuleApplied = entry.RuleApplied
		cp.HasChargeback = entry.HasChargeback
		cp.UpdatedAt = merged.UpdatedAt
		merged = &cp
	}
	v.pending[entry.TransactionID] = merged
	return nil
}

func (v *txView) GetByTransactionID(ctx context.Context, id int64) (*models.TransactionLogEntry, error) {
	entry, ok := v.lookup(id)
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

func (v *txView) MarkChargeback(ctx context.Context, id int64) error {
	entry, ok := v.lookup(id)
	if !ok {
		return repositories.ErrNotFound
	}
	cp := *entry
	cp.HasChargeback = true
	cp.UpdatedAt = v.s.now()
	v.pending[id] = &cp
	return nil
}

// ExecuteInTransaction on a view joins the enclosing transaction.
func (v *txView) ExecuteInTransaction(ctx context.Context, fn func(repo repositories.TransactionLogRepository) error) error {
	return fn(v)
}
