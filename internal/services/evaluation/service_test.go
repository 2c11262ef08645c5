package evaluation

import (
	"context"
	"errors"
	"testing"
	"time"

	"riskgate/internal/models"
	"riskgate/internal/repositories"
	"riskgate/internal/repositories/memory"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2019, 11, 30, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func devicePtr(id int64) *int64 { return &id }

func newTx(id int64, amount int64, when time.Time, device *int64) *models.Transaction {
	return &models.Transaction{
		TransactionID:     id,
		UserID:            1000 + id,
		MerchantID:        2000 + id,
		CardNumber:        "434505******0000",
		TransactionAmount: decimal.NewFromInt(amount),
		TransactionDate:   when,
		DeviceID:          device,
	}
}

// seed stores prior outcomes that share nothing with the transactions under test
// except, optionally, a device.
func seed(t *testing.T, store *memory.TransactionLog, entries ...*models.TransactionLogEntry) {
	t.Helper()
	for _, e := range entries {
		require.NoError(t, store.Upsert(context.Background(), e))
	}
}

func prior(id int64, amount int64, when time.Time, device *int64, cbk bool) *models.TransactionLogEntry {
	return &models.TransactionLogEntry{
		TransactionID:     id,
		UserID:            5000 + id,
		MerchantID:        6000 + id,
		CardNumber:        "999999******9999",
		TransactionDate:   when,
		TransactionAmount: decimal.NewFromInt(amount),
		DeviceID:          device,
		Recommendation:    models.RecommendationApprove,
		RuleApplied:       models.RuleDefault,
		HasChargeback:     cbk,
	}
}

func TestService_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		seed     []*models.TransactionLogEntry
		tx       *models.Transaction
		wantRec  models.Recommendation
		wantRule models.Rule
		wantCbk  bool
	}{
		{
			name:     "high value at night",
			tx:       newTx(1, 5000, at(23, 0), nil),
			wantRec:  models.RecommendationDeny,
			wantRule: models.RuleHighValueNight,
		},
		{
			name:     "high value early morning",
			tx:       newTx(1, 1801, at(3, 59), nil),
			wantRec:  models.RecommendationDeny,
			wantRule: models.RuleHighValueNight,
		},
		{
			name:     "high value at 04:00 is not night",
			tx:       newTx(1, 5000, at(4, 0), nil),
			wantRec:  models.RecommendationApprove,
			wantRule: models.RuleDefault,
		},
		{
			name:     "exactly 1800 at night is not high value",
			tx:       newTx(1, 1800, at(22, 0), nil),
			wantRec:  models.RecommendationApprove,
			wantRule: models.RuleDefault,
		},
		{
			name: "frequent device in trailing hour",
			seed: []*models.TransactionLogEntry{
				prior(11, 750, at(11, 10), devicePtr(7), false),
				prior(12, 750, at(11, 20), devicePtr(7), false),
				prior(13, 750, at(11, 30), devicePtr(7), false),
				prior(14, 750, at(11, 40), devicePtr(7), false),
			},
			tx:       newTx(1, 10, at(12, 0), devicePtr(7)),
			wantRec:  models.RecommendationDeny,
			wantRule: models.RuleFrequencyValue,
		},
		{
			name: "three device rows is not frequent",
			seed: []*models.TransactionLogEntry{
				prior(11, 1000, at(11, 10), devicePtr(7), false),
				prior(12, 1000, at(11, 20), devicePtr(7), false),
				prior(13, 1000, at(11, 30), devicePtr(7), false),
			},
			tx:       newTx(1, 10, at(12, 0), devicePtr(7)),
			wantRec:  models.RecommendationApprove,
			wantRule: models.RuleDefault,
		},
		{
			name: "frequent device under sum threshold",
			seed: []*models.TransactionLogEntry{
				prior(11, 625, at(11, 10), devicePtr(7), false),
				prior(12, 625, at(11, 20), devicePtr(7), false),
				prior(13, 625, at(11, 30), devicePtr(7), false),
				prior(14, 625, at(11, 40), devicePtr(7), false),
			},
			tx:       newTx(1, 10, at(12, 0), devicePtr(7)),
			wantRec:  models.RecommendationApprove,
			wantRule: models.RuleDefault,
		},
		{
			name: "absent device skips frequency rule",
			seed: []*models.TransactionLogEntry{
				prior(11, 750, at(11, 10), devicePtr(7), false),
				prior(12, 750, at(11, 20), devicePtr(7), false),
				prior(13, 750, at(11, 30), devicePtr(7), false),
				prior(14, 750, at(11, 40), devicePtr(7), false),
			},
			tx:       newTx(1, 10, at(12, 0), nil),
			wantRec:  models.RecommendationApprove,
			wantRule: models.RuleDefault,
		},
		{
			name: "quiet device at mid-morning",
			seed: []*models.TransactionLogEntry{
				prior(11, 50, at(9, 30), devicePtr(7), false),
			},
			tx:       newTx(1, 50, at(10, 0), devicePtr(7)),
			wantRec:  models.RecommendationApprove,
			wantRule: models.RuleDefault,
		},
		{
			name:     "negative amount is an ordinary value",
			tx:       newTx(1, -5000, at(23, 0), nil),
			wantRec:  models.RecommendationApprove,
			wantRule: models.RuleDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewTransactionLog()
			seed(t, store, tt.seed...)
			svc := NewService(store, nil, zerolog.Nop())

			d, err := svc.Evaluate(context.Background(), tt.tx)

			require.NoError(t, err)
			assert.Equal(t, tt.wantRec, d.Recommendation)
			assert.Equal(t, tt.wantRule, d.RuleApplied)
			assert.Equal(t, tt.wantCbk, d.HasChargeback)

			logged, err := store.GetByTransactionID(context.Background(), tt.tx.TransactionID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRec, logged.Recommendation)
			assert.Equal(t, tt.wantRule, logged.RuleApplied)
		})
	}
}

func TestService_ChargebackHistoryOutranksEverything(t *testing.T) {
	flaggedUser := prior(50, 10, at(1, 0), nil, true)
	flaggedUser.UserID = 1001
	flaggedMerchant := prior(51, 10, at(1, 0), nil, true)
	flaggedMerchant.MerchantID = 2001
	flaggedCard := prior(52, 10, at(1, 0), nil, true)
	flaggedCard.CardNumber = "434505******0000"

	frequent := []*models.TransactionLogEntry{
		prior(11, 750, at(22, 10), devicePtr(7), false),
		prior(12, 750, at(22, 20), devicePtr(7), false),
		prior(13, 750, at(22, 30), devicePtr(7), false),
		prior(14, 750, at(22, 40), devicePtr(7), false),
	}

	for _, flagged := range []*models.TransactionLogEntry{flaggedUser, flaggedMerchant, flaggedCard} {
		store := memory.NewTransactionLog()
		seed(t, store, frequent...)
		seed(t, store, flagged)
		svc := NewService(store, nil, zerolog.Nop())

		// high value, at night, on a busy device: every rule would match.
		d, err := svc.Evaluate(context.Background(), newTx(1, 5000, at(23, 0), devicePtr(7)))

		require.NoError(t, err)
		assert.Equal(t, models.RecommendationDeny, d.Recommendation)
		assert.Equal(t, models.RuleHistoricalChargeback, d.RuleApplied)
		assert.True(t, d.HasChargeback)

		logged, err := store.GetByTransactionID(context.Background(), 1)
		require.NoError(t, err)
		assert.True(t, logged.HasChargeback)
	}
}

func TestService_HighValueNightOutranksFrequency(t *testing.T) {
	store := memory.NewTransactionLog()
	seed(t, store,
		prior(11, 750, at(22, 10), devicePtr(7), false),
		prior(12, 750, at(22, 20), devicePtr(7), false),
		prior(13, 750, at(22, 30), devicePtr(7), false),
		prior(14, 750, at(22, 40), devicePtr(7), false),
	)
	svc := NewService(store, nil, zerolog.Nop())

	d, err := svc.Evaluate(context.Background(), newTx(1, 5000, at(23, 0), devicePtr(7)))

	require.NoError(t, err)
	assert.Equal(t, models.RuleHighValueNight, d.RuleApplied)
	assert.False(t, d.HasChargeback)
}

func TestService_EvaluateIsIdempotent(t *testing.T) {
	store := memory.NewTransactionLog()
	seed(t, store,
		prior(11, 800, at(11, 10), devicePtr(7), false),
		prior(12, 800, at(11, 20), devicePtr(7), false),
		prior(13, 800, at(11, 30), devicePtr(7), false),
	)
	svc := NewService(store, nil, zerolog.Nop())
	tx := newTx(1, 800, at(12, 0), devicePtr(7))

	first, err := svc.Evaluate(context.Background(), tx)
	require.NoError(t, err)
	second, err := svc.Evaluate(context.Background(), tx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, models.RuleDefault, second.RuleApplied, "the transaction's own row is not part of its device window")
	assert.Equal(t, 4, store.Len())
}

func TestService_EvaluateRequest(t *testing.T) {
	store := memory.NewTransactionLog()
	svc := NewService(store, nil, zerolog.Nop())

	d, err := svc.EvaluateRequest(context.Background(), &models.EvaluationRequest{
		TransactionID:     2342357,
		UserID:            97051,
		MerchantID:        56107,
		CardNumber:        "434505******9116",
		TransactionDate:   "2019-11-30T23:16:32.812632",
		TransactionAmount: decimal.NewFromInt(5000),
		DeviceID:          devicePtr(285475),
	})

	require.NoError(t, err)
	assert.Equal(t, models.EvaluationResult{TransactionID: 2342357, Recommendation: models.RecommendationDeny}, d.Result())
}

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) FindChargebackHistory(ctx context.Context, q repositories.HistoryQuery) (bool, error) {
	args := m.Called(ctx, q)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepo) WindowedDeviceStats(ctx context.Context, q repositories.WindowQuery) (repositories.DeviceStats, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(repositories.DeviceStats), args.Error(1)
}

func (m *MockRepo) Upsert(ctx context.Context, entry *models.TransactionLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRepo) GetByTransactionID(ctx context.Context, id int64) (*models.TransactionLogEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TransactionLogEntry), args.Error(1)
}

func (m *MockRepo) MarkChargeback(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepo) ExecuteInTransaction(ctx context.Context, fn func(repo repositories.TransactionLogRepository) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

func TestService_InvalidTimestampNeverTouchesStore(t *testing.T) {
	repo := new(MockRepo)
	svc := NewService(repo, nil, zerolog.Nop())

	_, err := svc.EvaluateRequest(context.Background(), &models.EvaluationRequest{
		TransactionID:   1,
		TransactionDate: "30/11/2019",
	})

	assert.ErrorIs(t, err, ErrValidation)
	repo.AssertNotCalled(t, "ExecuteInTransaction", mock.Anything)
}

func TestService_StoreFailures(t *testing.T) {
	storeErr := errors.Join(repositories.ErrStore, errors.New("connection reset"))
	tests := []struct {
		name  string
		setup func(*MockRepo)
	}{
		{
			name: "history lookup fails",
			setup: func(m *MockRepo) {
				m.On("ExecuteInTransaction", mock.Anything).Return(nil)
				m.On("FindChargebackHistory", mock.Anything, mock.Anything).Return(false, storeErr)
			},
		},
		{
			name: "window lookup fails",
			setup: func(m *MockRepo) {
				m.On("ExecuteInTransaction", mock.Anything).Return(nil)
				m.On("FindChargebackHistory", mock.Anything, mock.Anything).Return(false, nil)
				m.On("WindowedDeviceStats", mock.Anything, mock.Anything).Return(repositories.DeviceStats{}, storeErr)
			},
		},
		{
			name: "upsert fails",
			setup: func(m *MockRepo) {
				m.On("ExecuteInTransaction", mock.Anything).Return(nil)
				m.On("FindChargebackHistory", mock.Anything, mock.Anything).Return(false, nil)
				m.On("WindowedDeviceStats", mock.Anything, mock.Anything).Return(repositories.DeviceStats{}, nil)
				m.On("Upsert", mock.Anything, mock.Anything).Return(storeErr)
			},
		},
		{
			name: "transaction cannot begin",
			setup: func(m *MockRepo) {
				m.On("ExecuteInTransaction", mock.Anything).Return(storeErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepo)
			tt.setup(repo)
			svc := NewService(repo, nil, zerolog.Nop())

			d, err := svc.Evaluate(context.Background(), newTx(1, 10, at(12, 0), devicePtr(7)))

			assert.Nil(t, d)
			assert.ErrorIs(t, err, ErrEvaluationFailed)
			assert.ErrorIs(t, err, repositories.ErrStore)
			repo.AssertExpectations(t)
		})
	}
}

// failingUpsert lets reads through to the wrapped store and fails every write.
type failingUpsert struct {
	repositories.TransactionLogRepository
}

func (f failingUpsert) Upsert(context.Context, *models.TransactionLogEntry) error {
	return repositories.ErrStore
}

func (f failingUpsert) ExecuteInTransaction(ctx context.Context, fn func(repo repositories.TransactionLogRepository) error) error {
	return f.TransactionLogRepository.ExecuteInTransaction(ctx, func(tx repositories.TransactionLogRepository) error {
		return fn(failingUpsert{tx})
	})
}

func TestService_FailedUpsertLeavesNoRow(t *testing.T) {
	store := memory.NewTransactionLog()
	svc := NewService(failingUpsert{store}, nil, zerolog.Nop())

	_, err := svc.Evaluate(context.Background(), newTx(1, 10, at(12, 0), nil))

	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestService_RecordChargeback(t *testing.T) {
	store := memory.NewTransactionLog()
	svc := NewService(store, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Evaluate(ctx, newTx(1, 10, at(12, 0), nil))
	require.NoError(t, err)

	require.NoError(t, svc.RecordChargeback(ctx, 1))
	entry, err := svc.GetLogEntry(ctx, 1)
	require.NoError(t, err)
	assert.True(t, entry.HasChargeback)

	// the same card now carries a chargeback
	d, err := svc.Evaluate(ctx, newTx(2, 10, at(12, 5), nil))
	require.NoError(t, err)
	assert.Equal(t, models.RuleHistoricalChargeback, d.RuleApplied)

	assert.ErrorIs(t, svc.RecordChargeback(ctx, 404), ErrTransactionNotFound)
	_, err = svc.GetLogEntry(ctx, 404)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}
