package backtest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"riskgate/internal/dataset"
	"riskgate/internal/models"
	"riskgate/internal/repositories"
	"riskgate/internal/repositories/memory"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeEvaluator denies exactly the labelled chargebacks unless told otherwise.
type fakeEvaluator struct {
	fail    map[int64]bool
	wrong   map[int64]bool
	delay   time.Duration
	inMax   int64
	inNow   int64
	callsMu sync.Mutex
	calls   map[int64]int
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, req *models.EvaluationRequest) (*models.EvaluationResult, error) {
	n := atomic.AddInt64(&f.inNow, 1)
	defer atomic.AddInt64(&f.inNow, -1)
	for {
		peak := atomic.LoadInt64(&f.inMax)
		if n <= peak || atomic.CompareAndSwapInt64(&f.inMax, peak, n) {
			break
		}
	}

	f.callsMu.Lock()
	if f.calls == nil {
		f.calls = make(map[int64]int)
	}
	f.calls[req.TransactionID]++
	f.callsMu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail[req.TransactionID] {
		return nil, errors.New("connection refused")
	}
	deny := req.TransactionID%2 == 0
	if f.wrong[req.TransactionID] {
		deny = !deny
	}
	rec := models.RecommendationApprove
	if deny {
		rec = models.RecommendationDeny
	}
	return &models.EvaluationResult{TransactionID: req.TransactionID, Recommendation: rec}, nil
}

// makeRows labels every even id as a chargeback.
func makeRows(n int) []dataset.Row {
	rows := make([]dataset.Row, n)
	for i := range rows {
		id := int64(i + 1)
		rows[i] = dataset.Row{
			Transaction: models.Transaction{
				TransactionID:     id,
				UserID:            id,
				MerchantID:        id,
				CardNumber:        "434505******9116",
				TransactionAmount: decimal.NewFromInt(10),
				TransactionDate:   time.Date(2019, 12, 1, 12, 0, 0, 0, time.UTC),
			},
			HasChargeback: id%2 == 0,
		}
	}
	return rows
}

type MockResults struct {
	mock.Mock
}

func (m *MockResults) BulkInsert(ctx context.Context, records []*models.BatchResultRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockResults) SummarizeRun(ctx context.Context, runID string) (repositories.RunSummary, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(repositories.RunSummary), args.Error(1)
}

func (m *MockResults) Truncate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestRun_DropsFailedCallsOnly(t *testing.T) {
	rows := makeRows(250)
	eval := &fakeEvaluator{fail: map[int64]bool{}}
	for _, id := range []int64{3, 17, 50, 99, 100, 101, 150, 199, 200, 250} {
		eval.fail[id] = true
	}
	results := memory.NewResults()

	report, err := New(eval, results, Config{}, zerolog.Nop()).Run(context.Background(), rows)

	require.NoError(t, err)
	assert.Equal(t, 250, report.Total)
	assert.Equal(t, 240, report.Succeeded)
	assert.Equal(t, 10, report.CallFailures)
	assert.Equal(t, 3, report.Batches)
	assert.Equal(t, int64(240), report.Accuracy.Persisted)

	stored := results.Records()
	require.Len(t, stored, 240)
	seen := make(map[int64]bool, len(stored))
	for _, rec := range stored {
		assert.False(t, seen[rec.TransactionID], "duplicate %d", rec.TransactionID)
		assert.False(t, eval.fail[rec.TransactionID], "failed call %d was stored", rec.TransactionID)
		assert.Equal(t, report.RunID, rec.RunID)
		seen[rec.TransactionID] = true
	}
	for id, n := range eval.calls {
		assert.Equal(t, 1, n, "transaction %d called more than once", id)
	}

	summary, err := results.SummarizeRun(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, int64(240), summary.Total)
}

func TestRun_Accuracy(t *testing.T) {
	rows := makeRows(100)
	eval := &fakeEvaluator{wrong: map[int64]bool{}}
	for id := int64(1); id <= 20; id++ {
		eval.wrong[id] = true
	}

	report, err := New(eval, memory.NewResults(), Config{}, zerolog.Nop()).Run(context.Background(), rows)

	require.NoError(t, err)
	v, ok := report.Accuracy.Value()
	require.True(t, ok)
	assert.InDelta(t, 0.80, v, 1e-9)
	assert.Equal(t, "80.00%", report.Accuracy.String())
}

func TestRun_AllCallsFailLeavesAccuracyUndefined(t *testing.T) {
	rows := makeRows(30)
	eval := &fakeEvaluator{fail: map[int64]bool{}}
	for _, r := range rows {
		eval.fail[r.Transaction.TransactionID] = true
	}
	results := new(MockResults)

	report, err := New(eval, results, Config{}, zerolog.Nop()).Run(context.Background(), rows)

	require.NoError(t, err)
	assert.False(t, report.Accuracy.Defined())
	assert.Equal(t, "undefined", report.Accuracy.String())
	_, ok := report.Accuracy.Value()
	assert.False(t, ok)
	assert.Equal(t, 0, report.Batches)
	results.AssertNotCalled(t, "BulkInsert", mock.Anything, mock.Anything)
}

func TestRun_FlushFailureDiscardsBatchAndContinues(t *testing.T) {
	rows := makeRows(150)
	results := new(MockResults)
	results.On("BulkInsert", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	results.On("BulkInsert", mock.Anything, mock.Anything).Return(nil).Once()

	report, err := New(&fakeEvaluator{}, results, Config{}, zerolog.Nop()).Run(context.Background(), rows)

	require.NoError(t, err)
	assert.Equal(t, 150, report.Succeeded)
	assert.Equal(t, 2, report.Batches)
	assert.Equal(t, 1, report.FlushFailures)
	assert.Equal(t, 100, report.Discarded)
	assert.Equal(t, int64(50), report.Accuracy.Persisted)
	assert.Equal(t, "100.00%", report.Accuracy.String())
	results.AssertExpectations(t)
}

func TestRun_FlushFailureOfEverythingIsUndefined(t *testing.T) {
	results := new(MockResults)
	results.On("BulkInsert", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	report, err := New(&fakeEvaluator{}, results, Config{BatchSize: 10}, zerolog.Nop()).Run(context.Background(), makeRows(25))

	require.NoError(t, err)
	assert.Equal(t, 25, report.Succeeded)
	assert.Equal(t, 3, report.FlushFailures)
	assert.Equal(t, "undefined", report.Accuracy.String())
}

func TestRun_BatchBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		rows      int
		batchSize int
		want      []int
	}{
		{"empty dataset", 0, 100, nil},
		{"exact multiple", 200, 100, []int{100, 100}},
		{"final partial batch", 205, 100, []int{100, 100, 5}},
		{"smaller than one batch", 7, 100, []int{7}},
		{"batch of one", 3, 1, []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sizes []int
			results := new(MockResults)
			results.On("BulkInsert", mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) {
					sizes = append(sizes, len(args.Get(1).([]*models.BatchResultRecord)))
				}).
				Return(nil)

			cfg := Config{Workers: 4, BatchSize: tt.batchSize}
			report, err := New(&fakeEvaluator{}, results, cfg, zerolog.Nop()).Run(context.Background(), makeRows(tt.rows))

			require.NoError(t, err)
			assert.Equal(t, tt.want, sizes)
			assert.Equal(t, len(tt.want), report.Batches)
		})
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	eval := &fakeEvaluator{delay: 2 * time.Millisecond}

	_, err := New(eval, memory.NewResults(), Config{Workers: 3}, zerolog.Nop()).Run(context.Background(), makeRows(40))

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt64(&eval.inMax), int64(3))
	assert.Positive(t, atomic.LoadInt64(&eval.inMax))
}

func TestRun_ReportsProgress(t *testing.T) {
	var got []Progress
	o := New(&fakeEvaluator{}, memory.NewResults(), Config{}, zerolog.Nop(), WithProgress(func(p Progress) {
		got = append(got, p)
	}))

	_, err := o.Run(context.Background(), makeRows(60))

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{25, 50, 60}, []int{got[0].Completed, got[1].Completed, got[2].Completed})
	assert.Equal(t, 60, got[2].Total)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := memory.NewResults()

	report, err := New(&fakeEvaluator{}, results, Config{}, zerolog.Nop()).Run(ctx, makeRows(50))

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Zero(t, report.Succeeded)
	assert.Empty(t, results.Records())
}

func TestRun_RerunAppendsDuplicates(t *testing.T) {
	results := memory.NewResults()
	o := New(&fakeEvaluator{}, results, Config{}, zerolog.Nop())

	first, err := o.Run(context.Background(), makeRows(10))
	require.NoError(t, err)
	second, err := o.Run(context.Background(), makeRows(10))
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Len(t, results.Records(), 20)
}

func TestRun_UnusableResponseIsCallFailure(t *testing.T) {
	eval := evaluatorFunc(func(ctx context.Context, req *models.EvaluationRequest) (*models.EvaluationResult, error) {
		return &models.EvaluationResult{TransactionID: req.TransactionID, Recommendation: "maybe"}, nil
	})

	report, err := New(eval, memory.NewResults(), Config{}, zerolog.Nop()).Run(context.Background(), makeRows(5))

	require.NoError(t, err)
	assert.Equal(t, 5, report.CallFailures)
	assert.False(t, report.Accuracy.Defined())
}

type evaluatorFunc func(ctx context.Context, req *models.EvaluationRequest) (*models.EvaluationResult, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, req *models.EvaluationRequest) (*models.EvaluationResult, error) {
	return f(ctx, req)
}
