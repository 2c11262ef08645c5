package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluationRequestFromFlags(t *testing.T) {
	cmd := evaluateCmd()
	require.NoError(t, cmd.Flags().Set("transaction-id", "2342357"))
	require.NoError(t, cmd.Flags().Set("merchant-id", "56107"))
	require.NoError(t, cmd.Flags().Set("user-id", "97051"))
	require.NoError(t, cmd.Flags().Set("card-number", "434505******9116"))
	require.NoError(t, cmd.Flags().Set("date", "2019-11-30T23:16:32.812632"))
	require.NoError(t, cmd.Flags().Set("amount", "5000"))

	req, err := evaluationRequestFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, int64(2342357), req.TransactionID)
	assert.True(t, decimal.NewFromInt(5000).Equal(req.TransactionAmount))
	assert.Nil(t, req.DeviceID, "device id is absent unless the flag is given")

	require.NoError(t, cmd.Flags().Set("device-id", "285475"))
	req, err = evaluationRequestFromFlags(cmd)
	require.NoError(t, err)
	require.NotNil(t, req.DeviceID)
	assert.Equal(t, int64(285475), *req.DeviceID)
}

func TestEvaluationRequestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tx.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"transaction_id": 9, "transaction_date": "2019-11-30T10:00:00", "transaction_amount": 12.5, "device_id": null}`), 0o600))

	cmd := evaluateCmd()
	require.NoError(t, cmd.Flags().Set("file", path))

	req, err := evaluationRequestFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, int64(9), req.TransactionID)
	assert.Equal(t, "12.5", req.TransactionAmount.String())
	assert.Nil(t, req.DeviceID)
}

func TestBacktestLocalCSV(t *testing.T) {
	log = zerolog.Nop()
	path := filepath.Join(t.TempDir(), "transactions.csv")
	csv := "transaction_id,merchant_id,user_id,card_number,transaction_date,transaction_amount,device_id,has_cbk\n" +
		"1,10,100,434505******0001,2019-12-01T23:00:00,5000,,true\n" +
		"2,11,101,434505******0002,2019-12-01T12:00:00,50,7,false\n" +
		"3,12,102,434505******0003,2019-12-01T12:05:00,50,7,false\n" +
		"4,13,103,434505******0004,2019-12-01T13:00:00,50,,true\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	cmd := backtestCmd()
	for name, value := range map[string]string{
		"source":      "csv",
		"path":        path,
		"local":       "true",
		"store":       "memory",
		"sink":        "memory",
		"no-progress": "true",
		"workers":     "1",
	} {
		require.NoError(t, cmd.Flags().Set(name, value))
	}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	require.NoError(t, runBacktest(cmd, nil))

	assert.Contains(t, out.String(), "transactions:    4")
	assert.Contains(t, out.String(), "persisted:       4")
	assert.Contains(t, out.String(), "Accuracy: 75.00%")
}

func TestBacktestCSVRequiresPath(t *testing.T) {
	log = zerolog.Nop()
	cmd := backtestCmd()
	require.NoError(t, cmd.Flags().Set("source", "csv"))
	require.NoError(t, cmd.Flags().Set("sink", "memory"))
	require.NoError(t, cmd.Flags().Set("local", "true"))
	require.NoError(t, cmd.Flags().Set("store", "memory"))
	cmd.SetContext(context.Background())

	err := runBacktest(cmd, nil)
	assert.ErrorContains(t, err, "--path is required")
}
