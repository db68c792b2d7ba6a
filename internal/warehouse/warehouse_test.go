package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarchuk/fraudetl/internal/txn"
)

func record(id, account string, amount float64, at time.Time) txn.Record {
	return txn.Record{
		TransactionID: id,
		AccountID:     account,
		Amount:        decimal.NewFromFloat(amount),
		Timestamp:     at,
		Type:          "Debit",
		Location:      "Chicago",
		DeviceID:      "DEV001",
		IPAddress:     "192.168.1.1",
		MerchantID:    "MERCH001",
		Channel:       "Online",
		CustomerAge:   34,
		Occupation:    "Engineer",
		Balance:       decimal.NewFromInt(5000),
	}
}

func TestMemoryStore_InsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	batch := []txn.Record{
		record("TXN002", "ACC001", 200, at.Add(time.Hour)),
		record("TXN001", "ACC001", 100, at),
	}
	require.NoError(t, store.InsertTransactions(ctx, batch))
	require.NoError(t, store.InsertTransactions(ctx, batch))

	n, err := store.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	listed, err := store.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "TXN001", listed[0].TransactionID, "listing is ordered by timestamp within account")
}

func TestMemoryStore_GetTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertTransactions(ctx, []txn.Record{record("TXN001", "ACC001", 100, at)}))

	got, err := store.GetTransaction(ctx, "TXN001")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(100)))

	_, err = store.GetTransaction(ctx, "TXN999")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestMemoryStore_ReplaceFeatures(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	first := []txn.FeatureRow{{Record: record("TXN001", "ACC001", 100, at), RiskScore: 11, HighRiskFlag: 1}}
	require.NoError(t, store.ReplaceFeatures(ctx, first))

	second := []txn.FeatureRow{
		{Record: record("TXN002", "ACC001", 200, at.Add(time.Hour)), RiskScore: 9},
		{Record: record("TXN003", "ACC001", 300, at.Add(2 * time.Hour)), RiskScore: 9},
	}
	require.NoError(t, store.ReplaceFeatures(ctx, second))

	rows, err := store.ListFeatures(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2, "replace discards the previous feature set")
	assert.Equal(t, "TXN002", rows[0].TransactionID)
}
