package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarchuk/fraudetl/internal/testutil"
	"github.com/dmarchuk/fraudetl/internal/txn"
)

func TestPostgresStore_TransactionRoundTrip(t *testing.T) {
	db, cleanup := testutil.Warehouse(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	rec := record("TXN001", "ACC001", 150, at)
	rec.PreviousTimestamp = at.Add(-24 * time.Hour)
	require.NoError(t, store.InsertTransactions(ctx, []txn.Record{rec}))

	got, err := store.GetTransaction(ctx, "TXN001")
	require.NoError(t, err)
	assert.Equal(t, "ACC001", got.AccountID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(150)))
	assert.True(t, got.Timestamp.Equal(at))
	assert.True(t, got.HasPrevious())

	// Upsert with a changed amount must not duplicate.
	rec.Amount = decimal.NewFromInt(175)
	require.NoError(t, store.InsertTransactions(ctx, []txn.Record{rec}))
	n, err := store.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, err = store.GetTransaction(ctx, "TXN001")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(175)))
}

func TestPostgresStore_FeatureRoundTrip(t *testing.T) {
	db, cleanup := testutil.Warehouse(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	row := txn.FeatureRow{
		Record:            record("TXN001", "ACC001", 150, at),
		Hour:              10,
		Count24h:          2,
		Sum24h:            300,
		RiskScore:         11,
		HighRiskFlag:      1,
		AgeGroup:          "26-35",
		CombinedRiskScore: 11.5,
	}
	require.NoError(t, store.ReplaceFeatures(ctx, []txn.FeatureRow{row}))

	rows, err := store.ListFeatures(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	got := rows[0]
	assert.Equal(t, row.Hour, got.Hour)
	assert.Equal(t, row.Count24h, got.Count24h)
	assert.Equal(t, row.Sum24h, got.Sum24h)
	assert.Equal(t, row.HighRiskFlag, got.HighRiskFlag)
	assert.Equal(t, row.AgeGroup, got.AgeGroup)
	assert.True(t, got.Amount.Equal(row.Amount))

	// A second replace fully supersedes the first.
	require.NoError(t, store.ReplaceFeatures(ctx, nil))
	rows, err = store.ListFeatures(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
