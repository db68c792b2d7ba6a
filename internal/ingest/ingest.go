// Package ingest loads raw transactions into the warehouse, either
// from the source CSV or from a small built-in sample batch when no
// source file is present.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmarchuk/fraudetl/internal/logging"
	"github.com/dmarchuk/fraudetl/internal/txn"
	"github.com/dmarchuk/fraudetl/internal/warehouse"
)

// Loader reads the source dataset and upserts it into the warehouse.
type Loader struct {
	store   warehouse.Store
	csvPath string
}

// NewLoader creates a loader reading csvPath into store.
func NewLoader(store warehouse.Store, csvPath string) *Loader {
	return &Loader{store: store, csvPath: csvPath}
}

// Run ingests the source CSV. When the file does not exist the loader
// falls back to the built-in sample batch so the rest of the pipeline
// can be exercised end to end.
func (l *Loader) Run(ctx context.Context) (int, error) {
	log := logging.FromContext(ctx)

	records, err := l.read(ctx)
	if err != nil {
		return 0, err
	}
	if err := l.store.InsertTransactions(ctx, records); err != nil {
		return 0, fmt.Errorf("ingest: %w", err)
	}
	log.Info("ingested transactions", slog.Int("rows", len(records)))
	return len(records), nil
}

func (l *Loader) read(ctx context.Context) ([]txn.Record, error) {
	log := logging.FromContext(ctx)

	f, err := os.Open(l.csvPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("source csv not found, seeding sample batch",
			slog.String("path", filepath.Clean(l.csvPath)))
		return SampleBatch(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open source csv: %w", err)
	}
	defer f.Close()

	records, err := txn.ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("parse source csv: %w", err)
	}
	return records, nil
}

// SampleBatch returns the built-in seed transactions used when no
// source CSV is available.
func SampleBatch() []txn.Record {
	at := func(s string) time.Time {
		t, _ := time.Parse(txn.TimeLayout, s)
		return t
	}
	amt := func(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

	return []txn.Record{
		{
			TransactionID: "TXN001", AccountID: "CUST001",
			Amount: amt(150.00), Timestamp: at("2024-03-15 10:30:00"),
			Type: "PURCHASE", Location: "New York",
			DeviceID: "DEV001", IPAddress: "192.168.1.1", MerchantID: "MERCH001",
			Channel: "Online", CustomerAge: 34, Occupation: "Engineer",
			Duration: 45, LoginAttempts: 1, Balance: amt(5200.00),
		},
		{
			TransactionID: "TXN002", AccountID: "CUST002",
			Amount: amt(2500.00), Timestamp: at("2024-03-15 11:45:00"),
			Type: "PURCHASE", Location: "Los Angeles",
			DeviceID: "DEV002", IPAddress: "192.168.1.2", MerchantID: "MERCH002",
			Channel: "Online", CustomerAge: 22, Occupation: "Student",
			Duration: 12, LoginAttempts: 4, Balance: amt(800.00),
			IsFraud: true,
		},
		{
			TransactionID: "TXN003", AccountID: "CUST003",
			Amount: amt(75.50), Timestamp: at("2024-03-15 12:15:00"),
			Type: "PURCHASE", Location: "Chicago",
			DeviceID: "DEV003", IPAddress: "192.168.1.3", MerchantID: "MERCH001",
			Channel: "Branch", CustomerAge: 58, Occupation: "Doctor",
			Duration: 90, LoginAttempts: 1, Balance: amt(12400.00),
		},
	}
}
