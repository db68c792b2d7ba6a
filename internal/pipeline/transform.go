package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dmarchuk/fraudetl/internal/features"
	"github.com/dmarchuk/fraudetl/internal/logging"
	"github.com/dmarchuk/fraudetl/internal/metrics"
	"github.com/dmarchuk/fraudetl/internal/txn"
	"github.com/dmarchuk/fraudetl/internal/warehouse"
)

// FeatureFileName is the delimited feature table written next to the
// warehouse copy.
const FeatureFileName = "transformed_bank_transactions.csv"

// Transformer derives the full feature set from the raw transactions
// and writes it to both the warehouse and the feature CSV.
type Transformer struct {
	store   warehouse.Store
	dataDir string
}

// NewTransformer creates a transformer writing its CSV under dataDir.
func NewTransformer(store warehouse.Store, dataDir string) *Transformer {
	return &Transformer{store: store, dataDir: dataDir}
}

// Run reads all raw transactions, computes every derived column, and
// replaces the stored feature set. Rerunning on unchanged input
// produces byte-identical CSV output.
func (t *Transformer) Run(ctx context.Context) (int, error) {
	log := logging.FromContext(ctx)

	records, err := t.store.ListTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("transform: %w", err)
	}
	if len(records) == 0 {
		return 0, warehouse.ErrNoTransactions
	}

	rows := features.Build(records)

	flagged := 0
	for i := range rows {
		if rows[i].HighRiskFlag == 1 {
			flagged++
		}
	}
	metrics.HighRiskFlagged.Add(float64(flagged))

	if err := t.store.ReplaceFeatures(ctx, rows); err != nil {
		return 0, fmt.Errorf("transform: %w", err)
	}
	if err := t.writeCSV(rows); err != nil {
		return 0, err
	}

	log.Info("features derived",
		slog.Int("rows", len(rows)),
		slog.Int("high_risk", flagged))
	return len(rows), nil
}

func (t *Transformer) writeCSV(rows []txn.FeatureRow) error {
	if err := os.MkdirAll(t.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(t.dataDir, FeatureFileName)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create feature csv: %w", err)
	}
	if err := txn.WriteFeatureRows(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close feature csv: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace feature csv: %w", err)
	}
	return nil
}
