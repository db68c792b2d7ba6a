// Package warehouse is the relational source-of-truth for the
// pipeline: raw transactions land here on ingestion, and the
// feature-augmented rows are written back after transformation.
package warehouse

import (
	"context"
	"errors"

	"github.com/dmarchuk/fraudetl/internal/txn"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNoTransactions      = errors.New("no transactions in warehouse")
)

// Store is the warehouse persistence interface. Writes are batch
// oriented; both write operations are safe to re-run with the same
// batch without duplicating rows.
type Store interface {
	// InsertTransactions upserts raw transactions keyed by
	// TransactionID. Re-ingesting an unchanged source is a no-op.
	InsertTransactions(ctx context.Context, records []txn.Record) error

	// ListTransactions returns every stored transaction ordered by
	// account, timestamp, transaction ID.
	ListTransactions(ctx context.Context) ([]txn.Record, error)

	// GetTransaction returns a single transaction by ID, or
	// ErrTransactionNotFound.
	GetTransaction(ctx context.Context, id string) (*txn.Record, error)

	// CountTransactions returns the number of stored transactions.
	CountTransactions(ctx context.Context) (int, error)

	// ReplaceFeatures atomically swaps the feature table contents for
	// the given rows. The previous feature set is discarded so a rerun
	// never mixes stale and fresh derived columns.
	ReplaceFeatures(ctx context.Context, rows []txn.FeatureRow) error

	// ListFeatures returns every stored feature row ordered by
	// account, timestamp, transaction ID.
	ListFeatures(ctx context.Context) ([]txn.FeatureRow, error)

	Close() error
}
