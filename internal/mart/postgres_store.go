package mart

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed mart store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// DB exposes the underlying handle for health checks and stats collection.
func (p *PostgresStore) DB() *sql.DB { return p.db }

func (p *PostgresStore) Close() error { return p.db.Close() }

// ReplacePredictions swaps the prediction table contents inside one
// transaction.
func (p *PostgresStore) ReplacePredictions(ctx context.Context, preds []Prediction) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace predictions: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fraud_predictions`); err != nil {
		return fmt.Errorf("clear predictions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fraud_predictions (
			transaction_id, account_id, merchant_id, amount,
			predicted_fraud, fraud_probability, threshold, predicted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert predictions: %w", err)
	}
	defer stmt.Close()

	for i := range preds {
		pr := &preds[i]
		if _, err := stmt.ExecContext(ctx,
			pr.TransactionID, pr.AccountID, pr.MerchantID, pr.Amount,
			pr.PredictedFraud, pr.FraudProbability, pr.Threshold, pr.PredictedAt,
		); err != nil {
			return fmt.Errorf("insert prediction %s: %w", pr.TransactionID, err)
		}
	}
	return tx.Commit()
}

// ListPredictions returns every stored prediction ordered by transaction ID.
func (p *PostgresStore) ListPredictions(ctx context.Context) ([]Prediction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT transaction_id, account_id, merchant_id, amount,
		       predicted_fraud, fraud_probability, threshold, predicted_at
		FROM fraud_predictions
		ORDER BY transaction_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	var out []Prediction
	for rows.Next() {
		var pr Prediction
		if err := rows.Scan(
			&pr.TransactionID, &pr.AccountID, &pr.MerchantID, &pr.Amount,
			&pr.PredictedFraud, &pr.FraudProbability, &pr.Threshold, &pr.PredictedAt,
		); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// CountPredictions returns the number of stored predictions.
func (p *PostgresStore) CountPredictions(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fraud_predictions`).Scan(&n)
	return n, err
}
