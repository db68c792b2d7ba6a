package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmarchuk/fraudetl/internal/txn"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed warehouse store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// DB exposes the underlying handle for health checks and stats collection.
func (p *PostgresStore) DB() *sql.DB { return p.db }

func (p *PostgresStore) Close() error { return p.db.Close() }

// InsertTransactions upserts raw transactions keyed by transaction_id.
func (p *PostgresStore) InsertTransactions(ctx context.Context, records []txn.Record) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert transactions: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			transaction_id, account_id, amount, occurred_at, txn_type,
			location, device_id, ip_address, merchant_id, channel,
			customer_age, occupation, duration, login_attempts, balance,
			previous_at, is_fraud
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (transaction_id) DO UPDATE SET
			account_id     = EXCLUDED.account_id,
			amount         = EXCLUDED.amount,
			occurred_at    = EXCLUDED.occurred_at,
			txn_type       = EXCLUDED.txn_type,
			location       = EXCLUDED.location,
			device_id      = EXCLUDED.device_id,
			ip_address     = EXCLUDED.ip_address,
			merchant_id    = EXCLUDED.merchant_id,
			channel        = EXCLUDED.channel,
			customer_age   = EXCLUDED.customer_age,
			occupation     = EXCLUDED.occupation,
			duration       = EXCLUDED.duration,
			login_attempts = EXCLUDED.login_attempts,
			balance        = EXCLUDED.balance,
			previous_at    = EXCLUDED.previous_at,
			is_fraud       = EXCLUDED.is_fraud
	`)
	if err != nil {
		return fmt.Errorf("prepare insert transactions: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		var prev sql.NullTime
		if r.HasPrevious() {
			prev = sql.NullTime{Time: r.PreviousTimestamp, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			r.TransactionID, r.AccountID, r.Amount, r.Timestamp, r.Type,
			r.Location, r.DeviceID, r.IPAddress, r.MerchantID, r.Channel,
			r.CustomerAge, r.Occupation, r.Duration, r.LoginAttempts, r.Balance,
			prev, r.IsFraud,
		); err != nil {
			return fmt.Errorf("insert transaction %s: %w", r.TransactionID, err)
		}
	}
	return tx.Commit()
}

const selectTransaction = `
	SELECT transaction_id, account_id, amount, occurred_at, txn_type,
	       location, device_id, ip_address, merchant_id, channel,
	       customer_age, occupation, duration, login_attempts, balance,
	       previous_at, is_fraud
	FROM transactions
`

func scanTransaction(row interface{ Scan(...any) error }) (txn.Record, error) {
	var r txn.Record
	var prev sql.NullTime
	err := row.Scan(
		&r.TransactionID, &r.AccountID, &r.Amount, &r.Timestamp, &r.Type,
		&r.Location, &r.DeviceID, &r.IPAddress, &r.MerchantID, &r.Channel,
		&r.CustomerAge, &r.Occupation, &r.Duration, &r.LoginAttempts, &r.Balance,
		&prev, &r.IsFraud,
	)
	if prev.Valid {
		r.PreviousTimestamp = prev.Time
	}
	return r, err
}

// ListTransactions returns every stored transaction in canonical order.
func (p *PostgresStore) ListTransactions(ctx context.Context) ([]txn.Record, error) {
	rows, err := p.db.QueryContext(ctx, selectTransaction+
		` ORDER BY account_id, occurred_at, transaction_id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []txn.Record
	for rows.Next() {
		r, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetTransaction returns a single transaction by ID.
func (p *PostgresStore) GetTransaction(ctx context.Context, id string) (*txn.Record, error) {
	r, err := scanTransaction(p.db.QueryRowContext(ctx,
		selectTransaction+` WHERE transaction_id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return &r, nil
}

// CountTransactions returns the number of stored transactions.
func (p *PostgresStore) CountTransactions(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n)
	return n, err
}

// ReplaceFeatures swaps the feature table contents inside one
// transaction. The full derived row travels as JSONB; the scalar
// columns exist so operators can query risk outcomes without
// unpacking the document.
func (p *PostgresStore) ReplaceFeatures(ctx context.Context, rows []txn.FeatureRow) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace features: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_features`); err != nil {
		return fmt.Errorf("clear features: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transaction_features (
			transaction_id, account_id, occurred_at,
			risk_score, high_risk_flag, combined_risk_score, is_fraud, features
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert features: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		r := &rows[i]
		doc, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal features %s: %w", r.TransactionID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			r.TransactionID, r.AccountID, r.Timestamp,
			r.RiskScore, r.HighRiskFlag == 1, r.CombinedRiskScore, r.IsFraud, doc,
		); err != nil {
			return fmt.Errorf("insert features %s: %w", r.TransactionID, err)
		}
	}
	return tx.Commit()
}

// ListFeatures returns every stored feature row in canonical order.
func (p *PostgresStore) ListFeatures(ctx context.Context) ([]txn.FeatureRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT features FROM transaction_features
		ORDER BY account_id, occurred_at, transaction_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()

	var out []txn.FeatureRow
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan features: %w", err)
		}
		var fr txn.FeatureRow
		if err := json.Unmarshal(doc, &fr); err != nil {
			return nil, fmt.Errorf("unmarshal features: %w", err)
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}
