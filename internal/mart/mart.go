// Package mart is the analytical destination of the pipeline: the
// scored fraud predictions consumed by reporting live here, separate
// from the warehouse that holds raw and feature data.
package mart

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNoPredictions = errors.New("no predictions in mart")

// Prediction is one scored transaction as written by the prediction
// stage. FraudProbability is the model's positive-class probability;
// PredictedFraud applies Threshold to it.
type Prediction struct {
	TransactionID    string          `json:"transaction_id"`
	AccountID        string          `json:"account_id"`
	MerchantID       string          `json:"merchant_id"`
	Amount           decimal.Decimal `json:"amount"`
	PredictedFraud   bool            `json:"predicted_fraud"`
	FraudProbability float64         `json:"fraud_probability"`
	Threshold        float64         `json:"threshold"`
	PredictedAt      time.Time       `json:"predicted_at"`
}

// Store is the mart persistence interface. Each scoring run replaces
// the previous prediction set so reruns stay idempotent.
type Store interface {
	ReplacePredictions(ctx context.Context, preds []Prediction) error

	// ListPredictions returns every stored prediction ordered by
	// transaction ID.
	ListPredictions(ctx context.Context) ([]Prediction, error)

	CountPredictions(ctx context.Context) (int, error)

	Close() error
}
