package model

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmarchuk/fraudetl/internal/logging"
	"github.com/dmarchuk/fraudetl/internal/mart"
	"github.com/dmarchuk/fraudetl/internal/metrics"
	"github.com/dmarchuk/fraudetl/internal/warehouse"
)

// Scorer applies the saved model to the warehouse feature table and
// writes predictions to the mart.
type Scorer struct {
	source   warehouse.Store
	dest     mart.Store
	modelDir string

	// now is swappable for tests
	now func() time.Time
}

// NewScorer creates a scorer reading the artifact from modelDir.
func NewScorer(source warehouse.Store, dest mart.Store, modelDir string) *Scorer {
	return &Scorer{source: source, dest: dest, modelDir: modelDir, now: time.Now}
}

// Run scores every feature row and replaces the mart prediction set.
// Returns the number of predictions written.
func (s *Scorer) Run(ctx context.Context) (int, error) {
	log := logging.FromContext(ctx)

	artifact, err := LoadArtifact(s.modelDir)
	if err != nil {
		return 0, err
	}
	rows, err := s.source.ListFeatures(ctx)
	if err != nil {
		return 0, fmt.Errorf("score: %w", err)
	}
	if len(rows) == 0 {
		return 0, warehouse.ErrNoTransactions
	}

	at := s.now().UTC()
	preds := make([]mart.Prediction, len(rows))
	flagged := 0
	for i := range rows {
		r := &rows[i]
		prob := artifact.Forest.PredictProba(artifact.Encoders.Vector(r))
		predicted := prob >= artifact.Threshold
		if predicted {
			flagged++
		}
		preds[i] = mart.Prediction{
			TransactionID:    r.TransactionID,
			AccountID:        r.AccountID,
			MerchantID:       r.MerchantID,
			Amount:           r.Amount,
			PredictedFraud:   predicted,
			FraudProbability: prob,
			Threshold:        artifact.Threshold,
			PredictedAt:      at,
		}
		label := "legit"
		if predicted {
			label = "fraud"
		}
		metrics.PredictionsTotal.WithLabelValues(label).Inc()
	}

	if err := s.dest.ReplacePredictions(ctx, preds); err != nil {
		return 0, fmt.Errorf("score: %w", err)
	}
	log.Info("predictions written",
		slog.Int("rows", len(preds)),
		slog.Int("flagged", flagged),
		slog.Float64("threshold", artifact.Threshold))
	return len(preds), nil
}
