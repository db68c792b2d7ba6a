package model

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmarchuk/fraudetl/internal/logging"
	"github.com/dmarchuk/fraudetl/internal/txn"
	"github.com/dmarchuk/fraudetl/internal/warehouse"
)

// Trainer fits the classifier on the warehouse feature table and
// saves the artifact.
type Trainer struct {
	store    warehouse.Store
	modelDir string
}

// NewTrainer creates a trainer saving artifacts under modelDir.
func NewTrainer(store warehouse.Store, modelDir string) *Trainer {
	return &Trainer{store: store, modelDir: modelDir}
}

// Run trains on all stored feature rows with a stratified holdout and
// writes the artifact. Returns the held-out evaluation metrics.
func (t *Trainer) Run(ctx context.Context) (*Artifact, error) {
	log := logging.FromContext(ctx)

	rows, err := t.store.ListFeatures(ctx)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	if len(rows) == 0 {
		return nil, warehouse.ErrNoTransactions
	}

	artifact, err := Train(rows)
	if err != nil {
		return nil, err
	}

	path, err := artifact.Save(t.modelDir)
	if err != nil {
		return nil, err
	}
	if err := writeMetricsFile(t.modelDir, artifact.Metrics); err != nil {
		return nil, err
	}
	log.Info("model trained",
		slog.Int("rows", len(rows)),
		slog.Int("trees", len(artifact.Forest.Trees)),
		slog.Float64("accuracy", artifact.Metrics.Accuracy),
		slog.Float64("roc_auc", artifact.Metrics.ROCAUC),
		slog.String("path", path))
	return artifact, nil
}

// Train fits the forest on the given rows: encoders from the full
// batch, a seeded stratified 80/20 split, and evaluation on the
// held-out fifth.
func Train(rows []txn.FeatureRow) (*Artifact, error) {
	enc := FitEncoders(rows)
	ds := BuildDataset(rows, enc)

	trainIdx, testIdx := StratifiedSplit(ds.Y, TestFraction, Seed)
	trainX, trainY := subset(ds, trainIdx)
	testX, testY := subset(ds, testIdx)

	forest, err := FitForest(trainX, trainY, NumTrees, MaxDepth, Seed)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		FeatureNames: append([]string(nil), FeatureNames...),
		Encoders:     enc,
		Forest:       forest,
		Threshold:    DefaultThreshold,
		TrainedAt:    time.Now().UTC(),
		Metrics:      Evaluate(forest, testX, testY, DefaultThreshold),
	}, nil
}

// MetricsFileName is the human-readable evaluation summary written
// next to the artifact on every training run.
const MetricsFileName = "model_metrics.txt"

func writeMetricsFile(dir string, m Metrics) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Held-out evaluation (%d samples, %d fraud)\n", m.Samples, m.Positives)
	fmt.Fprintf(&b, "Accuracy:  %.4f\n", m.Accuracy)
	fmt.Fprintf(&b, "Precision: %.4f\n", m.Precision)
	fmt.Fprintf(&b, "Recall:    %.4f\n", m.Recall)
	fmt.Fprintf(&b, "F1:        %.4f\n", m.F1)
	fmt.Fprintf(&b, "ROC AUC:   %.4f\n", m.ROCAUC)
	fmt.Fprintf(&b, "Confusion: TN=%d FP=%d FN=%d TP=%d\n",
		m.Confusion.TrueNegative, m.Confusion.FalsePositive,
		m.Confusion.FalseNegative, m.Confusion.TruePositive)

	path := filepath.Join(dir, MetricsFileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}

func subset(ds Dataset, idx []int) ([][]float64, []int) {
	x := make([][]float64, len(idx))
	y := make([]int, len(idx))
	for i, j := range idx {
		x[i] = ds.X[j]
		y[i] = ds.Y[j]
	}
	return x, y
}
