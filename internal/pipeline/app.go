package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmarchuk/fraudetl/internal/config"
	"github.com/dmarchuk/fraudetl/internal/ingest"
	"github.com/dmarchuk/fraudetl/internal/mart"
	"github.com/dmarchuk/fraudetl/internal/model"
	"github.com/dmarchuk/fraudetl/internal/warehouse"
)

// App bundles the stores and stages of a configured pipeline.
type App struct {
	Warehouse warehouse.Store
	Mart      mart.Store
	Runner    *Runner

	cfg *config.Config
}

// NewApp builds the pipeline around the given stores.
func NewApp(cfg *config.Config, wh warehouse.Store, mt mart.Store) *App {
	loader := ingest.NewLoader(wh, filepath.Join(cfg.DataDir, cfg.SourceCSVName))
	transformer := NewTransformer(wh, cfg.DataDir)
	trainer := model.NewTrainer(wh, cfg.ModelDir)
	scorer := model.NewScorer(wh, mt, cfg.ModelDir)

	runner := NewRunner(map[int]Stage{
		StepLoad: StageFunc{StageName: "load", Fn: loader.Run},
		// Transform falls back to ingesting first when the warehouse is
		// empty, so step 2 works standalone on a fresh database.
		StepTransform: StageFunc{StageName: "transform", Fn: func(ctx context.Context) (int, error) {
			n, err := transformer.Run(ctx)
			if errors.Is(err, warehouse.ErrNoTransactions) {
				if _, err := loader.Run(ctx); err != nil {
					return 0, err
				}
				return transformer.Run(ctx)
			}
			return n, err
		}},
		StepTrain: StageFunc{StageName: "train", Fn: func(ctx context.Context) (int, error) {
			artifact, err := trainer.Run(ctx)
			if err != nil {
				return 0, err
			}
			return artifact.Metrics.Samples, nil
		}},
		StepPredict: StageFunc{StageName: "predict", Fn: scorer.Run},
	})

	return &App{Warehouse: wh, Mart: mt, Runner: runner, cfg: cfg}
}

// AllSteps is the full pipeline in execution order.
func AllSteps() []int {
	return []int{StepLoad, StepTransform, StepTrain, StepPredict}
}

// ExportPredictions writes the mart's current prediction set to the
// predictions CSV under the data directory.
func (a *App) ExportPredictions(ctx context.Context) (string, error) {
	preds, err := a.Mart.ListPredictions(ctx)
	if err != nil {
		return "", fmt.Errorf("export predictions: %w", err)
	}
	if len(preds) == 0 {
		return "", mart.ErrNoPredictions
	}

	path := filepath.Join(a.cfg.DataDir, "fraud_predictions.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create predictions csv: %w", err)
	}
	defer f.Close()

	if err := mart.WritePredictions(f, preds); err != nil {
		return "", err
	}
	return path, nil
}
