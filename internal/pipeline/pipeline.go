// Package pipeline wires the ETL stages together and runs them in
// order: ingest, transform, train, predict. Stages share the two
// stores and communicate only through them, so any stage can be rerun
// in isolation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmarchuk/fraudetl/internal/logging"
	"github.com/dmarchuk/fraudetl/internal/metrics"
	"github.com/dmarchuk/fraudetl/internal/traces"
)

// Stage numbers, matching the order the full pipeline runs them.
const (
	StepLoad      = 1
	StepTransform = 2
	StepTrain     = 3
	StepPredict   = 4
)

// Stage is one pipeline step. Run returns the number of rows the
// stage handled.
type Stage interface {
	Name() string
	Run(ctx context.Context) (int, error)
}

// Runner executes stages sequentially. A stage failure aborts the
// remaining stages; the error names the failed stage.
type Runner struct {
	stages map[int]Stage
}

// NewRunner creates a runner over the given numbered stages.
func NewRunner(stages map[int]Stage) *Runner {
	return &Runner{stages: stages}
}

// Run executes the requested steps in ascending numeric order under a
// fresh run ID. Unknown step numbers fail before anything runs.
func (r *Runner) Run(ctx context.Context, steps []int) error {
	for _, n := range steps {
		if _, ok := r.stages[n]; !ok {
			return fmt.Errorf("unknown pipeline step %d", n)
		}
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.FromContext(ctx).With(slog.String("run_id", runID))
	ctx = logging.WithLogger(ctx, log)

	started := time.Now()
	log.Info("pipeline run starting", slog.Any("steps", steps))

	for _, n := range steps {
		if err := r.runStage(ctx, n); err != nil {
			log.Error("pipeline run aborted",
				slog.Int("failed_step", n),
				slog.Duration("elapsed", time.Since(started)),
				slog.String("error", err.Error()))
			return err
		}
	}
	log.Info("pipeline run finished", slog.Duration("elapsed", time.Since(started)))
	return nil
}

func (r *Runner) runStage(ctx context.Context, n int) error {
	stage := r.stages[n]
	log := logging.FromContext(ctx).With(slog.String("stage", stage.Name()))

	ctx, span := traces.StartSpan(ctx, "pipeline."+stage.Name(),
		traces.Stage(stage.Name()), traces.RunID(logging.RunID(ctx)))
	defer span.End()

	log.Info("stage starting", slog.Int("step", n))
	started := time.Now()

	rows, err := stage.Run(ctx)
	elapsed := time.Since(started)
	metrics.StageDuration.WithLabelValues(stage.Name()).Observe(elapsed.Seconds())

	if err != nil {
		metrics.StageRunsTotal.WithLabelValues(stage.Name(), "error").Inc()
		log.Error("stage failed",
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()))
		return fmt.Errorf("stage %s: %w", stage.Name(), err)
	}

	metrics.StageRunsTotal.WithLabelValues(stage.Name(), "ok").Inc()
	metrics.RowsProcessed.WithLabelValues(stage.Name()).Add(float64(rows))
	span.SetAttributes(traces.RowCount(rows))
	log.Info("stage finished",
		slog.Int("rows", rows),
		slog.Duration("elapsed", elapsed))
	return nil
}

// StageFunc adapts a function to the Stage interface.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context) (int, error)
}

func (s StageFunc) Name() string { return s.StageName }

func (s StageFunc) Run(ctx context.Context) (int, error) { return s.Fn(ctx) }
