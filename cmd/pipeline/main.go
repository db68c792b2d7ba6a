// Command pipeline runs the fraud detection ETL: load raw
// transactions, derive features, train the classifier, and score.
//
// Usage:
//
//	go run ./cmd/pipeline                     # Run all steps in order
//	go run ./cmd/pipeline -step 2             # Run only the transform step
//	go run ./cmd/pipeline -step 3 -step 4     # Retrain and rescore
//	go run ./cmd/pipeline -show-metrics       # Print the evaluation report
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/lib/pq"

	"github.com/dmarchuk/fraudetl/internal/config"
	"github.com/dmarchuk/fraudetl/internal/health"
	"github.com/dmarchuk/fraudetl/internal/logging"
	"github.com/dmarchuk/fraudetl/internal/mart"
	"github.com/dmarchuk/fraudetl/internal/metrics"
	"github.com/dmarchuk/fraudetl/internal/model"
	"github.com/dmarchuk/fraudetl/internal/ops"
	"github.com/dmarchuk/fraudetl/internal/pipeline"
	"github.com/dmarchuk/fraudetl/internal/report"
	"github.com/dmarchuk/fraudetl/internal/retry"
	"github.com/dmarchuk/fraudetl/internal/traces"
	"github.com/dmarchuk/fraudetl/internal/warehouse"
)

type stepFlags []int

func (s *stepFlags) String() string { return fmt.Sprint([]int(*s)) }

func (s *stepFlags) Set(v string) error {
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fmt.Errorf("step must be a number: %q", v)
	}
	*s = append(*s, n)
	return nil
}

func main() {
	var steps stepFlags
	flag.Var(&steps, "step", "pipeline step to run (1=load 2=transform 3=train 4=predict), repeatable; default all")
	showMetrics := flag.Bool("show-metrics", false, "print the evaluation report; with no -step flags, print it without running anything")
	flag.Parse()

	if err := run(steps, *showMetrics); err != nil {
		fmt.Fprintln(os.Stderr, "pipeline:", err)
		os.Exit(1)
	}
}

func run(steps []int, showMetrics bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	ctx := logging.WithLogger(context.Background(), logger)

	shutdownTraces, err := traces.Init(ctx, cfg.OTLPEndpoint, logger)
	if err != nil {
		return fmt.Errorf("init traces: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTraces(shutdownCtx)
	}()

	whDB, err := openDB(ctx, "warehouse", cfg.Warehouse)
	if err != nil {
		return err
	}
	defer whDB.Close()
	mtDB, err := openDB(ctx, "mart", cfg.Mart)
	if err != nil {
		return err
	}
	defer mtDB.Close()

	wh := warehouse.NewPostgresStore(whDB)
	mt := mart.NewPostgresStore(mtDB)
	app := pipeline.NewApp(cfg, wh, mt)

	if showMetrics && len(steps) == 0 {
		return printReport(ctx, wh, mt)
	}

	if cfg.OpsAddr != "" {
		registry := health.NewRegistry()
		registry.Register("warehouse", health.Database("warehouse", whDB))
		registry.Register("mart", health.Database("mart", mtDB))
		registry.Register("model_artifact",
			health.FileExists("model_artifact", filepath.Join(cfg.ModelDir, model.ArtifactName)))

		srv := ops.New(cfg.OpsAddr, registry, logger, cfg.IsProduction())
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		collectorCtx, stopCollectors := context.WithCancel(ctx)
		defer stopCollectors()
		go metrics.StartDBStatsCollector(collectorCtx, "warehouse", whDB, 15*time.Second)
		go metrics.StartDBStatsCollector(collectorCtx, "mart", mtDB, 15*time.Second)
	}

	if len(steps) == 0 {
		steps = pipeline.AllSteps()
	}
	sort.Ints(steps)

	if err := app.Runner.Run(ctx, steps); err != nil {
		return err
	}

	if contains(steps, pipeline.StepPredict) {
		path, err := app.ExportPredictions(ctx)
		if err != nil {
			return err
		}
		logger.Info("predictions exported", slog.String("path", path))
	}

	// A full run always ends with the evaluation report.
	if showMetrics || (contains(steps, pipeline.StepTrain) && contains(steps, pipeline.StepPredict)) {
		return printReport(ctx, wh, mt)
	}
	return nil
}

func printReport(ctx context.Context, wh warehouse.Store, mt mart.Store) error {
	summary, err := report.Build(ctx, wh, mt)
	if err != nil {
		return err
	}
	summary.Print(os.Stdout)
	return nil
}

func openDB(ctx context.Context, name string, db config.DB) (*sql.DB, error) {
	handle, err := sql.Open("postgres", db.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", name, err)
	}
	handle.SetMaxOpenConns(10)
	handle.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err = retry.Do(pingCtx, 5, time.Second, func() error {
		return handle.PingContext(pingCtx)
	})
	if err != nil {
		handle.Close()
		return nil, fmt.Errorf("connect to %s database: %w", name, err)
	}
	return handle, nil
}

func contains(steps []int, n int) bool {
	for _, s := range steps {
		if s == n {
			return true
		}
	}
	return false
}
