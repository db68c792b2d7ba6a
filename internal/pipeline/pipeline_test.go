package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarchuk/fraudetl/internal/config"
	"github.com/dmarchuk/fraudetl/internal/mart"
	"github.com/dmarchuk/fraudetl/internal/txn"
	"github.com/dmarchuk/fraudetl/internal/warehouse"
)

func TestRunner_RunsStagesInOrder(t *testing.T) {
	var order []string
	stage := func(name string) Stage {
		return StageFunc{StageName: name, Fn: func(ctx context.Context) (int, error) {
			order = append(order, name)
			return 1, nil
		}}
	}
	runner := NewRunner(map[int]Stage{
		1: stage("load"),
		2: stage("transform"),
		3: stage("train"),
	})

	require.NoError(t, runner.Run(context.Background(), []int{1, 2, 3}))
	assert.Equal(t, []string{"load", "transform", "train"}, order)
}

func TestRunner_FailureAbortsRemainingStages(t *testing.T) {
	boom := errors.New("boom")
	var ran []string
	ok := func(name string) Stage {
		return StageFunc{StageName: name, Fn: func(ctx context.Context) (int, error) {
			ran = append(ran, name)
			return 0, nil
		}}
	}
	runner := NewRunner(map[int]Stage{
		1: ok("load"),
		2: StageFunc{StageName: "transform", Fn: func(ctx context.Context) (int, error) {
			return 0, boom
		}},
		3: ok("train"),
	})

	err := runner.Run(context.Background(), []int{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "transform", "error names the failed stage")
	assert.Equal(t, []string{"load"}, ran)
}

func TestRunner_UnknownStepFailsBeforeRunning(t *testing.T) {
	ran := false
	runner := NewRunner(map[int]Stage{
		1: StageFunc{StageName: "load", Fn: func(ctx context.Context) (int, error) {
			ran = true
			return 0, nil
		}},
	})

	err := runner.Run(context.Background(), []int{1, 9})
	require.Error(t, err)
	assert.False(t, ran)
}

// syntheticBatch mixes fraud and legit transactions across several
// accounts so training has both classes and some window overlap.
func syntheticBatch(n int) []txn.Record {
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	records := make([]txn.Record, 0, n)
	for i := 0; i < n; i++ {
		fraud := i%4 == 0
		amount := 50.0 + float64(i%9)
		device := "DEV001"
		if fraud {
			amount = 3000.0 + float64(i)
			device = "DEV666"
		}
		records = append(records, txn.Record{
			TransactionID: fmt.Sprintf("TXN%03d", i),
			AccountID:     fmt.Sprintf("ACC%03d", i%4),
			Amount:        decimal.NewFromFloat(amount),
			Timestamp:     base.Add(time.Duration(i) * 2 * time.Hour),
			Type:          "Debit",
			Location:      "Chicago",
			DeviceID:      device,
			IPAddress:     "192.168.1.1",
			MerchantID:    "MERCH001",
			Channel:       "Online",
			CustomerAge:   34,
			Occupation:    "Engineer",
			Duration:      60,
			LoginAttempts: 1,
			Balance:       decimal.NewFromInt(5000),
			IsFraud:       fraud,
		})
	}
	return records
}

func TestApp_FullRun(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	cfg := &config.Config{
		DataDir:       dataDir,
		ModelDir:      filepath.Join(dataDir, "models"),
		SourceCSVName: "missing.csv",
	}
	wh := warehouse.NewMemoryStore()
	mt := mart.NewMemoryStore()
	require.NoError(t, wh.InsertTransactions(ctx, syntheticBatch(80)))

	app := NewApp(cfg, wh, mt)
	// Skip the load step so the seeded batch is what gets transformed.
	require.NoError(t, app.Runner.Run(ctx, []int{StepTransform, StepTrain, StepPredict}))

	rows, err := wh.ListFeatures(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 80)

	_, err = os.Stat(filepath.Join(dataDir, FeatureFileName))
	assert.NoError(t, err, "feature csv written")

	n, err := mt.CountPredictions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80, n)

	path, err := app.ExportPredictions(ctx)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestApp_TransformSeedsEmptyWarehouse(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	cfg := &config.Config{
		DataDir:       dataDir,
		ModelDir:      filepath.Join(dataDir, "models"),
		SourceCSVName: "missing.csv",
	}
	wh := warehouse.NewMemoryStore()
	app := NewApp(cfg, wh, mart.NewMemoryStore())

	require.NoError(t, app.Runner.Run(ctx, []int{StepTransform}))

	rows, err := wh.ListFeatures(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, rows, "transform on a fresh database ingests first")
}

func TestTransformer_EmptyWarehouseFails(t *testing.T) {
	tr := NewTransformer(warehouse.NewMemoryStore(), t.TempDir())
	_, err := tr.Run(context.Background())
	assert.ErrorIs(t, err, warehouse.ErrNoTransactions)
}

func TestTransformer_RerunIsByteIdentical(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	wh := warehouse.NewMemoryStore()
	require.NoError(t, wh.InsertTransactions(ctx, syntheticBatch(40)))
	tr := NewTransformer(wh, dir)

	_, err := tr.Run(ctx)
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(dir, FeatureFileName))
	require.NoError(t, err)

	_, err = tr.Run(ctx)
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, FeatureFileName))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
