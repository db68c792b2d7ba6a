// Package model trains and applies the fraud classifier, a bagged
// forest of depth-limited decision trees over a fixed feature vector.
// Training is fully deterministic for a fixed seed, so retraining on
// unchanged data reproduces the artifact bit for bit.
package model

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dmarchuk/fraudetl/internal/txn"
)

const (
	NumTrees         = 100
	MaxDepth         = 10
	MinSamplesSplit  = 2
	Seed             = 42
	TestFraction     = 0.2
	DefaultThreshold = 0.5
)

// ErrFeatureMismatch is returned when a saved artifact's feature
// vector does not match what the scorer builds. Scoring with a stale
// artifact is a fatal condition, not something to paper over.
var ErrFeatureMismatch = errors.New("model feature vector mismatch")

// ErrNotEnoughClasses is returned when the training labels contain
// fewer than two classes.
var ErrNotEnoughClasses = errors.New("training data needs both fraud and non-fraud rows")

// FeatureNames is the ordered model input vector. Order is part of
// the artifact contract; changing it invalidates saved models.
var FeatureNames = []string{
	"amount",
	"amount_log",
	"hour",
	"day_of_week",
	"is_weekend",
	"location_encoded",
	"device_encoded",
	"merchant_encoded",
}

// Encoder maps a categorical value to a stable integer code. Codes
// are assigned by sorted order of the distinct values seen at
// training time. Values unseen at training encode as -1.
type Encoder struct {
	Codes map[string]int `json:"codes"`
}

// FitEncoder builds an encoder from the given values.
func FitEncoder(values []string) Encoder {
	uniq := make(map[string]struct{}, len(values))
	for _, v := range values {
		uniq[v] = struct{}{}
	}
	sorted := make([]string, 0, len(uniq))
	for v := range uniq {
		sorted = append(sorted, v)
	}
	sort.Strings(sorted)

	codes := make(map[string]int, len(sorted))
	for i, v := range sorted {
		codes[v] = i
	}
	return Encoder{Codes: codes}
}

// Encode returns the code for v, or -1 when v was not seen at fit time.
func (e Encoder) Encode(v string) float64 {
	if code, ok := e.Codes[v]; ok {
		return float64(code)
	}
	return -1
}

// Encoders holds the categorical encoders the model was fit with.
type Encoders struct {
	Location Encoder `json:"location"`
	Device   Encoder `json:"device"`
	Merchant Encoder `json:"merchant"`
}

// FitEncoders builds the categorical encoders from the feature rows.
func FitEncoders(rows []txn.FeatureRow) Encoders {
	locations := make([]string, len(rows))
	devices := make([]string, len(rows))
	merchants := make([]string, len(rows))
	for i := range rows {
		locations[i] = rows[i].Location
		devices[i] = rows[i].DeviceID
		merchants[i] = rows[i].MerchantID
	}
	return Encoders{
		Location: FitEncoder(locations),
		Device:   FitEncoder(devices),
		Merchant: FitEncoder(merchants),
	}
}

// Vector builds the model input for one feature row.
func (e Encoders) Vector(r *txn.FeatureRow) []float64 {
	amount, _ := r.Amount.Float64()
	return []float64{
		amount,
		math.Log1p(amount),
		float64(r.Hour),
		float64(r.DayOfWeek),
		float64(r.IsWeekend),
		e.Location.Encode(r.Location),
		e.Device.Encode(r.DeviceID),
		e.Merchant.Encode(r.MerchantID),
	}
}

// Dataset is the assembled training matrix.
type Dataset struct {
	X [][]float64
	Y []int
}

// BuildDataset assembles the training matrix from feature rows using
// the given encoders.
func BuildDataset(rows []txn.FeatureRow, enc Encoders) Dataset {
	ds := Dataset{
		X: make([][]float64, len(rows)),
		Y: make([]int, len(rows)),
	}
	for i := range rows {
		ds.X[i] = enc.Vector(&rows[i])
		if rows[i].IsFraud {
			ds.Y[i] = 1
		}
	}
	return ds
}

func checkWidth(x [][]float64) error {
	for i := range x {
		if len(x[i]) != len(FeatureNames) {
			return fmt.Errorf("%w: row %d has %d features, want %d",
				ErrFeatureMismatch, i, len(x[i]), len(FeatureNames))
		}
	}
	return nil
}
