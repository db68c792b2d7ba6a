// Package features implements the feature-engineering transform for
// bank transactions.
//
// Every transaction in a batch is evaluated against behavioral,
// temporal, and risk-aggregate signals: calendar features, per-account
// frequency and novelty of location/device/merchant, account-level
// amount statistics, strictly-causal trailing-window velocity (24h and
// 7d), and a weighted rule-based risk score. Stages run in a fixed
// order over the full batch; each stage only augments rows, never
// removes them.
package features

import (
	"sort"

	"github.com/dmarchuk/fraudetl/internal/txn"
)

// Policy constants. The transform absorbs data-quality edge cases
// (zero variance, zero averages, missing previous timestamps) with
// these named fallbacks instead of propagating errors.
const (
	// UnusualFrequencyThreshold marks a location/device/merchant as
	// unusual for an account when it appears fewer than this many
	// times in the batch.
	UnusualFrequencyThreshold = 3

	// LargeTxnRatio flags a transaction above this multiple of the
	// account's average amount.
	LargeTxnRatio = 1.5

	// HighMerchantRatio flags a transaction above this multiple of the
	// merchant's average amount.
	HighMerchantRatio = 2.0

	// UnusualDurationZ flags durations whose |z-score| exceeds this.
	UnusualDurationZ = 2.0

	// HighRiskScoreThreshold is the rule-based score above which a
	// transaction is flagged high risk.
	HighRiskScoreThreshold = 10.0

	// MaxPreviousGapHours caps the inter-transaction gap. Missing or
	// inverted previous timestamps fall back to this value instead of
	// an unbounded or negative gap.
	MaxPreviousGapHours = 720.0

	// EveningHour is the first hour counted as evening.
	EveningHour = 18

	// ZeroStdDivisor replaces a zero standard deviation in any
	// z-score denominator.
	ZeroStdDivisor = 1.0

	// NeutralRatio replaces a ratio whose denominator is zero.
	NeutralRatio = 1.0
)

// Build runs the full transform over a batch and returns one
// feature-augmented row per input record. The output is ordered by
// account then timestamp then transaction ID, so identical inputs
// always produce identical output, column for column.
func Build(records []txn.Record) []txn.FeatureRow {
	rows := make([]txn.FeatureRow, len(records))
	for i, rec := range records {
		rows[i] = txn.FeatureRow{Record: rec}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].AccountID != rows[j].AccountID {
			return rows[i].AccountID < rows[j].AccountID
		}
		if !rows[i].Timestamp.Equal(rows[j].Timestamp) {
			return rows[i].Timestamp.Before(rows[j].Timestamp)
		}
		return rows[i].TransactionID < rows[j].TransactionID
	})

	normalizeAmounts(rows)
	buildTemporal(rows)
	buildContext(rows)
	buildAccountAggregates(rows)
	buildVelocity(rows)
	buildBehavior(rows)
	buildDemographics(rows)
	buildMerchant(rows)
	buildRisk(rows)

	return rows
}

// accountSegments yields [start, end) index pairs of the per-account
// runs in rows. Rows must already be sorted by account.
func accountSegments(rows []txn.FeatureRow, fn func(start, end int)) {
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].AccountID != rows[start].AccountID {
			fn(start, i)
			start = i
		}
	}
}

func amount(r *txn.FeatureRow) float64 { return r.Amount.InexactFloat64() }

// safeStd substitutes the zero-variance fallback divisor.
func safeStd(std float64) float64 {
	if std == 0 {
		return ZeroStdDivisor
	}
	return std
}
