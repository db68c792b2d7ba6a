package features

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dmarchuk/fraudetl/internal/txn"
)

// normalizeAmounts computes the batch-wide amount z-score. A batch
// with zero amount variance normalizes to 0.
func normalizeAmounts(rows []txn.FeatureRow) {
	if len(rows) == 0 {
		return
	}
	amounts := make([]float64, len(rows))
	for i := range rows {
		amounts[i] = amount(&rows[i])
	}
	mean := stat.Mean(amounts, nil)
	std := stat.PopStdDev(amounts, nil)
	for i := range rows {
		if std == 0 {
			rows[i].AmountNormalized = 0
			continue
		}
		rows[i].AmountNormalized = (amounts[i] - mean) / std
	}
}

// buildAccountAggregates computes per-account amount statistics and
// merges them back onto every row of the account. Standard deviations
// are population deviations: an account with a single transaction gets
// 0, never NaN.
func buildAccountAggregates(rows []txn.FeatureRow) {
	accountSegments(rows, func(start, end int) {
		amounts := make([]float64, end-start)
		for i := start; i < end; i++ {
			amounts[i-start] = amount(&rows[i])
		}

		count := end - start
		avg := stat.Mean(amounts, nil)
		std := 0.0
		if count > 1 {
			std = stat.PopStdDev(amounts, nil)
		}
		max := floats.Max(amounts)

		for i := start; i < end; i++ {
			r := &rows[i]
			amt := amounts[i-start]

			r.AccountTxnCount = count
			r.AccountAvgAmount = avg
			r.AccountStdAmount = std
			r.AccountMaxAmount = max

			if avg == 0 {
				r.AmountToAccountAvgRatio = NeutralRatio
			} else {
				r.AmountToAccountAvgRatio = amt / avg
			}
			r.AmountZScore = (amt - avg) / safeStd(std)

			if amt == max {
				r.IsMaxAmount = 1
			}
			if r.AmountToAccountAvgRatio > LargeTxnRatio {
				r.IsLargeTransaction = 1
			}
		}
	})
}
