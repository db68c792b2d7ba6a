package features

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/dmarchuk/fraudetl/internal/txn"
)

// buildBehavior derives login, balance, and duration signals relative
// to each account's own history.
func buildBehavior(rows []txn.FeatureRow) {
	accountSegments(rows, func(start, end int) {
		durations := make([]float64, end-start)
		for i := start; i < end; i++ {
			durations[i-start] = rows[i].Duration
		}

		avg := stat.Mean(durations, nil)
		std := 0.0
		if len(durations) > 1 {
			std = stat.PopStdDev(durations, nil)
		}

		for i := start; i < end; i++ {
			r := &rows[i]

			// Denominators are floored at 1 so sparse accounts and
			// empty balances yield bounded ratios, not errors.
			r.LoginAttemptsRatio = float64(r.LoginAttempts) / math.Max(float64(r.AccountTxnCount), 1)
			r.AmountToBalanceRatio = amount(r) / math.Max(r.Balance.InexactFloat64(), 1)

			r.AccountDurationAvg = avg
			r.AccountDurationStd = std
			r.DurationZScore = (r.Duration - avg) / safeStd(std)
			if math.Abs(r.DurationZScore) > UnusualDurationZ {
				r.UnusualDuration = 1
			}
		}
	})
}
