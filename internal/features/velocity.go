package features

import (
	"math"
	"time"

	"github.com/dmarchuk/fraudetl/internal/txn"
)

// Velocity window policy.
const (
	shortWindow = 24 * time.Hour
	longWindow  = 7 * 24 * time.Hour

	// HighVelocityCount and HighVelocityAvgMultiple define the
	// high-velocity flag: more than HighVelocityCount transactions in
	// 24h whose sum exceeds HighVelocityAvgMultiple times the
	// account's average amount.
	HighVelocityCount       = 3
	HighVelocityAvgMultiple = 2.0

	// ExpVelocityScale divides the 24h amount sum inside the
	// exponential velocity score.
	ExpVelocityScale = 1000.0
)

// buildVelocity computes trailing-window counts and sums per account.
//
// Windows are strictly causal: a transaction at time ts looks at
// [ts-24h, ts) and [ts-7d, ts) within its own account only.
// Transactions sharing the exact timestamp are excluded, so a row
// never contributes to its own window and no future row leaks in.
//
// Rows arrive sorted by account and timestamp, so each account is
// scanned once with three monotonically advancing indices instead of
// re-scanning the history per row.
func buildVelocity(rows []txn.FeatureRow) {
	accountSegments(rows, func(start, end int) {
		n := end - start

		// Prefix sums of amounts within the account segment.
		prefix := make([]float64, n+1)
		for i := 0; i < n; i++ {
			prefix[i+1] = prefix[i] + amount(&rows[start+i])
		}

		loShort, loLong, hi := 0, 0, 0
		for k := 0; k < n; k++ {
			ts := rows[start+k].Timestamp

			// hi: first index at or after ts. Everything in [0, hi)
			// is strictly earlier than this row.
			for hi < k && rows[start+hi].Timestamp.Before(ts) {
				hi++
			}
			for loShort < hi && rows[start+loShort].Timestamp.Before(ts.Add(-shortWindow)) {
				loShort++
			}
			for loLong < hi && rows[start+loLong].Timestamp.Before(ts.Add(-longWindow)) {
				loLong++
			}

			r := &rows[start+k]
			r.Count24h = hi - loShort
			r.Sum24h = prefix[hi] - prefix[loShort]
			r.Count7d = hi - loLong
			r.Sum7d = prefix[hi] - prefix[loLong]

			if r.Count24h > 0 {
				r.AmountPerTxn24h = r.Sum24h / float64(r.Count24h)
			}
			if r.Count7d > 0 {
				r.AmountPerTxn7d = r.Sum7d / float64(r.Count7d)
			}

			if r.Count24h > HighVelocityCount && r.Sum24h > HighVelocityAvgMultiple*r.AccountAvgAmount {
				r.HighVelocity24h = 1
			}

			r.ExponentialVelocityScore = float64(r.Count24h) * math.Exp(r.Sum24h/ExpVelocityScale)
		}
	})
}
