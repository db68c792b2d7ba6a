package features

import (
	"math"

	"github.com/dmarchuk/fraudetl/internal/txn"
)

// Base risk score weights.
const (
	weightUnusualLocation    = 3.0
	weightUnusualDevice      = 3.0
	weightLargeTxn           = 2.0
	weightHighVelocity       = 3.0
	weightUnusualDuration    = 2.0
	weightLoginAttemptsRatio = 5.0
	weightUnusualMerchant    = 2.0
	weightHighMerchantAmount = 2.0
)

// Combined score weights layered on top of the base score.
const (
	weightTimeOfDayRisk  = 0.5
	weightDeviationScore = 0.3
	weightExpVelocity    = 0.2
)

// Time-of-day risk lookup.
var timeOfDayRisk = map[string]float64{
	"Morning":   1,
	"Afternoon": 2,
	"Evening":   3,
	"Night":     4,
}

// buildRisk combines the preceding signals into the base risk score,
// the high-risk flag, and the later-stage combined score. Both scores
// are kept on the row; downstream consumers reference either.
func buildRisk(rows []txn.FeatureRow) {
	for i := range rows {
		r := &rows[i]

		r.RiskScore = float64(r.UnusualLocation)*weightUnusualLocation +
			float64(r.UnusualDevice)*weightUnusualDevice +
			r.ChannelRisk +
			float64(r.IsLargeTransaction)*weightLargeTxn +
			float64(r.HighVelocity24h)*weightHighVelocity +
			float64(r.UnusualDuration)*weightUnusualDuration +
			r.LoginAttemptsRatio*weightLoginAttemptsRatio +
			float64(r.UnusualMerchant)*weightUnusualMerchant +
			float64(r.HighMerchantAmount)*weightHighMerchantAmount

		if r.RiskScore > HighRiskScoreThreshold {
			r.HighRiskFlag = 1
		}

		r.TimeOfDay = TimeOfDay(r.Hour)
		r.TimeOfDayRisk = timeOfDayRisk[r.TimeOfDay]

		r.AmountDeviationScore = math.Abs(amount(r)-r.AccountAvgAmount) / safeStd(r.AccountStdAmount)

		r.CombinedRiskScore = r.RiskScore +
			r.TimeOfDayRisk*weightTimeOfDayRisk +
			r.AmountDeviationScore*weightDeviationScore +
			r.ExponentialVelocityScore*weightExpVelocity
	}
}

// TimeOfDay buckets an hour of day.
func TimeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Morning"
	case hour >= 12 && hour < 17:
		return "Afternoon"
	case hour >= 17 && hour < 21:
		return "Evening"
	default:
		return "Night"
	}
}
