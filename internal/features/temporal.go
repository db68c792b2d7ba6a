package features

import (
	"time"

	"github.com/dmarchuk/fraudetl/internal/txn"
)

// buildTemporal derives calendar features and the gap since the
// account's previous transaction.
func buildTemporal(rows []txn.FeatureRow) {
	for i := range rows {
		r := &rows[i]
		r.Hour = r.Timestamp.Hour()
		r.DayOfWeek = pandasWeekday(r.Timestamp.Weekday())
		r.Month = int(r.Timestamp.Month())

		if r.DayOfWeek >= 5 {
			r.IsWeekend = 1
		}
		if r.Hour >= EveningHour {
			r.IsEvening = 1
		}

		r.HoursSincePrevious = gapHours(r)
	}
}

// pandasWeekday maps time.Weekday (Sunday=0) onto the Monday=0
// convention the downstream feature table uses.
func pandasWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// gapHours returns the hours since the previous transaction, capped at
// MaxPreviousGapHours. A missing or inverted previous timestamp falls
// back to the cap.
func gapHours(r *txn.FeatureRow) float64 {
	if !r.HasPrevious() {
		return MaxPreviousGapHours
	}
	gap := r.Timestamp.Sub(r.PreviousTimestamp).Hours()
	if gap < 0 || gap > MaxPreviousGapHours {
		return MaxPreviousGapHours
	}
	return gap
}
