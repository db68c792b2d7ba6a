// Package txn defines the bank transaction record and its
// feature-augmented form, the unit handed between pipeline stages.
package txn

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is the timestamp format used by the source CSV and the
// delimited outputs.
const TimeLayout = "2006-01-02 15:04:05"

// Record is a single raw bank transaction as read from the source
// table or CSV. TransactionID is unique across a batch.
type Record struct {
	TransactionID     string          `json:"transaction_id"`
	AccountID         string          `json:"account_id"`
	Amount            decimal.Decimal `json:"amount"`
	Timestamp         time.Time       `json:"timestamp"`
	Type              string          `json:"type"`
	Location          string          `json:"location"`
	DeviceID          string          `json:"device_id"`
	IPAddress         string          `json:"ip_address"`
	MerchantID        string          `json:"merchant_id"`
	Channel           string          `json:"channel"`
	CustomerAge       int             `json:"customer_age"`
	Occupation        string          `json:"occupation"`
	Duration          float64         `json:"duration"`
	LoginAttempts     int             `json:"login_attempts"`
	Balance           decimal.Decimal `json:"balance"`
	PreviousTimestamp time.Time       `json:"previous_timestamp"` // zero when no prior transaction
	IsFraud           bool            `json:"is_fraud"`
}

// HasPrevious reports whether the record carries a usable
// previous-transaction timestamp.
func (r *Record) HasPrevious() bool {
	return !r.PreviousTimestamp.IsZero()
}

// FeatureRow is a Record extended with every derived column produced
// by the feature-engineering stages. No stage removes rows; each stage
// only fills in the fields it owns.
type FeatureRow struct {
	Record

	// Amount normalization (z-score over the full batch).
	AmountNormalized float64 `json:"amount_normalized"`

	// Temporal features.
	Hour               int     `json:"hour"`
	DayOfWeek          int     `json:"day_of_week"`
	Month              int     `json:"month"`
	IsWeekend          int     `json:"is_weekend"`
	IsEvening          int     `json:"is_evening"`
	HoursSincePrevious float64 `json:"hours_since_previous"`

	// Network / context features.
	IPFirstOctet      int     `json:"ip_first_octet"`
	LocationFrequency int     `json:"location_frequency"`
	UnusualLocation   int     `json:"unusual_location"`
	DeviceFrequency   int     `json:"device_frequency"`
	UnusualDevice     int     `json:"unusual_device"`
	ChannelRisk       float64 `json:"channel_risk"`

	// Account aggregates.
	AccountTxnCount         int     `json:"account_txn_count"`
	AccountAvgAmount        float64 `json:"account_avg_amount"`
	AccountStdAmount        float64 `json:"account_std_amount"`
	AccountMaxAmount        float64 `json:"account_max_amount"`
	AmountToAccountAvgRatio float64 `json:"amount_to_account_avg_ratio"`
	AmountZScore            float64 `json:"amount_z_score"`
	IsMaxAmount             int     `json:"is_max_amount"`
	IsLargeTransaction      int     `json:"is_large_transaction"`

	// Trailing-window velocity features.
	Count24h                 int     `json:"count_24h"`
	Sum24h                   float64 `json:"sum_24h"`
	Count7d                  int     `json:"count_7d"`
	Sum7d                    float64 `json:"sum_7d"`
	AmountPerTxn24h          float64 `json:"amount_per_txn_24h"`
	AmountPerTxn7d           float64 `json:"amount_per_txn_7d"`
	HighVelocity24h          int     `json:"high_velocity_24h"`
	ExponentialVelocityScore float64 `json:"exponential_velocity_score"`

	// Behavioral features.
	LoginAttemptsRatio   float64 `json:"login_attempts_ratio"`
	AmountToBalanceRatio float64 `json:"amount_to_balance_ratio"`
	AccountDurationAvg   float64 `json:"account_duration_avg"`
	AccountDurationStd   float64 `json:"account_duration_std"`
	DurationZScore       float64 `json:"duration_z_score"`
	UnusualDuration      int     `json:"unusual_duration"`

	// Demographic features.
	AgeGroup         string  `json:"age_group"`
	OccupationRisk   float64 `json:"occupation_risk"`
	YoungHighBalance int     `json:"young_high_balance"`

	// Merchant features.
	MerchantFrequency        int     `json:"merchant_frequency"`
	UnusualMerchant          int     `json:"unusual_merchant"`
	MerchantAvgAmount        float64 `json:"merchant_avg_amount"`
	AmountToMerchantAvgRatio float64 `json:"amount_to_merchant_avg_ratio"`
	HighMerchantAmount       int     `json:"high_merchant_amount"`

	// Risk scores. RiskScore is the base weighted score; the combined
	// score layers time-of-day, deviation, and velocity on top. Both
	// are persisted because downstream consumers reference either.
	RiskScore            float64 `json:"risk_score"`
	HighRiskFlag         int     `json:"high_risk_flag"`
	TimeOfDay            string  `json:"time_of_day"`
	TimeOfDayRisk        float64 `json:"time_of_day_risk"`
	AmountDeviationScore float64 `json:"amount_deviation_score"`
	CombinedRiskScore    float64 `json:"combined_risk_score"`
}
