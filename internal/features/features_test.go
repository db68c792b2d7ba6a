package features

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarchuk/fraudetl/internal/txn"
)

func TestBuild_AccountAggregates(t *testing.T) {
	rows := Build([]txn.Record{
		rec("T1", "A1", 100, baseTime),
		rec("T2", "A1", 200, baseTime.Add(time.Hour)),
		rec("T3", "A1", 300, baseTime.Add(2*time.Hour)),
	})

	r := rowByID(t, rows, "T2")
	assert.Equal(t, 3, r.AccountTxnCount)
	assert.InDelta(t, 200.0, r.AccountAvgAmount, 1e-9)
	// Population std of {100, 200, 300}.
	assert.InDelta(t, 81.6496580927726, r.AccountStdAmount, 1e-9)
	assert.InDelta(t, 300.0, r.AccountMaxAmount, 1e-9)
	assert.Equal(t, 0, r.IsMaxAmount)
	assert.Equal(t, 1, rowByID(t, rows, "T3").IsMaxAmount)

	// 300/200 = 1.5 is not strictly above the large-transaction ratio.
	assert.Equal(t, 0, rowByID(t, rows, "T3").IsLargeTransaction)
}

func TestBuild_ZeroAverageAmountRatioFallback(t *testing.T) {
	rows := Build([]txn.Record{
		rec("T1", "A1", 0, baseTime),
		rec("T2", "A1", 0, baseTime.Add(time.Hour)),
	})
	for i := range rows {
		assert.InDelta(t, NeutralRatio, rows[i].AmountToAccountAvgRatio, 1e-9)
		assert.Zero(t, rows[i].AmountZScore)
	}
}

func TestBuild_SingleTransactionStdIsZero(t *testing.T) {
	rows := Build([]txn.Record{rec("T1", "A1", 42, baseTime)})
	r := rowByID(t, rows, "T1")

	assert.Zero(t, r.AccountStdAmount)
	assert.Zero(t, r.AccountDurationStd)
	// Zero std divides by the fallback, never NaN.
	assert.Zero(t, r.AmountZScore)
	assert.Zero(t, r.DurationZScore)
	assert.Zero(t, r.AmountDeviationScore)
}

func TestChannelRiskScore(t *testing.T) {
	tests := []struct {
		channel string
		want    float64
	}{
		{"Online", 3},
		{"ATM", 2},
		{"Branch", 1},
		{"Mobile", DefaultChannelRisk},
		{"", DefaultChannelRisk},
	}
	for _, tt := range tests {
		if got := ChannelRiskScore(tt.channel); got != tt.want {
			t.Errorf("ChannelRiskScore(%q) = %v, want %v", tt.channel, got, tt.want)
		}
	}
}

func TestOccupationRiskScore(t *testing.T) {
	if got := OccupationRiskScore("Student"); got != 2 {
		t.Errorf("Student = %v, want 2", got)
	}
	if got := OccupationRiskScore("Astronaut"); got != DefaultOccupationRisk {
		t.Errorf("unmapped occupation = %v, want default %v", got, DefaultOccupationRisk)
	}
}

func TestAgeGroup(t *testing.T) {
	tests := []struct {
		age  int
		want string
	}{
		{17, "<18"},
		{18, "<18"},
		{19, "18-25"},
		{25, "18-25"},
		{26, "26-35"},
		{35, "26-35"},
		{50, "36-50"},
		{65, "51-65"},
		{66, "65+"},
		{100, "65+"},
		{0, ""},
		{101, ""},
	}
	for _, tt := range tests {
		if got := AgeGroup(tt.age); got != tt.want {
			t.Errorf("AgeGroup(%d) = %q, want %q", tt.age, got, tt.want)
		}
	}
}

func TestBuild_RiskScoreThreshold(t *testing.T) {
	// A single-transaction account makes every frequency signal
	// unusual: 3 (location) + 3 (device) + 2 (merchant) plus Online
	// channel risk 3 sums to exactly 11.
	r := rec("T1", "A1", 100, baseTime)
	r.LoginAttempts = 0
	rows := Build([]txn.Record{r})

	row := rowByID(t, rows, "T1")
	require.InDelta(t, 11.0, row.RiskScore, 1e-9)
	assert.Equal(t, 1, row.HighRiskFlag)

	// Same shape through the Branch channel scores 9: below threshold.
	b := rec("T2", "A2", 100, baseTime)
	b.LoginAttempts = 0
	b.Channel = "Branch"
	rows = Build([]txn.Record{b})
	row = rowByID(t, rows, "T2")
	require.InDelta(t, 9.0, row.RiskScore, 1e-9)
	assert.Equal(t, 0, row.HighRiskFlag)
}

func TestBuild_CombinedRiskScoreRetainsBase(t *testing.T) {
	r := rec("T1", "A1", 100, baseTime) // 10:00 → Morning
	r.LoginAttempts = 0
	rows := Build([]txn.Record{r})
	row := rowByID(t, rows, "T1")

	assert.Equal(t, "Morning", row.TimeOfDay)
	assert.InDelta(t, 1.0, row.TimeOfDayRisk, 1e-9)
	// Base 11 + 0.5·1 + 0.3·0 + 0.2·0.
	assert.InDelta(t, 11.5, row.CombinedRiskScore, 1e-9)
	assert.InDelta(t, 11.0, row.RiskScore, 1e-9)
}

func TestBuild_GapSincePrevious(t *testing.T) {
	withPrev := rec("T1", "A1", 100, baseTime)
	withPrev.PreviousTimestamp = baseTime.Add(-6 * time.Hour)

	missing := rec("T2", "A2", 100, baseTime)

	inverted := rec("T3", "A3", 100, baseTime)
	inverted.PreviousTimestamp = baseTime.Add(2 * time.Hour)

	ancient := rec("T4", "A4", 100, baseTime)
	ancient.PreviousTimestamp = baseTime.Add(-45 * 24 * time.Hour)

	rows := Build([]txn.Record{withPrev, missing, inverted, ancient})

	assert.InDelta(t, 6.0, rowByID(t, rows, "T1").HoursSincePrevious, 1e-9)
	assert.InDelta(t, MaxPreviousGapHours, rowByID(t, rows, "T2").HoursSincePrevious, 1e-9)
	assert.InDelta(t, MaxPreviousGapHours, rowByID(t, rows, "T3").HoursSincePrevious, 1e-9)
	assert.InDelta(t, MaxPreviousGapHours, rowByID(t, rows, "T4").HoursSincePrevious, 1e-9)
}

func TestBuild_TemporalFlags(t *testing.T) {
	// 2024-03-16 is a Saturday; 19:00 is evening.
	sat := rec("T1", "A1", 100, time.Date(2024, 3, 16, 19, 0, 0, 0, time.UTC))
	rows := Build([]txn.Record{sat})
	r := rowByID(t, rows, "T1")

	assert.Equal(t, 5, r.DayOfWeek)
	assert.Equal(t, 1, r.IsWeekend)
	assert.Equal(t, 1, r.IsEvening)
	assert.Equal(t, 19, r.Hour)
	assert.Equal(t, 3, r.Month)
}

func TestBuild_Idempotent(t *testing.T) {
	records := []txn.Record{
		rec("T1", "A1", 100, baseTime),
		rec("T2", "A1", 5000, baseTime.Add(time.Hour)),
		rec("T3", "A1", 110, baseTime.Add(2*time.Hour)),
		rec("T4", "B2", 75.50, baseTime.Add(30*time.Minute)),
		rec("T5", "B2", 75.50, baseTime.Add(26*time.Hour)),
	}

	var first, second bytes.Buffer
	require.NoError(t, txn.WriteFeatureRows(&first, Build(records)))
	require.NoError(t, txn.WriteFeatureRows(&second, Build(records)))

	assert.True(t, bytes.Equal(first.Bytes(), second.Bytes()),
		"two runs over the same source must produce byte-identical output")
}

func TestBuild_InputOrderIndependent(t *testing.T) {
	records := []txn.Record{
		rec("T1", "A1", 100, baseTime),
		rec("T2", "B2", 200, baseTime.Add(time.Minute)),
		rec("T3", "A1", 300, baseTime.Add(2*time.Minute)),
	}
	shuffled := []txn.Record{records[2], records[0], records[1]}

	var a, b bytes.Buffer
	require.NoError(t, txn.WriteFeatureRows(&a, Build(records)))
	require.NoError(t, txn.WriteFeatureRows(&b, Build(shuffled)))
	assert.Equal(t, a.String(), b.String())
}

func TestBuild_ContextFrequenciesAreBatchGlobal(t *testing.T) {
	// The later transaction at the same location still counts the
	// earlier AND later occurrences: frequency signals are not causal.
	records := []txn.Record{
		rec("T1", "A1", 10, baseTime),
		rec("T2", "A1", 10, baseTime.Add(time.Hour)),
		rec("T3", "A1", 10, baseTime.Add(2*time.Hour)),
	}
	rows := Build(records)
	for i := range rows {
		assert.Equal(t, 3, rows[i].LocationFrequency)
		assert.Equal(t, 0, rows[i].UnusualLocation)
	}
}

func TestBuild_MerchantAverageAcrossAccounts(t *testing.T) {
	a := rec("T1", "A1", 100, baseTime)
	b := rec("T2", "B2", 300, baseTime.Add(time.Hour))
	rows := Build([]txn.Record{a, b})

	// Merchant average spans accounts: (100+300)/2.
	assert.InDelta(t, 200.0, rowByID(t, rows, "T1").MerchantAvgAmount, 1e-9)
	assert.InDelta(t, 0.5, rowByID(t, rows, "T1").AmountToMerchantAvgRatio, 1e-9)
	assert.InDelta(t, 1.5, rowByID(t, rows, "T2").AmountToMerchantAvgRatio, 1e-9)
}

func TestBuild_BalanceRatioFloor(t *testing.T) {
	r := rec("T1", "A1", 100, baseTime)
	r.Balance = decimal.Zero
	rows := Build([]txn.Record{r})
	assert.InDelta(t, 100.0, rowByID(t, rows, "T1").AmountToBalanceRatio, 1e-9)
}
