package txn

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMissingColumn is returned when the source header lacks a column
// the pipeline expects. The wrapped message names the column.
var ErrMissingColumn = errors.New("missing expected column")

// sourceColumns are the required columns of the raw transaction CSV,
// matching the source table schema.
var sourceColumns = []string{
	"TransactionID",
	"AccountID",
	"TransactionAmount",
	"TransactionDate",
	"TransactionType",
	"Location",
	"DeviceID",
	"IP_Address",
	"MerchantID",
	"Channel",
	"CustomerAge",
	"CustomerOccupation",
	"TransactionDuration",
	"LoginAttempts",
	"AccountBalance",
	"PreviousTransactionDate",
}

// ReadRecords parses raw transactions from CSV. The IsFraud column is
// optional; when absent every record is unlabeled (false). A missing
// required column fails immediately with ErrMissingColumn.
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range sourceColumns {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	fraudCol, hasFraud := idx["IsFraud"]

	var records []Record
	line := 1
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		line++

		get := func(name string) string { return fields[idx[name]] }

		amount, err := decimal.NewFromString(get("TransactionAmount"))
		if err != nil {
			return nil, fmt.Errorf("line %d: parse TransactionAmount: %w", line, err)
		}
		balance, err := decimal.NewFromString(get("AccountBalance"))
		if err != nil {
			return nil, fmt.Errorf("line %d: parse AccountBalance: %w", line, err)
		}
		ts, err := time.Parse(TimeLayout, get("TransactionDate"))
		if err != nil {
			return nil, fmt.Errorf("line %d: parse TransactionDate: %w", line, err)
		}

		rec := Record{
			TransactionID: get("TransactionID"),
			AccountID:     get("AccountID"),
			Amount:        amount,
			Timestamp:     ts,
			Type:          get("TransactionType"),
			Location:      get("Location"),
			DeviceID:      get("DeviceID"),
			IPAddress:     get("IP_Address"),
			MerchantID:    get("MerchantID"),
			Channel:       get("Channel"),
			Occupation:    get("CustomerOccupation"),
			Balance:       balance,
		}
		rec.CustomerAge, _ = strconv.Atoi(get("CustomerAge"))
		rec.Duration, _ = strconv.ParseFloat(get("TransactionDuration"), 64)
		rec.LoginAttempts, _ = strconv.Atoi(get("LoginAttempts"))

		// A blank previous timestamp means no prior transaction; the
		// gap feature falls back to its capped value downstream.
		if raw := get("PreviousTransactionDate"); raw != "" {
			prev, err := time.Parse(TimeLayout, raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: parse PreviousTransactionDate: %w", line, err)
			}
			rec.PreviousTimestamp = prev
		}

		if hasFraud {
			rec.IsFraud = fields[fraudCol] == "1" || fields[fraudCol] == "true" || fields[fraudCol] == "True"
		}
		records = append(records, rec)
	}
	return records, nil
}

// featureColumns is the full header of the processed feature table:
// every source column followed by every derived column.
var featureColumns = append(append([]string{}, sourceColumns...),
	"IsFraud",
	"TransactionAmount_Normalized",
	"TransactionHour",
	"TransactionDayOfWeek",
	"TransactionMonth",
	"IsWeekend",
	"IsEvening",
	"HoursSincePrevious",
	"IP_FirstOctet",
	"LocationFrequency",
	"UnusualLocation",
	"DeviceFrequency",
	"UnusualDevice",
	"ChannelRiskScore",
	"AccountTxnCount",
	"AccountAvgAmount",
	"AccountStdAmount",
	"AccountMaxAmount",
	"AmountToAccountAvgRatio",
	"AmountAccountZScore",
	"IsMaxAmount",
	"IsLargeTransaction",
	"TxnCountLast24h",
	"TxnAmountLast24h",
	"TxnCountLast7d",
	"TxnAmountLast7d",
	"TxnAmountPerCountLast24h",
	"TxnAmountPerCountLast7d",
	"HighVelocity24h",
	"ExponentialVelocityScore",
	"LoginAttemptsRatio",
	"AmountToBalanceRatio",
	"AccountDurationAvg",
	"AccountDurationStd",
	"DurationZScore",
	"UnusualDuration",
	"AgeGroup",
	"OccupationRiskScore",
	"YoungHighBalance",
	"MerchantFrequency",
	"UnusualMerchant",
	"MerchantAvgAmount",
	"AmountToMerchantAvgRatio",
	"HighMerchantAmount",
	"RiskScore",
	"HighRiskFlag",
	"TransactionTimeOfDay",
	"TransactionTimeRiskScore",
	"AmountDeviationScore",
	"CombinedRiskScore",
)

// WriteFeatureRows writes the feature-augmented table as CSV. Output
// is deterministic for a given input: running the pipeline twice on an
// unchanged source yields byte-identical files.
func WriteFeatureRows(w io.Writer, rows []FeatureRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(featureColumns); err != nil {
		return fmt.Errorf("write feature header: %w", err)
	}
	for i := range rows {
		if err := cw.Write(featureFields(&rows[i])); err != nil {
			return fmt.Errorf("write feature row %s: %w", rows[i].TransactionID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func featureFields(r *FeatureRow) []string {
	prev := ""
	if r.HasPrevious() {
		prev = r.PreviousTimestamp.Format(TimeLayout)
	}
	return []string{
		r.TransactionID,
		r.AccountID,
		r.Amount.String(),
		r.Timestamp.Format(TimeLayout),
		r.Type,
		r.Location,
		r.DeviceID,
		r.IPAddress,
		r.MerchantID,
		r.Channel,
		strconv.Itoa(r.CustomerAge),
		r.Occupation,
		ffmt(r.Duration),
		strconv.Itoa(r.LoginAttempts),
		r.Balance.String(),
		prev,
		bfmt(r.IsFraud),
		ffmt(r.AmountNormalized),
		strconv.Itoa(r.Hour),
		strconv.Itoa(r.DayOfWeek),
		strconv.Itoa(r.Month),
		strconv.Itoa(r.IsWeekend),
		strconv.Itoa(r.IsEvening),
		ffmt(r.HoursSincePrevious),
		strconv.Itoa(r.IPFirstOctet),
		strconv.Itoa(r.LocationFrequency),
		strconv.Itoa(r.UnusualLocation),
		strconv.Itoa(r.DeviceFrequency),
		strconv.Itoa(r.UnusualDevice),
		ffmt(r.ChannelRisk),
		strconv.Itoa(r.AccountTxnCount),
		ffmt(r.AccountAvgAmount),
		ffmt(r.AccountStdAmount),
		ffmt(r.AccountMaxAmount),
		ffmt(r.AmountToAccountAvgRatio),
		ffmt(r.AmountZScore),
		strconv.Itoa(r.IsMaxAmount),
		strconv.Itoa(r.IsLargeTransaction),
		strconv.Itoa(r.Count24h),
		ffmt(r.Sum24h),
		strconv.Itoa(r.Count7d),
		ffmt(r.Sum7d),
		ffmt(r.AmountPerTxn24h),
		ffmt(r.AmountPerTxn7d),
		strconv.Itoa(r.HighVelocity24h),
		ffmt(r.ExponentialVelocityScore),
		ffmt(r.LoginAttemptsRatio),
		ffmt(r.AmountToBalanceRatio),
		ffmt(r.AccountDurationAvg),
		ffmt(r.AccountDurationStd),
		ffmt(r.DurationZScore),
		strconv.Itoa(r.UnusualDuration),
		r.AgeGroup,
		ffmt(r.OccupationRisk),
		strconv.Itoa(r.YoungHighBalance),
		strconv.Itoa(r.MerchantFrequency),
		strconv.Itoa(r.UnusualMerchant),
		ffmt(r.MerchantAvgAmount),
		ffmt(r.AmountToMerchantAvgRatio),
		strconv.Itoa(r.HighMerchantAmount),
		ffmt(r.RiskScore),
		strconv.Itoa(r.HighRiskFlag),
		r.TimeOfDay,
		ffmt(r.TimeOfDayRisk),
		ffmt(r.AmountDeviationScore),
		ffmt(r.CombinedRiskScore),
	}
}

func ffmt(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func bfmt(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
