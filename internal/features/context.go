package features

import (
	"strconv"
	"strings"

	"github.com/dmarchuk/fraudetl/internal/txn"
)

// Channel risk lookup. Online carries the most fraud risk, branch the
// least. Channels outside the table score DefaultChannelRisk.
var channelRisk = map[string]float64{
	"Online": 3,
	"ATM":    2,
	"Branch": 1,
}

// DefaultChannelRisk is the explicit policy for unmapped channels: the
// middle of the known range rather than a missing value.
const DefaultChannelRisk = 2.0

// buildContext derives per-account frequency and novelty signals for
// location and device, plus channel risk and a rough IP network
// categorization.
//
// Frequencies are counted over the full batch, not a trailing window.
// That asymmetry with the causal velocity features is deliberate: the
// frequency signals describe how common a value is for the account
// across the whole training batch.
func buildContext(rows []txn.FeatureRow) {
	type key struct{ account, value string }
	locCounts := make(map[key]int)
	devCounts := make(map[key]int)
	for i := range rows {
		locCounts[key{rows[i].AccountID, rows[i].Location}]++
		devCounts[key{rows[i].AccountID, rows[i].DeviceID}]++
	}

	for i := range rows {
		r := &rows[i]

		r.LocationFrequency = locCounts[key{r.AccountID, r.Location}]
		if r.LocationFrequency < UnusualFrequencyThreshold {
			r.UnusualLocation = 1
		}

		r.DeviceFrequency = devCounts[key{r.AccountID, r.DeviceID}]
		if r.DeviceFrequency < UnusualFrequencyThreshold {
			r.UnusualDevice = 1
		}

		r.ChannelRisk = ChannelRiskScore(r.Channel)
		r.IPFirstOctet = ipFirstOctet(r.IPAddress)
	}
}

// ChannelRiskScore returns the fixed risk weight for a channel, or
// DefaultChannelRisk for channels outside the lookup.
func ChannelRiskScore(channel string) float64 {
	if w, ok := channelRisk[channel]; ok {
		return w
	}
	return DefaultChannelRisk
}

func ipFirstOctet(ip string) int {
	first, _, ok := strings.Cut(ip, ".")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(first)
	if err != nil {
		return 0
	}
	return n
}
