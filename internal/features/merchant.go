package features

import "github.com/dmarchuk/fraudetl/internal/txn"

// buildMerchant derives merchant novelty per account and amount ratios
// against the merchant's batch-wide average across all accounts.
func buildMerchant(rows []txn.FeatureRow) {
	type key struct{ account, merchant string }
	perAccount := make(map[key]int)
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i := range rows {
		r := &rows[i]
		perAccount[key{r.AccountID, r.MerchantID}]++
		sums[r.MerchantID] += amount(r)
		counts[r.MerchantID]++
	}

	for i := range rows {
		r := &rows[i]

		r.MerchantFrequency = perAccount[key{r.AccountID, r.MerchantID}]
		if r.MerchantFrequency < UnusualFrequencyThreshold {
			r.UnusualMerchant = 1
		}

		r.MerchantAvgAmount = sums[r.MerchantID] / float64(counts[r.MerchantID])
		if r.MerchantAvgAmount == 0 {
			r.AmountToMerchantAvgRatio = NeutralRatio
		} else {
			r.AmountToMerchantAvgRatio = amount(r) / r.MerchantAvgAmount
		}
		if r.AmountToMerchantAvgRatio > HighMerchantRatio {
			r.HighMerchantAmount = 1
		}
	}
}
