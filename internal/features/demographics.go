package features

import "github.com/dmarchuk/fraudetl/internal/txn"

// Occupation risk lookup. Occupations outside the table score
// DefaultOccupationRisk.
var occupationRisk = map[string]float64{
	"Student":  2,
	"Engineer": 1,
	"Doctor":   1,
	"Retired":  1,
}

// DefaultOccupationRisk is the explicit policy for unmapped occupations.
const DefaultOccupationRisk = 1.0

// Young-account-with-high-balance flag policy.
const (
	YoungAgeLimit    = 30
	HighBalanceFloor = 10000.0
)

// buildDemographics derives age-group bucketing and occupation risk.
func buildDemographics(rows []txn.FeatureRow) {
	for i := range rows {
		r := &rows[i]
		r.AgeGroup = AgeGroup(r.CustomerAge)
		r.OccupationRisk = OccupationRiskScore(r.Occupation)
		if r.CustomerAge < YoungAgeLimit && r.Balance.InexactFloat64() > HighBalanceFloor {
			r.YoungHighBalance = 1
		}
	}
}

// AgeGroup buckets a customer age. Ages outside (0, 100] map to the
// empty string.
func AgeGroup(age int) string {
	switch {
	case age <= 0 || age > 100:
		return ""
	case age <= 18:
		return "<18"
	case age <= 25:
		return "18-25"
	case age <= 35:
		return "26-35"
	case age <= 50:
		return "36-50"
	case age <= 65:
		return "51-65"
	default:
		return "65+"
	}
}

// OccupationRiskScore returns the fixed risk weight for an occupation,
// or DefaultOccupationRisk for occupations outside the lookup.
func OccupationRiskScore(occupation string) float64 {
	if w, ok := occupationRisk[occupation]; ok {
		return w
	}
	return DefaultOccupationRisk
}
