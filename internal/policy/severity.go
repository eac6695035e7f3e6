package policy

import "github.com/ghalamif/AegisMaint/internal/domain"

// Severity weights and tier thresholds are fixed design constants.
const (
	criticalWeight = 3
	warningWeight  = 1

	criticalTierScore = 5
	warningTierScore  = 2
)

// Score sums channel weights. Unknown (missing) channels contribute nothing.
func Score(h domain.Health) int {
	score := 0
	for _, s := range h {
		switch s.Status {
		case domain.StatusCritical:
			score += criticalWeight
		case domain.StatusWarning:
			score += warningWeight
		}
	}
	return score
}

// Tier maps a severity score to its tier.
func Tier(score int) domain.Severity {
	switch {
	case score >= criticalTierScore:
		return domain.SeverityCritical
	case score >= warningTierScore:
		return domain.SeverityWarning
	default:
		return domain.SeverityNormal
	}
}
