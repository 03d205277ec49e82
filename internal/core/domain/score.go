package domain

import "strings"

// Qualitative relevance tiers reported by managed search backends are mapped
// onto a fixed numeric scale so rank fusion across adapters with different
// native score types stays comparable.
const (
	scoreVeryHigh = 1.0
	scoreHigh     = 0.75
	scoreMedium   = 0.5
	scoreLow      = 0.25
	scoreUnknown  = 0.1
)

// NormalizeScore converts a backend-native score into a float. Numeric
// values pass through unchanged; qualitative tier strings map onto the fixed
// scale; anything else gets the floor value.
func NormalizeScore(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		return scoreFromTier(v)
	default:
		return scoreUnknown
	}
}

func scoreFromTier(tier string) float64 {
	switch strings.ToUpper(strings.TrimSpace(tier)) {
	case "VERY_HIGH":
		return scoreVeryHigh
	case "HIGH":
		return scoreHigh
	case "MEDIUM":
		return scoreMedium
	case "LOW":
		return scoreLow
	default:
		return scoreUnknown
	}
}
