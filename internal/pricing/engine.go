package pricing

import "math"

const (
	multiplierScale = 1000  // multipliers carry three decimals
	rateScale       = 10000 // commission rates carry basis points
)

// Compute prices a block: total = round(base × multiplier) and
// commission = round(total × rate), both rounded half-up on integer minor
// units. Multipliers are applied at 0.001 precision and rates at 0.0001.
func Compute(basePrice int64, commissionRate, multiplier float64) (Quote, error) {
	if basePrice < 0 || commissionRate < 0 || commissionRate > 1 || multiplier < 0 ||
		math.IsNaN(commissionRate) || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return Quote{}, ErrInvalidInput
	}

	if multiplier >= math.MaxInt64/multiplierScale {
		return Quote{}, ErrInvalidInput
	}

	m := int64(math.Round(multiplier * multiplierScale))
	r := int64(math.Round(commissionRate * rateScale))

	// Products must leave room for the rounding term in roundDiv.
	if m > 0 && basePrice > (math.MaxInt64-multiplierScale)/m {
		return Quote{}, ErrInvalidInput
	}

	total := roundDiv(basePrice*m, multiplierScale)
	if r > 0 && total > (math.MaxInt64-rateScale)/r {
		return Quote{}, ErrInvalidInput
	}
	commission := roundDiv(total*r, rateScale)

	return Quote{
		Total:      total,
		Commission: commission,
		Multiplier: float64(m) / multiplierScale,
	}, nil
}

// roundDiv divides non-negative n by d rounding half up.
func roundDiv(n, d int64) int64 {
	return (n + d/2) / d
}

// SelectRule returns the applicable rule: highest priority first, lowest id
// among equal priorities. Nil means no rule applies.
func SelectRule(rules []Rule) *Rule {
	var best *Rule
	for i := range rules {
		r := &rules[i]
		if best == nil || r.Priority > best.Priority || (r.Priority == best.Priority && r.ID < best.ID) {
			best = r
		}
	}
	return best
}
