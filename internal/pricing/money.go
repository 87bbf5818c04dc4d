package pricing

import "github.com/shopspring/decimal"

// Summary holds the price statistics over a set of prices.
type Summary struct {
	Average float64
	Highest float64
	Lowest  float64
}

// Summarize computes the mean rounded to cents plus exact extremes.
// The rounded mean is clamped into [Lowest, Highest] so sub-cent inputs
// cannot produce an out-of-order summary. prices must be non-empty.
func Summarize(prices []float64) Summary {
	if len(prices) == 0 {
		return Summary{}
	}

	sum := decimal.Zero
	lowest, highest := prices[0], prices[0]
	for _, p := range prices {
		sum = sum.Add(decimal.NewFromFloat(p))
		if p < lowest {
			lowest = p
		}
		if p > highest {
			highest = p
		}
	}

	avg := Round2(sum.Div(decimal.NewFromInt(int64(len(prices)))))
	if avg < lowest {
		avg = lowest
	}
	if avg > highest {
		avg = highest
	}

	return Summary{Average: avg, Highest: highest, Lowest: lowest}
}

// Round2 rounds a decimal half away from zero to two places.
func Round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
