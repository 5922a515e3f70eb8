// Package volatility computes the trailing realized-volatility
// statistic that drives dynamic threshold selection.
package volatility

import "math"

// DefaultWindowDays is the trailing window used by the engine.
const DefaultWindowDays = 30

// annualization converts daily return dispersion to an annual figure.
var annualization = math.Sqrt(365)

// Annualized returns the trailing annualized volatility, in percent,
// of the daily price series ending at currentDay. The window shortens
// near the start of the series. Fewer than 2 usable return
// observations yield 0.
//
// The statistic is pure and stateless: no smoothing or decay. It is
// recomputed independently for every simulated day, which is cheap for
// the small windows the engine uses.
func Annualized(prices []float64, currentDay, windowDays int) float64 {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if currentDay >= len(prices) {
		currentDay = len(prices) - 1
	}
	if currentDay < 1 {
		return 0
	}

	start := currentDay - windowDays + 1
	if start < 1 {
		start = 1
	}

	var returns []float64
	for d := start; d <= currentDay; d++ {
		prev := prices[d-1]
		if prev <= 0 {
			continue
		}
		returns = append(returns, prices[d]/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1) // sample stddev

	return math.Sqrt(variance) * annualization * 100
}

// FromProvider samples a price path into the daily slice Annualized
// expects, covering days [0, currentDay].
func FromProvider(priceAt func(day int) float64, currentDay, windowDays int) float64 {
	if currentDay < 1 {
		return 0
	}
	prices := make([]float64, currentDay+1)
	for d := 0; d <= currentDay; d++ {
		prices[d] = priceAt(d)
	}
	return Annualized(prices, currentDay, windowDays)
}
