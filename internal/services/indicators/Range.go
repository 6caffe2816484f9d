package indicators

import "ForexTradeBot/internal/models"

// HasRangeSpike reports whether any of the last `lookback` bars had a true
// range above mult times the `avgPeriod` average true range. fallbackATR
// stands in for the average while the window is too short.
func HasRangeSpike(bars []models.Bar, lookback, avgPeriod int, mult, fallbackATR float64) bool {
	if len(bars) < 2 || lookback <= 0 {
		return false
	}

	threshold := mult * ATROr(bars, avgPeriod, fallbackATR)
	start := len(bars) - lookback
	if start < 1 {
		start = 1
	}
	for i := start; i < len(bars); i++ {
		if TrueRange(bars[i], bars[i-1]) > threshold {
			return true
		}
	}
	return false
}
