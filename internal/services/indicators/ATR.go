package indicators

import (
	"math"

	"ForexTradeBot/internal/models"
)

// DefaultATR is returned when the window is too short to average
// `period` true ranges. Ten pips on a 4-digit pair.
const DefaultATR = 0.0010

// DefaultATRPips is DefaultATR expressed in pips, for callers that know
// the pip size of the instrument.
const DefaultATRPips = 10.0

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(cur, prev models.Bar) float64 {
	return math.Max(cur.Range(),
		math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
}

// ATR is the simple mean of the last `period` true ranges of bars. The
// last element of bars is the current bar.
func ATR(bars []models.Bar, period int) float64 {
	return ATROr(bars, period, DefaultATR)
}

// ATROr is ATR with fallback returned for a short window.
func ATROr(bars []models.Bar, period int, fallback float64) float64 {
	if period <= 0 || len(bars) < period+1 {
		return fallback
	}

	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		sum += TrueRange(bars[i], bars[i-1])
	}
	return sum / float64(period)
}
