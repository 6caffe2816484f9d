package structure

import "ForexTradeBot/internal/models"

// SwingKind tells a swing high from a swing low.
type SwingKind int

const (
	SwingHigh SwingKind = iota
	SwingLow
)

func (k SwingKind) String() string {
	if k == SwingHigh {
		return "HIGH"
	}
	return "LOW"
}

// SwingPoint is a confirmed local extreme.
type SwingPoint struct {
	Price float64
	Index int
	Kind  SwingKind
}

func hasContext(bars []models.Bar, i, lookback int) bool {
	return lookback > 0 && i-lookback >= 0 && i+lookback < len(bars)
}

// IsSwingHigh reports whether bars[i].High is strictly above the high of
// every bar within lookback positions on either side.
func IsSwingHigh(bars []models.Bar, i, lookback int) bool {
	if !hasContext(bars, i, lookback) {
		return false
	}
	high := bars[i].High
	for j := i - lookback; j <= i+lookback; j++ {
		if j != i && bars[j].High >= high {
			return false
		}
	}
	return true
}

// IsSwingLow reports whether bars[i].Low is strictly below the low of
// every bar within lookback positions on either side.
func IsSwingLow(bars []models.Bar, i, lookback int) bool {
	if !hasContext(bars, i, lookback) {
		return false
	}
	low := bars[i].Low
	for j := i - lookback; j <= i+lookback; j++ {
		if j != i && bars[j].Low <= low {
			return false
		}
	}
	return true
}

// Confirm returns the swings that become known once bars[last] is
// observed, i.e. those located at last-lookback. A bar can be both a swing
// high and a swing low (outside bar).
func Confirm(bars []models.Bar, last, lookback int) []SwingPoint {
	idx := last - lookback
	var out []SwingPoint
	if IsSwingHigh(bars[:last+1], idx, lookback) {
		out = append(out, SwingPoint{Price: bars[idx].High, Index: idx, Kind: SwingHigh})
	}
	if IsSwingLow(bars[:last+1], idx, lookback) {
		out = append(out, SwingPoint{Price: bars[idx].Low, Index: idx, Kind: SwingLow})
	}
	return out
}

// Detect scans a full series and returns every confirmed swing in index
// order.
func Detect(bars []models.Bar, lookback int) []SwingPoint {
	var out []SwingPoint
	for i := lookback; i < len(bars)-lookback; i++ {
		if IsSwingHigh(bars, i, lookback) {
			out = append(out, SwingPoint{Price: bars[i].High, Index: i, Kind: SwingHigh})
		}
		if IsSwingLow(bars, i, lookback) {
			out = append(out, SwingPoint{Price: bars[i].Low, Index: i, Kind: SwingLow})
		}
	}
	return out
}
