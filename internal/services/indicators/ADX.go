package indicators

import (
	"math"

	"ForexTradeBot/internal/models"
)

// DefaultADX is returned with insufficient history. Zero keeps the
// choppy-market filter closed until enough bars exist.
const DefaultADX = 0.0

// DirectionalMovement returns +DM and -DM of cur against prev. Each is
// zero unless it is positive and the larger of the pair.
func DirectionalMovement(cur, prev models.Bar) (plus, minus float64) {
	up := cur.High - prev.High
	down := prev.Low - cur.Low
	if up > down && up > 0 {
		plus = up
	}
	if down > up && down > 0 {
		minus = down
	}
	return plus, minus
}

// ADX returns the directional index DX over the last `period` bars using
// simple means for DM and TR. It is not smoothed a second time, so it
// reacts faster than a textbook ADX.
func ADX(bars []models.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return DefaultADX
	}

	var sumPlus, sumMinus, sumTR float64
	for i := len(bars) - period; i < len(bars); i++ {
		p, m := DirectionalMovement(bars[i], bars[i-1])
		sumPlus += p
		sumMinus += m
		sumTR += TrueRange(bars[i], bars[i-1])
	}

	if sumTR == 0 {
		return 0
	}
	plusDI := 100 * sumPlus / sumTR
	minusDI := 100 * sumMinus / sumTR
	if plusDI+minusDI == 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
}
