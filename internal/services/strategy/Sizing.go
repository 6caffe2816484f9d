package strategy

import (
	"math"

	"github.com/shopspring/decimal"
)

// StopPips converts a price distance to pips.
func (p Params) StopPips(entry, stop float64) float64 {
	return math.Abs(entry-stop) / p.PipSize
}

// PositionSize returns lots risking RiskPerTrade of balance with the stop
// at stop, capped so the stop never loses more than MaxStopLossPercent and
// floored to LotStep. A zero or undefined stop yields zero lots.
func (e *Engine) PositionSize(balance, entry, stop float64) float64 {
	return e.params.PositionSize(balance, entry, stop)
}

func (p Params) PositionSize(balance, entry, stop float64) float64 {
	if balance <= 0 || stop == 0 || math.IsNaN(stop) || math.IsInf(stop, 0) {
		return 0
	}
	slPips := p.StopPips(entry, stop)
	if slPips == 0 || math.IsNaN(slPips) {
		return 0
	}

	perLot := slPips * p.PipValue
	lots := balance * p.RiskPerTrade / perLot
	maxLots := balance * p.MaxStopLossPercent / perLot
	if lots > maxLots {
		lots = maxLots
	}

	step := decimal.NewFromFloat(p.LotStep)
	floored := decimal.NewFromFloat(lots).Round(8).Div(step).Floor().Mul(step)
	result, _ := floored.Float64()

	if result < p.MinLot {
		if maxLots >= p.MinLot {
			return p.MinLot
		}
		return 0
	}
	return result
}
