package strategy

import (
	"time"

	"ForexTradeBot/internal/services/indicators"
)

// IsSessionEnd reports bars at or after the last-minutes cutoff of the
// trading window.
func (e *Engine) IsSessionEnd(t time.Time) bool {
	t = t.UTC()
	minute := t.Hour()*60 + t.Minute()
	cutoff := e.params.TradingEndHour*60 - int(e.params.SessionCutoff/time.Minute)
	return minute >= cutoff
}

// InTradingHours reports bars inside the trading window and before the
// cutoff.
func (e *Engine) InTradingHours(t time.Time) bool {
	t = t.UTC()
	return inHours(t, e.params.TradingStartHour, e.params.TradingEndHour) && !e.IsSessionEnd(t)
}

// IsTradingAllowed evaluates every entry filter for bar i. A failing
// filter blocks only this bar.
func (e *Engine) IsTradingAllowed(i int) bool {
	if i < 0 || i >= len(e.bars) {
		return false
	}
	blackout := false
	if e.news != nil {
		blackout, _ = e.news.IsBlackout(e.bars[i].Time)
	}
	return e.tradingAllowed(i, blackout)
}

func (e *Engine) tradingAllowed(i int, blackout bool) bool {
	if !e.InTradingHours(e.bars[i].Time) || blackout {
		return false
	}
	window := e.bars[:i+1]
	if indicators.ADX(window, e.params.ADXPeriod) < e.params.ChoppyADXThreshold {
		return false
	}
	fallback := indicators.DefaultATRPips * e.params.PipSize
	if indicators.HasRangeSpike(window, e.params.SpikeLookback, e.params.SpikeAvgPeriod, e.params.SpikeMultiplier, fallback) {
		return false
	}
	return true
}
