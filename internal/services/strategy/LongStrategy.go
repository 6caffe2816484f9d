package strategy

import "ForexTradeBot/internal/models"

// side holds the direction-specific rules of the state machine.
type side interface {
	Bias() Bias
	// ZoneCandle reports whether b has the counter-trend color that defines
	// this side's mitigation zone.
	ZoneCandle(b models.Bar) bool
	// Invalidated reports a strict close through the zone.
	Invalidated(b models.Bar, z Zone) bool
	// Retested reports price re-entering the zone.
	Retested(b models.Bar, z Zone) bool
	StopPrice(z Zone) float64
	TargetPrice(entry, pips, pipSize float64) float64
}

// LongStrategy buys pullbacks above the last bearish candle before a
// structural high.
type LongStrategy struct{}

func (LongStrategy) Bias() Bias { return BiasLong }

func (LongStrategy) ZoneCandle(b models.Bar) bool { return b.IsBearish() }

func (LongStrategy) Invalidated(b models.Bar, z Zone) bool {
	return z.Valid && b.Close < z.Low
}

func (LongStrategy) Retested(b models.Bar, z Zone) bool {
	return z.Valid && b.Low <= z.High
}

func (LongStrategy) StopPrice(z Zone) float64 { return z.Low }

func (LongStrategy) TargetPrice(entry, pips, pipSize float64) float64 {
	return entry + pips*pipSize
}
