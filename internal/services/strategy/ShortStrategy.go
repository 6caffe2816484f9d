package strategy

import "ForexTradeBot/internal/models"

// ShortStrategy sells rallies below the last bullish candle before a
// structural low.
type ShortStrategy struct{}

func (ShortStrategy) Bias() Bias { return BiasShort }

func (ShortStrategy) ZoneCandle(b models.Bar) bool { return b.IsBullish() }

func (ShortStrategy) Invalidated(b models.Bar, z Zone) bool {
	return z.Valid && b.Close > z.High
}

func (ShortStrategy) Retested(b models.Bar, z Zone) bool {
	return z.Valid && b.High >= z.Low
}

func (ShortStrategy) StopPrice(z Zone) float64 { return z.High }

func (ShortStrategy) TargetPrice(entry, pips, pipSize float64) float64 {
	return entry - pips*pipSize
}

func sideFor(b Bias) side {
	if b == BiasShort {
		return ShortStrategy{}
	}
	return LongStrategy{}
}
