package strategy

import (
	"strings"
	"time"
)

// Bias is the directional stance of the engine.
type Bias int

const (
	BiasLong Bias = iota
	BiasShort
)

func (b Bias) String() string {
	if b == BiasShort {
		return "SHORT"
	}
	return "LONG"
}

// Opposite returns the other bias.
func (b Bias) Opposite() Bias {
	if b == BiasLong {
		return BiasShort
	}
	return BiasLong
}

// Level is a reference extreme used to detect structure breaks.
type Level struct {
	Price float64
	Index int
	Valid bool
}

// Zone is the mitigation candle whose range bounds stops and flips.
type Zone struct {
	High  float64
	Low   float64
	Index int
	Valid bool
}

// State is a snapshot of the engine's day-scoped state.
type State struct {
	Bias                Bias
	Mitigation          Zone
	RefHigh             Level
	RefLow              Level
	ReadyToTrade        bool
	MitigationTested    bool
	EntryCandleCount    int
	LastBiasChangeIndex int

	// number of zones assigned since the last daily reset, including flips
	ZoneAssignments int
}

// EntrySignal carries the parameters of an allowed entry.
type EntrySignal struct {
	Bias        Bias
	Time        time.Time
	Index       int
	EntryPrice  float64
	StopPrice   float64
	TargetPips  float64
	EntryNumber int
}

// Decision is what the engine reports for one bar.
type Decision struct {
	DailyReset    bool
	SessionEnd    bool
	Blackout      bool
	BlackoutLabel string
	BiasChanged   bool
	EntryAllowed  bool
	Entry         *EntrySignal
}

// BlackoutChecker is the news capability consumed by the engine.
type BlackoutChecker interface {
	IsBlackout(t time.Time) (bool, string)
}

const (
	// MitigationScanLimit bounds the backward search for a counter candle.
	MitigationScanLimit = 100

	DefaultSwingLookback      = 2
	DefaultRiskPerTrade       = 0.002
	DefaultMaxStopLossPercent = 0.035
	DefaultPipValue           = 10.0 // USD per pip per standard lot
	DefaultMinLot             = 0.01
	DefaultLotStep            = 0.01
	DefaultChoppyADXThreshold = 20.0
	DefaultADXPeriod          = 14
	DefaultSpikeLookback      = 4
	DefaultSpikeAvgPeriod     = 20
	DefaultSpikeMultiplier    = 2.0
)

// Params are the immutable engine settings.
type Params struct {
	Symbol   string
	PipSize  float64
	PipValue float64

	// Risk
	RiskPerTrade       float64
	MaxStopLossPercent float64
	MinLot             float64
	LotStep            float64

	// Sessions, UTC hours [start, end)
	TradingStartHour  int
	TradingEndHour    int
	AnalysisStartHour int
	AnalysisEndHour   int
	SessionCutoff     time.Duration

	// Structure
	SwingLookback       int
	MitigationScanLimit int
	TargetLadder        []float64

	// Filters
	ChoppyADXThreshold float64
	ADXPeriod          int
	SpikeLookback      int
	SpikeAvgPeriod     int
	SpikeMultiplier    float64
}

// PipSizeFor returns 0.01 for yen crosses and 0.0001 otherwise.
func PipSizeFor(symbol string) float64 {
	if strings.Contains(strings.ToUpper(symbol), "JPY") {
		return 0.01
	}
	return 0.0001
}

// DefaultParams returns the standard configuration for symbol.
func DefaultParams(symbol string) Params {
	return Params{
		Symbol:              symbol,
		PipSize:             PipSizeFor(symbol),
		PipValue:            DefaultPipValue,
		RiskPerTrade:        DefaultRiskPerTrade,
		MaxStopLossPercent:  DefaultMaxStopLossPercent,
		MinLot:              DefaultMinLot,
		LotStep:             DefaultLotStep,
		TradingStartHour:    12,
		TradingEndHour:      19,
		AnalysisStartHour:   11,
		AnalysisEndHour:     12,
		SessionCutoff:       5 * time.Minute,
		SwingLookback:       DefaultSwingLookback,
		MitigationScanLimit: MitigationScanLimit,
		TargetLadder:        []float64{25, 20, 15},
		ChoppyADXThreshold:  DefaultChoppyADXThreshold,
		ADXPeriod:           DefaultADXPeriod,
		SpikeLookback:       DefaultSpikeLookback,
		SpikeAvgPeriod:      DefaultSpikeAvgPeriod,
		SpikeMultiplier:     DefaultSpikeMultiplier,
	}
}

// WithDefaults fills unset fields from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams(p.Symbol)
	if p.PipSize <= 0 {
		p.PipSize = d.PipSize
	}
	if p.PipValue <= 0 {
		p.PipValue = d.PipValue
	}
	if p.RiskPerTrade <= 0 {
		p.RiskPerTrade = d.RiskPerTrade
	}
	if p.MaxStopLossPercent <= 0 {
		p.MaxStopLossPercent = d.MaxStopLossPercent
	}
	if p.MinLot <= 0 {
		p.MinLot = d.MinLot
	}
	if p.LotStep <= 0 {
		p.LotStep = d.LotStep
	}
	if p.TradingEndHour <= p.TradingStartHour {
		p.TradingStartHour, p.TradingEndHour = d.TradingStartHour, d.TradingEndHour
	}
	if p.AnalysisEndHour <= p.AnalysisStartHour {
		p.AnalysisStartHour, p.AnalysisEndHour = d.AnalysisStartHour, d.AnalysisEndHour
	}
	if p.SessionCutoff <= 0 {
		p.SessionCutoff = d.SessionCutoff
	}
	if p.SwingLookback <= 0 {
		p.SwingLookback = d.SwingLookback
	}
	if p.MitigationScanLimit <= 0 {
		p.MitigationScanLimit = d.MitigationScanLimit
	}
	if len(p.TargetLadder) == 0 {
		p.TargetLadder = d.TargetLadder
	}
	if p.ADXPeriod <= 0 {
		p.ADXPeriod = d.ADXPeriod
	}
	if p.SpikeLookback <= 0 {
		p.SpikeLookback = d.SpikeLookback
	}
	if p.SpikeAvgPeriod <= 0 {
		p.SpikeAvgPeriod = d.SpikeAvgPeriod
	}
	if p.SpikeMultiplier <= 0 {
		p.SpikeMultiplier = d.SpikeMultiplier
	}
	return p
}

// TargetPips returns the ladder step for the nth entry (1-based); the last
// step repeats.
func (p Params) TargetPips(n int) float64 {
	if n < 1 {
		n = 1
	}
	if n > len(p.TargetLadder) {
		n = len(p.TargetLadder)
	}
	return p.TargetLadder[n-1]
}
