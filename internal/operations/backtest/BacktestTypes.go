package backtest

import (
	"time"

	"ForexTradeBot/internal/services/strategy"
)

// Close reasons
const (
	ReasonTakeProfit = "TP"
	ReasonStopLoss   = "SL"
	ReasonDailyReset = "DAILY_RESET"
	ReasonEndOfDay   = "END_OF_DAY"
	ReasonEndOfData  = "END_OF_DATA"
	ReasonNewsPrefix = "NEWS_"
)

// FillPolicy resolves a bar that touches both stop and target.
type FillPolicy int

const (
	// FillStopFirst assumes the stop traded first.
	FillStopFirst FillPolicy = iota
	// FillTargetFirst assumes the target traded first.
	FillTargetFirst
	// FillNearestExtremum walks open -> nearer extreme -> other extreme.
	FillNearestExtremum
)

func (p FillPolicy) String() string {
	switch p {
	case FillTargetFirst:
		return "target_first"
	case FillNearestExtremum:
		return "nearest_extremum"
	default:
		return "stop_first"
	}
}

// ParseFillPolicy maps a config string to a policy, defaulting to stop first.
func ParseFillPolicy(s string) FillPolicy {
	switch s {
	case "target_first":
		return FillTargetFirst
	case "nearest_extremum":
		return FillNearestExtremum
	default:
		return FillStopFirst
	}
}

// Position is one open simulated trade.
type Position struct {
	ID            int
	EntryTime     time.Time
	EntryPrice    float64
	Direction     strategy.Bias
	Lots          float64
	SLPrice       float64
	TPPips        float64
	SpreadPips    float64
	OpenPnL       float64
	BalanceAtOpen float64
	EntryNumber   int
}

// Trade is a closed position.
type Trade struct {
	Position
	ExitTime    time.Time
	ExitPrice   float64
	PnL         float64
	CloseReason string
}

// Account holds the balance and position collections. Open is unordered;
// Closed is in close order.
type Account struct {
	Balance float64
	Open    []*Position
	Closed  []Trade
}

// For tracking equity changes
type EquityPoint struct {
	Timestamp time.Time
	Balance   float64
}

// Final backtest results
type BacktestResults struct {
	RunID  string
	Label  string
	Symbol string
	Start  time.Time
	End    time.Time
	Bars   int

	// Trade metrics
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	LongTrades    int
	ShortTrades   int
	WinRate       float64
	AveragePnL    float64
	TotalPnL      float64
	ProfitFactor  float64

	// Performance metrics
	InitialBalance float64
	FinalBalance   float64
	TotalReturn    float64
	MaxDrawdown    float64
	SharpeRatio    float64

	// Detailed records
	Trades      []Trade
	EquityCurve []EquityPoint
}

const (
	InitialBalance = 10000.0
	SpreadPips     = 1.5
)

// Simulation config
type Config struct {
	Label          string
	InitialBalance float64
	SpreadPips     float64
	FillPolicy     FillPolicy

	// MaxOpenPositions caps concurrent positions, 0 means no cap.
	MaxOpenPositions int

	// CloseAtEnd closes positions left open after the last bar.
	CloseAtEnd bool

	Params strategy.Params
}

// NewConfig creates default config
func NewConfig(symbol string) Config {
	return Config{
		InitialBalance: InitialBalance,
		SpreadPips:     SpreadPips,
		FillPolicy:     FillStopFirst,
		CloseAtEnd:     true,
		Params:         strategy.DefaultParams(symbol),
	}
}
