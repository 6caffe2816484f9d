package backtest

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ForexTradeBot/internal/models"
	"ForexTradeBot/internal/services/strategy"
)

// Engine drives one backtest: bars flow through the strategy engine and
// into the simulator in time order.
type Engine struct {
	config   Config
	strategy *strategy.Engine
	sim      *Simulator
	logger   *zap.Logger

	runID       string
	bars        int
	first, last models.Bar
	equityCurve []EquityPoint
}

func NewEngine(config Config, news strategy.BlackoutChecker, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.InitialBalance <= 0 {
		config.InitialBalance = InitialBalance
	}
	strat := strategy.NewEngine(config.Params, news, logger)
	config.Params = strat.Params()
	runID := uuid.NewString()

	return &Engine{
		config:   config,
		strategy: strat,
		sim:      NewSimulator(config, logger),
		logger:   logger.With(zap.String("run_id", runID), zap.String("symbol", config.Params.Symbol)),
		runID:    runID,
	}
}

// RunID identifies this run in persisted results.
func (e *Engine) RunID() string {
	return e.runID
}

// Strategy exposes the underlying state machine.
func (e *Engine) Strategy() *strategy.Engine {
	return e.strategy
}

// Run processes bars to completion and returns the results. An invalid bar
// aborts the run.
func (e *Engine) Run(ctx context.Context, bars []models.Bar) (*BacktestResults, error) {
	e.logger.Info("backtest started", zap.Int("bars", len(bars)), zap.String("label", e.config.Label))

	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.Step(bar); err != nil {
			return nil, fmt.Errorf("bar %d: %w", i, err)
		}
	}

	if e.config.CloseAtEnd && e.bars > 0 {
		e.record(e.last, e.sim.CloseAll(e.last, ReasonEndOfData))
	}

	results := e.calculateResults()
	e.logger.Info("backtest finished",
		zap.Int("trades", results.TotalTrades),
		zap.Float64("win_rate", results.WinRate),
		zap.Float64("total_return", results.TotalReturn),
		zap.Float64("final_balance", results.FinalBalance))
	return results, nil
}

// Step processes a single bar.
func (e *Engine) Step(bar models.Bar) error {
	d, err := e.strategy.OnBar(bar)
	if err != nil {
		return err
	}
	if e.bars == 0 {
		e.first = bar
		e.equityCurve = append(e.equityCurve, EquityPoint{Timestamp: bar.Time, Balance: e.sim.Balance()})
	}
	e.bars++
	e.last = bar

	// forced exits, highest priority first
	switch {
	case d.DailyReset:
		e.record(bar, e.sim.CloseAll(bar, ReasonDailyReset))
	case d.SessionEnd:
		e.record(bar, e.sim.CloseAll(bar, ReasonEndOfDay))
	case d.Blackout:
		e.record(bar, e.sim.CloseAll(bar, ReasonNewsPrefix+d.BlackoutLabel))
	}

	e.record(bar, e.sim.Update(bar))

	if d.EntryAllowed && d.Entry != nil {
		lots := e.strategy.PositionSize(e.sim.Balance(), d.Entry.EntryPrice, d.Entry.StopPrice)
		if lots > 0 {
			e.sim.Open(*d.Entry, lots)
		}
	}
	return nil
}

func (e *Engine) record(bar models.Bar, closed []Trade) {
	if len(closed) == 0 {
		return
	}
	e.equityCurve = append(e.equityCurve, EquityPoint{Timestamp: bar.Time, Balance: e.sim.Balance()})
}

func (e *Engine) calculateResults() *BacktestResults {
	trades := e.sim.Closed()
	results := &BacktestResults{
		RunID:          e.runID,
		Label:          e.config.Label,
		Symbol:         e.config.Params.Symbol,
		Start:          e.first.Time,
		End:            e.last.Time,
		Bars:           e.bars,
		InitialBalance: e.config.InitialBalance,
		FinalBalance:   e.sim.Balance(),
		Trades:         trades,
		EquityCurve:    e.equityCurve,
	}
	results.TotalReturn = (results.FinalBalance - results.InitialBalance) / results.InitialBalance
	if len(trades) == 0 {
		return results
	}

	winningPnL := 0.0
	losingPnL := 0.0
	for _, trade := range trades {
		if trade.PnL > 0 {
			results.WinningTrades++
			winningPnL += trade.PnL
		} else {
			results.LosingTrades++
			losingPnL += math.Abs(trade.PnL)
		}
		if trade.Direction == strategy.BiasShort {
			results.ShortTrades++
		} else {
			results.LongTrades++
		}
		results.TotalPnL += trade.PnL
	}

	results.TotalTrades = len(trades)
	results.WinRate = float64(results.WinningTrades) / float64(results.TotalTrades)
	results.AveragePnL = results.TotalPnL / float64(results.TotalTrades)
	if losingPnL > 0 {
		results.ProfitFactor = winningPnL / losingPnL
	} else if winningPnL > 0 {
		results.ProfitFactor = math.Inf(1)
	}

	// Calculate drawdown
	peakBalance := e.config.InitialBalance
	for _, point := range e.equityCurve {
		if point.Balance > peakBalance {
			peakBalance = point.Balance
		}
		if peakBalance <= 0 {
			continue
		}
		drawdown := (peakBalance - point.Balance) / peakBalance
		if drawdown > results.MaxDrawdown {
			results.MaxDrawdown = drawdown
		}
	}

	results.SharpeRatio = calculateSharpeRatio(e.equityCurve)
	return results
}

func calculateSharpeRatio(curve []EquityPoint) float64 {
	if len(curve) < 3 {
		return 0
	}

	// Calculate returns
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1].Balance == 0 {
			continue
		}
		returns = append(returns, (curve[i].Balance-curve[i-1].Balance)/curve[i-1].Balance)
	}
	if len(returns) < 2 {
		return 0
	}

	// Calculate average return
	avgReturn := 0.0
	for _, r := range returns {
		avgReturn += r
	}
	avgReturn /= float64(len(returns))

	// Calculate standard deviation
	variance := 0.0
	for _, r := range returns {
		variance += math.Pow(r-avgReturn, 2)
	}
	variance /= float64(len(returns) - 1) // Use n-1 for sample variance
	stdDev := math.Sqrt(variance)

	if stdDev == 0 {
		return 0
	}

	// Annualize (assuming daily returns)
	annualizedReturn := avgReturn * 252 // Trading days in a year
	annualizedStdDev := stdDev * math.Sqrt(252)

	return annualizedReturn / annualizedStdDev
}
