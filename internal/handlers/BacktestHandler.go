package handlers

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ForexTradeBot/config"
	"ForexTradeBot/internal/operations/backtest"
	"ForexTradeBot/internal/operations/price"
	"ForexTradeBot/internal/services/strategy"
)

// BacktestHandler runs independent backtests over several periods. Each
// period gets its own strategy engine and simulator.
type BacktestHandler struct {
	source    price.BarSource
	news      strategy.BlackoutChecker
	config    backtest.Config
	timeframe string
	logger    *zap.Logger

	// Concurrency control
	limit int
}

func NewBacktestHandler(
	source price.BarSource,
	news strategy.BlackoutChecker,
	cfg backtest.Config,
	timeframe string,
	logger *zap.Logger,
) *BacktestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestHandler{
		source:    source,
		news:      news,
		config:    cfg,
		timeframe: timeframe,
		logger:    logger,
		limit:     runtime.NumCPU(),
	}
}

// SetLimit caps the number of periods simulated at once.
func (h *BacktestHandler) SetLimit(n int) {
	if n > 0 {
		h.limit = n
	}
}

// RunPeriods backtests every period and returns results in period order.
// A period without bars yields a nil result. The first failing period
// cancels the rest.
func (h *BacktestHandler) RunPeriods(ctx context.Context, periods []config.Period) ([]*backtest.BacktestResults, backtest.Summary, error) {
	results := make([]*backtest.BacktestResults, len(periods))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.limit)
	for i, p := range periods {
		g.Go(func() error {
			r, err := h.runPeriod(gctx, p)
			if err != nil {
				return fmt.Errorf("period %s: %w", p.Label, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, backtest.Summary{}, err
	}
	return results, backtest.Summarize(results), nil
}

func (h *BacktestHandler) runPeriod(ctx context.Context, p config.Period) (*backtest.BacktestResults, error) {
	symbol := h.config.Params.Symbol
	bars, err := h.source.LoadBars(ctx, symbol, h.timeframe, p.Start, p.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load bars: %w", err)
	}
	if len(bars) == 0 {
		h.logger.Warn("no bars for period",
			zap.String("period", p.Label),
			zap.String("symbol", symbol),
			zap.Time("start", p.Start),
			zap.Time("end", p.End))
		return nil, nil
	}

	cfg := h.config
	cfg.Label = p.Label
	engine := backtest.NewEngine(cfg, h.news, h.logger.With(zap.String("period", p.Label)))
	return engine.Run(ctx, bars)
}
