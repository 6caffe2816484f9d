package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ForexTradeBot/internal/models"
	"ForexTradeBot/internal/operations/backtest"
	"ForexTradeBot/internal/services/strategy"
)

// RunStore persists a finished run.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.BacktestRun, positions []models.Position, spreadCosts []float64) error
}

// PositionHandler turns simulated trades into persisted records.
type PositionHandler struct {
	store    RunStore
	pipValue float64
	logger   *zap.Logger
}

func NewPositionHandler(store RunStore, pipValue float64, logger *zap.Logger) *PositionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pipValue <= 0 {
		pipValue = strategy.DefaultPipValue
	}
	return &PositionHandler{store: store, pipValue: pipValue, logger: logger}
}

// SaveResults stores every non-nil result.
func (h *PositionHandler) SaveResults(ctx context.Context, results []*backtest.BacktestResults) error {
	for _, r := range results {
		if r == nil {
			continue
		}
		run, positions, costs := h.toModels(r)
		if err := h.store.SaveRun(ctx, run, positions, costs); err != nil {
			return fmt.Errorf("failed to save run %s: %w", r.RunID, err)
		}
		h.logger.Info("saved backtest run",
			zap.String("run_id", r.RunID),
			zap.String("label", r.Label),
			zap.Int("positions", len(positions)))
	}
	return nil
}

func (h *PositionHandler) toModels(r *backtest.BacktestResults) (*models.BacktestRun, []models.Position, []float64) {
	run := &models.BacktestRun{
		RunID:          r.RunID,
		Label:          r.Label,
		Symbol:         r.Symbol,
		PeriodStart:    r.Start,
		PeriodEnd:      r.End,
		InitialBalance: r.InitialBalance,
		FinalBalance:   r.FinalBalance,
		TotalReturn:    r.TotalReturn,
		WinRate:        r.WinRate,
		MaxDrawdown:    r.MaxDrawdown,
		TotalTrades:    r.TotalTrades,
	}

	positions := make([]models.Position, 0, len(r.Trades))
	costs := make([]float64, 0, len(r.Trades))
	for _, t := range r.Trades {
		side := models.PositionSideLong
		if t.Direction == strategy.BiasShort {
			side = models.PositionSideShort
		}
		positions = append(positions, models.Position{
			RunID:         r.RunID,
			Symbol:        r.Symbol,
			Side:          side,
			Lots:          t.Lots,
			EntryPrice:    t.EntryPrice,
			ExitPrice:     t.ExitPrice,
			StopLossPrice: t.SLPrice,
			TakeProfitPip: t.TPPips,
			SpreadPips:    t.SpreadPips,
			PnL:           t.PnL,
			OpenTime:      t.EntryTime,
			CloseTime:     t.ExitTime,
			Status:        models.PositionStatusClosed,
			CloseReason:   t.CloseReason,
		})
		costs = append(costs, t.SpreadPips*h.pipValue*t.Lots)
	}
	return run, positions, costs
}
