package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ForexTradeBot/internal/models"
)

// RunReader loads persisted runs.
type RunReader interface {
	FindByRunID(runID string) (*models.BacktestRun, error)
	FindBySymbol(symbol string) ([]models.BacktestRun, error)
}

// PositionReader loads the positions of a run.
type PositionReader interface {
	FindByRunID(runID string) ([]models.Position, error)
	GetTotalPnL(runID string) (float64, error)
}

// TransactionReader loads the ledger of a run.
type TransactionReader interface {
	FindByRunID(runID string) ([]models.Transaction, error)
	GetTotalByType(runID, txType string) (float64, error)
}

var ErrRunNotFound = errors.New("run not found")

// amounts are stored as decimal(20,8), one rounding per row
var ledgerTolerance = decimal.New(1, -4)

// RunReport is a stored run read back with its positions and ledger.
type RunReport struct {
	Run          models.BacktestRun
	Positions    []models.Position
	Transactions []models.Transaction

	PositionPnL  float64
	TradeTotal   float64
	SpreadTotal  float64
	CloseReasons map[string]int
}

// BalanceDelta is the balance change the run recorded.
func (r *RunReport) BalanceDelta() decimal.Decimal {
	return decimal.NewFromFloat(r.Run.FinalBalance).Sub(decimal.NewFromFloat(r.Run.InitialBalance))
}

// LedgerTotal sums every booked transaction.
func (r *RunReport) LedgerTotal() decimal.Decimal {
	total := decimal.Zero
	for _, tx := range r.Transactions {
		total = total.Add(decimal.NewFromFloat(tx.Amount))
	}
	return total
}

// Balanced reports whether both the ledger and the position PnL reconcile
// with the balance delta.
func (r *RunReport) Balanced() bool {
	delta := r.BalanceDelta()
	if r.LedgerTotal().Sub(delta).Abs().GreaterThan(ledgerTolerance) {
		return false
	}
	return decimal.NewFromFloat(r.PositionPnL).Sub(delta).Abs().LessThanOrEqual(ledgerTolerance)
}

// ReportHandler reads stored backtests back for inspection.
type ReportHandler struct {
	runs         RunReader
	positions    PositionReader
	transactions TransactionReader
	logger       *zap.Logger
}

func NewReportHandler(runs RunReader, positions PositionReader, transactions TransactionReader, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{runs: runs, positions: positions, transactions: transactions, logger: logger}
}

// Report loads one run. A run that does not exist yields ErrRunNotFound.
func (h *ReportHandler) Report(ctx context.Context, runID string) (*RunReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	run, err := h.runs.FindByRunID(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return h.build(*run)
}

// SymbolReports loads the newest runs of a symbol, at most limit when
// limit is positive.
func (h *ReportHandler) SymbolReports(ctx context.Context, symbol string, limit int) ([]*RunReport, error) {
	runs, err := h.runs.FindBySymbol(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s runs: %w", symbol, err)
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	reports := make([]*RunReport, 0, len(runs))
	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := h.build(run)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (h *ReportHandler) build(run models.BacktestRun) (*RunReport, error) {
	report := &RunReport{Run: run, CloseReasons: make(map[string]int)}

	var err error
	if report.Positions, err = h.positions.FindByRunID(run.RunID); err != nil {
		return nil, fmt.Errorf("failed to load positions of %s: %w", run.RunID, err)
	}
	if report.PositionPnL, err = h.positions.GetTotalPnL(run.RunID); err != nil {
		return nil, fmt.Errorf("failed to total positions of %s: %w", run.RunID, err)
	}
	if report.Transactions, err = h.transactions.FindByRunID(run.RunID); err != nil {
		return nil, fmt.Errorf("failed to load transactions of %s: %w", run.RunID, err)
	}
	if report.TradeTotal, err = h.transactions.GetTotalByType(run.RunID, models.TransactionTypeTrade); err != nil {
		return nil, fmt.Errorf("failed to total trades of %s: %w", run.RunID, err)
	}
	if report.SpreadTotal, err = h.transactions.GetTotalByType(run.RunID, models.TransactionTypeSpread); err != nil {
		return nil, fmt.Errorf("failed to total spread of %s: %w", run.RunID, err)
	}
	for _, p := range report.Positions {
		report.CloseReasons[p.CloseReason]++
	}

	h.logger.Info("run report",
		zap.String("run_id", run.RunID),
		zap.String("label", run.Label),
		zap.String("symbol", run.Symbol),
		zap.Int("positions", len(report.Positions)),
		zap.Float64("trade_total", report.TradeTotal),
		zap.Float64("spread_total", report.SpreadTotal),
		zap.String("balance_delta", report.BalanceDelta().StringFixed(2)),
		zap.Any("close_reasons", report.CloseReasons))
	if !report.Balanced() {
		h.logger.Warn("ledger does not match balance",
			zap.String("run_id", run.RunID),
			zap.String("ledger", report.LedgerTotal().StringFixed(8)),
			zap.String("balance_delta", report.BalanceDelta().StringFixed(8)),
			zap.Float64("position_pnl", report.PositionPnL))
	}
	return report, nil
}
