package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ForexTradeBot/internal/models"
)

type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new instance of RunRepository
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// SaveRun stores a run with its closed positions and their booking
// transactions atomically.
func (r *RunRepository) SaveRun(ctx context.Context, run *models.BacktestRun, positions []models.Position, spreadCosts []float64) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}
	if len(spreadCosts) != 0 && len(spreadCosts) != len(positions) {
		return errors.New("spread costs must match positions")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("failed to create run: %w", err)
		}
		for i := range positions {
			positions[i].RunID = run.RunID
			if err := tx.Create(&positions[i]).Error; err != nil {
				return fmt.Errorf("failed to create position: %w", err)
			}

			cost := 0.0
			if len(spreadCosts) > 0 {
				cost = spreadCosts[i]
			}
			txs := BookTransactions(run.RunID, positions[i], cost)
			if err := tx.Omit("Position").Create(&txs).Error; err != nil {
				return fmt.Errorf("failed to create transactions: %w", err)
			}
		}
		return nil
	})
}

// BookTransactions splits a closed position into its ledger entries. PnL
// is net of spread, so the trade leg is booked gross and the spread leg
// carries the cost; together they sum to PnL.
func BookTransactions(runID string, pos models.Position, spreadCost float64) []models.Transaction {
	txs := []models.Transaction{{
		RunID:      runID,
		PositionID: pos.ID,
		Type:       models.TransactionTypeTrade,
		Amount:     pos.PnL + spreadCost,
		BookedAt:   pos.CloseTime,
	}}
	if spreadCost != 0 {
		txs = append(txs, models.Transaction{
			RunID:      runID,
			PositionID: pos.ID,
			Type:       models.TransactionTypeSpread,
			Amount:     -spreadCost,
			BookedAt:   pos.OpenTime,
		})
	}
	return txs
}

// FindByRunID retrieves a run by its public identifier
func (r *RunRepository) FindByRunID(runID string) (*models.BacktestRun, error) {
	if runID == "" {
		return nil, errors.New("invalid run id")
	}
	var run models.BacktestRun
	err := r.db.Where("run_id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &run, err
}

// FindBySymbol retrieves all runs of a symbol, newest first
func (r *RunRepository) FindBySymbol(symbol string) ([]models.BacktestRun, error) {
	if symbol == "" {
		return nil, errors.New("invalid symbol")
	}
	var runs []models.BacktestRun
	err := r.db.Where("symbol = ?", symbol).Order("created_at DESC").Find(&runs).Error
	return runs, err
}
