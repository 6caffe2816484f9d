package repositories

import (
	"errors"

	"gorm.io/gorm"

	"ForexTradeBot/internal/models"
)

type PositionRepository struct {
	db *gorm.DB
}

// NewPositionRepository creates a new instance of PositionRepository
func NewPositionRepository(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// FindByRunID retrieves the positions of one backtest in close order
func (r *PositionRepository) FindByRunID(runID string) ([]models.Position, error) {
	if runID == "" {
		return nil, errors.New("invalid run id")
	}
	var positions []models.Position
	err := r.db.Where("run_id = ?", runID).Order("close_time ASC, id ASC").Find(&positions).Error
	return positions, err
}

// GetTotalPnL calculates the total profit and loss of a run
func (r *PositionRepository) GetTotalPnL(runID string) (float64, error) {
	var totalPnL float64
	err := r.db.Model(&models.Position{}).
		Where("run_id = ? AND status = ?", runID, models.PositionStatusClosed).
		Select("COALESCE(SUM(pnl), 0) as total_pnl").
		Scan(&totalPnL).Error
	return totalPnL, err
}
