package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ForexTradeBot/internal/models"
)

const barBatchSize = 500

type BarRepository struct {
	db *gorm.DB
}

// NewBarRepository creates a new instance of BarRepository
func NewBarRepository(db *gorm.DB) *BarRepository {
	return &BarRepository{db: db}
}

// SaveBars inserts bars in batches, skipping ones already stored for the
// same series and time.
func (r *BarRepository) SaveBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(bars, barBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to save bars: %w", err)
	}
	return nil
}

// LoadBars gets bars for a symbol and timeframe in [start, end), oldest first
func (r *BarRepository) LoadBars(ctx context.Context, symbol, timeFrame string, start, end time.Time) ([]models.Bar, error) {
	if symbol == "" || timeFrame == "" {
		return nil, errors.New("invalid symbol or timeframe")
	}

	var bars []models.Bar
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND time_frame = ? AND time >= ? AND time < ?", symbol, timeFrame, start, end).
		Order("time ASC").
		Find(&bars).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load bars: %w", err)
	}
	for i := range bars {
		bars[i].Time = bars[i].Time.UTC()
	}
	return bars, nil
}

// FindLatest returns the newest stored bar of a series
func (r *BarRepository) FindLatest(symbol, timeFrame string) (*models.Bar, error) {
	var bar models.Bar
	err := r.db.Where("symbol = ? AND time_frame = ?", symbol, timeFrame).
		Order("time DESC").
		First(&bar).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &bar, err
}

// Count returns the number of stored bars of a series
func (r *BarRepository) Count(symbol, timeFrame string) (int64, error) {
	var n int64
	err := r.db.Model(&models.Bar{}).
		Where("symbol = ? AND time_frame = ?", symbol, timeFrame).
		Count(&n).Error
	return n, err
}
