package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ForexTradeBot/internal/models"
)

type NewsEventRepository struct {
	db *gorm.DB
}

// NewNewsEventRepository creates a new instance of NewsEventRepository
func NewNewsEventRepository(db *gorm.DB) *NewsEventRepository {
	return &NewsEventRepository{db: db}
}

// CreateBatch stores several events at once
func (r *NewsEventRepository) CreateBatch(ctx context.Context, events []models.NewsEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&events).Error; err != nil {
		return fmt.Errorf("failed to save news events: %w", err)
	}
	return nil
}

// FindInRange retrieves events with start <= time <= end, oldest first
func (r *NewsEventRepository) FindInRange(ctx context.Context, start, end time.Time) ([]models.NewsEvent, error) {
	var events []models.NewsEvent
	err := r.db.WithContext(ctx).
		Where("time BETWEEN ? AND ?", start, end).
		Order("time ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load news events: %w", err)
	}
	return events, nil
}
