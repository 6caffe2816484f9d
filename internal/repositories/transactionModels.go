package repositories

import (
	"errors"

	"gorm.io/gorm"

	"ForexTradeBot/internal/models"
)

type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new instance of TransactionRepository
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// FindByRunID retrieves all Transaction records of a run in booking order
func (r *TransactionRepository) FindByRunID(runID string) ([]models.Transaction, error) {
	if runID == "" {
		return nil, errors.New("invalid run id")
	}
	var transactions []models.Transaction
	err := r.db.Where("run_id = ?", runID).
		Order("booked_at ASC, id ASC").
		Find(&transactions).Error
	return transactions, err
}

// GetTotalByType sums the amounts of one transaction type in a run
func (r *TransactionRepository) GetTotalByType(runID, txType string) (float64, error) {
	var total float64
	err := r.db.Model(&models.Transaction{}).
		Where("run_id = ? AND type = ?", runID, txType).
		Select("COALESCE(SUM(amount), 0) as total").
		Scan(&total).Error
	return total, err
}
