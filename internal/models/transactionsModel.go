package models

import (
	"time"
)

// Transaction is one balance movement caused by a closed position.
type Transaction struct {
	ID         uint    `gorm:"primaryKey"`
	RunID      string  `gorm:"index;not null"`
	PositionID uint    `gorm:"index;not null"`
	Type       string  `gorm:"not null"`
	Amount     float64 `gorm:"type:decimal(20,8);not null"`

	// Time
	BookedAt  time.Time `gorm:"index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	// Relationships
	Position Position `gorm:"foreignKey:PositionID"`
}

const (
	TransactionTypeTrade  = "trade"
	TransactionTypeSpread = "spread"
)
