package models

import "time"

// Position is the persisted record of a closed simulated trade.
type Position struct {
	ID         uint    `gorm:"primaryKey"`
	RunID      string  `gorm:"index;not null"`
	Symbol     string  `gorm:"index;not null"`
	Side       string  `gorm:"not null"`
	Lots       float64 `gorm:"type:decimal(20,8);not null"`
	EntryPrice float64 `gorm:"type:decimal(20,8);not null"`
	ExitPrice  float64 `gorm:"type:decimal(20,8)"`

	StopLossPrice float64 `gorm:"type:decimal(20,8);not null"`
	TakeProfitPip float64 `gorm:"type:decimal(10,2);not null"`
	SpreadPips    float64 `gorm:"type:decimal(10,2)"`

	PnL float64 `gorm:"column:pnl;type:decimal(20,8)"`

	OpenTime    time.Time `gorm:"index;not null"`
	CloseTime   time.Time `gorm:"index"`
	Status      string    `gorm:"not null"`
	CloseReason string

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

const (
	PositionStatusOpen   = "open"
	PositionStatusClosed = "closed"

	PositionSideLong  = "long"
	PositionSideShort = "short"
)
