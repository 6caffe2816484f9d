package models

import (
	"time"
)

// BacktestRun summarises one completed backtest.
type BacktestRun struct {
	ID     uint   `gorm:"primaryKey"`
	RunID  string `gorm:"uniqueIndex;not null"`
	Label  string
	Symbol string `gorm:"index;not null"`

	PeriodStart time.Time `gorm:"index"`
	PeriodEnd   time.Time

	InitialBalance float64 `gorm:"type:decimal(20,8);not null"`
	FinalBalance   float64 `gorm:"type:decimal(20,8);not null"`
	TotalReturn    float64 `gorm:"type:decimal(20,8)"`
	WinRate        float64 `gorm:"type:decimal(20,8)"`
	MaxDrawdown    float64 `gorm:"type:decimal(20,8)"`
	TotalTrades    int

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
