package models

import "time"

// NewsEvent is a scheduled high-impact release.
type NewsEvent struct {
	ID       uint      `gorm:"primaryKey"`
	Time     time.Time `gorm:"index;not null"`
	Name     string    `gorm:"not null"`
	Currency string
}

// TableName sets the table name for NewsEvent model
func (NewsEvent) TableName() string {
	return "news_events"
}
