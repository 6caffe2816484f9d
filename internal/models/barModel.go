package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Bar is one OHLC sample. Times are UTC.
type Bar struct {
	ID        uint      `gorm:"primaryKey"`
	Symbol    string    `gorm:"uniqueIndex:idx_bar_series,priority:1;not null"`
	TimeFrame string    `gorm:"uniqueIndex:idx_bar_series,priority:2;not null"`
	Time      time.Time `gorm:"uniqueIndex:idx_bar_series,priority:3;not null"`
	Open      float64   `gorm:"type:decimal(20,8)"`
	High      float64   `gorm:"type:decimal(20,8)"`
	Low       float64   `gorm:"type:decimal(20,8)"`
	Close     float64   `gorm:"type:decimal(20,8)"`
	Volume    float64   `gorm:"type:decimal(20,8)"`
}

const (
	TimeFrameM1  = "M1"
	TimeFrameM5  = "M5"
	TimeFrameM15 = "M15"
	TimeFrameH1  = "H1"
	TimeFrameH4  = "H4"
)

// TableName sets the table name for Bar model
func (Bar) TableName() string {
	return "bars"
}

// IsBullish reports a green candle (close above open).
func (b Bar) IsBullish() bool {
	return b.Close > b.Open
}

// IsBearish reports a red candle (close below open).
func (b Bar) IsBearish() bool {
	return b.Close < b.Open
}

// Range is high minus low.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// ErrInvalidBar is matched by every InvalidBarError.
var ErrInvalidBar = errors.New("invalid bar")

// InvalidBarError reports a bar that violates OHLC ordering, carries a
// non-finite price or goes back in time.
type InvalidBarError struct {
	Time   time.Time
	Reason string
}

func (e *InvalidBarError) Error() string {
	return fmt.Sprintf("invalid bar at %s: %s", e.Time.UTC().Format("2006-01-02 15:04:05"), e.Reason)
}

func (e *InvalidBarError) Unwrap() error {
	return ErrInvalidBar
}

// Validate checks the OHLC invariants of a single bar.
func (b Bar) Validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidBarError{Time: b.Time, Reason: "non-finite price"}
		}
	}
	if b.High < b.Low {
		return &InvalidBarError{Time: b.Time, Reason: "high below low"}
	}
	if b.High < math.Max(b.Open, b.Close) {
		return &InvalidBarError{Time: b.Time, Reason: "high below open/close"}
	}
	if b.Low > math.Min(b.Open, b.Close) {
		return &InvalidBarError{Time: b.Time, Reason: "low above open/close"}
	}
	return nil
}

// ValidateAfter checks b and that it does not precede prev.
func (b Bar) ValidateAfter(prev Bar) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.Time.Before(prev.Time) {
		return &InvalidBarError{Time: b.Time, Reason: fmt.Sprintf("time goes backwards from %s", prev.Time.UTC().Format("2006-01-02 15:04:05"))}
	}
	return nil
}

// ValidateSeries checks every bar and the ordering of the sequence.
func ValidateSeries(bars []Bar) error {
	for i := range bars {
		if i == 0 {
			if err := bars[i].Validate(); err != nil {
				return err
			}
			continue
		}
		if err := bars[i].ValidateAfter(bars[i-1]); err != nil {
			return err
		}
	}
	return nil
}
