package indicators

import (
	"math"
	"testing"
	"time"

	"ForexTradeBot/internal/models"
)

func bar(o, h, l, c float64) models.Bar {
	return models.Bar{Time: time.Unix(0, 0).UTC(), Open: o, High: h, Low: l, Close: c}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTrueRange(t *testing.T) {
	prev := bar(1.0, 1.1, 0.9, 1.0)
	tests := []struct {
		name string
		cur  models.Bar
		want float64
	}{
		{"inside range", bar(1.0, 1.05, 0.95, 1.0), 0.10},
		{"gap up", bar(1.2, 1.3, 1.15, 1.25), 0.30},
		{"gap down", bar(0.8, 0.85, 0.7, 0.75), 0.30},
	}
	for _, tt := range tests {
		if got := TrueRange(tt.cur, prev); !almostEqual(got, tt.want) {
			t.Errorf("%s: TrueRange = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestATR(t *testing.T) {
	bars := []models.Bar{
		bar(10, 12, 9, 11),
		bar(11, 16, 10, 15), // tr 6
		bar(15, 17, 12, 13), // tr 5
		bar(13, 14, 10, 11), // tr 4
	}
	if got := ATR(bars, 3); !almostEqual(got, 5) {
		t.Fatalf("ATR(3) = %v, want 5", got)
	}
	if got := ATR(bars, 2); !almostEqual(got, 4.5) {
		t.Fatalf("ATR(2) = %v, want 4.5", got)
	}
	if got := ATR(bars, 4); got != DefaultATR {
		t.Fatalf("short history should return DefaultATR, got %v", got)
	}
}

func TestADX(t *testing.T) {
	up := []models.Bar{
		bar(1.00, 1.01, 0.99, 1.005),
		bar(1.005, 1.02, 1.00, 1.015),
		bar(1.015, 1.03, 1.01, 1.025),
		bar(1.025, 1.04, 1.02, 1.035),
	}
	if got := ADX(up, 3); !almostEqual(got, 100) {
		t.Fatalf("pure uptrend DX = %v, want 100", got)
	}

	flat := []models.Bar{
		bar(1, 1.01, 0.99, 1),
		bar(1, 1.01, 0.99, 1),
		bar(1, 1.01, 0.99, 1),
	}
	if got := ADX(flat, 2); got != 0 {
		t.Fatalf("flat market DX = %v, want 0", got)
	}

	if got := ADX(up[:2], 3); got != DefaultADX {
		t.Fatalf("short history should return DefaultADX, got %v", got)
	}
}

func TestDirectionalMovementClamp(t *testing.T) {
	prev := bar(1, 1.10, 0.90, 1)
	// outside bar: up 0.05, down 0.08 -> only -DM survives
	p, m := DirectionalMovement(bar(1, 1.15, 0.82, 1), prev)
	if p != 0 || !almostEqual(m, 0.08) {
		t.Fatalf("got +DM=%v -DM=%v", p, m)
	}
	// inside bar: both negative
	p, m = DirectionalMovement(bar(1, 1.05, 0.95, 1), prev)
	if p != 0 || m != 0 {
		t.Fatalf("inside bar should have no movement, got %v %v", p, m)
	}
}

func TestHasRangeSpike(t *testing.T) {
	bars := make([]models.Bar, 0, 30)
	for i := 0; i < 25; i++ {
		bars = append(bars, bar(1.1000, 1.1005, 1.0995, 1.1000))
	}
	if HasRangeSpike(bars, 4, 20, 2, DefaultATR) {
		t.Fatalf("uniform ranges must not spike")
	}

	spiked := append(append([]models.Bar{}, bars...), bar(1.1000, 1.1060, 1.0990, 1.1050))
	if !HasRangeSpike(spiked, 4, 20, 2, DefaultATR) {
		t.Fatalf("expected spike to be detected")
	}

	// spike ages out after four more bars
	for i := 0; i < 4; i++ {
		spiked = append(spiked, bar(1.1050, 1.1055, 1.1045, 1.1050))
	}
	if HasRangeSpike(spiked, 4, 20, 2, DefaultATR) {
		t.Fatalf("spike older than the lookback must be ignored")
	}
}

func TestHasRangeSpikeShortHistoryFallback(t *testing.T) {
	// three yen bars, each 5 pips wide
	jpy := []models.Bar{
		bar(150.00, 150.03, 149.98, 150.01),
		bar(150.01, 150.04, 149.99, 150.02),
		bar(150.02, 150.05, 150.00, 150.03),
	}
	if !HasRangeSpike(jpy, 4, 20, 2, DefaultATR) {
		t.Fatalf("a 4-digit fallback should flag every yen bar")
	}
	if HasRangeSpike(jpy, 4, 20, 2, DefaultATRPips*0.01) {
		t.Fatalf("pip-scaled fallback flagged ordinary yen bars")
	}
	if got := ATROr(jpy, 20, 0.1); got != 0.1 {
		t.Fatalf("ATROr fallback = %v, want 0.1", got)
	}
}
