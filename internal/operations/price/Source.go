package price

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ForexTradeBot/internal/models"
)

// BarSource loads a time-ordered bar series for [start, end).
type BarSource interface {
	LoadBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error)
}

var timeFrames = map[string]struct {
	step     time.Duration
	interval string
}{
	models.TimeFrameM1:  {time.Minute, "1m"},
	models.TimeFrameM5:  {5 * time.Minute, "5m"},
	models.TimeFrameM15: {15 * time.Minute, "15m"},
	models.TimeFrameH1:  {time.Hour, "1h"},
	models.TimeFrameH4:  {4 * time.Hour, "4h"},
}

// TimeFrameDuration returns the bar length of timeframe.
func TimeFrameDuration(timeframe string) (time.Duration, error) {
	tf, ok := timeFrames[timeframe]
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	return tf.step, nil
}

// Interval maps a timeframe to the exchange kline interval.
func Interval(timeframe string) (string, error) {
	tf, ok := timeFrames[timeframe]
	if !ok {
		return "", fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	return tf.interval, nil
}

// normalize sorts bars, drops duplicate timestamps (last wins) and keeps
// [start, end). A zero start or end leaves that side open.
func normalize(bars []models.Bar, start, end time.Time) []models.Bar {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})

	out := bars[:0]
	for _, b := range bars {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && !b.Time.Before(end) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
