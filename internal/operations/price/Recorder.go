package price

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ForexTradeBot/internal/models"
)

// BarSink persists bars. Saving the same bar twice must not duplicate it.
type BarSink interface {
	SaveBars(ctx context.Context, bars []models.Bar) error
}

// LatestBarFinder is implemented by sinks that can report their newest
// stored bar, nil when they hold none.
type LatestBarFinder interface {
	FindLatest(symbol, timeFrame string) (*models.Bar, error)
}

// BarRecorder copies bars from a source into a sink.
type BarRecorder struct {
	source  BarSource
	sink    BarSink
	symbols []string
	logger  *zap.Logger
}

func NewBarRecorder(source BarSource, sink BarSink, symbols []string, logger *zap.Logger) *BarRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BarRecorder{source: source, sink: sink, symbols: symbols, logger: logger}
}

// Backfill records [start, end) for every symbol and returns the number of
// bars written. A failing symbol is logged and skipped.
func (r *BarRecorder) Backfill(ctx context.Context, timeframe string, start, end time.Time) (int, error) {
	total := 0
	for _, symbol := range r.symbols {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := r.record(ctx, symbol, timeframe, start, end)
		if err != nil {
			r.logger.Error("backfill failed", zap.String("symbol", symbol), zap.String("timeframe", timeframe), zap.Error(err))
			continue
		}
		total += n
	}
	return total, nil
}

func (r *BarRecorder) record(ctx context.Context, symbol, timeframe string, start, end time.Time) (int, error) {
	start, err := r.resumeFrom(symbol, timeframe, start)
	if err != nil {
		return 0, err
	}
	if !start.Before(end) {
		r.logger.Debug("bars already recorded", zap.String("symbol", symbol), zap.String("timeframe", timeframe))
		return 0, nil
	}

	bars, err := r.source.LoadBars(ctx, symbol, timeframe, start, end)
	if err != nil {
		return 0, err
	}
	if err := models.ValidateSeries(bars); err != nil {
		return 0, fmt.Errorf("refusing to store %s: %w", symbol, err)
	}
	if err := r.sink.SaveBars(ctx, bars); err != nil {
		return 0, fmt.Errorf("save %s bars: %w", symbol, err)
	}
	r.logger.Info("recorded bars", zap.String("symbol", symbol), zap.String("timeframe", timeframe), zap.Int("count", len(bars)))
	return len(bars), nil
}

// resumeFrom moves start past the newest bar the sink already holds.
func (r *BarRecorder) resumeFrom(symbol, timeframe string, start time.Time) (time.Time, error) {
	finder, ok := r.sink.(LatestBarFinder)
	if !ok {
		return start, nil
	}
	latest, err := finder.FindLatest(symbol, timeframe)
	if err != nil {
		return start, fmt.Errorf("latest %s bar: %w", symbol, err)
	}
	if latest == nil {
		return start, nil
	}
	step, err := TimeFrameDuration(timeframe)
	if err != nil {
		return start, err
	}
	if next := latest.Time.Add(step); next.After(start) {
		r.logger.Info("resuming after stored bars", zap.String("symbol", symbol), zap.Time("from", next))
		return next, nil
	}
	return start, nil
}

// Follow records the most recent closed bars once per timeframe period
// until ctx is cancelled.
func (r *BarRecorder) Follow(ctx context.Context, timeframe string) error {
	step, err := TimeFrameDuration(timeframe)
	if err != nil {
		return err
	}
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	r.logger.Info("starting bar recording", zap.String("timeframe", timeframe))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping bar recording", zap.String("timeframe", timeframe))
			return nil
		case now := <-ticker.C:
			end := now.UTC().Truncate(step)
			if _, err := r.Backfill(ctx, timeframe, end.Add(-2*step), end); err != nil {
				return err
			}
		}
	}
}
