package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ForexTradeBot/internal/operations/price"
)

// BarCounter is implemented by sinks that can count their stored bars.
type BarCounter interface {
	Count(symbol, timeFrame string) (int64, error)
}

// PriceHandler backfills bar history into a sink and keeps it current.
type PriceHandler struct {
	recorder   *price.BarRecorder
	sink       price.BarSink
	symbols    []string
	timeframes []string
	logger     *zap.Logger
}

func NewPriceHandler(source price.BarSource, sink price.BarSink, symbols, timeframes []string, logger *zap.Logger) *PriceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceHandler{
		recorder:   price.NewBarRecorder(source, sink, symbols, logger),
		sink:       sink,
		symbols:    symbols,
		timeframes: timeframes,
		logger:     logger,
	}
}

// Backfill records the last days of history for every timeframe.
func (h *PriceHandler) Backfill(ctx context.Context, days int) (int, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	total := 0
	for _, timeframe := range h.timeframes {
		h.logger.Info("fetching historical data", zap.String("timeframe", timeframe), zap.Int("days", days))
		n, err := h.recorder.Backfill(ctx, timeframe, start, end)
		total += n
		if err != nil {
			return total, err
		}
		h.logStored(timeframe)
	}
	return total, nil
}

// Stored returns the number of bars the sink holds per symbol, or nil
// when the sink cannot count.
func (h *PriceHandler) Stored(timeframe string) (map[string]int64, error) {
	counter, ok := h.sink.(BarCounter)
	if !ok {
		return nil, nil
	}
	counts := make(map[string]int64, len(h.symbols))
	for _, symbol := range h.symbols {
		n, err := counter.Count(symbol, timeframe)
		if err != nil {
			return nil, fmt.Errorf("count %s bars: %w", symbol, err)
		}
		counts[symbol] = n
	}
	return counts, nil
}

func (h *PriceHandler) logStored(timeframe string) {
	counts, err := h.Stored(timeframe)
	if err != nil {
		h.logger.Warn("failed to count stored bars", zap.String("timeframe", timeframe), zap.Error(err))
		return
	}
	for symbol, n := range counts {
		h.logger.Info("stored bars", zap.String("symbol", symbol), zap.String("timeframe", timeframe), zap.Int64("count", n))
	}
}

// Start backfills and then follows every timeframe in the background
// until ctx is cancelled.
func (h *PriceHandler) Start(ctx context.Context, days int) error {
	if _, err := h.Backfill(ctx, days); err != nil {
		return err
	}

	for _, timeframe := range h.timeframes {
		go func(tf string) {
			if err := h.recorder.Follow(ctx, tf); err != nil {
				h.logger.Error("bar recording stopped", zap.String("timeframe", tf), zap.Error(err))
			}
		}(timeframe)
	}
	return nil
}
