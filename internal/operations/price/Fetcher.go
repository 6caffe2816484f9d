package price

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"go.uber.org/zap"

	"ForexTradeBot/internal/models"
)

// KlineClient is the subset of the exchange client used for history.
type KlineClient interface {
	GetKlinesRange(ctx context.Context, symbol, interval string, step time.Duration, start, end time.Time) ([]*futures.Kline, error)
}

// BarFetcher loads bars from exchange klines.
type BarFetcher struct {
	client KlineClient
	logger *zap.Logger
}

func NewBarFetcher(client KlineClient, logger *zap.Logger) *BarFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BarFetcher{client: client, logger: logger}
}

func (f *BarFetcher) LoadBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error) {
	step, err := TimeFrameDuration(timeframe)
	if err != nil {
		return nil, err
	}
	interval, _ := Interval(timeframe)

	klines, err := f.client.GetKlinesRange(ctx, symbol, interval, step, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s %s klines: %w", symbol, timeframe, err)
	}

	bars := make([]models.Bar, 0, len(klines))
	for _, k := range klines {
		b, err := klineToBar(k, symbol, timeframe)
		if err != nil {
			f.logger.Warn("skipping malformed kline", zap.String("symbol", symbol), zap.Int64("open_time", k.OpenTime), zap.Error(err))
			continue
		}
		bars = append(bars, b)
	}

	f.logger.Info("fetched bars",
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe),
		zap.Int("count", len(bars)),
		zap.Time("start", start),
		zap.Time("end", end))
	return normalize(bars, start, end), nil
}

func klineToBar(k *futures.Kline, symbol, timeframe string) (models.Bar, error) {
	b := models.Bar{
		Symbol:    symbol,
		TimeFrame: timeframe,
		Time:      time.UnixMilli(k.OpenTime).UTC(),
	}
	var err error
	if b.Open, err = parseFloat(k.Open); err != nil {
		return b, err
	}
	if b.High, err = parseFloat(k.High); err != nil {
		return b, err
	}
	if b.Low, err = parseFloat(k.Low); err != nil {
		return b, err
	}
	if b.Close, err = parseFloat(k.Close); err != nil {
		return b, err
	}
	if b.Volume, err = parseFloat(k.Volume); err != nil {
		return b, err
	}
	return b, nil
}
