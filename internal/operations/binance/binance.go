package binance

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxKlinesPerRequest is the futures klines page limit.
const maxKlinesPerRequest = 500

type BinanceClient struct {
	client      *futures.Client
	rateLimiter *rate.Limiter
	httpClient  *http.Client
	logger      *zap.Logger
}

func NewBinanceClient(apiKey, secretKey string, logger *zap.Logger) *BinanceClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Create custom HTTP client with timeouts
	httpClient := &http.Client{
		Timeout: time.Second * 10,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	// Create futures client with custom HTTP client
	futuresClient := futures.NewClient(apiKey, secretKey)
	futuresClient.HTTPClient = httpClient

	// Create rate limiter: 10 requests per second with burst of 20
	limiter := rate.NewLimiter(rate.Limit(10), 20)

	return &BinanceClient{
		client:      futuresClient,
		rateLimiter: limiter,
		httpClient:  httpClient,
		logger:      logger,
	}
}

func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, startTime, endTime int64) ([]*futures.Kline, error) {
	var klines []*futures.Kline
	maxRetries := 3
	backoff := 100 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Wait for rate limiter
		err := c.rateLimiter.Wait(ctx)
		if err != nil {
			return nil, err
		}

		klines, err = c.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(startTime).
			EndTime(endTime).
			Limit(maxKlinesPerRequest).
			Do(ctx)

		if err == nil {
			return klines, nil
		}

		if attempt == maxRetries {
			return nil, fmt.Errorf("klines %s %s failed after %d attempts: %w", symbol, interval, attempt+1, err)
		}

		// Calculate backoff duration with exponential increase
		waitTime := time.Duration(math.Pow(2, float64(attempt))) * backoff
		c.logger.Warn("klines request failed, retrying",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", waitTime),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waitTime):
			continue
		}
	}

	return klines, nil
}

// GetKlinesRange pages through [start, end) in windows of at most
// maxKlinesPerRequest candles of the given step.
func (c *BinanceClient) GetKlinesRange(ctx context.Context, symbol, interval string, step time.Duration, start, end time.Time) ([]*futures.Kline, error) {
	if step <= 0 {
		return nil, fmt.Errorf("invalid kline step %s", step)
	}

	var allKlines []*futures.Kline
	chunkSize := step * maxKlinesPerRequest

	for currentStart := start; currentStart.Before(end); {
		currentEnd := currentStart.Add(chunkSize)
		if currentEnd.After(end) {
			currentEnd = end
		}

		klines, err := c.GetKlines(ctx, symbol, interval, currentStart.UnixMilli(), currentEnd.UnixMilli()-1)
		if err != nil {
			return nil, err
		}
		allKlines = append(allKlines, klines...)

		c.logger.Debug("fetched klines",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Int("count", len(klines)),
			zap.Time("from", currentStart),
			zap.Time("to", currentEnd))
		currentStart = currentEnd
	}

	return allKlines, nil
}
