package price

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"ForexTradeBot/internal/models"
)

// ClickHouseSource reads and writes bars in a ReplacingMergeTree table
// keyed by (symbol, interval, open_time_ms).
type ClickHouseSource struct {
	conn     clickhouse.Conn
	database string
	table    string
	logger   *zap.Logger
}

// OpenClickHouse connects using a clickhouse:// DSN and pings the server.
func OpenClickHouse(ctx context.Context, dsn, database, table string, logger *zap.Logger) (*ClickHouseSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	if database == "" {
		database = opts.Auth.Database
	}
	if database == "" {
		database = "default"
	}
	return &ClickHouseSource{conn: conn, database: database, table: table, logger: logger}, nil
}

func (s *ClickHouseSource) Close() error {
	return s.conn.Close()
}

func (s *ClickHouseSource) qualified() string {
	return fmt.Sprintf("%s.%s", s.database, s.table)
}

// EnsureSchema creates the bar table if missing.
func (s *ClickHouseSource) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			symbol String,
			interval LowCardinality(String),
			open_time_ms UInt64,
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			volume Float64,
			version UInt64
		)
		ENGINE = ReplacingMergeTree(version)
		ORDER BY (symbol, interval, open_time_ms)
	`, s.qualified())
	if err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create bar table: %w", err)
	}
	return nil
}

func selectBarsQuery(table string) string {
	return fmt.Sprintf(`SELECT open_time_ms, open, high, low, close, volume
		FROM %s FINAL
		WHERE symbol = ? AND interval = ? AND open_time_ms >= ? AND open_time_ms < ?
		ORDER BY open_time_ms`, table)
}

func (s *ClickHouseSource) LoadBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error) {
	interval, err := Interval(timeframe)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(ctx, selectBarsQuery(s.qualified()), symbol, interval, uint64(start.UnixMilli()), uint64(end.UnixMilli()))
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var openMs uint64
		b := models.Bar{Symbol: symbol, TimeFrame: timeframe}
		if err := rows.Scan(&openMs, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Time = time.UnixMilli(int64(openMs)).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars: %w", err)
	}

	s.logger.Debug("loaded bars from clickhouse", zap.String("symbol", symbol), zap.String("timeframe", timeframe), zap.Int("count", len(bars)))
	return normalize(bars, start, end), nil
}

// SaveBars writes bars in one batch. Re-inserting a bar replaces it.
func (s *ClickHouseSource) SaveBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", s.qualified()))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	version := uint64(time.Now().UnixNano())
	for _, b := range bars {
		interval, err := Interval(b.TimeFrame)
		if err != nil {
			return err
		}
		if err := batch.Append(
			b.Symbol, interval,
			uint64(b.Time.UnixMilli()),
			b.Open, b.High, b.Low, b.Close,
			b.Volume,
			version,
		); err != nil {
			return fmt.Errorf("batch append: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("batch send: %w", err)
	}
	return nil
}
