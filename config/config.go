package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const dateLayout = "2006-01-02"

func Load() (*config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	tradingStart, tradingEnd, err := envHours("TRADING_HOURS", 12, 19)
	if err != nil {
		return nil, err
	}
	analysisStart, analysisEnd, err := envHours("ANALYSIS_HOURS", 11, 12)
	if err != nil {
		return nil, err
	}
	periods, err := getPeriods()
	if err != nil {
		return nil, err
	}

	return &config{
		Exchange: ExchangeConfig{
			APIKey:    os.Getenv("BINANCE_API_KEY"),
			SecretKey: os.Getenv("BINANCE_SECRET_KEY"),
		},
		Database: DatabaseConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     EnvtoInt(os.Getenv("DB_PORT")),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
		},
		ClickHouse: ClickHouseConfig{
			DSN:      os.Getenv("CLICKHOUSE_DSN"),
			Database: envString("CLICKHOUSE_DATABASE", "default"),
			Table:    envString("CLICKHOUSE_TABLE", "bars"),
		},
		Strategy: StrategyConfig{
			Symbol:             envString("STRATEGY_SYMBOL", "EURUSD"),
			PipSize:            envFloat("PIP_SIZE", 0),
			RiskPerTrade:       envFloat("RISK_PER_TRADE", 0.002),
			MaxStopLossPercent: envFloat("MAX_STOP_LOSS_PERCENT", 0.035),
			TradingStartHour:   tradingStart,
			TradingEndHour:     tradingEnd,
			AnalysisStartHour:  analysisStart,
			AnalysisEndHour:    analysisEnd,
			SwingLookback:      envInt("SWING_LOOKBACK", 2),
			SpreadPips:         envFloat("SPREAD_PIPS", 1.5),
			ChoppyADXThreshold: envFloat("CHOPPY_ADX_THRESHOLD", 20),
			FillPolicy:         envString("FILL_POLICY", "stop_first"),
			MaxOpenPositions:   envInt("MAX_OPEN_POSITIONS", 0),
		},
		Backtest: BacktestConfig{
			InitialBalance: envFloat("INITIAL_BALANCE", 10000),
			TimeFrame:      envString("BACKTEST_TIMEFRAME", "M5"),
			DataSource:     envString("DATA_SOURCE", "csv"),
			CSVPath:        os.Getenv("CSV_PATH"),
			Periods:        periods,
			NewsEnabled:    envBool("NEWS_FILTER_ENABLED", true),
			NewsSource:     envString("NEWS_SOURCE", "recurring"),
			NewsFile:       os.Getenv("NEWS_FILE"),
			NewsBefore:     time.Duration(envInt("NEWS_BUFFER_BEFORE_MINUTES", 30)) * time.Minute,
			NewsAfter:      time.Duration(envInt("NEWS_BUFFER_AFTER_MINUTES", 30)) * time.Minute,
		},
		Symbols:  getSymbols(),
		LogLevel: envString("LOG_LEVEL", "info"),
	}, nil
}

// helper env(string) to int
func EnvtoInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// envHours parses "start-end" UTC hours, e.g. "12-19".
func envHours(key string, defStart, defEnd int) (int, int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defStart, defEnd, nil
	}
	parts := strings.Split(v, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%s: expected start-end, got %q", key, v)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", key, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", key, err)
	}
	if start < 0 || end > 24 || start >= end {
		return 0, 0, fmt.Errorf("%s: invalid hour range %d-%d", key, start, end)
	}
	return start, end, nil
}

// helper to get symbols
func getSymbols() []string {
	symbols := os.Getenv("TRADING_SYMBOLS")
	if symbols == "" {
		return []string{"EURUSD"} // Default pair if none specified
	}
	return strings.Split(symbols, ",")
}

// getPeriods parses BACKTEST_PERIODS as "label:start:end,..." with
// YYYY-MM-DD dates. End is exclusive.
func getPeriods() ([]Period, error) {
	raw := strings.TrimSpace(os.Getenv("BACKTEST_PERIODS"))
	if raw == "" {
		return nil, nil
	}

	var periods []Period
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("BACKTEST_PERIODS: expected label:start:end, got %q", item)
		}
		start, err := time.Parse(dateLayout, parts[1])
		if err != nil {
			return nil, fmt.Errorf("BACKTEST_PERIODS %q: %w", parts[0], err)
		}
		end, err := time.Parse(dateLayout, parts[2])
		if err != nil {
			return nil, fmt.Errorf("BACKTEST_PERIODS %q: %w", parts[0], err)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("BACKTEST_PERIODS %q: end must be after start", parts[0])
		}
		periods = append(periods, Period{Label: parts[0], Start: start, End: end})
	}
	return periods, nil
}
