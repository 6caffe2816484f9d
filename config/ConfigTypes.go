package config

import "time"

type config struct {
	Exchange   ExchangeConfig
	Database   DatabaseConfig
	ClickHouse ClickHouseConfig
	Strategy   StrategyConfig
	Backtest   BacktestConfig
	Symbols    []string
	LogLevel   string
}

type ExchangeConfig struct {
	APIKey    string
	SecretKey string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// Enabled reports whether a database was configured.
func (c DatabaseConfig) Enabled() bool {
	return c.Host != "" && c.DBName != ""
}

type ClickHouseConfig struct {
	DSN      string
	Database string
	Table    string
}

// Enabled reports whether a ClickHouse DSN was configured.
func (c ClickHouseConfig) Enabled() bool {
	return c.DSN != ""
}

type StrategyConfig struct {
	Symbol             string
	PipSize            float64
	RiskPerTrade       float64
	MaxStopLossPercent float64
	TradingStartHour   int
	TradingEndHour     int
	AnalysisStartHour  int
	AnalysisEndHour    int
	SwingLookback      int
	SpreadPips         float64
	ChoppyADXThreshold float64
	FillPolicy         string
	MaxOpenPositions   int
}

// Period is one named backtest window [Start, End).
type Period struct {
	Label string
	Start time.Time
	End   time.Time
}

type BacktestConfig struct {
	InitialBalance float64
	TimeFrame      string

	// DataSource is one of csv, postgres, clickhouse or binance.
	DataSource string
	CSVPath    string
	Periods    []Period

	NewsEnabled bool
	// NewsSource is one of csv, postgres or recurring.
	NewsSource string
	NewsFile   string
	NewsBefore time.Duration
	NewsAfter  time.Duration
}
