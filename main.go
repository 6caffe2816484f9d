package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ForexTradeBot/config"
	"ForexTradeBot/internal/handlers"
	applog "ForexTradeBot/internal/logger"
	"ForexTradeBot/internal/models"
	"ForexTradeBot/internal/operations/backtest"
	"ForexTradeBot/internal/operations/binance"
	"ForexTradeBot/internal/operations/price"
	"ForexTradeBot/internal/repositories"
	"ForexTradeBot/internal/services/strategy"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Println("run failed:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet("forextradebot", flag.ContinueOnError)
	mode := flags.String("mode", "backtest", "backtest, ingest or report")
	days := flags.Int("days", 7, "days of history to ingest")
	follow := flags.Bool("follow", false, "keep recording new bars after the backfill")
	runID := flags.String("run", "", "run id to report, newest runs of the symbol when empty")
	limit := flags.Int("limit", 10, "runs to report per symbol")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zlog, err := applog.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer zlog.Sync()

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		select {
		case <-c:
			zlog.Info("Shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Setup database
	var db *gorm.DB
	if cfg.Database.Enabled() {
		if db, err = setupDatabase(cfg.Database); err != nil {
			zlog.Error("database setup failed", zap.Error(err))
			return err
		}
	}

	sources := dataSources{
		exchange:   cfg.Exchange,
		clickhouse: cfg.ClickHouse,
		db:         db,
		logger:     zlog,
	}

	switch *mode {
	case "backtest":
		err = runBacktest(ctx, cfg.Strategy, cfg.Backtest, sources)
	case "ingest":
		err = runIngest(ctx, cfg.Symbols, cfg.Backtest, sources, *days, *follow)
	case "report":
		err = runReport(ctx, cfg.Strategy.Symbol, *runID, *limit, sources)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		zlog.Error("run failed", zap.String("mode", *mode), zap.Error(err))
		return err
	}
	zlog.Info("Shutdown complete")
	return nil
}

func runBacktest(ctx context.Context, strat config.StrategyConfig, bt config.BacktestConfig, sources dataSources) error {
	source, closeSource, err := sources.open(ctx, bt.DataSource, bt.CSVPath)
	if err != nil {
		return err
	}
	defer closeSource()

	periods := bt.Periods
	if len(periods) == 0 {
		periods = []config.Period{lastMonth(time.Now().UTC())}
	}
	start, end := span(periods)

	var newsStore handlers.NewsStore
	if sources.db != nil {
		newsStore = repositories.NewNewsEventRepository(sources.db)
	}
	calendar, err := handlers.LoadCalendar(ctx, bt, newsStore, start, end)
	if err != nil {
		return fmt.Errorf("failed to load news calendar: %w", err)
	}
	var news strategy.BlackoutChecker
	if calendar != nil {
		news = calendar
		sources.logger.Info("news calendar loaded", zap.Int("events", calendar.Len()), zap.String("source", bt.NewsSource))
	}

	backtestConfig := newBacktestConfig(strat, bt)
	handler := handlers.NewBacktestHandler(source, news, backtestConfig, bt.TimeFrame, sources.logger)
	results, summary, err := handler.RunPeriods(ctx, periods)
	if err != nil {
		return err
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		sources.logger.Info("backtest result",
			zap.String("label", r.Label),
			zap.String("run_id", r.RunID),
			zap.Int("bars", r.Bars),
			zap.Int("trades", r.TotalTrades),
			zap.Int("winning_trades", r.WinningTrades),
			zap.Float64("win_rate", r.WinRate),
			zap.Float64("average_pnl", r.AveragePnL),
			zap.Float64("max_drawdown", r.MaxDrawdown),
			zap.Float64("final_balance", r.FinalBalance),
			zap.Float64("total_return", r.TotalReturn),
			zap.Float64("sharpe_ratio", r.SharpeRatio))
	}
	sources.logger.Info("backtest summary",
		zap.Int("runs", summary.Runs),
		zap.Int("profitable_runs", summary.ProfitableRuns),
		zap.Int("trades", summary.TotalTrades),
		zap.Float64("win_rate", summary.WinRate),
		zap.Float64("total_pnl", summary.TotalPnL),
		zap.Float64("return_on_balance", summary.ReturnOnBalance))

	if sources.db == nil {
		return nil
	}
	positionHandler := handlers.NewPositionHandler(
		repositories.NewRunRepository(sources.db),
		backtestConfig.Params.PipValue,
		sources.logger,
	)
	return positionHandler.SaveResults(ctx, results)
}

func runIngest(ctx context.Context, symbols []string, bt config.BacktestConfig, sources dataSources, days int, follow bool) error {
	sourceName := "binance"
	if bt.DataSource == "csv" && bt.CSVPath != "" {
		sourceName = "csv"
	}
	source, closeSource, err := sources.open(ctx, sourceName, bt.CSVPath)
	if err != nil {
		return err
	}
	defer closeSource()

	sink, closeSink, err := sources.sink(ctx)
	if err != nil {
		return err
	}
	defer closeSink()

	if sources.db != nil && bt.NewsFile != "" {
		n, err := handlers.ImportNewsFile(ctx, bt.NewsFile, repositories.NewNewsEventRepository(sources.db))
		if err != nil {
			return fmt.Errorf("failed to import news: %w", err)
		}
		sources.logger.Info("news events imported", zap.Int("events", n))
	}

	priceHandler := handlers.NewPriceHandler(source, sink, symbols, []string{bt.TimeFrame}, sources.logger)
	if !follow {
		n, err := priceHandler.Backfill(ctx, days)
		sources.logger.Info("backfill finished", zap.Int("bars", n))
		return err
	}

	// Start price handling
	if err := priceHandler.Start(ctx, days); err != nil {
		return err
	}
	sources.logger.Info("Price recording started...")
	<-ctx.Done()
	return nil
}

// runReport reads stored runs back and checks each ledger against the
// balance it produced.
func runReport(ctx context.Context, symbol, runID string, limit int, sources dataSources) error {
	if sources.db == nil {
		return errors.New("report requires DB_HOST and DB_NAME")
	}
	reporter := handlers.NewReportHandler(
		repositories.NewRunRepository(sources.db),
		repositories.NewPositionRepository(sources.db),
		repositories.NewTransactionRepository(sources.db),
		sources.logger,
	)

	var reports []*handlers.RunReport
	if runID != "" {
		report, err := reporter.Report(ctx, runID)
		if err != nil {
			return err
		}
		reports = append(reports, report)
	} else {
		var err error
		if reports, err = reporter.SymbolReports(ctx, symbol, limit); err != nil {
			return err
		}
	}

	unbalanced := 0
	for _, r := range reports {
		if !r.Balanced() {
			unbalanced++
		}
	}
	sources.logger.Info("report finished", zap.Int("runs", len(reports)), zap.Int("unbalanced", unbalanced))
	if unbalanced > 0 {
		return fmt.Errorf("%d of %d runs do not reconcile", unbalanced, len(reports))
	}
	return nil
}

type dataSources struct {
	exchange   config.ExchangeConfig
	clickhouse config.ClickHouseConfig
	db         *gorm.DB
	logger     *zap.Logger
}

func noop() {}

// open returns the named bar source and a function releasing it.
func (s dataSources) open(ctx context.Context, name, csvPath string) (price.BarSource, func(), error) {
	switch name {
	case "csv":
		if csvPath == "" {
			return nil, noop, errors.New("data source csv requires CSV_PATH")
		}
		return price.NewCSVSource(csvPath), noop, nil
	case "postgres":
		if s.db == nil {
			return nil, noop, errors.New("data source postgres requires DB_HOST and DB_NAME")
		}
		return repositories.NewBarRepository(s.db), noop, nil
	case "clickhouse":
		ch, err := s.openClickHouse(ctx)
		if err != nil {
			return nil, noop, err
		}
		return ch, func() { ch.Close() }, nil
	case "binance":
		client := binance.NewBinanceClient(s.exchange.APIKey, s.exchange.SecretKey, s.logger)
		return price.NewBarFetcher(client, s.logger), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown data source %q", name)
	}
}

// sink prefers ClickHouse when configured and falls back to PostgreSQL.
func (s dataSources) sink(ctx context.Context) (price.BarSink, func(), error) {
	if s.clickhouse.Enabled() {
		ch, err := s.openClickHouse(ctx)
		if err != nil {
			return nil, noop, err
		}
		if err := ch.EnsureSchema(ctx); err != nil {
			ch.Close()
			return nil, noop, err
		}
		return ch, func() { ch.Close() }, nil
	}
	if s.db == nil {
		return nil, noop, errors.New("ingest requires a database or CLICKHOUSE_DSN")
	}
	return repositories.NewBarRepository(s.db), noop, nil
}

func (s dataSources) openClickHouse(ctx context.Context) (*price.ClickHouseSource, error) {
	if !s.clickhouse.Enabled() {
		return nil, errors.New("data source clickhouse requires CLICKHOUSE_DSN")
	}
	return price.OpenClickHouse(ctx, s.clickhouse.DSN, s.clickhouse.Database, s.clickhouse.Table, s.logger)
}

func newBacktestConfig(strat config.StrategyConfig, bt config.BacktestConfig) backtest.Config {
	cfg := backtest.NewConfig(strat.Symbol)
	cfg.InitialBalance = bt.InitialBalance
	cfg.SpreadPips = strat.SpreadPips
	cfg.FillPolicy = backtest.ParseFillPolicy(strat.FillPolicy)
	cfg.MaxOpenPositions = strat.MaxOpenPositions

	if strat.PipSize > 0 {
		cfg.Params.PipSize = strat.PipSize
	}
	cfg.Params.RiskPerTrade = strat.RiskPerTrade
	cfg.Params.MaxStopLossPercent = strat.MaxStopLossPercent
	cfg.Params.TradingStartHour = strat.TradingStartHour
	cfg.Params.TradingEndHour = strat.TradingEndHour
	cfg.Params.AnalysisStartHour = strat.AnalysisStartHour
	cfg.Params.AnalysisEndHour = strat.AnalysisEndHour
	cfg.Params.SwingLookback = strat.SwingLookback
	cfg.Params.ChoppyADXThreshold = strat.ChoppyADXThreshold
	return cfg
}

// lastMonth is the previous full calendar month.
func lastMonth(now time.Time) config.Period {
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, -1, 0)
	return config.Period{Label: start.Format("2006-01"), Start: start, End: end}
}

func span(periods []config.Period) (time.Time, time.Time) {
	start, end := periods[0].Start, periods[0].End
	for _, p := range periods[1:] {
		if p.Start.Before(start) {
			start = p.Start
		}
		if p.End.After(end) {
			end = p.End
		}
	}
	return start, end
}

func setupDatabase(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto migrate database schemas
	err = db.AutoMigrate(
		&models.Bar{},
		&models.NewsEvent{},
		&models.BacktestRun{},
		&models.Position{},
		&models.Transaction{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
