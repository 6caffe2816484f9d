package handlers

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"ForexTradeBot/config"
	"ForexTradeBot/internal/models"
	"ForexTradeBot/internal/operations/backtest"
	"ForexTradeBot/internal/services/strategy"
)

// waveSource serves a deterministic M5 series covering any requested range.
type waveSource struct {
	err error
}

func (s waveSource) LoadBars(_ context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error) {
	if s.err != nil {
		return nil, s.err
	}
	var bars []models.Bar
	i := 0
	for t := start; t.Before(end); t = t.Add(5 * time.Minute) {
		mid := 1.1 + 0.002*math.Sin(float64(i)/6)
		bars = append(bars, models.Bar{
			Symbol:    symbol,
			TimeFrame: timeframe,
			Time:      t,
			Open:      mid - 0.0001,
			High:      mid + 0.0004,
			Low:       mid - 0.0004,
			Close:     mid + 0.0001,
		})
		i++
	}
	return bars, nil
}

func day(d int) time.Time {
	return time.Date(2025, 9, d, 0, 0, 0, 0, time.UTC)
}

func TestRunPeriods(t *testing.T) {
	h := NewBacktestHandler(waveSource{}, nil, backtest.NewConfig("EURUSD"), models.TimeFrameM5, zap.NewNop())
	h.SetLimit(2)

	periods := []config.Period{
		{Label: "first", Start: day(1), End: day(2)},
		{Label: "empty", Start: day(3), End: day(3)},
		{Label: "second", Start: day(2), End: day(4)},
	}
	results, summary, err := h.RunPeriods(context.Background(), periods)
	if err != nil {
		t.Fatalf("RunPeriods: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[1] != nil {
		t.Errorf("empty period produced a result")
	}
	if results[0].Label != "first" || results[0].Bars != 288 {
		t.Errorf("first = %s/%d bars", results[0].Label, results[0].Bars)
	}
	if results[2].Label != "second" || results[2].Bars != 576 {
		t.Errorf("second = %s/%d bars", results[2].Label, results[2].Bars)
	}
	if results[0].RunID == results[2].RunID {
		t.Error("periods share a run id")
	}
	if summary.Runs != 2 {
		t.Errorf("summary runs = %d, want 2", summary.Runs)
	}
	if want := results[0].TotalTrades + results[2].TotalTrades; summary.TotalTrades != want {
		t.Errorf("summary trades = %d, want %d", summary.TotalTrades, want)
	}
}

func TestRunPeriodsPropagatesSourceError(t *testing.T) {
	boom := errors.New("feed down")
	h := NewBacktestHandler(waveSource{err: boom}, nil, backtest.NewConfig("EURUSD"), models.TimeFrameM5, nil)

	_, _, err := h.RunPeriods(context.Background(), []config.Period{{Label: "x", Start: day(1), End: day(2)}})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

type memRunStore struct {
	runs      []*models.BacktestRun
	positions [][]models.Position
	costs     [][]float64
}

func (m *memRunStore) SaveRun(_ context.Context, run *models.BacktestRun, positions []models.Position, costs []float64) error {
	m.runs = append(m.runs, run)
	m.positions = append(m.positions, positions)
	m.costs = append(m.costs, costs)
	return nil
}

func TestSaveResults(t *testing.T) {
	entry := day(1).Add(12 * time.Hour)
	result := &backtest.BacktestResults{
		RunID:          "run-1",
		Label:          "September",
		Symbol:         "EURUSD",
		InitialBalance: 10000,
		FinalBalance:   10042,
		TotalTrades:    1,
		Trades: []backtest.Trade{{
			Position: backtest.Position{
				EntryTime:  entry,
				EntryPrice: 1.1,
				Direction:  strategy.BiasShort,
				Lots:       0.5,
				SLPrice:    1.101,
				TPPips:     25,
				SpreadPips: 1.5,
			},
			ExitTime:    entry.Add(time.Hour),
			ExitPrice:   1.0975,
			PnL:         117.5,
			CloseReason: backtest.ReasonTakeProfit,
		}},
	}

	store := &memRunStore{}
	h := NewPositionHandler(store, 10, nil)
	if err := h.SaveResults(context.Background(), []*backtest.BacktestResults{nil, result}); err != nil {
		t.Fatalf("SaveResults: %v", err)
	}
	if len(store.runs) != 1 {
		t.Fatalf("saved runs = %d, want 1", len(store.runs))
	}
	run := store.runs[0]
	if run.RunID != "run-1" || run.Label != "September" || run.FinalBalance != 10042 {
		t.Errorf("run = %+v", run)
	}

	pos := store.positions[0][0]
	if pos.Side != models.PositionSideShort || pos.Status != models.PositionStatusClosed || pos.CloseReason != "TP" {
		t.Errorf("position = %+v", pos)
	}
	if !pos.OpenTime.Equal(entry) || pos.PnL != 117.5 {
		t.Errorf("position timing/pnl = %v/%v", pos.OpenTime, pos.PnL)
	}
	if got := store.costs[0][0]; math.Abs(got-7.5) > 1e-9 {
		t.Errorf("spread cost = %v, want 7.5", got)
	}
}

type memNews struct {
	events []models.NewsEvent
}

func (m *memNews) FindInRange(_ context.Context, start, end time.Time) ([]models.NewsEvent, error) {
	var out []models.NewsEvent
	for _, e := range m.events {
		if !e.Time.Before(start) && !e.Time.After(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memNews) CreateBatch(_ context.Context, events []models.NewsEvent) error {
	m.events = append(m.events, events...)
	return nil
}

func TestLoadCalendar(t *testing.T) {
	ctx := context.Background()
	base := config.BacktestConfig{NewsEnabled: true, NewsBefore: 30 * time.Minute, NewsAfter: 30 * time.Minute}

	off := base
	off.NewsEnabled = false
	cal, err := LoadCalendar(ctx, off, nil, day(1), day(30))
	if err != nil || cal != nil {
		t.Fatalf("disabled filter = %v, %v", cal, err)
	}

	recurring := base
	recurring.NewsSource = "recurring"
	cal, err = LoadCalendar(ctx, recurring, nil, day(1), day(30))
	if err != nil {
		t.Fatalf("recurring: %v", err)
	}
	// 2025-09-15 is an FOMC day
	if blocked, label := cal.IsBlackout(day(15).Add(3 * time.Hour)); !blocked || label != "FOMC_DAY_FOMC" {
		t.Errorf("FOMC day = %v %q", blocked, label)
	}

	db := base
	db.NewsSource = "postgres"
	if _, err := LoadCalendar(ctx, db, nil, day(1), day(30)); err == nil {
		t.Error("postgres source without store should fail")
	}
	store := &memNews{events: []models.NewsEvent{{Time: day(10).Add(13*time.Hour + 30*time.Minute), Name: "CPI"}}}
	cal, err = LoadCalendar(ctx, db, store, day(1), day(30))
	if err != nil {
		t.Fatalf("postgres: %v", err)
	}
	if blocked, _ := cal.IsBlackout(day(10).Add(13 * time.Hour)); !blocked {
		t.Error("CPI buffer not applied")
	}

	bad := base
	bad.NewsSource = "rss"
	if _, err := LoadCalendar(ctx, bad, nil, day(1), day(30)); err == nil {
		t.Error("unknown source should fail")
	}
}

func TestImportNewsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.csv")
	data := "time,name,currency\n2025-09-05 12:30,NFP,USD\n2025-09-11 12:30,CPI,USD\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	store := &memNews{}
	n, err := ImportNewsFile(context.Background(), path, store)
	if err != nil {
		t.Fatalf("ImportNewsFile: %v", err)
	}
	if n != 2 || len(store.events) != 2 || store.events[1].Name != "CPI" {
		t.Errorf("imported %d events: %+v", n, store.events)
	}
}
