package backtest

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"ForexTradeBot/internal/models"
	"ForexTradeBot/internal/services/news"
	"ForexTradeBot/internal/services/strategy"
)

var t0 = time.Date(2025, 11, 18, 11, 0, 0, 0, time.UTC)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func round5(x float64) float64 {
	return math.Round(x*1e5) / 1e5
}

func TestStopTakesPriorityOnSameBar(t *testing.T) {
	tests := []struct {
		name   string
		policy FillPolicy
		open   float64
		reason string
		exit   float64
		pnl    float64
	}{
		{"stop first", FillStopFirst, 1.1010, ReasonStopLoss, 1.0990, (-20 - 1.5) * 10 * 0.5},
		{"target first", FillTargetFirst, 1.1010, ReasonTakeProfit, 1.1030, (20 - 1.5) * 10 * 0.5},
		{"nearest extremum low", FillNearestExtremum, 1.0995, ReasonStopLoss, 1.0990, (-20 - 1.5) * 10 * 0.5},
		{"nearest extremum high", FillNearestExtremum, 1.1030, ReasonTakeProfit, 1.1030, (20 - 1.5) * 10 * 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("EURUSD")
			cfg.FillPolicy = tt.policy
			sim := NewSimulator(cfg, nil)

			sig := strategy.EntrySignal{Bias: strategy.BiasLong, Time: t0, EntryPrice: 1.1010, StopPrice: 1.0990, TargetPips: 20}
			if _, ok := sim.Open(sig, 0.5); !ok {
				t.Fatalf("open refused")
			}

			closed := sim.Update(models.Bar{Time: t0.Add(15 * time.Minute), Open: tt.open, High: 1.1035, Low: 1.0985, Close: 1.1020})
			if len(closed) != 1 {
				t.Fatalf("expected 1 closed position, got %d", len(closed))
			}
			c := closed[0]
			if c.CloseReason != tt.reason || !almostEqual(c.ExitPrice, tt.exit) {
				t.Fatalf("closed with %s at %v, want %s at %v", c.CloseReason, c.ExitPrice, tt.reason, tt.exit)
			}
			if !almostEqual(c.PnL, tt.pnl) {
				t.Fatalf("pnl = %v, want %v", c.PnL, tt.pnl)
			}
			if !almostEqual(sim.Balance(), InitialBalance+tt.pnl) {
				t.Fatalf("balance = %v", sim.Balance())
			}
			if len(sim.OpenPositions()) != 0 {
				t.Fatalf("position still open")
			}
		})
	}
}

func TestShortTargetAndFloatingPnL(t *testing.T) {
	sim := NewSimulator(NewConfig("EURUSD"), nil)
	sig := strategy.EntrySignal{Bias: strategy.BiasShort, Time: t0, EntryPrice: 1.1000, StopPrice: 1.1020, TargetPips: 20}
	sim.Open(sig, 1)

	// no touch: marked to close, spread already paid
	if closed := sim.Update(models.Bar{Time: t0.Add(time.Minute), Open: 1.1000, High: 1.1010, Low: 1.0990, Close: 1.0990}); len(closed) != 0 {
		t.Fatalf("unexpected close %+v", closed)
	}
	open := sim.OpenPositions()
	if len(open) != 1 || !almostEqual(open[0].OpenPnL, (10-1.5)*10) {
		t.Fatalf("floating pnl = %+v", open)
	}
	if !almostEqual(sim.Equity(), InitialBalance+85) || sim.Balance() != InitialBalance {
		t.Fatalf("equity %v balance %v", sim.Equity(), sim.Balance())
	}

	closed := sim.Update(models.Bar{Time: t0.Add(2 * time.Minute), Open: 1.0990, High: 1.0995, Low: 1.0975, Close: 1.0985})
	if len(closed) != 1 || closed[0].CloseReason != ReasonTakeProfit || !almostEqual(closed[0].ExitPrice, 1.0980) {
		t.Fatalf("unexpected close %+v", closed)
	}
	if !almostEqual(closed[0].PnL, 185) {
		t.Fatalf("pnl = %v, want 185", closed[0].PnL)
	}
}

func TestSpreadChargedOnFlatClose(t *testing.T) {
	sim := NewSimulator(NewConfig("EURUSD"), nil)
	sim.Open(strategy.EntrySignal{Bias: strategy.BiasLong, Time: t0, EntryPrice: 1.1000, StopPrice: 1.0980, TargetPips: 25}, 1)

	closed := sim.CloseAll(models.Bar{Time: t0.Add(time.Minute), Open: 1.1, High: 1.1, Low: 1.1, Close: 1.1}, ReasonEndOfDay)
	if len(closed) != 1 || closed[0].CloseReason != ReasonEndOfDay {
		t.Fatalf("unexpected close %+v", closed)
	}
	if !almostEqual(closed[0].PnL, -15) {
		t.Fatalf("pnl = %v, want -15", closed[0].PnL)
	}
	if sim.CloseAll(models.Bar{Time: t0.Add(2 * time.Minute)}, ReasonEndOfDay) != nil {
		t.Fatalf("closing an empty book must be a no-op")
	}
}

func TestOpenRespectsCapAndSize(t *testing.T) {
	cfg := NewConfig("EURUSD")
	cfg.MaxOpenPositions = 1
	sim := NewSimulator(cfg, nil)
	sig := strategy.EntrySignal{Bias: strategy.BiasLong, Time: t0, EntryPrice: 1.1000, StopPrice: 1.0980, TargetPips: 25}

	if _, ok := sim.Open(sig, 0); ok {
		t.Fatalf("zero lots must not open")
	}
	if _, ok := sim.Open(sig, 0.1); !ok {
		t.Fatalf("first open refused")
	}
	if _, ok := sim.Open(sig, 0.1); ok {
		t.Fatalf("cap of one position ignored")
	}
}

// dayBars yields entries at indexes 5 and 6 once trend filters are off.
func dayBars(start time.Time) []models.Bar {
	mk := func(i int, o, h, l, c float64) models.Bar {
		return models.Bar{Time: start.Add(time.Duration(i) * 15 * time.Minute), Open: o, High: h, Low: l, Close: c}
	}
	return []models.Bar{
		mk(0, 1.1000, 1.1010, 1.0995, 1.1005),
		mk(1, 1.1005, 1.1020, 1.1000, 1.1015),
		mk(2, 1.1015, 1.1030, 1.1010, 1.1025),
		mk(3, 1.1035, 1.1050, 1.1000, 1.1010),
		mk(4, 1.1010, 1.1030, 1.1005, 1.1020),
		mk(5, 1.1020, 1.1035, 1.1010, 1.1030),
		mk(6, 1.1030, 1.1032, 1.1015, 1.1020),
	}
}

func openFilterConfig() Config {
	cfg := NewConfig("EURUSD")
	cfg.Params.ChoppyADXThreshold = 0
	cfg.Params.SpikeMultiplier = 1000
	cfg.CloseAtEnd = false
	return cfg
}

func TestForcedExits(t *testing.T) {
	quiet := models.Bar{Open: 1.1020, High: 1.1025, Low: 1.1015, Close: 1.1020}
	fomc := news.NewCalendar([]models.NewsEvent{{Time: time.Date(2025, 11, 19, 19, 0, 0, 0, time.UTC), Name: "FOMC"}},
		news.DefaultBufferBefore, news.DefaultBufferAfter)

	tests := []struct {
		name   string
		at     time.Time
		cal    strategy.BlackoutChecker
		reason string
	}{
		{"news", time.Date(2025, 11, 19, 0, 0, 0, 0, time.UTC), fomc, "NEWS_FOMC_DAY_FOMC"},
		{"daily reset", time.Date(2025, 11, 19, 11, 0, 0, 0, time.UTC), nil, ReasonDailyReset},
		{"end of day", time.Date(2025, 11, 18, 18, 55, 0, 0, time.UTC), nil, ReasonEndOfDay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(openFilterConfig(), tt.cal, nil)
			bars := append(dayBars(t0), quiet)
			bars[len(bars)-1].Time = tt.at

			res, err := e.Run(context.Background(), bars)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if res.TotalTrades != 2 {
				t.Fatalf("expected 2 trades, got %d", res.TotalTrades)
			}
			for _, tr := range res.Trades {
				if tr.CloseReason != tt.reason || tr.ExitPrice != quiet.Close {
					t.Fatalf("trade closed with %s at %v, want %s at close", tr.CloseReason, tr.ExitPrice, tt.reason)
				}
			}
			if tt.name == "news" && !strings.HasPrefix(res.Trades[0].CloseReason, "NEWS_FOMC") {
				t.Fatalf("news exit not tagged with the event")
			}
		})
	}
}

func uptrend(n int) []models.Bar {
	start := time.Date(2025, 3, 4, 11, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	h := 1.1010
	for k := 0; k < n; k++ {
		up := k%5 >= 2
		if up {
			h += 0.0005
		} else {
			h -= 0.0002
		}
		high := round5(h)
		low := round5(high - 0.0008)
		b := models.Bar{Time: start.Add(time.Duration(k) * 5 * time.Minute), High: high, Low: low}
		if up {
			b.Open, b.Close = round5(low+0.0001), round5(high-0.0001)
		} else {
			b.Open, b.Close = round5(high-0.0001), round5(low+0.0001)
		}
		bars[k] = b
	}
	return bars
}

func TestCleanUptrendStaysLong(t *testing.T) {
	e := NewEngine(NewConfig("EURUSD"), nil, nil)
	res, err := e.Run(context.Background(), uptrend(100))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	s := e.Strategy().State()
	if s.Bias != strategy.BiasLong || s.LastBiasChangeIndex != -1 {
		t.Fatalf("bias changed during uptrend: %+v", s)
	}
	if s.ZoneAssignments != 1 {
		t.Fatalf("expected exactly one zone, got %d", s.ZoneAssignments)
	}
	if res.TotalTrades == 0 {
		t.Fatalf("expected entries in a clean uptrend")
	}
	if res.ShortTrades != 0 || res.LongTrades != res.TotalTrades {
		t.Fatalf("short trades opened: %d", res.ShortTrades)
	}

	p := e.Strategy().Params()
	for _, tr := range res.Trades {
		if tr.Direction != strategy.BiasLong || tr.SLPrice != s.Mitigation.Low {
			t.Fatalf("trade not using LONG stop: %+v", tr)
		}
		if tr.TPPips != 25 && tr.TPPips != 20 && tr.TPPips != 15 {
			t.Fatalf("unexpected target %v", tr.TPPips)
		}
		loss := tr.Lots * p.StopPips(tr.EntryPrice, tr.SLPrice) * p.PipValue
		if loss > tr.BalanceAtOpen*p.MaxStopLossPercent+1e-9 {
			t.Fatalf("stop loss cap exceeded: %v", loss)
		}
	}
	if res.FinalBalance <= res.InitialBalance || res.TotalReturn <= 0 {
		t.Fatalf("uptrend should be profitable: %+v", res.FinalBalance)
	}
	if res.RunID == "" || e.RunID() != res.RunID {
		t.Fatalf("missing run id")
	}
}

func TestRunRejectsInvalidBar(t *testing.T) {
	bars := uptrend(10)
	bars[6].High = bars[6].Low - 0.0001

	_, err := NewEngine(NewConfig("EURUSD"), nil, nil).Run(context.Background(), bars)
	if !errors.Is(err, models.ErrInvalidBar) {
		t.Fatalf("expected invalid bar error, got %v", err)
	}
}

func TestRunHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewEngine(NewConfig("EURUSD"), nil, nil).Run(ctx, uptrend(10)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]*BacktestResults{
		{TotalTrades: 4, WinningTrades: 3, InitialBalance: 10000, FinalBalance: 10200},
		nil,
		{TotalTrades: 6, WinningTrades: 2, InitialBalance: 10000, FinalBalance: 9900},
	})
	if s.Runs != 2 || s.TotalTrades != 10 || s.ProfitableRuns != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if !almostEqual(s.WinRate, 0.5) || !almostEqual(s.TotalPnL, 100) || !almostEqual(s.ReturnOnBalance, 0.005) {
		t.Fatalf("unexpected summary %+v", s)
	}
}
