package backtest

// Summary aggregates independent runs, e.g. one per month.
type Summary struct {
	Runs           int
	TotalTrades    int
	WinningTrades  int
	TotalPnL       float64
	InitialBalance float64
	WinRate        float64

	// ReturnOnBalance is total P&L over the summed starting balances.
	ReturnOnBalance float64
	ProfitableRuns  int
}

// Summarize folds results into a Summary. Nil entries are skipped.
func Summarize(results []*BacktestResults) Summary {
	var s Summary
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Runs++
		s.TotalTrades += r.TotalTrades
		s.WinningTrades += r.WinningTrades
		s.TotalPnL += r.FinalBalance - r.InitialBalance
		s.InitialBalance += r.InitialBalance
		if r.FinalBalance > r.InitialBalance {
			s.ProfitableRuns++
		}
	}
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades)
	}
	if s.InitialBalance > 0 {
		s.ReturnOnBalance = s.TotalPnL / s.InitialBalance
	}
	return s
}
