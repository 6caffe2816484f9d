package backtest

import (
	"go.uber.org/zap"

	"ForexTradeBot/internal/models"
	"ForexTradeBot/internal/services/strategy"
)

// Simulator owns the account and every position lifecycle of one run.
type Simulator struct {
	config   Config
	pipSize  float64
	pipValue float64
	logger   *zap.Logger

	account Account
	nextID  int
}

func NewSimulator(config Config, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	params := config.Params.WithDefaults()
	config.Params = params
	return &Simulator{
		config:   config,
		pipSize:  params.PipSize,
		pipValue: params.PipValue,
		logger:   logger,
		account:  Account{Balance: config.InitialBalance},
	}
}

// Balance is the realized account balance.
func (s *Simulator) Balance() float64 {
	return s.account.Balance
}

// Equity is balance plus floating P&L of open positions.
func (s *Simulator) Equity() float64 {
	eq := s.account.Balance
	for _, p := range s.account.Open {
		eq += p.OpenPnL
	}
	return eq
}

// OpenPositions returns copies of the open positions.
func (s *Simulator) OpenPositions() []Position {
	out := make([]Position, len(s.account.Open))
	for i, p := range s.account.Open {
		out[i] = *p
	}
	return out
}

// Closed returns the closed positions in close order.
func (s *Simulator) Closed() []Trade {
	return s.account.Closed
}

// Open adds a position for sig. It refuses zero size and respects the
// optional open-position cap.
func (s *Simulator) Open(sig strategy.EntrySignal, lots float64) (*Position, bool) {
	if lots <= 0 {
		return nil, false
	}
	if s.config.MaxOpenPositions > 0 && len(s.account.Open) >= s.config.MaxOpenPositions {
		return nil, false
	}

	s.nextID++
	pos := &Position{
		ID:            s.nextID,
		EntryTime:     sig.Time,
		EntryPrice:    sig.EntryPrice,
		Direction:     sig.Bias,
		Lots:          lots,
		SLPrice:       sig.StopPrice,
		TPPips:        sig.TargetPips,
		SpreadPips:    s.config.SpreadPips,
		BalanceAtOpen: s.account.Balance,
		EntryNumber:   sig.EntryNumber,
	}
	pos.OpenPnL = s.pnl(pos, pos.EntryPrice)
	s.account.Open = append(s.account.Open, pos)

	s.logger.Debug("position opened",
		zap.Int("id", pos.ID),
		zap.Stringer("direction", pos.Direction),
		zap.Float64("entry", pos.EntryPrice),
		zap.Float64("stop", pos.SLPrice),
		zap.Float64("tp_pips", pos.TPPips),
		zap.Float64("lots", pos.Lots))
	return pos, true
}

// CloseAll closes every open position at the bar close with reason.
func (s *Simulator) CloseAll(bar models.Bar, reason string) []Trade {
	if len(s.account.Open) == 0 {
		return nil
	}
	closed := make([]Trade, 0, len(s.account.Open))
	for _, pos := range s.account.Open {
		closed = append(closed, s.close(pos, bar, bar.Close, reason))
	}
	s.account.Open = s.account.Open[:0]
	return closed
}

// Update checks stops and targets against bar and marks the survivors to
// its close.
func (s *Simulator) Update(bar models.Bar) []Trade {
	var closed []Trade
	remaining := s.account.Open[:0]
	for _, pos := range s.account.Open {
		if price, reason, hit := s.checkTPSL(pos, bar); hit {
			closed = append(closed, s.close(pos, bar, price, reason))
			continue
		}
		pos.OpenPnL = s.pnl(pos, bar.Close)
		remaining = append(remaining, pos)
	}
	s.account.Open = remaining
	return closed
}

// TargetPrice is the take-profit level of pos.
func (s *Simulator) TargetPrice(pos *Position) float64 {
	if pos.Direction == strategy.BiasShort {
		return pos.EntryPrice - pos.TPPips*s.pipSize
	}
	return pos.EntryPrice + pos.TPPips*s.pipSize
}

func (s *Simulator) checkTPSL(pos *Position, bar models.Bar) (float64, string, bool) {
	tp := s.TargetPrice(pos)
	var stopHit, targetHit bool
	if pos.Direction == strategy.BiasShort {
		stopHit = bar.High >= pos.SLPrice
		targetHit = bar.Low <= tp
	} else {
		stopHit = bar.Low <= pos.SLPrice
		targetHit = bar.High >= tp
	}

	switch {
	case stopHit && targetHit:
		if s.stopFirst(pos, bar) {
			return pos.SLPrice, ReasonStopLoss, true
		}
		return tp, ReasonTakeProfit, true
	case stopHit:
		return pos.SLPrice, ReasonStopLoss, true
	case targetHit:
		return tp, ReasonTakeProfit, true
	}
	return 0, "", false
}

func (s *Simulator) stopFirst(pos *Position, bar models.Bar) bool {
	switch s.config.FillPolicy {
	case FillTargetFirst:
		return false
	case FillNearestExtremum:
		distHigh := bar.High - bar.Open
		distLow := bar.Open - bar.Low
		if pos.Direction == strategy.BiasShort {
			return distHigh < distLow
		}
		return distLow < distHigh
	default:
		return true
	}
}

// pnl is the net result of closing pos at price: pip delta times pip value
// times lots, less the spread paid at entry.
func (s *Simulator) pnl(pos *Position, price float64) float64 {
	delta := (price - pos.EntryPrice) / s.pipSize
	if pos.Direction == strategy.BiasShort {
		delta = -delta
	}
	return (delta - pos.SpreadPips) * s.pipValue * pos.Lots
}

func (s *Simulator) close(pos *Position, bar models.Bar, price float64, reason string) Trade {
	pnl := s.pnl(pos, price)
	pos.OpenPnL = 0
	t := Trade{
		Position:    *pos,
		ExitTime:    bar.Time,
		ExitPrice:   price,
		PnL:         pnl,
		CloseReason: reason,
	}
	s.account.Balance += pnl
	s.account.Closed = append(s.account.Closed, t)

	s.logger.Debug("position closed",
		zap.Int("id", pos.ID),
		zap.Stringer("direction", pos.Direction),
		zap.String("reason", reason),
		zap.Float64("exit", price),
		zap.Float64("pnl", pnl),
		zap.Float64("balance", s.account.Balance))
	return t
}
