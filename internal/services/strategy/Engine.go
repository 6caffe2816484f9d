package strategy

import (
	"time"

	"go.uber.org/zap"

	"ForexTradeBot/internal/models"
	"ForexTradeBot/internal/services/structure"
)

// Engine is the per-bar swing/mitigation state machine. One instance
// serves exactly one bar sequence; it is not safe for concurrent use.
type Engine struct {
	params Params
	news   BlackoutChecker
	logger *zap.Logger

	bars  []models.Bar
	state State

	pendingHighs []structure.SwingPoint
	pendingLows  []structure.SwingPoint

	dayStart    int       // index of the bar that opened the current day, -1 before the first reset
	resetDay    time.Time // UTC midnight of the last reset
	flipPending bool      // a flip is waiting for its mitigation test
	flipIndex   int
}

// NewEngine builds an engine. news may be nil when no calendar is used.
func NewEngine(params Params, news BlackoutChecker, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		params:   params.WithDefaults(),
		news:     news,
		logger:   logger,
		state:    State{Bias: BiasLong, LastBiasChangeIndex: -1},
		dayStart: -1,
	}
}

// Params returns the effective parameters.
func (e *Engine) Params() Params {
	return e.params
}

// State returns a snapshot of the current state.
func (e *Engine) State() State {
	return e.state
}

// Len is the number of accepted bars.
func (e *Engine) Len() int {
	return len(e.bars)
}

// OnBar validates and consumes the next bar. An invalid bar is rejected
// with *models.InvalidBarError and leaves the engine untouched.
func (e *Engine) OnBar(bar models.Bar) (Decision, error) {
	var err error
	if n := len(e.bars); n > 0 {
		err = bar.ValidateAfter(e.bars[n-1])
	} else {
		err = bar.Validate()
	}
	if err != nil {
		return Decision{}, err
	}

	e.bars = append(e.bars, bar)
	i := len(e.bars) - 1
	t := bar.Time.UTC()

	var d Decision
	if e.isNewDay(t) {
		e.reset(i, t)
		d.DailyReset = true
	}
	d.SessionEnd = e.IsSessionEnd(t)
	if e.news != nil {
		d.Blackout, d.BlackoutLabel = e.news.IsBlackout(t)
	}

	if e.dayStart >= 0 && e.inSession(t) {
		e.trackSwings(i)
		d.BiasChanged = e.checkFlip(i)
		e.checkMitigationTest(i)
	}

	if sig := e.entrySignal(i, d.Blackout); sig != nil {
		d.EntryAllowed = true
		d.Entry = sig
	}
	return d, nil
}

func inHours(t time.Time, start, end int) bool {
	h := t.Hour()
	return h >= start && h < end
}

func (e *Engine) isNewDay(t time.Time) bool {
	if !inHours(t, e.params.AnalysisStartHour, e.params.AnalysisEndHour) {
		return false
	}
	day := t.Truncate(24 * time.Hour)
	return e.dayStart < 0 || !day.Equal(e.resetDay)
}

func (e *Engine) inSession(t time.Time) bool {
	return inHours(t, e.params.AnalysisStartHour, e.params.AnalysisEndHour) ||
		inHours(t, e.params.TradingStartHour, e.params.TradingEndHour)
}

func (e *Engine) reset(i int, t time.Time) {
	e.state = State{Bias: BiasLong, LastBiasChangeIndex: -1}
	e.pendingHighs = nil
	e.pendingLows = nil
	e.dayStart = i
	e.resetDay = t.Truncate(24 * time.Hour)
	e.flipPending = false
	e.flipIndex = 0
	e.logger.Debug("daily reset", zap.String("symbol", e.params.Symbol), zap.Time("time", t), zap.Int("index", i))
}

// trackSwings confirms the bar lookback positions back and applies the
// cross-confirmation rules to the reference levels.
func (e *Engine) trackSwings(i int) {
	lb := e.params.SwingLookback
	if i-lb < e.dayStart {
		return
	}

	for _, sp := range structure.Confirm(e.bars, i, lb) {
		switch sp.Kind {
		case structure.SwingHigh:
			if !e.state.RefHigh.Valid {
				e.setRefHigh(sp)
			} else {
				e.pendingHighs = addPending(e.pendingHighs, sp)
			}
		case structure.SwingLow:
			if !e.state.RefLow.Valid {
				e.setRefLow(sp)
			} else {
				e.pendingLows = addPending(e.pendingLows, sp)
			}
		}
	}

	bar := e.bars[i]
	if e.state.RefLow.Valid && bar.Low < e.state.RefLow.Price && len(e.pendingHighs) > 0 {
		best := e.pendingHighs[0]
		for _, sp := range e.pendingHighs[1:] {
			if sp.Price >= best.Price {
				best = sp
			}
		}
		e.pendingHighs = nil
		e.setRefHigh(best)
	}
	if e.state.RefHigh.Valid && bar.High > e.state.RefHigh.Price && len(e.pendingLows) > 0 {
		best := e.pendingLows[0]
		for _, sp := range e.pendingLows[1:] {
			if sp.Price <= best.Price {
				best = sp
			}
		}
		e.pendingLows = nil
		e.setRefLow(best)
	}
}

func addPending(set []structure.SwingPoint, sp structure.SwingPoint) []structure.SwingPoint {
	for _, p := range set {
		if p.Index == sp.Index {
			return set
		}
	}
	return append(set, sp)
}

func (e *Engine) setRefHigh(sp structure.SwingPoint) {
	e.state.RefHigh = Level{Price: sp.Price, Index: sp.Index, Valid: true}
	if e.state.Bias == BiasLong {
		e.assignMitigation(sp.Index)
	}
}

func (e *Engine) setRefLow(sp structure.SwingPoint) {
	e.state.RefLow = Level{Price: sp.Price, Index: sp.Index, Valid: true}
	if e.state.Bias == BiasShort {
		e.assignMitigation(sp.Index)
	}
}

// assignMitigation moves the zone to the nearest counter candle at or
// before the reference bar. Nothing found leaves the zone as it is.
func (e *Engine) assignMitigation(ref int) {
	s := sideFor(e.state.Bias)
	idx := e.findCounterCandle(ref+1, s.ZoneCandle)
	if idx < 0 {
		e.logger.Debug("no counter candle for mitigation",
			zap.String("symbol", e.params.Symbol),
			zap.Stringer("bias", e.state.Bias),
			zap.Int("reference", ref))
		return
	}

	e.state.Mitigation = zoneOf(e.bars[idx], idx)
	e.state.ZoneAssignments++
	if !e.flipPending {
		e.state.ReadyToTrade = true
	}
	e.logger.Debug("mitigation assigned",
		zap.String("symbol", e.params.Symbol),
		zap.Stringer("bias", e.state.Bias),
		zap.Float64("high", e.state.Mitigation.High),
		zap.Float64("low", e.state.Mitigation.Low),
		zap.Int("index", idx))
}

// findCounterCandle scans [before-limit, before) backwards and returns the
// first index matching, or -1.
func (e *Engine) findCounterCandle(before int, match func(models.Bar) bool) int {
	stop := before - e.params.MitigationScanLimit
	if stop < 0 {
		stop = 0
	}
	if before > len(e.bars) {
		before = len(e.bars)
	}
	for j := before - 1; j >= stop; j-- {
		if match(e.bars[j]) {
			return j
		}
	}
	return -1
}

func zoneOf(b models.Bar, idx int) Zone {
	return Zone{High: b.High, Low: b.Low, Index: idx, Valid: true}
}

func (e *Engine) checkFlip(i int) bool {
	bar := e.bars[i]
	if !sideFor(e.state.Bias).Invalidated(bar, e.state.Mitigation) {
		return false
	}

	from := e.state.Bias
	next := sideFor(from.Opposite())
	zone := zoneOf(bar, i)
	if idx := e.findCounterCandle(i, next.ZoneCandle); idx >= 0 {
		zone = zoneOf(e.bars[idx], idx)
	}

	e.state.Bias = next.Bias()
	e.state.Mitigation = zone
	e.state.ZoneAssignments++
	e.state.ReadyToTrade = false
	e.state.MitigationTested = false
	e.state.EntryCandleCount = 0
	e.state.LastBiasChangeIndex = i
	e.flipPending = true
	e.flipIndex = i

	e.logger.Debug("bias flipped",
		zap.String("symbol", e.params.Symbol),
		zap.Stringer("from", from),
		zap.Stringer("to", e.state.Bias),
		zap.Float64("close", bar.Close),
		zap.Time("time", bar.Time))
	return true
}

// checkMitigationTest latches the retest of the zone on bars after a flip.
func (e *Engine) checkMitigationTest(i int) {
	if !e.flipPending || i <= e.flipIndex {
		return
	}
	if sideFor(e.state.Bias).Retested(e.bars[i], e.state.Mitigation) {
		e.flipPending = false
		e.state.MitigationTested = true
		e.state.ReadyToTrade = true
	}
}

func (e *Engine) entrySignal(i int, blackout bool) *EntrySignal {
	if !e.state.Mitigation.Valid || !e.state.ReadyToTrade {
		return nil
	}
	if !e.tradingAllowed(i, blackout) {
		return nil
	}

	s := sideFor(e.state.Bias)
	bar := e.bars[i]
	e.state.EntryCandleCount++
	return &EntrySignal{
		Bias:        e.state.Bias,
		Time:        bar.Time,
		Index:       i,
		EntryPrice:  bar.Close,
		StopPrice:   s.StopPrice(e.state.Mitigation),
		TargetPips:  e.params.TargetPips(e.state.EntryCandleCount),
		EntryNumber: e.state.EntryCandleCount,
	}
}
