package news

import (
	"sort"
	"strings"
	"time"

	"ForexTradeBot/internal/models"
)

const (
	DefaultBufferBefore = 30 * time.Minute
	DefaultBufferAfter  = 30 * time.Minute
)

// Calendar answers blackout queries over a fixed set of scheduled events.
// It is read-only after construction and safe for concurrent use.
type Calendar struct {
	events []models.NewsEvent
	before time.Duration
	after  time.Duration
}

// NewCalendar copies and sorts events. Negative buffers fall back to the
// defaults.
func NewCalendar(events []models.NewsEvent, before, after time.Duration) *Calendar {
	if before < 0 {
		before = DefaultBufferBefore
	}
	if after < 0 {
		after = DefaultBufferAfter
	}
	sorted := make([]models.NewsEvent, len(events))
	copy(sorted, events)
	for i := range sorted {
		sorted[i].Time = sorted[i].Time.UTC()
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})
	return &Calendar{events: sorted, before: before, after: after}
}

func isFOMC(name string) bool {
	return strings.Contains(name, "FOMC")
}

func isNFP(name string) bool {
	return strings.Contains(name, "NFP") || strings.Contains(name, "Non-Farm Employment Change")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsBlackout reports whether t falls inside a blackout and the label of the
// event responsible. FOMC and NFP days are blacked out entirely; any other
// event blocks [time-before, time+after].
func (c *Calendar) IsBlackout(t time.Time) (bool, string) {
	if c == nil {
		return false, ""
	}
	t = t.UTC()
	for _, ev := range c.events {
		if !sameDay(ev.Time, t) {
			continue
		}
		if isFOMC(ev.Name) {
			return true, "FOMC_DAY_" + ev.Name
		}
		if isNFP(ev.Name) {
			return true, "NFP_DAY_" + ev.Name
		}
	}
	for _, ev := range c.events {
		diff := t.Sub(ev.Time)
		if diff >= -c.before && diff <= c.after {
			return true, ev.Name
		}
	}
	return false, ""
}

// EventsInRange returns the events with start <= time <= end in time order.
func (c *Calendar) EventsInRange(start, end time.Time) []models.NewsEvent {
	if c == nil {
		return nil
	}
	var out []models.NewsEvent
	for _, ev := range c.events {
		if ev.Time.Before(start) || ev.Time.After(end) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// NextEvent returns the first event strictly after t.
func (c *Calendar) NextEvent(t time.Time) (models.NewsEvent, bool) {
	if c == nil {
		return models.NewsEvent{}, false
	}
	i := sort.Search(len(c.events), func(i int) bool {
		return c.events[i].Time.After(t)
	})
	if i == len(c.events) {
		return models.NewsEvent{}, false
	}
	return c.events[i], true
}

// Len is the number of loaded events.
func (c *Calendar) Len() int {
	if c == nil {
		return 0
	}
	return len(c.events)
}
