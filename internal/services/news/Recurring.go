package news

import (
	"time"

	"ForexTradeBot/internal/models"
)

var fomcMonths = []time.Month{
	time.January, time.March, time.May, time.June,
	time.July, time.September, time.November, time.December,
}

// Recurring generates approximate high-impact USD events for a year:
// NFP on the first Friday 13:30 UTC, CPI on the 13th 13:30 UTC and FOMC on
// the 15th 19:00 UTC of meeting months.
func Recurring(year int) []models.NewsEvent {
	var events []models.NewsEvent
	for m := time.January; m <= time.December; m++ {
		first := time.Date(year, m, 1, 13, 30, 0, 0, time.UTC)
		offset := (int(time.Friday) - int(first.Weekday()) + 7) % 7
		events = append(events, models.NewsEvent{Time: first.AddDate(0, 0, offset), Name: "NFP", Currency: "USD"})
		events = append(events, models.NewsEvent{Time: time.Date(year, m, 13, 13, 30, 0, 0, time.UTC), Name: "CPI", Currency: "USD"})
	}
	for _, m := range fomcMonths {
		events = append(events, models.NewsEvent{Time: time.Date(year, m, 15, 19, 0, 0, 0, time.UTC), Name: "FOMC", Currency: "USD"})
	}
	return events
}

// RecurringRange generates events for every year touched by [start, end].
func RecurringRange(start, end time.Time) []models.NewsEvent {
	var events []models.NewsEvent
	for y := start.UTC().Year(); y <= end.UTC().Year(); y++ {
		events = append(events, Recurring(y)...)
	}
	return events
}
