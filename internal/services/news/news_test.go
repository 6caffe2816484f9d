package news

import (
	"strings"
	"testing"
	"time"

	"ForexTradeBot/internal/models"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestIsBlackout(t *testing.T) {
	cal := NewCalendar([]models.NewsEvent{
		{Time: at(2025, 11, 19, 21, 0), Name: "FOMC Meeting Minutes"},
		{Time: at(2025, 11, 20, 15, 30), Name: "Non-Farm Employment Change"},
		{Time: at(2025, 11, 21, 9, 0), Name: "Retail Sales m/m"},
	}, 15*time.Minute, 30*time.Minute)

	tests := []struct {
		name    string
		t       time.Time
		blocked bool
		label   string
	}{
		{"fomc day morning", at(2025, 11, 19, 8, 0), true, "FOMC_DAY_FOMC Meeting Minutes"},
		{"nfp day", at(2025, 11, 20, 12, 0), true, "NFP_DAY_Non-Farm Employment Change"},
		{"inside before buffer", at(2025, 11, 21, 8, 45), true, "Retail Sales m/m"},
		{"inside after buffer", at(2025, 11, 21, 9, 30), true, "Retail Sales m/m"},
		{"just before buffer", at(2025, 11, 21, 8, 44), false, ""},
		{"just after buffer", at(2025, 11, 21, 9, 31), false, ""},
		{"quiet day", at(2025, 11, 24, 14, 0), false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, label := cal.IsBlackout(tt.t)
			if blocked != tt.blocked || label != tt.label {
				t.Fatalf("IsBlackout(%s) = %v %q, want %v %q", tt.t, blocked, label, tt.blocked, tt.label)
			}
		})
	}
}

func TestNilCalendarNeverBlocks(t *testing.T) {
	var cal *Calendar
	if blocked, _ := cal.IsBlackout(at(2025, 1, 1, 0, 0)); blocked {
		t.Fatalf("nil calendar blocked")
	}
	if cal.Len() != 0 {
		t.Fatalf("nil calendar has events")
	}
}

func TestRangeAndNext(t *testing.T) {
	cal := NewCalendar([]models.NewsEvent{
		{Time: at(2025, 3, 10, 12, 0), Name: "B"},
		{Time: at(2025, 3, 1, 12, 0), Name: "A"},
		{Time: at(2025, 3, 20, 12, 0), Name: "C"},
	}, 0, 0)

	got := cal.EventsInRange(at(2025, 3, 1, 12, 0), at(2025, 3, 10, 12, 0))
	if len(got) != 2 || got[0].Name != "A" || got[1].Name != "B" {
		t.Fatalf("unexpected range result %+v", got)
	}

	next, ok := cal.NextEvent(at(2025, 3, 10, 12, 0))
	if !ok || next.Name != "C" {
		t.Fatalf("expected C, got %+v %v", next, ok)
	}
	if _, ok := cal.NextEvent(at(2025, 4, 1, 0, 0)); ok {
		t.Fatalf("expected no next event")
	}
}

func TestRecurring(t *testing.T) {
	events := Recurring(2025)
	if len(events) != 12+12+8 {
		t.Fatalf("expected 32 events, got %d", len(events))
	}

	cal := NewCalendar(events, DefaultBufferBefore, DefaultBufferAfter)
	// first Friday of August 2025 is the 1st
	if blocked, label := cal.IsBlackout(at(2025, 8, 1, 9, 0)); !blocked || label != "NFP_DAY_NFP" {
		t.Fatalf("expected NFP day, got %v %q", blocked, label)
	}
	// first Friday of March 2025 is the 7th
	if blocked, _ := cal.IsBlackout(at(2025, 3, 7, 20, 0)); !blocked {
		t.Fatalf("expected NFP day on 2025-03-07")
	}
	if blocked, label := cal.IsBlackout(at(2025, 6, 15, 1, 0)); !blocked || label != "FOMC_DAY_FOMC" {
		t.Fatalf("expected FOMC day, got %v %q", blocked, label)
	}
	if blocked, _ := cal.IsBlackout(at(2025, 4, 15, 12, 0)); blocked {
		t.Fatalf("April has no FOMC meeting")
	}
	if blocked, label := cal.IsBlackout(at(2025, 4, 13, 13, 10)); !blocked || label != "CPI" {
		t.Fatalf("expected CPI buffer, got %v %q", blocked, label)
	}
}

func TestReadEvents(t *testing.T) {
	in := strings.NewReader("time,name,currency\n2025-11-19 21:00,FOMC Meeting Minutes,USD\n# comment\n2025.11.21 09:00,Retail Sales m/m,GBP\n")
	events, err := ReadEvents(in)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if !events[0].Time.Equal(at(2025, 11, 19, 21, 0)) || events[1].Currency != "GBP" {
		t.Fatalf("unexpected events %+v", events)
	}

	if _, err := ReadEvents(strings.NewReader("yesterday,NFP\n")); err == nil {
		t.Fatalf("expected error for bad time")
	}
}
