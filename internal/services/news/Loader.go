package news

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ForexTradeBot/internal/models"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006.01.02 15:04",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

// ReadEvents parses "time,name[,currency]" rows. A header row whose first
// column is "time" is skipped.
func ReadEvents(r io.Reader) ([]models.NewsEvent, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var events []models.NewsEvent
	line := 0
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read news csv: %w", err)
		}
		line++
		if len(rec) < 2 {
			return nil, fmt.Errorf("news csv line %d: expected at least 2 columns, got %d", line, len(rec))
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "time") {
			continue
		}
		t, err := parseTime(rec[0])
		if err != nil {
			return nil, fmt.Errorf("news csv line %d: %w", line, err)
		}
		ev := models.NewsEvent{Time: t, Name: strings.TrimSpace(rec[1])}
		if len(rec) > 2 {
			ev.Currency = strings.TrimSpace(rec[2])
		}
		events = append(events, ev)
	}
	return events, nil
}

// LoadEventsFile reads a news csv from disk.
func LoadEventsFile(path string) ([]models.NewsEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open news file: %w", err)
	}
	defer f.Close()
	return ReadEvents(f)
}
