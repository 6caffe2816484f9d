package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ForexTradeBot/config"
	"ForexTradeBot/internal/models"
	"ForexTradeBot/internal/services/news"
)

// NewsStore reads scheduled events.
type NewsStore interface {
	FindInRange(ctx context.Context, start, end time.Time) ([]models.NewsEvent, error)
}

// LoadCalendar builds the blackout calendar for [start, end] from the
// configured news source. It returns nil when the news filter is off.
func LoadCalendar(ctx context.Context, cfg config.BacktestConfig, store NewsStore, start, end time.Time) (*news.Calendar, error) {
	if !cfg.NewsEnabled {
		return nil, nil
	}

	var (
		events []models.NewsEvent
		err    error
	)
	switch cfg.NewsSource {
	case "csv":
		if cfg.NewsFile == "" {
			return nil, errors.New("news source csv requires NEWS_FILE")
		}
		events, err = news.LoadEventsFile(cfg.NewsFile)
	case "postgres":
		if store == nil {
			return nil, errors.New("news source postgres requires a database")
		}
		events, err = store.FindInRange(ctx, start, end)
	case "recurring", "":
		events = news.RecurringRange(start, end)
	default:
		return nil, fmt.Errorf("unknown news source %q", cfg.NewsSource)
	}
	if err != nil {
		return nil, err
	}

	return news.NewCalendar(events, cfg.NewsBefore, cfg.NewsAfter), nil
}

// NewsSaver stores scheduled events.
type NewsSaver interface {
	CreateBatch(ctx context.Context, events []models.NewsEvent) error
}

// ImportNewsFile copies a news CSV into store and returns the event count.
func ImportNewsFile(ctx context.Context, path string, store NewsSaver) (int, error) {
	events, err := news.LoadEventsFile(path)
	if err != nil {
		return 0, err
	}
	if err := store.CreateBatch(ctx, events); err != nil {
		return 0, err
	}
	return len(events), nil
}
