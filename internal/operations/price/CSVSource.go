package price

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"ForexTradeBot/internal/models"
)

// CSVSource reads bars exported from MetaTrader 5, either the
// "time,open,high,low,close,..." layout or the native tab separated
// "<DATE> <TIME> <OPEN> ..." export.
type CSVSource struct {
	path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) LoadBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bar file: %w", err)
	}
	defer f.Close()

	bars, err := ReadBars(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	for i := range bars {
		bars[i].Symbol = symbol
		bars[i].TimeFrame = timeframe
	}
	return normalize(bars, start, end), ctx.Err()
}

var barTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	time.RFC3339,
}

func parseBarTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range barTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

type columns struct {
	date, time, open, high, low, close, volume int
}

func detectColumns(header []string) (columns, error) {
	cols := columns{date: -1, time: -1, open: -1, high: -1, low: -1, close: -1, volume: -1}
	for i, h := range header {
		switch strings.ToLower(strings.Trim(strings.TrimSpace(h), "<>")) {
		case "date":
			cols.date = i
		case "time":
			cols.time = i
		case "open":
			cols.open = i
		case "high":
			cols.high = i
		case "low":
			cols.low = i
		case "close":
			cols.close = i
		case "tick_volume", "tickvol", "volume", "vol":
			if cols.volume < 0 {
				cols.volume = i
			}
		}
	}
	if cols.time < 0 || cols.open < 0 || cols.high < 0 || cols.low < 0 || cols.close < 0 {
		return cols, errors.New("header must contain time, open, high, low and close")
	}
	return cols, nil
}

// ReadBars parses a headed MT5 export. Rows are returned in file order and
// are not validated.
func ReadBars(r io.Reader) ([]models.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) == 1 && strings.Contains(header[0], "\t") {
		reader.Comma = '\t'
		header = strings.Split(header[0], "\t")
	}
	cols, err := detectColumns(header)
	if err != nil {
		return nil, err
	}

	var bars []models.Bar
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		b, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func parseRow(rec []string, cols columns) (models.Bar, error) {
	field := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	ts := field(cols.time)
	if cols.date >= 0 {
		ts = field(cols.date) + " " + ts
	}
	t, err := parseBarTime(ts)
	if err != nil {
		return models.Bar{}, err
	}

	var b models.Bar
	b.Time = t
	for _, c := range []struct {
		idx int
		dst *float64
	}{
		{cols.open, &b.Open},
		{cols.high, &b.High},
		{cols.low, &b.Low},
		{cols.close, &b.Close},
	} {
		v, err := parseFloat(field(c.idx))
		if err != nil {
			return models.Bar{}, err
		}
		*c.dst = v
	}
	if cols.volume >= 0 {
		if v, err := parseFloat(field(cols.volume)); err == nil {
			b.Volume = v
		}
	}
	return b, nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return f, nil
}
