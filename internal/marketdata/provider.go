// Package marketdata supplies quotes, historical bars and symbol search from
// a configured provider: a deterministic-band mock, Yahoo Finance, or an
// on-chain price source layered over either.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/triggerstix/GANNTRADINGAPP/internal/models"
)

var (
	// ErrUpstream marks a failure talking to the external data source.
	ErrUpstream = errors.New("upstream provider error")
	// ErrNoData means the source answered but had nothing for the request.
	ErrNoData = errors.New("no data available")
)

type Interval string

const (
	Daily   Interval = "1d"
	Weekly  Interval = "1wk"
	Monthly Interval = "1mo"
)

func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case "":
		return Daily, nil
	case Daily, Weekly, Monthly:
		return Interval(s), nil
	default:
		return "", fmt.Errorf("invalid interval %q, expected 1d|1wk|1mo", s)
	}
}

// HistoryRequest selects bars between two dates, both inclusive.
type HistoryRequest struct {
	Symbol   string
	Period1  time.Time
	Period2  time.Time
	Interval Interval
}

// LastDays builds a daily request covering the days up to and including now.
func LastDays(symbol string, days int, now time.Time) HistoryRequest {
	if days < 1 {
		days = 1
	}
	return HistoryRequest{
		Symbol:   symbol,
		Period1:  now.AddDate(0, 0, -(days - 1)),
		Period2:  now,
		Interval: Daily,
	}
}

type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
	History(ctx context.Context, req HistoryRequest) ([]models.Bar, error)
	Search(ctx context.Context, query string) ([]models.SymbolMatch, error)
}

const maxSearchResults = 10

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Aggregate folds daily bars into weekly (Monday-based) or monthly bars.
// Bars must be in ascending date order; the result is dated by the first
// daily bar of each period.
func Aggregate(bars []models.Bar, interval Interval) []models.Bar {
	if interval == Daily || interval == "" || len(bars) == 0 {
		return bars
	}

	var out []models.Bar
	var curKey string
	for _, b := range bars {
		key := periodKey(b.Date, interval)
		if len(out) == 0 || key != curKey {
			out = append(out, b)
			curKey = key
			continue
		}
		agg := &out[len(out)-1]
		agg.High = max(agg.High, b.High)
		agg.Low = min(agg.Low, b.Low)
		agg.Close = b.Close
		agg.Volume += b.Volume
	}
	return out
}

func periodKey(date string, interval Interval) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	if interval == Monthly {
		return d.Format("2006-01")
	}
	offset := (int(d.Weekday()) + 6) % 7 // days since Monday
	return d.AddDate(0, 0, -offset).Format("2006-01-02")
}

// New builds the provider named by kind ("mock" or "yahoo").
func New(kind string, mock MockOptions, yahoo YahooOptions) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "mock":
		return NewMockProvider(mock), nil
	case "yahoo":
		return NewYahooProvider(yahoo), nil
	default:
		return nil, fmt.Errorf("unknown market data provider %q", kind)
	}
}
