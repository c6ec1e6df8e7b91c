package marketdata

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/triggerstix/GANNTRADINGAPP/internal/models"
)

const (
	defaultBasePrice = 100
	quoteJitter      = 10   // full width of the quote band around the base price
	dailyVolatility  = 0.02 // fraction of base price per simulated day
	maxMockDays      = 3660
)

// DefaultBasePrices seeds the mock provider. Unknown symbols trade around 100.
var DefaultBasePrices = map[string]float64{
	"AAPL":    250,
	"GOOGL":   150,
	"MSFT":    400,
	"TSLA":    250,
	"SPY":     450,
	"BTC-USD": 65000,
	"ETH-USD": 3500,
}

var mockListings = map[string]models.SymbolMatch{
	"AAPL":    {Symbol: "AAPL", Name: "Apple Inc.", Type: "EQUITY", Exchange: "NMS"},
	"GOOGL":   {Symbol: "GOOGL", Name: "Alphabet Inc.", Type: "EQUITY", Exchange: "NMS"},
	"MSFT":    {Symbol: "MSFT", Name: "Microsoft Corporation", Type: "EQUITY", Exchange: "NMS"},
	"TSLA":    {Symbol: "TSLA", Name: "Tesla, Inc.", Type: "EQUITY", Exchange: "NMS"},
	"SPY":     {Symbol: "SPY", Name: "SPDR S&P 500 ETF Trust", Type: "ETF", Exchange: "PCX"},
	"BTC-USD": {Symbol: "BTC-USD", Name: "Bitcoin USD", Type: "CRYPTOCURRENCY", Exchange: "CCC"},
	"ETH-USD": {Symbol: "ETH-USD", Name: "Ethereum USD", Type: "CRYPTOCURRENCY", Exchange: "CCC"},
}

type MockOptions struct {
	// BasePrices replaces DefaultBasePrices when non-empty.
	BasePrices map[string]float64
	// Latency simulates the round trip of a real API.
	Latency time.Duration
	// Seed makes the generated series reproducible. Zero picks a random seed.
	Seed uint64
	Now  func() time.Time
}

// MockProvider generates random but bounded market data. A quote always lies
// within ±5 of the symbol's base price.
type MockProvider struct {
	basePrices map[string]float64
	latency    time.Duration
	now        func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockProvider(opts MockOptions) *MockProvider {
	prices := make(map[string]float64, len(DefaultBasePrices))
	src := opts.BasePrices
	if len(src) == 0 {
		src = DefaultBasePrices
	}
	for sym, p := range src {
		prices[NormalizeSymbol(sym)] = p
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &MockProvider{
		basePrices: prices,
		latency:    opts.Latency,
		now:        now,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (m *MockProvider) Name() string { return "mock" }

// BasePrice returns the anchor price used for symbol.
func (m *MockProvider) BasePrice(symbol string) float64 {
	if p, ok := m.basePrices[NormalizeSymbol(symbol)]; ok {
		return p
	}
	return defaultBasePrice
}

func (m *MockProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	base := m.BasePrice(symbol)

	m.mu.Lock()
	change := (m.rng.Float64() - 0.5) * quoteJitter
	price := base + change
	high := price + m.rng.Float64()*5
	low := price - m.rng.Float64()*5
	volume := math.Floor(m.rng.Float64()*50_000_000) + 10_000_000
	m.mu.Unlock()

	return &models.Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        change,
		ChangePercent: change / base * 100,
		Volume:        models.Float(volume),
		High:          models.Float(high),
		Low:           models.Float(low),
		Open:          models.Float(base),
		PreviousClose: models.Float(base),
		Timestamp:     m.now().UTC().Format(time.RFC3339),
	}, nil
}

// History walks the price from the base with 2% daily volatility, one bar
// per calendar day, then aggregates to the requested interval.
func (m *MockProvider) History(ctx context.Context, req HistoryRequest) ([]models.Bar, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	start := truncateDay(req.Period1)
	end := truncateDay(req.Period2)
	if req.Period2.IsZero() {
		end = truncateDay(m.now())
	}
	if end.Before(start) {
		return []models.Bar{}, nil
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > maxMockDays {
		start = end.AddDate(0, 0, -(maxMockDays - 1))
	}

	base := m.BasePrice(req.Symbol)
	vol := base * dailyVolatility
	floor := base * 0.05
	current := base

	m.mu.Lock()
	var bars []models.Bar
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		current = math.Max(current+(m.rng.Float64()-0.5)*vol, floor)
		open := current
		closing := math.Max(current+(m.rng.Float64()-0.5)*vol, floor)
		high := math.Max(open, closing) + m.rng.Float64()*vol*0.5
		low := math.Min(open, closing) - m.rng.Float64()*vol*0.5
		bars = append(bars, models.Bar{
			Date:   d.Format("2006-01-02"),
			Open:   open,
			High:   high,
			Low:    math.Max(low, 0),
			Close:  closing,
			Volume: math.Floor(m.rng.Float64()*50_000_000) + 10_000_000,
		})
		current = closing
	}
	m.mu.Unlock()

	return Aggregate(bars, req.Interval), nil
}

// Search matches the query against known symbols and company names.
func (m *MockProvider) Search(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []models.SymbolMatch{}
	if q == "" {
		return out, nil
	}

	for sym := range m.basePrices {
		listing, ok := mockListings[sym]
		if !ok {
			listing = models.SymbolMatch{Symbol: sym, Name: sym, Type: "EQUITY"}
		}
		if strings.Contains(strings.ToLower(listing.Symbol), q) || strings.Contains(strings.ToLower(listing.Name), q) {
			out = append(out, listing)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	if len(out) > maxSearchResults {
		out = out[:maxSearchResults]
	}
	return out, nil
}

func (m *MockProvider) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.latency):
		return nil
	}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
