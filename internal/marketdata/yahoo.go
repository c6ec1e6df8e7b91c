package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/triggerstix/GANNTRADINGAPP/internal/httputil"
	"github.com/triggerstix/GANNTRADINGAPP/internal/models"
)

const (
	DefaultYahooChartURL  = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultYahooSearchURL = "https://query2.finance.yahoo.com/v1/finance/search"

	yahooUserAgent = "Mozilla/5.0 (compatible; gann-dashboard/1.0)"
)

type YahooOptions struct {
	ChartURL  string
	SearchURL string
	Timeout   time.Duration
	Retry     httputil.RetryConfig
	Log       zerolog.Logger
	Now       func() time.Time
}

// YahooProvider reads Yahoo Finance's public chart and search endpoints.
type YahooProvider struct {
	chartURL   string
	searchURL  string
	httpClient *http.Client
	retry      httputil.RetryConfig
	log        zerolog.Logger
	now        func() time.Time

	// quotes runs shared fetches on a detached context bounded by flightTimeout.
	quotes        singleflight.Group
	flightTimeout time.Duration
}

func NewYahooProvider(opts YahooOptions) *YahooProvider {
	if opts.ChartURL == "" {
		opts.ChartURL = DefaultYahooChartURL
	}
	if opts.SearchURL == "" {
		opts.SearchURL = DefaultYahooSearchURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    5 * time.Second,
			Log:         opts.Log,
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &YahooProvider{
		chartURL:      strings.TrimRight(opts.ChartURL, "/"),
		searchURL:     opts.SearchURL,
		httpClient:    &http.Client{Timeout: opts.Timeout},
		retry:         opts.Retry,
		log:           opts.Log,
		now:           opts.Now,
		flightTimeout: opts.Timeout*time.Duration(max(opts.Retry.MaxAttempts, 1)) + opts.Retry.MaxDelay,
	}
}

func (y *YahooProvider) Name() string { return "yahoo" }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string   `json:"symbol"`
				RegularMarketPrice   *float64 `json:"regularMarketPrice"`
				ChartPreviousClose   *float64 `json:"chartPreviousClose"`
				PreviousClose        *float64 `json:"previousClose"`
				RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
				RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
				RegularMarketVolume  *float64 `json:"regularMarketVolume"`
				RegularMarketTime    int64    `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote fetches the chart meta block. Concurrent calls for the same symbol
// share one upstream request, which outlives any single caller's context.
func (y *YahooProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	ch := y.quotes.DoChan(NormalizeSymbol(symbol), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), y.flightTimeout)
		defer cancel()
		return y.fetchQuote(fetchCtx, symbol)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		q := *res.Val.(*models.Quote)
		q.Symbol = symbol
		return &q, nil
	}
}

func (y *YahooProvider) fetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	params := url.Values{"interval": {"1d"}, "range": {"1d"}}
	chart, err := y.chart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil {
		return nil, fmt.Errorf("yahoo quote %s: missing regularMarketPrice: %w", symbol, ErrNoData)
	}
	price := *meta.RegularMarketPrice
	prev := meta.ChartPreviousClose
	if prev == nil {
		prev = meta.PreviousClose
	}

	q := &models.Quote{
		Symbol:        symbol,
		Price:         price,
		Volume:        meta.RegularMarketVolume,
		High:          meta.RegularMarketDayHigh,
		Low:           meta.RegularMarketDayLow,
		PreviousClose: prev,
		Timestamp:     y.now().UTC().Format(time.RFC3339),
	}
	if meta.RegularMarketTime > 0 {
		q.Timestamp = time.Unix(meta.RegularMarketTime, 0).UTC().Format(time.RFC3339)
	}
	if prev != nil && *prev != 0 {
		q.Change = price - *prev
		q.ChangePercent = q.Change / *prev * 100
	}

	quotes := chart.Chart.Result[0].Indicators.Quote
	if len(quotes) > 0 && len(quotes[0].Open) > 0 && quotes[0].Open[0] != nil {
		q.Open = quotes[0].Open[0]
	}
	return q, nil
}

// History requests bars at the given interval directly from Yahoo. Bars with
// any null OHLC field (holidays, halted sessions) are dropped.
func (y *YahooProvider) History(ctx context.Context, req HistoryRequest) ([]models.Bar, error) {
	end := req.Period2
	if end.IsZero() {
		end = y.now()
	}
	interval := req.Interval
	if interval == "" {
		interval = Daily
	}

	params := url.Values{
		"period1":  {strconv.FormatInt(truncateDay(req.Period1).Unix(), 10)},
		"period2":  {strconv.FormatInt(truncateDay(end).AddDate(0, 0, 1).Unix(), 10)},
		"interval": {string(interval)},
	}
	chart, err := y.chart(ctx, req.Symbol, params)
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return []models.Bar{}, nil
	}
	ind := result.Indicators.Quote[0]

	bars := make([]models.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := at(ind.Open, i), at(ind.High, i), at(ind.Low, i), at(ind.Close, i)
		if o == nil || h == nil || l == nil || c == nil {
			continue
		}
		var vol float64
		if v := at(ind.Volume, i); v != nil {
			vol = *v
		}
		bars = append(bars, models.Bar{
			Date:   time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Open:   *o,
			High:   *h,
			Low:    *l,
			Close:  *c,
			Volume: vol,
		})
	}
	return bars, nil
}

func at(s []*float64, i int) *float64 {
	if i < len(s) {
		return s[i]
	}
	return nil
}

func (y *YahooProvider) chart(ctx context.Context, symbol string, params url.Values) (*yahooChart, error) {
	u := y.chartURL + "/" + url.PathEscape(NormalizeSymbol(symbol)) + "?" + params.Encode()

	body, err := y.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: decode: %v: %w", symbol, err, ErrUpstream)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s: %w", symbol, chart.Chart.Error.Description, ErrNoData)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: empty result: %w", symbol, ErrNoData)
	}
	return &chart, nil
}

type yahooSearch struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		QuoteType string `json:"quoteType"`
		Exchange  string `json:"exchange"`
	} `json:"quotes"`
}

func (y *YahooProvider) Search(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	out := []models.SymbolMatch{}
	query = strings.TrimSpace(query)
	if query == "" {
		return out, nil
	}

	params := url.Values{
		"q":           {query},
		"quotesCount": {strconv.Itoa(maxSearchResults)},
		"newsCount":   {"0"},
	}
	body, err := y.get(ctx, y.searchURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("yahoo search %q: %w", query, err)
	}

	var res yahooSearch
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("yahoo search %q: decode: %v: %w", query, err, ErrUpstream)
	}
	for _, q := range res.Quotes {
		if q.Symbol == "" {
			continue
		}
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		if name == "" {
			name = q.Symbol
		}
		typ := q.QuoteType
		if typ == "" {
			typ = "Unknown"
		}
		out = append(out, models.SymbolMatch{
			Symbol:   q.Symbol,
			Name:     name,
			Type:     typ,
			Exchange: q.Exchange,
		})
		if len(out) == maxSearchResults {
			break
		}
	}
	return out, nil
}

// get performs a GET with retry and returns the body of a 200 response.
// Anything else is reported as ErrUpstream, except 404 which maps to ErrNoData.
func (y *YahooProvider) get(ctx context.Context, u string) ([]byte, error) {
	resp, err := httputil.Do(ctx, y.httpClient, y.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", yahooUserAgent)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrUpstream)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %v: %w", err, ErrUpstream)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("status 404: %w", ErrNoData)
	default:
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrUpstream)
	}
}
