package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/triggerstix/GANNTRADINGAPP/internal/httputil"
)

const chartQuoteJSON = `{"chart":{"result":[{"meta":{"symbol":"AAPL","regularMarketPrice":201.5,
"chartPreviousClose":200,"regularMarketDayHigh":203,"regularMarketDayLow":199.25,
"regularMarketVolume":51000000,"regularMarketTime":1736946000},
"timestamp":[1736946000],"indicators":{"quote":[{"open":[200.5],"high":[203],"low":[199.25],"close":[201.5],"volume":[51000000]}]}}],"error":null}}`

const chartHistoryJSON = `{"chart":{"result":[{"meta":{"symbol":"AAPL"},
"timestamp":[1736726400,1736812800,1736899200],
"indicators":{"quote":[{"open":[100,null,102],"high":[101,null,103],"low":[99,null,101],"close":[100.5,null,102.5],"volume":[1000,null,null]}]}}],"error":null}}`

const searchJSON = `{"quotes":[
{"symbol":"AAPL","shortname":"Apple Inc.","longname":"Apple Inc.","quoteType":"EQUITY","exchange":"NMS"},
{"symbol":"APLE","shortname":"Apple Hospitality","quoteType":"EQUITY","exchange":"NYQ"},
{"shortname":"news item without symbol"}]}`

func testYahoo(srv *httptest.Server) *YahooProvider {
	return NewYahooProvider(YahooOptions{
		ChartURL:  srv.URL + "/v8/finance/chart",
		SearchURL: srv.URL + "/v1/finance/search",
		Retry:     httputil.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Log: zerolog.Nop()},
		Log:       zerolog.Nop(),
	})
}

func TestYahooQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent")
		}
		fmt.Fprint(w, chartQuoteJSON)
	}))
	defer srv.Close()

	q, err := testYahoo(srv).Quote(context.Background(), "aapl")
	if err != nil {
		t.Fatal(err)
	}
	if q.Symbol != "aapl" || q.Price != 201.5 {
		t.Errorf("quote = %+v", q)
	}
	if q.Change != 1.5 || math.Abs(q.ChangePercent-0.75) > 1e-9 {
		t.Errorf("change = %f (%f%%), want 1.5 (0.75%%)", q.Change, q.ChangePercent)
	}
	if *q.Open != 200.5 || *q.High != 203 || *q.Low != 199.25 || *q.Volume != 51000000 {
		t.Errorf("ohlv = %v %v %v %v", *q.Open, *q.High, *q.Low, *q.Volume)
	}
	if q.Timestamp != "2025-01-15T13:00:00Z" {
		t.Errorf("timestamp = %s", q.Timestamp)
	}
}

func TestYahooQuote_Coalesced(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		fmt.Fprint(w, chartQuoteJSON)
	}))
	defer srv.Close()
	y := testYahoo(srv)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := y.Quote(context.Background(), "AAPL"); err != nil {
				t.Error(err)
			}
		}()
	}
	// Let all goroutines join the in-flight call before answering.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
}

func TestYahooQuote_CallerDeadlineNotShared(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		fmt.Fprint(w, chartQuoteJSON)
	}))
	defer srv.Close()
	y := testYahoo(srv)

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	shortErr := make(chan error, 1)
	go func() {
		_, err := y.Quote(short, "AAPL")
		shortErr <- err
	}()
	// Join the flight the short-deadline caller started.
	time.Sleep(10 * time.Millisecond)

	q, err := y.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("caller without deadline failed: %v", err)
	}
	if q.Price != 201.5 {
		t.Errorf("price = %f", q.Price)
	}
	if err := <-shortErr; !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("short caller err = %v, want deadline exceeded", err)
	}
}

func TestYahooQuote_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testYahoo(srv).Quote(context.Background(), "AAPL")
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
}

func TestYahooQuote_UnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	_, err := testYahoo(srv).Quote(context.Background(), "NOPE")
	if !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestYahooHistory(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, chartHistoryJSON)
	}))
	defer srv.Close()

	bars, err := testYahoo(srv).History(context.Background(), HistoryRequest{
		Symbol:   "AAPL",
		Period1:  time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
		Period2:  time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Interval: Weekly,
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"interval=1wk", "period1=1736726400", "period2=1736985600"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %s", gotQuery, want)
		}
	}
	if len(bars) != 2 {
		t.Fatalf("len = %d, want 2 (null bar skipped)", len(bars))
	}
	if bars[0].Date != "2025-01-13" || bars[1].Date != "2025-01-15" {
		t.Errorf("dates = %s, %s", bars[0].Date, bars[1].Date)
	}
	if bars[1].Volume != 0 {
		t.Errorf("null volume should read as 0, got %f", bars[1].Volume)
	}
}

func TestYahooSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "apple" || r.URL.Query().Get("quotesCount") != "10" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, searchJSON)
	}))
	defer srv.Close()

	got, err := testYahoo(srv).Search(context.Background(), "apple")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[1].Name != "Apple Hospitality" || got[1].Exchange != "NYQ" {
		t.Errorf("second match = %+v", got[1])
	}
}
