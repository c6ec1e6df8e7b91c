package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/triggerstix/GANNTRADINGAPP/internal/marketdata"
	"github.com/triggerstix/GANNTRADINGAPP/internal/metrics"
	"github.com/triggerstix/GANNTRADINGAPP/internal/models"
)

type flakyProvider struct {
	name  string
	fail  atomic.Bool
	calls atomic.Int32
}

func (f *flakyProvider) Name() string { return f.name }

func (f *flakyProvider) Quote(_ context.Context, symbol string) (*models.Quote, error) {
	f.calls.Add(1)
	if f.fail.Load() {
		return nil, errors.New("connection refused")
	}
	return &models.Quote{Symbol: symbol, Price: 1}, nil
}

func (f *flakyProvider) History(context.Context, marketdata.HistoryRequest) ([]models.Bar, error) {
	return nil, nil
}

func (f *flakyProvider) Search(context.Context, string) ([]models.SymbolMatch, error) {
	return nil, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingNotifier) Send(_ context.Context, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingNotifier) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func TestProbe_Transitions(t *testing.T) {
	prov := &flakyProvider{name: "probe-test"}
	notes := &recordingNotifier{}
	p, err := NewProbe(prov, ProbeConfig{Notifier: notes, Log: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if p.Status() != StatusUnknown {
		t.Fatalf("initial status = %s", p.Status())
	}

	if err := p.Check(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Status() != StatusUp || len(notes.messages()) != 0 {
		t.Fatalf("after first ok: status %s, notes %v", p.Status(), notes.messages())
	}
	if got := testutil.ToFloat64(metrics.ProviderUp.WithLabelValues("probe-test")); got != 1 {
		t.Errorf("provider_up = %v, want 1", got)
	}

	prov.fail.Store(true)
	if err := p.Check(ctx); err == nil {
		t.Fatal("expected probe error")
	}
	p.Check(ctx) // still down, no second notification
	if p.Status() != StatusDown {
		t.Fatalf("status = %s", p.Status())
	}
	if got := testutil.ToFloat64(metrics.ProviderUp.WithLabelValues("probe-test")); got != 0 {
		t.Errorf("provider_up = %v, want 0", got)
	}
	if _, lastErr := p.LastCheck(); lastErr == nil {
		t.Error("LastCheck should report the error")
	}

	prov.fail.Store(false)
	p.Check(ctx)

	msgs := notes.messages()
	if len(msgs) != 2 {
		t.Fatalf("notifications = %v", msgs)
	}
	if !strings.Contains(msgs[0], "is down") || !strings.Contains(msgs[1], "recovered") {
		t.Fatalf("notifications = %v", msgs)
	}
}

func TestProbe_StartStop(t *testing.T) {
	prov := &flakyProvider{name: "probe-start"}
	p, err := NewProbe(prov, ProbeConfig{Schedule: "@every 1h", Log: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}

	p.Start()
	if !p.Running() {
		t.Fatal("expected running after Start")
	}
	p.Start() // no-op

	deadline := time.Now().Add(2 * time.Second)
	for p.Status() == StatusUnknown && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if p.Status() != StatusUp {
		t.Fatalf("initial check did not run, status %s", p.Status())
	}

	p.Stop()
	if p.Running() {
		t.Fatal("expected stopped")
	}
	p.Stop() // idempotent
}

func TestNewProbe_BadSchedule(t *testing.T) {
	if _, err := NewProbe(&flakyProvider{}, ProbeConfig{Schedule: "sometimes"}); err == nil {
		t.Fatal("expected schedule parse error")
	}
}

func TestTransitionMessage(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		prev, next string
		want       string
	}{
		{StatusUnknown, StatusUp, ""},
		{StatusUp, StatusUp, ""},
		{StatusUnknown, StatusDown, "down"},
		{StatusUp, StatusDown, "down"},
		{StatusDown, StatusUp, "recovered"},
	}
	for _, c := range cases {
		got := transitionMessage("yahoo", c.prev, c.next, boom)
		if c.want == "" && got != "" || c.want != "" && !strings.Contains(got, c.want) {
			t.Errorf("%s -> %s: %q", c.prev, c.next, got)
		}
	}
}
