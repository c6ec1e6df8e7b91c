// Package scheduler runs the periodic market data health probe.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/triggerstix/GANNTRADINGAPP/internal/marketdata"
	"github.com/triggerstix/GANNTRADINGAPP/internal/metrics"
)

const (
	StatusUnknown = "unknown"
	StatusUp      = "up"
	StatusDown    = "down"
)

type Notifier interface {
	Send(ctx context.Context, msg string) error
}

type ProbeConfig struct {
	Schedule string        // cron spec, e.g. "@every 1m" or "*/5 * * * *"
	Symbol   string        // quoted on every check
	Timeout  time.Duration // per check
	Notifier Notifier      // optional, told about up/down transitions
	Log      zerolog.Logger
}

// Probe periodically requests a quote from the provider and records whether
// it answered. It keeps only the latest status, never the quote.
type Probe struct {
	provider marketdata.Provider
	cfg      ProbeConfig

	mu        sync.Mutex
	running   bool
	cron      *cron.Cron
	status    string
	lastCheck time.Time
	lastErr   error
}

func NewProbe(provider marketdata.Provider, cfg ProbeConfig) (*Probe, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1m"
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("parse probe schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.Symbol == "" {
		cfg.Symbol = "SPY"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Probe{provider: provider, cfg: cfg, status: StatusUnknown}, nil
}

func (p *Probe) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		p.cfg.Log.Warn().Msg("health probe already running")
		return
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(p.cfg.Schedule, p.run); err != nil {
		p.mu.Unlock()
		p.cfg.Log.Error().Err(err).Msg("schedule health probe")
		return
	}
	p.cron = c
	p.running = true
	p.mu.Unlock()

	// Initial check on startup (fire-and-forget)
	go p.run()
	c.Start()

	p.cfg.Log.Info().
		Str("schedule", p.cfg.Schedule).
		Str("symbol", p.cfg.Symbol).
		Str("provider", p.provider.Name()).
		Msg("health probe started")
}

// Stop halts the schedule and waits for a running check to finish.
func (p *Probe) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	c := p.cron
	p.running = false
	p.cron = nil
	p.mu.Unlock()

	<-c.Stop().Done()
	p.cfg.Log.Info().Msg("health probe stopped")
}

func (p *Probe) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Status reports the result of the latest check.
func (p *Probe) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// LastCheck returns when the latest check finished and its error, if any.
func (p *Probe) LastCheck() (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCheck, p.lastErr
}

func (p *Probe) run() {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer cancel()
	_ = p.Check(ctx)
}

// Check performs one probe immediately and returns the provider error.
func (p *Probe) Check(ctx context.Context) error {
	_, err := p.provider.Quote(ctx, p.cfg.Symbol)

	next := StatusUp
	if err != nil {
		next = StatusDown
	}
	name := p.provider.Name()
	gauge := 0.0
	if next == StatusUp {
		gauge = 1
	}
	metrics.ProviderUp.WithLabelValues(name).Set(gauge)

	p.mu.Lock()
	prev := p.status
	p.status = next
	p.lastCheck = time.Now()
	p.lastErr = err
	p.mu.Unlock()

	if err != nil {
		p.cfg.Log.Warn().Err(err).Str("provider", name).Str("symbol", p.cfg.Symbol).Msg("health probe failed")
	} else {
		p.cfg.Log.Debug().Str("provider", name).Msg("health probe ok")
	}

	if msg := transitionMessage(name, prev, next, err); msg != "" && p.cfg.Notifier != nil {
		if nerr := p.cfg.Notifier.Send(ctx, msg); nerr != nil {
			p.cfg.Log.Warn().Err(nerr).Msg("health probe notification failed")
		}
	}
	return err
}

// transitionMessage is empty unless the status changed in a way worth
// reporting. A first successful check is not news.
func transitionMessage(provider, prev, next string, err error) string {
	switch {
	case prev == next:
		return ""
	case next == StatusDown:
		return fmt.Sprintf("market data provider %s is down: %v", provider, err)
	case next == StatusUp && prev == StatusDown:
		return fmt.Sprintf("market data provider %s recovered", provider)
	default:
		return ""
	}
}
