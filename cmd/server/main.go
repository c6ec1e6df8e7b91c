package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/triggerstix/GANNTRADINGAPP/internal/api"
	"github.com/triggerstix/GANNTRADINGAPP/internal/config"
	"github.com/triggerstix/GANNTRADINGAPP/internal/ethereum"
	"github.com/triggerstix/GANNTRADINGAPP/internal/httputil"
	"github.com/triggerstix/GANNTRADINGAPP/internal/logging"
	"github.com/triggerstix/GANNTRADINGAPP/internal/marketdata"
	"github.com/triggerstix/GANNTRADINGAPP/internal/notifications"
	"github.com/triggerstix/GANNTRADINGAPP/internal/scheduler"
)

const banner = `
╔══════════════════════════════════════╗
║      Gann Analysis Dashboard API     ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log := logging.NewLogger(cfg.LogLevel, !cfg.IsProduction())

	if err := cfg.Validate(log); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Market data
	provider, closeProvider, err := buildProvider(ctx, cfg, logging.Component(log, "marketdata"))
	if err != nil {
		log.Fatal().Err(err).Msg("market data provider")
	}
	defer closeProvider()

	// Notifications
	notify := notifications.NewSender(cfg.WebhookURL, "GannDashboard", logging.Component(log, "notify"))
	var notifier scheduler.Notifier
	if notify.Enabled() {
		notifier = notify
	} else {
		log.Info().Msg("webhook notifications disabled, no WEBHOOK_URL")
	}

	// 1. Health probe
	var probe *scheduler.Probe
	if cfg.HealthProbeCron != "" {
		probe, err = scheduler.NewProbe(provider, scheduler.ProbeConfig{
			Schedule: cfg.HealthProbeCron,
			Symbol:   cfg.HealthProbeSymbol,
			Notifier: notifier,
			Log:      logging.Component(log, "probe"),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("health probe")
		}
		probe.Start()
		if !probe.Running() {
			log.Fatal().Str("schedule", cfg.HealthProbeCron).Msg("health probe failed to start")
		}
	} else {
		log.Info().Msg("health probe skipped, no schedule configured")
	}

	// 2. API server
	opts := api.Options{
		Host:           cfg.Host,
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      cfg.StaticDir,
		Provider:       provider,
		Log:            logging.Component(log, "api"),
	}
	if probe != nil {
		opts.Health = probe
	}
	srv, err := api.NewServer(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("api server")
	}
	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	log.Info().Msg("all services started")

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info().Msg("shutting down gracefully")

	if probe != nil {
		probe.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("shutdown complete")
}

// buildProvider selects the configured provider, layers on-chain ETH pricing
// when an Ethereum endpoint is set, and instruments the result.
func buildProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) (marketdata.Provider, func(), error) {
	base, err := marketdata.New(cfg.MarketDataProvider,
		marketdata.MockOptions{
			BasePrices: cfg.MockBasePrices,
			Latency:    cfg.MockLatency,
		},
		marketdata.YahooOptions{
			ChartURL:  cfg.YahooBaseURL,
			SearchURL: cfg.YahooSearchURL,
			Retry: httputil.RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   500 * time.Millisecond,
				MaxDelay:    5 * time.Second,
				Log:         log,
			},
			Log: log,
		},
	)
	if err != nil {
		return nil, nil, err
	}

	provider := base
	closeFn := func() {}
	if cfg.EthereumAPIEndpoint != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := ethereum.Dial(dialCtx, cfg.EthereumAPIEndpoint)
		if err != nil {
			return nil, nil, err
		}
		pricer, err := ethereum.NewMainnetPricer(client)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		provider = marketdata.NewChainProvider(base, pricer, log)
		closeFn = client.Close
		log.Info().Msg("on-chain ETH-USD pricing enabled")
	}

	return marketdata.Instrument(provider), closeFn, nil
}
