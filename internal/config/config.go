package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	Env            string   `yaml:"env"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	StaticDir      string   `yaml:"staticDir"`
	LogLevel       string   `yaml:"logLevel"`

	// Market data
	MarketDataProvider string             `yaml:"marketDataProvider"`
	YahooBaseURL       string             `yaml:"yahooBaseURL"`
	YahooSearchURL     string             `yaml:"yahooSearchURL"`
	MockLatency        time.Duration      `yaml:"mockLatency"`
	MockBasePrices     map[string]float64 `yaml:"mockBasePrices"`

	// On-chain ETH pricing, disabled when empty
	EthereumAPIEndpoint string `yaml:"ethereumAPIEndpoint"`

	// Provider health probe
	HealthProbeCron   string `yaml:"healthProbeCron"`
	HealthProbeSymbol string `yaml:"healthProbeSymbol"`
	WebhookURL        string `yaml:"webhookURL"`
}

func defaults() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               5000,
		Env:                "development",
		AllowedOrigins:     []string{"*"},
		StaticDir:          "dist/public",
		LogLevel:           "info",
		MarketDataProvider: "mock",
		YahooBaseURL:       "https://query1.finance.yahoo.com/v8/finance/chart",
		YahooSearchURL:     "https://query2.finance.yahoo.com/v1/finance/search",
		HealthProbeCron:    "@every 1m",
		HealthProbeSymbol:  "SPY",
	}
}

// Load reads .env, then the optional YAML file named by CONFIG_PATH
// (default config.yaml), then applies environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	path := envStr("CONFIG_PATH", "config.yaml")
	if err := cfg.loadFile(path, os.Getenv("CONFIG_PATH") != ""); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Host = envStr("HOST", c.Host)
	c.Port = envInt("PORT", c.Port)
	c.Env = envStr("APP_ENV", envStr("NODE_ENV", c.Env))
	c.AllowedOrigins = envList("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.StaticDir = envStr("STATIC_DIR", c.StaticDir)
	c.LogLevel = envStr("LOG_LEVEL", c.LogLevel)

	c.MarketDataProvider = strings.ToLower(envStr("MARKET_DATA_PROVIDER", c.MarketDataProvider))
	c.YahooBaseURL = envStr("YAHOO_BASE_URL", c.YahooBaseURL)
	c.YahooSearchURL = envStr("YAHOO_SEARCH_URL", c.YahooSearchURL)
	c.MockLatency = envDuration("MOCK_LATENCY", c.MockLatency)

	c.EthereumAPIEndpoint = envStr("ETHEREUM_API_ENDPOINT", c.EthereumAPIEndpoint)

	c.HealthProbeCron = envStr("HEALTH_PROBE_CRON", c.HealthProbeCron)
	c.HealthProbeSymbol = envStr("HEALTH_PROBE_SYMBOL", c.HealthProbeSymbol)
	c.WebhookURL = envStr("WEBHOOK_URL", c.WebhookURL)
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

func (c *Config) Validate(log zerolog.Logger) error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT %d out of range", c.Port))
	}
	switch c.MarketDataProvider {
	case "mock", "yahoo":
	default:
		errs = append(errs, fmt.Sprintf("MARKET_DATA_PROVIDER must be mock or yahoo, got %q", c.MarketDataProvider))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL %q is not a valid level", c.LogLevel))
	}
	if c.MockLatency < 0 {
		errs = append(errs, "MOCK_LATENCY must not be negative")
	}
	for sym, p := range c.MockBasePrices {
		if p <= 0 {
			errs = append(errs, fmt.Sprintf("mockBasePrices[%s] must be positive", sym))
		}
	}
	if c.HealthProbeCron != "" {
		if _, err := cron.ParseStandard(c.HealthProbeCron); err != nil {
			errs = append(errs, fmt.Sprintf("HEALTH_PROBE_CRON %q: %v", c.HealthProbeCron, err))
		}
	}

	if c.MarketDataProvider == "mock" && c.IsProduction() {
		log.Warn().Msg("MARKET_DATA_PROVIDER=mock in production, quotes are simulated")
	}
	if c.HealthProbeCron == "" {
		log.Warn().Msg("HEALTH_PROBE_CRON empty, provider health probe disabled")
	}
	if c.WebhookURL == "" {
		log.Info().Msg("WEBHOOK_URL not set, provider status changes will not be notified")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Print logs the effective configuration. Secrets are not part of Config.
func (c *Config) Print(log zerolog.Logger) {
	log.Info().
		Str("env", c.Env).
		Str("addr", fmt.Sprintf("%s:%d", c.Host, c.Port)).
		Strs("allowed_origins", c.AllowedOrigins).
		Str("static_dir", c.StaticDir).
		Str("log_level", c.LogLevel).
		Msg("server configuration")

	ev := log.Info().
		Str("provider", c.MarketDataProvider).
		Str("ethereum", boolLabel(c.EthereumAPIEndpoint != "", "configured", "disabled"))
	if c.MarketDataProvider == "yahoo" {
		ev = ev.Str("yahoo_chart", c.YahooBaseURL).Str("yahoo_search", c.YahooSearchURL)
	} else {
		ev = ev.Dur("mock_latency", c.MockLatency).Int("mock_symbols", len(c.MockBasePrices))
	}
	ev.Msg("market data configuration")

	log.Info().
		Str("schedule", boolLabel(c.HealthProbeCron != "", c.HealthProbeCron, "disabled")).
		Str("symbol", c.HealthProbeSymbol).
		Str("webhook", boolLabel(c.WebhookURL != "", "configured", "not set")).
		Msg("health probe configuration")
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envDuration accepts Go durations ("250ms") or plain milliseconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
