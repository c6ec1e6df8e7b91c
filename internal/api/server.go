package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/triggerstix/GANNTRADINGAPP/internal/gann"
	"github.com/triggerstix/GANNTRADINGAPP/internal/logging"
	"github.com/triggerstix/GANNTRADINGAPP/internal/marketdata"
	"github.com/triggerstix/GANNTRADINGAPP/internal/metrics"
	"github.com/triggerstix/GANNTRADINGAPP/internal/rpc"
)

// HealthReporter reports the last known market data status: "up", "down"
// or "unknown", and when it was last checked.
type HealthReporter interface {
	Status() string
	LastCheck() (time.Time, error)
}

type Options struct {
	Host           string
	Port           int
	AllowedOrigins []string
	StaticDir      string
	Provider       marketdata.Provider
	Health         HealthReporter
	Log            zerolog.Logger
	Now            func() time.Time
}

type Server struct {
	provider   marketdata.Provider
	health     HealthReporter
	rpc        *rpc.Router
	log        zerolog.Logger
	now        func() time.Time
	handler    http.Handler
	httpServer *http.Server
}

func NewServer(opts Options) (*Server, error) {
	if opts.Provider == nil {
		return nil, errors.New("api: market data provider is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		provider: opts.Provider,
		health:   opts.Health,
		rpc:      rpc.NewRouter(logging.Component(opts.Log, "rpc")),
		log:      opts.Log,
		now:      opts.Now,
	}

	if err := s.rpc.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := gann.ParseDate(fl.Field().String())
		return err == nil
	}); err != nil {
		return nil, fmt.Errorf("register validation: %w", err)
	}
	s.registerProcedures()
	s.log.Debug().Strs("procedures", s.rpc.Paths()).Msg("rpc procedures registered")

	mux := http.NewServeMux()
	mux.Handle("/api/trpc/", http.StripPrefix("/api/trpc", s.rpc))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("/api/", s.handleAPINotFound)
	if spa := newSPAHandler(opts.StaticDir); spa != nil {
		mux.Handle("/", spa)
		s.log.Info().Str("dir", opts.StaticDir).Msg("serving static client")
	}

	s.handler = requestLogger(s.log, corsMiddleware(mux, opts.AllowedOrigins))
	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, nil
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Start() error {
	s.log.Info().
		Str("addr", s.httpServer.Addr).
		Str("provider", s.provider.Name()).
		Msgf("server listening on http://%s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
