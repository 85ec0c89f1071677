package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Datta-sai-vvn/StormAlert/internal/config"
	"github.com/Datta-sai-vvn/StormAlert/internal/engine"
	"github.com/Datta-sai-vvn/StormAlert/internal/history"
	"github.com/Datta-sai-vvn/StormAlert/internal/pricecache"
	"github.com/Datta-sai-vvn/StormAlert/internal/storage"
)

// Server exposes the ingest webhook and the read-only query surface the
// display layer consumes.
type Server struct {
	engine     *engine.Engine
	historyDB  *history.Store
	cache      pricecache.Cache
	alertStore storage.AlertStore
	logger     zerolog.Logger

	http *http.Server
	cfg  config.ServerConfig
}

// New constructs the HTTP server. alertStore may be nil when persistence is
// not configured; the alerts endpoint then reports unavailable.
func New(cfg config.ServerConfig, eng *engine.Engine, hist *history.Store, cache pricecache.Cache, alertStore storage.AlertStore, logger zerolog.Logger) *Server {
	s := &Server{
		engine:     eng,
		historyDB:  hist,
		cache:      cache,
		alertStore: alertStore,
		logger:     logger.With().Str("component", "server").Logger(),
		cfg:        cfg,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(s.requestLogger)

	router.Post("/api/webhooks/ticker", s.handleTick)
	router.Get("/api/stocks/prices", s.handlePrices)
	router.Get("/api/stocks/{instrument}/history", s.handleHistory)
	router.Get("/api/alerts", s.handleAlerts)
	router.Get("/healthz", s.handleHealth)

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
