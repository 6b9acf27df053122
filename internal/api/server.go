// Package api exposes the analysis results over a JSON HTTP API.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"import-scout/internal/db"
	"import-scout/internal/engine"
)

// ResultStore is the read/query surface the server needs from storage.
type ResultStore interface {
	AllOpportunities(ctx context.Context, limit int) ([]db.StoredOpportunity, error)
	TopOpportunities(ctx context.Context, limit int) ([]db.StoredOpportunity, error)
	FastMovers(ctx context.Context, limit int) ([]db.StoredOpportunity, error)
	Opportunity(ctx context.Context, make, model string, year int, fuelType string) (*db.StoredOpportunity, error)
	Summary(ctx context.Context) (*db.MarketSummary, error)
}

// Analyzer triggers an on-demand analysis run.
type Analyzer interface {
	Run(ctx context.Context, filter engine.Filter) ([]engine.ScoredOpportunity, *engine.RunReport, error)
}

// Server serves the analysis results.
type Server struct {
	router *chi.Mux
	server *http.Server
	store  ResultStore
	runner Analyzer
	log    zerolog.Logger
}

// New creates the HTTP server.
func New(addr string, store ResultStore, runner Analyzer, log zerolog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		store:  store,
		runner: runner,
		log:    log.With().Str("component", "api").Logger(),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/summary", s.handleSummary)
	s.router.Get("/api/opportunities", s.handleOpportunities)
	s.router.Get("/api/opportunities/top", s.handleTopOpportunities)
	s.router.Get("/api/opportunities/fast-movers", s.handleFastMovers)
	s.router.Get("/api/vehicles/{make}/{model}/{year}/{fuel}", s.handleVehicle)
	s.router.Post("/api/analysis/run", s.handleRunAnalysis)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts serving until the listener fails or Shutdown is
// called.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("api listening")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.Summary(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	s.listOpportunities(w, r, s.store.AllOpportunities)
}

func (s *Server) handleTopOpportunities(w http.ResponseWriter, r *http.Request) {
	s.listOpportunities(w, r, s.store.TopOpportunities)
}

func (s *Server) handleFastMovers(w http.ResponseWriter, r *http.Request) {
	s.listOpportunities(w, r, s.store.FastMovers)
}

func (s *Server) listOpportunities(w http.ResponseWriter, r *http.Request,
	query func(ctx context.Context, limit int) ([]db.StoredOpportunity, error)) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be 1-500"))
			return
		}
		limit = n
	}

	results, err := query(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if results == nil {
		results = []db.StoredOpportunity{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(results),
		"opportunities": results,
	})
}

func (s *Server) handleVehicle(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid year"))
		return
	}

	opp, err := s.store.Opportunity(r.Context(),
		chi.URLParam(r, "make"), chi.URLParam(r, "model"), year, chi.URLParam(r, "fuel"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, http.StatusNotFound, fmt.Errorf("no analysis for vehicle"))
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, opp)
}

func (s *Server) handleRunAnalysis(w http.ResponseWriter, r *http.Request) {
	filter := engine.Filter{
		Make:  r.URL.Query().Get("make"),
		Model: r.URL.Query().Get("model"),
	}

	results, report, err := s.runner.Run(r.Context(), filter)
	if err != nil {
		if errors.Is(err, engine.ErrNoAggregates) || errors.Is(err, engine.ErrMissingExchangeRate) {
			s.writeError(w, http.StatusConflict, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"report": report,
		"scored": len(results),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		s.log.Error().Err(err).Msg("request failed")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
