// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/okian/wrwatch/internal/domain/model"
	"github.com/okian/wrwatch/internal/domain/report"
	"github.com/okian/wrwatch/pkg/logger"
)

// Server timeouts. A /records pass can take a while against the live API,
// hence the long write timeout.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 5 * time.Minute
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Report runs a full resolution pass.
	Report(ctx context.Context) (report.Report, error)
	// Resolve runs a pass limited to one category.
	Resolve(ctx context.Context, game, category string) ([]model.Run, error)
	// Present applies the watch-state presentation policy.
	Present(records []model.Run) (model.Run, bool)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	recordsHandler *RecordsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		recordsHandler: NewRecordsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /records", MetricsMiddleware(s.recordsHandler.HandleReport, "records"))
	// Category names may contain slashes ("Any% / NMS"), so the category
	// takes the rest of the path.
	mux.HandleFunc("GET /records/{game}/{category...}", MetricsMiddleware(s.recordsHandler.HandleCategory, "records_category"))
}

// ListenAndServe serves the API and any extra routes on addr until ctx is
// done, then shuts down gracefully. Listen and serve failures match ErrServe.
func (s *Server) ListenAndServe(ctx context.Context, addr string, extra ...func(*http.ServeMux)) error {
	mux := http.NewServeMux()
	for _, register := range extra {
		register(mux)
	}
	s.Register(mux)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServe, err)
	}
	srv := &http.Server{
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	log := logger.Get()
	log.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%w: %v", ErrServe, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%w: shutdown: %v", ErrServe, err)
	}
	log.Info(ctx, "server stopped")
	return nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeResolveError maps resolution failures: bad configuration references
// are 404, upstream failures are 502.
func writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrConfiguration):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, model.ErrUpstream):
		writeError(w, http.StatusBadGateway, "upstream_error", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
