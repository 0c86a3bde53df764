// Package server implements the HTTP API of the question-answering service:
// asking questions, uploading documents, liveness and readiness probes, and
// Prometheus metrics. The server is started by the `docqa serve` command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/docqa-go/internal/journal"
	"github.com/54b3r/docqa-go/internal/logging"
)

// New constructs a Server that answers with a and stores uploads through ing.
func New(a asker, ing ingester, cfg *Config) (*Server, error) {
	if a == nil {
		return nil, fmt.Errorf("server: workflow must not be nil")
	}
	if ing == nil {
		return nil, fmt.Errorf("server: ingestion pipeline must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.AskTimeout == 0 {
		cfg.AskTimeout = 3 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = cfg.AskTimeout + 30*time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Journal == nil {
		cfg.Journal = journal.Nop{}
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		asker:    a,
		ingester: ing,
		cfg:      cfg,
		log:      cfg.Logger,
		pingers:  cfg.Pingers,
		journal:  cfg.Journal,
		metrics:  newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stop := newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.metrics.rateLimitedTotal)
	s.stopRL = stop

	mux := http.NewServeMux()
	s.handle(mux, "GET /{$}", "index", http.HandlerFunc(s.handleIndex))
	s.handle(mux, "POST /api/ask", "ask", rl.middleware(http.HandlerFunc(s.handleAsk)))
	s.handle(mux, "POST /api/documents", "documents", rl.middleware(http.HandlerFunc(s.handleUpload)))
	s.handle(mux, "GET /api/health", "health", http.HandlerFunc(s.handleHealth))
	s.handle(mux, "GET /api/ready", "ready", http.HandlerFunc(s.handleReady))
	s.handle(mux, "GET /metrics", "metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      cors(requestLogger(s.log, mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// handle registers h on mux under pattern, instrumented with the given
// handler label.
func (s *Server) handle(mux *http.ServeMux, pattern, name string, h http.Handler) {
	mux.Handle(pattern, s.metrics.instrument(name, h))
}

// Handler returns the fully wrapped root handler. Tests drive it with httptest.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.log.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleIndex handles GET / with a short description of the API.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, indexResponse{
		Message: "Document QA API",
		Status:  "running",
		Endpoints: map[string]string{
			"ask":     "POST /api/ask",
			"upload":  "POST /api/documents",
			"health":  "GET /api/health",
			"ready":   "GET /api/ready",
			"metrics": "GET /metrics",
		},
	})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON encodes body as the response with the given status.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.FromContext(ctx).Error("response encode error", slog.Any("error", err))
	}
}

// writeError sends an errorResponse.
func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, errorResponse{Error: msg})
}
