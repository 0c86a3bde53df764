package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/docqa-go/internal/ingestion"
	"github.com/54b3r/docqa-go/internal/journal"
	"github.com/54b3r/docqa-go/internal/workflow"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It must
	// cover a full retrieve, score and generate cycle.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// AskTimeout bounds one workflow run. Defaults to 3 minutes.
	AskTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default is used.
	Logger *slog.Logger
	// Pingers is the list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on /api/ask and
	// /api/documents (requests/second). Defaults to 5 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 10 if zero.
	RateBurst int
	// MaxUploadBytes caps an uploaded document. Defaults to 32 MiB.
	MaxUploadBytes int64
	// Journal receives one entry per /api/ask. Nil disables journaling.
	Journal journal.Recorder
	// MetricsRegistry receives the server collectors. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// asker answers one question. *workflow.Workflow satisfies it; tests inject
// a fake.
type asker interface {
	Run(ctx context.Context, question string) (workflow.Result, error)
}

// ingester stores one uploaded document. *ingestion.Pipeline satisfies it.
type ingester interface {
	IngestBytes(ctx context.Context, name string, data []byte) (ingestion.Result, error)
}

// Server is the HTTP front door for the question-answering workflow.
type Server struct {
	asker      asker
	ingester   ingester
	cfg        *Config
	httpServer *http.Server
	log        *slog.Logger
	pingers    []Pinger
	journal    journal.Recorder
	metrics    *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	Question string `json:"question"`
}

// askResponse is the JSON body returned by POST /api/ask.
type askResponse struct {
	Question string `json:"question"`
	// Answer is the generated answer, or the fixed no-relevant-information
	// message when the run ended without generating.
	Answer string `json:"answer"`
	// RelevanceScore is null when the model produced a non-finite score.
	RelevanceScore *float64 `json:"relevance_score"`
	// Outcome is "answered" or "ended".
	Outcome string `json:"outcome"`
}

// uploadResponse is the JSON body returned by POST /api/documents.
type uploadResponse struct {
	Message string `json:"message"`
	Chunks  int    `json:"chunks"`
}

// errorResponse is the JSON body of every 4xx/5xx answer from /api routes.
type errorResponse struct {
	Error string `json:"error"`
}

// indexResponse is the JSON body returned by GET /.
type indexResponse struct {
	Message   string            `json:"message"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}
