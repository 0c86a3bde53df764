package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/server"
	"github.com/54b3r/docqa-go/internal/tracing"
)

// NewServeCmd constructs `docqa serve`, which starts the HTTP API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

Endpoints:
  POST /api/ask         {"question": "..."} → answer, relevance score, outcome
  POST /api/documents   multipart upload (field "file") of a .pdf, .txt or .md
  GET  /api/health      liveness
  GET  /api/ready       probes the model provider and the vector store
  GET  /metrics         Prometheus metrics

Examples:
  docqa serve
  docqa serve --host 0.0.0.0 --port 9000
  MODEL_PROVIDER=openai VECTOR_BACKEND=weaviate docqa serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ctx, e, err := loadEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			if cmd.Flags().Changed("host") {
				e.settings.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				e.settings.Server.Port = port
			}

			shutdownTracing, err := tracing.Setup(ctx, e.settings.Tracing, e.log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(flushCtx); err != nil {
					e.log.Warn("tracing shutdown failed", slog.Any("error", err))
				}
			}()

			r, err := buildRetrieval(ctx, e)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer r.Close()

			reg := prometheus.DefaultRegisterer
			wf, err := buildWorkflow(ctx, e, r, reg)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			pipeline, err := buildPipeline(e, r, reg)
			if err != nil {
				return fmt.Errorf("serve: failed to create pipeline: %w", err)
			}

			rec, closeJournal := openJournal(e)
			defer closeJournal()

			srv, err := server.New(wf, pipeline, &server.Config{
				Host:           e.settings.Server.Host,
				Port:           e.settings.Server.Port,
				Logger:         e.log,
				Pingers:        buildPingers(e, r),
				RateLimit:      e.settings.Server.RateLimit,
				RateBurst:      e.settings.Server.RateBurst,
				MaxUploadBytes: e.settings.Server.MaxUploadBytes,
				Journal:        rec,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (overrides DOCQA_API_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "TCP port to listen on (overrides DOCQA_API_PORT)")

	return cmd
}
