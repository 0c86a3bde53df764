// Package tracing wires the two optional tracing sinks: a Langfuse callback
// handler for eino model calls, and an OpenTelemetry tracer provider that
// receives the workflow's node spans.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/54b3r/docqa-go/internal/version"
)

// ServiceName is reported as service.name on every span.
const ServiceName = "docqa"

// Config selects which sinks are enabled. The zero value disables both.
type Config struct {
	LangfuseHost      string
	LangfusePublicKey string
	LangfuseSecretKey string
	// OTLPEndpoint is a host:port for the OTLP gRPC exporter.
	OTLPEndpoint string
	// Stdout pretty-prints spans to stderr. Ignored when OTLPEndpoint is set.
	Stdout bool
}

// LangfuseEnabled reports whether both Langfuse keys are present.
func (c Config) LangfuseEnabled() bool {
	return c.LangfusePublicKey != "" && c.LangfuseSecretKey != ""
}

// OTelEnabled reports whether any span exporter is configured.
func (c Config) OTelEnabled() bool {
	return c.OTLPEndpoint != "" || c.Stdout
}

// Setup registers the configured sinks globally. The returned shutdown
// function flushes pending traces and is always safe to call.
func Setup(ctx context.Context, cfg Config, log *slog.Logger) (func(context.Context) error, error) {
	var shutdowns []func(context.Context) error

	if cfg.LangfuseEnabled() {
		handler, flush := langfuse.NewLangfuseHandler(&langfuse.Config{
			Host:      cfg.LangfuseHost,
			PublicKey: cfg.LangfusePublicKey,
			SecretKey: cfg.LangfuseSecretKey,
		})
		callbacks.AppendGlobalHandlers(handler)
		shutdowns = append(shutdowns, func(context.Context) error { flush(); return nil })
		log.Info("langfuse tracing enabled", slog.String("host", cfg.LangfuseHost))
	}

	if cfg.OTelEnabled() {
		tp, err := newTracerProvider(ctx, cfg, os.Stderr)
		if err != nil {
			return nil, err
		}
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)
		log.Info("opentelemetry tracing enabled",
			slog.String("otlp_endpoint", cfg.OTLPEndpoint),
			slog.Bool("stdout", cfg.OTLPEndpoint == "" && cfg.Stdout),
		)
	}

	return func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}, nil
}

// newTracerProvider builds a batching provider for the configured exporter.
// stdout receives spans when no OTLP endpoint is set.
func newTracerProvider(ctx context.Context, cfg Config, stdout io.Writer) (*sdktrace.TracerProvider, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)
	if cfg.OTLPEndpoint != "" {
		exp, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
	} else {
		exp, err = stdouttrace.New(stdouttrace.WithWriter(stdout), stdouttrace.WithPrettyPrint())
	}
	if err != nil {
		return nil, fmt.Errorf("tracing: create exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", version.Version),
	)
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}
