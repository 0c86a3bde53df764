// Package logging builds the process-wide [*slog.Logger] and carries it
// through request and workflow contexts.
//
// The bootstrap logger used before configuration is loaded reads LOG_LEVEL
// and LOG_FORMAT directly; everything after that is built with [New] from
// resolved settings.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey struct{}

// Options selects the handler and minimum level.
type Options struct {
	// Level is debug, info, warn or error. Unknown values mean info.
	Level string
	// Format is json or text. Unknown values mean json.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New constructs a logger from opts.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		handler = slog.NewTextHandler(out, ho)
	} else {
		handler = slog.NewJSONHandler(out, ho)
	}
	return slog.New(handler)
}

// FromEnv builds the bootstrap logger from LOG_LEVEL and LOG_FORMAT.
func FromEnv() *slog.Logger {
	return New(Options{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	})
}

// Discard returns a logger that drops every record. Tests use it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored in ctx, or [slog.Default].
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// ParseLevel converts a level name to a [slog.Level], defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
