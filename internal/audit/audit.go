// Package audit writes one structured log record at the start of every CLI
// command: which command ran, which config file was applied, and the
// effective environment. Credentials appear only as "set" or "unset".
package audit

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

// auditKeys are the variables recorded on every command, grouped by concern.
var auditKeys = []string{
	"MODEL_PROVIDER", "OLLAMA_HOST", "OLLAMA_MODEL", "OPENAI_API_KEY", "OPENAI_MODEL",
	"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_DEPLOYMENT",
	"GOOGLE_API_KEY", "GEMINI_MODEL", "ARK_API_KEY", "ARK_MODEL",

	"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_API_KEY", "EMBEDDING_ENDPOINT",

	"VECTOR_BACKEND", "QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION", "QDRANT_API_KEY",
	"WEAVIATE_HOST", "WEAVIATE_CLASS", "WEAVIATE_API_KEY",

	"WORKFLOW_TOP_K", "WORKFLOW_LLM_TIMEOUT", "DOCQA_JOURNAL_DB",
	"LOG_LEVEL", "LOG_FORMAT",
	"LANGFUSE_PUBLIC_KEY", "LANGFUSE_SECRET_KEY", "OTEL_EXPORTER_OTLP_ENDPOINT",
}

// IsSecret reports whether the value of key must never be logged.
func IsSecret(key string) bool {
	return strings.HasSuffix(key, "_API_KEY") ||
		strings.HasSuffix(key, "_SECRET_KEY") ||
		strings.HasSuffix(key, "_PUBLIC_KEY") ||
		strings.HasSuffix(key, "_TOKEN")
}

// LogCommandStart emits the audit record for command. configPath is the YAML
// file config.Load applied, or "" when none was found.
func LogCommandStart(ctx context.Context, log *slog.Logger, command, configPath string) {
	attrs := make([]slog.Attr, 0, len(auditKeys)+2)
	attrs = append(attrs,
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	)
	for _, key := range auditKeys {
		attrs = append(attrs, slog.String(key, SanitiseKey(key, os.Getenv(key))))
	}
	log.LogAttrs(ctx, slog.LevelInfo, "audit: command start", attrs...)
}

// SanitiseKey returns the loggable form of an environment value. Secrets
// collapse to presence, URLs lose any embedded credentials, and empty values
// read "unset".
func SanitiseKey(key, value string) string {
	if value == "" {
		return "unset"
	}
	if IsSecret(key) {
		return "set"
	}
	return stripUserinfo(value)
}

// stripUserinfo redacts user:password@ from URL-shaped values.
func stripUserinfo(v string) string {
	if !strings.Contains(v, "://") {
		return v
	}
	u, err := url.Parse(v)
	if err != nil || u.User == nil {
		return v
	}
	u.User = url.User("redacted")
	return u.String()
}

// sanitiseConfigPath abbreviates the home directory to "~".
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
