package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/54b3r/docqa-go/internal/embedder"
	"github.com/54b3r/docqa-go/internal/llm"
	"github.com/54b3r/docqa-go/internal/provider"
	"github.com/54b3r/docqa-go/internal/rag"
	"github.com/54b3r/docqa-go/internal/tracing"
)

// Vector store backends.
const (
	VectorQdrant   = "qdrant"
	VectorWeaviate = "weaviate"
)

// JournalDisabled is the DOCQA_JOURNAL_DB value that turns the journal off.
const JournalDisabled = "disabled"

// Settings is the fully resolved runtime configuration.
type Settings struct {
	Model     provider.Config
	Embedding embedder.Config
	Vector    VectorSettings
	Workflow  WorkflowSettings
	Chunking  ChunkSettings
	Server    ServerSettings
	Logging   LoggingSettings
	Tracing   tracing.Config

	// JournalPath is the SQLite journal location. Empty means disabled.
	JournalPath string
}

// VectorSettings holds the selected vector backend and its connection details.
type VectorSettings struct {
	Backend  string
	Qdrant   rag.QdrantConfig
	Weaviate rag.WeaviateConfig
}

// WorkflowSettings tunes retrieval depth and model calls.
type WorkflowSettings struct {
	TopK int
	LLM  llm.Config
}

// ChunkSettings controls how ingested documents are split.
type ChunkSettings struct {
	Size    int
	Overlap int
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Host           string
	Port           int
	RateLimit      float64
	RateBurst      int
	MaxUploadBytes int64
}

// LoggingSettings selects the log level and handler format.
type LoggingSettings struct {
	Level  string
	Format string
}

// Resolve reads the process environment (after [Load] has applied any YAML
// file) and returns typed Settings with defaults filled in. Malformed numeric
// values are reported together.
func Resolve() (Settings, error) {
	r := &reader{}

	s := Settings{
		Model: provider.Config{
			Backend: provider.Backend(strings.ToLower(envOr("MODEL_PROVIDER", string(provider.BackendOllama)))),
			Ollama: provider.ProviderOllama{
				Host:  envOr("OLLAMA_HOST", "http://localhost:11434"),
				Model: envOr("OLLAMA_MODEL", "llama3.2"),
			},
			OpenAI: provider.ProviderOpenAI{
				APIKey: os.Getenv("OPENAI_API_KEY"),
				Model:  envOr("OPENAI_MODEL", "gpt-4o-mini"),
			},
			AzureOpenAI: provider.ProviderAzureOpenAI{
				APIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
				Endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
				Deployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
				APIVersion: envOr("AZURE_OPENAI_API_VERSION", "2024-06-01"),
			},
			Gemini: provider.ProviderGemini{
				APIKey: os.Getenv("GOOGLE_API_KEY"),
				Model:  envOr("GEMINI_MODEL", "gemini-2.0-flash"),
			},
			Ark: provider.ProviderArk{
				APIKey:  os.Getenv("ARK_API_KEY"),
				BaseURL: os.Getenv("ARK_BASE_URL"),
				Model:   os.Getenv("ARK_MODEL"),
			},
			Tuning: provider.SharedTuning{
				MaxTokens:   r.int("MODEL_MAX_TOKENS", 1024),
				Temperature: float32(r.float("MODEL_TEMPERATURE", 0)),
			},
		},
		Workflow: WorkflowSettings{
			TopK: r.int("WORKFLOW_TOP_K", 4),
			LLM: llm.Config{
				Timeout:         r.duration("WORKFLOW_LLM_TIMEOUT", 60*time.Second),
				BreakerFailures: 5,
				BreakerCooldown: 30 * time.Second,
			},
		},
		Chunking: ChunkSettings{
			Size:    r.int("CHUNK_SIZE", 1000),
			Overlap: r.int("CHUNK_OVERLAP", 200),
		},
		Server: ServerSettings{
			Host:           envOr("DOCQA_API_HOST", "127.0.0.1"),
			Port:           r.int("DOCQA_API_PORT", 8000),
			RateLimit:      r.float("DOCQA_RATE_LIMIT", 5),
			RateBurst:      r.int("DOCQA_RATE_BURST", 10),
			MaxUploadBytes: int64(r.int("DOCQA_MAX_UPLOAD_BYTES", 32<<20)),
		},
		Logging: LoggingSettings{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
		Tracing: tracing.Config{
			LangfuseHost:      envOr("LANGFUSE_HOST", "https://cloud.langfuse.com"),
			LangfusePublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
			LangfuseSecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
			OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Stdout:            r.bool("OTEL_TRACES_STDOUT"),
		},
	}

	s.Embedding = resolveEmbedding(s.Model, r)
	s.Vector = resolveVector(s.Embedding, r)
	s.JournalPath = resolveJournalPath()

	if err := errors.Join(r.errs...); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// resolveEmbedding picks the embedding backend. Unless EMBEDDING_PROVIDER is
// set it follows MODEL_PROVIDER, falling back to ollama for chat providers
// that have no embedding API here. Endpoint and key are inherited from the
// chat provider when the EMBEDDING_* variables are empty.
func resolveEmbedding(model provider.Config, r *reader) embedder.Config {
	backend := strings.ToLower(os.Getenv("EMBEDDING_PROVIDER"))
	if backend == "" {
		switch model.Backend {
		case provider.BackendOpenAI, provider.BackendAzure:
			backend = string(model.Backend)
		default:
			backend = string(provider.BackendOllama)
		}
	}

	cfg := embedder.Config{
		Backend:    backend,
		Model:      os.Getenv("EMBEDDING_MODEL"),
		Dimensions: r.int("EMBEDDING_DIMENSIONS", 0),
		APIKey:     os.Getenv("EMBEDDING_API_KEY"),
		Endpoint:   os.Getenv("EMBEDDING_ENDPOINT"),
		APIVersion: model.AzureOpenAI.APIVersion,
		CacheSize:  r.int("EMBEDDING_CACHE_SIZE", 256),
	}

	switch backend {
	case "ollama":
		if cfg.Endpoint == "" {
			cfg.Endpoint = model.Ollama.Host
		}
	case "openai":
		if cfg.APIKey == "" {
			cfg.APIKey = model.OpenAI.APIKey
		}
	case "azure":
		if cfg.APIKey == "" {
			cfg.APIKey = model.AzureOpenAI.APIKey
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = model.AzureOpenAI.Endpoint
		}
	}
	return cfg
}

func resolveVector(emb embedder.Config, r *reader) VectorSettings {
	backend := strings.ToLower(envOr("VECTOR_BACKEND", VectorQdrant))
	if backend != VectorQdrant && backend != VectorWeaviate {
		r.errs = append(r.errs, fmt.Errorf("config: VECTOR_BACKEND must be %s or %s, got %q", VectorQdrant, VectorWeaviate, backend))
	}

	return VectorSettings{
		Backend: backend,
		Qdrant: rag.QdrantConfig{
			Host:       envOr("QDRANT_HOST", "localhost"),
			Port:       r.int("QDRANT_PORT", 6334),
			Collection: envOr("QDRANT_COLLECTION", "docqa"),
			VectorSize: uint64(emb.VectorSize()), //nolint:gosec // dimensions are small and positive
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     r.bool("QDRANT_TLS"),
		},
		Weaviate: rag.WeaviateConfig{
			Host:   envOr("WEAVIATE_HOST", "localhost:8080"),
			Scheme: envOr("WEAVIATE_SCHEME", "http"),
			Class:  envOr("WEAVIATE_CLASS", rag.DefaultWeaviateClass),
			APIKey: os.Getenv("WEAVIATE_API_KEY"),
		},
	}
}

// resolveJournalPath returns DOCQA_JOURNAL_DB, ~/.docqa/journal.db when it is
// unset, or "" when the journal is disabled or no home directory exists.
func resolveJournalPath() string {
	p := os.Getenv("DOCQA_JOURNAL_DB")
	switch p {
	case JournalDisabled:
		return ""
	case "":
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		return filepath.Join(home, ".docqa", "journal.db")
	default:
		return p
	}
}

// envOr returns the env var value or fallback when it is unset or empty.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// reader parses typed env vars and collects every parse failure.
type reader struct {
	errs []error
}

func (r *reader) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("config: %s must be an integer, got %q", key, v))
		return fallback
	}
	return n
}

func (r *reader) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("config: %s must be a number, got %q", key, v))
		return fallback
	}
	return f
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("config: %s must be a duration such as 30s, got %q", key, v))
		return fallback
	}
	return d
}

func (r *reader) bool(key string) bool {
	v := os.Getenv(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("config: %s must be true or false, got %q", key, v))
		return false
	}
	return b
}
