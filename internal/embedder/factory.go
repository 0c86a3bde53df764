package embedder

import (
	"strings"
	"time"

	"github.com/54b3r/docqa-go/internal/rag"
)

// Default embedding models per backend.
const (
	DefaultOllamaModel = "nomic-embed-text"
	DefaultOpenAIModel = "text-embedding-3-small"

	// defaultOllamaDimensions is the output dimension of nomic-embed-text.
	// Other Ollama models may differ; override with EMBEDDING_DIMENSIONS.
	defaultOllamaDimensions = 768
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536

	// defaultCacheTTL bounds how long a cached query vector is reused.
	defaultCacheTTL = 10 * time.Minute
)

// Config selects and configures an embedding backend. It is resolved once by
// the config package, with chat-provider credentials already inherited.
type Config struct {
	// Backend is ollama, openai or azure.
	Backend string
	// Model is the embedding model (or Azure deployment) name.
	Model string
	// Dimensions is the vector size. Zero selects the backend default.
	Dimensions int
	// APIKey authenticates openai and azure backends.
	APIKey string
	// Endpoint is the Ollama host, OpenAI base URL or Azure resource URL.
	Endpoint string
	// APIVersion is the Azure OpenAI API version.
	APIVersion string
	// CacheSize is the maximum number of cached query vectors. Zero disables caching.
	CacheSize int
}

// VectorSize returns the configured dimensions, or the default for the backend.
// Vector stores use it to size a new collection.
func (c Config) VectorSize() int {
	if c.Dimensions > 0 {
		return c.Dimensions
	}
	if c.Backend == "ollama" {
		return defaultOllamaDimensions
	}
	return defaultOpenAIDimensions
}

// New constructs the embedder for cfg, wrapped in a query cache when
// cfg.CacheSize is positive.
func New(cfg Config) (rag.Embedder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var e rag.Embedder
	switch cfg.Backend {
	case "ollama":
		e = NewOllamaEmbedder(&OllamaConfig{
			Host:  strings.TrimRight(cfg.Endpoint, "/"),
			Model: orDefault(cfg.Model, DefaultOllamaModel),
		})
	case "openai":
		e = NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    strings.TrimRight(orDefault(cfg.Endpoint, "https://api.openai.com/v1"), "/"),
			APIKey:     cfg.APIKey,
			Model:      orDefault(cfg.Model, DefaultOpenAIModel),
			Dimensions: cfg.VectorSize(),
		})
	case "azure":
		e = NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    strings.TrimRight(cfg.Endpoint, "/") + "/openai",
			APIKey:     cfg.APIKey,
			Model:      orDefault(cfg.Model, DefaultOpenAIModel),
			Dimensions: cfg.VectorSize(),
			Azure:      true,
			APIVersion: orDefault(cfg.APIVersion, "2025-04-01-preview"),
		})
	}

	if cfg.CacheSize > 0 {
		e = NewCached(e, cfg.CacheSize, defaultCacheTTL)
	}
	return e, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
