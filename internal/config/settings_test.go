package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/54b3r/docqa-go/internal/provider"
)

// clearEnv blanks every variable Resolve reads so the host environment
// cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, m := range envMapping {
		t.Setenv(m.envKey, "")
	}
}

func TestResolve_Defaults(t *testing.T) {
	clearEnv(t)

	s, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if s.Model.Backend != provider.BackendOllama {
		t.Errorf("Model.Backend = %q, want ollama", s.Model.Backend)
	}
	if s.Model.Ollama.Host != "http://localhost:11434" {
		t.Errorf("Ollama.Host = %q", s.Model.Ollama.Host)
	}
	if s.Embedding.Backend != "ollama" || s.Embedding.Endpoint != "http://localhost:11434" {
		t.Errorf("Embedding = %+v, want ollama inheriting OLLAMA_HOST", s.Embedding)
	}
	if s.Vector.Backend != VectorQdrant {
		t.Errorf("Vector.Backend = %q, want qdrant", s.Vector.Backend)
	}
	if s.Vector.Qdrant.Collection != "docqa" || s.Vector.Qdrant.Port != 6334 {
		t.Errorf("Qdrant = %+v", s.Vector.Qdrant)
	}
	if s.Vector.Qdrant.VectorSize != 768 {
		t.Errorf("Qdrant.VectorSize = %d, want 768 for ollama embeddings", s.Vector.Qdrant.VectorSize)
	}
	if s.Workflow.TopK != 4 {
		t.Errorf("Workflow.TopK = %d, want 4", s.Workflow.TopK)
	}
	if s.Workflow.LLM.Timeout != 60*time.Second {
		t.Errorf("Workflow.LLM.Timeout = %v, want 60s", s.Workflow.LLM.Timeout)
	}
	if s.Chunking.Size != 1000 || s.Chunking.Overlap != 200 {
		t.Errorf("Chunking = %+v, want 1000/200", s.Chunking)
	}
	if s.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", s.Server.Port)
	}
	if !strings.HasSuffix(s.JournalPath, filepath.Join(".docqa", "journal.db")) && s.JournalPath != "" {
		t.Errorf("JournalPath = %q", s.JournalPath)
	}
}

func TestResolve_EmbeddingInheritsChatCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_PROVIDER", "azure")
	t.Setenv("AZURE_OPENAI_API_KEY", "az-key")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://res.openai.azure.com")

	s, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Embedding.Backend != "azure" {
		t.Fatalf("Embedding.Backend = %q, want azure", s.Embedding.Backend)
	}
	if s.Embedding.APIKey != "az-key" {
		t.Errorf("Embedding.APIKey = %q, want inherited key", s.Embedding.APIKey)
	}
	if s.Embedding.Endpoint != "https://res.openai.azure.com" {
		t.Errorf("Embedding.Endpoint = %q", s.Embedding.Endpoint)
	}
	if s.Vector.Qdrant.VectorSize != 1536 {
		t.Errorf("VectorSize = %d, want 1536", s.Vector.Qdrant.VectorSize)
	}
}

func TestResolve_GeminiFallsBackToOllamaEmbeddings(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_PROVIDER", "gemini")

	s, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Embedding.Backend != "ollama" {
		t.Errorf("Embedding.Backend = %q, want ollama", s.Embedding.Backend)
	}
}

func TestResolve_ExplicitEmbeddingWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "chat-key")
	t.Setenv("EMBEDDING_API_KEY", "emb-key")
	t.Setenv("EMBEDDING_DIMENSIONS", "512")

	s, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Embedding.APIKey != "emb-key" {
		t.Errorf("Embedding.APIKey = %q, want emb-key", s.Embedding.APIKey)
	}
	if s.Vector.Qdrant.VectorSize != 512 {
		t.Errorf("VectorSize = %d, want 512", s.Vector.Qdrant.VectorSize)
	}
}

func TestResolve_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("VECTOR_BACKEND", "Weaviate")
	t.Setenv("WEAVIATE_CLASS", "Handbook")
	t.Setenv("WORKFLOW_TOP_K", "8")
	t.Setenv("WORKFLOW_LLM_TIMEOUT", "2m")
	t.Setenv("DOCQA_RATE_LIMIT", "2.5")
	t.Setenv("OTEL_TRACES_STDOUT", "true")
	t.Setenv("DOCQA_JOURNAL_DB", JournalDisabled)

	s, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Vector.Backend != VectorWeaviate || s.Vector.Weaviate.Class != "Handbook" {
		t.Errorf("Vector = %+v", s.Vector)
	}
	if s.Workflow.TopK != 8 || s.Workflow.LLM.Timeout != 2*time.Minute {
		t.Errorf("Workflow = %+v", s.Workflow)
	}
	if s.Server.RateLimit != 2.5 {
		t.Errorf("RateLimit = %v, want 2.5", s.Server.RateLimit)
	}
	if !s.Tracing.Stdout {
		t.Error("Tracing.Stdout = false, want true")
	}
	if s.JournalPath != "" {
		t.Errorf("JournalPath = %q, want empty when disabled", s.JournalPath)
	}
}

func TestResolve_CollectsAllErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("QDRANT_PORT", "not-a-port")
	t.Setenv("WORKFLOW_LLM_TIMEOUT", "soon")
	t.Setenv("VECTOR_BACKEND", "pinecone")

	_, err := Resolve()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"QDRANT_PORT", "WORKFLOW_LLM_TIMEOUT", "VECTOR_BACKEND"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
