//go:build integration

package embedder

import (
	"context"
	"math"
	"os"
	"testing"
	"time"
)

// Requires a running Ollama with the embedding model pulled:
//
//	ollama pull nomic-embed-text
//	go test -tags=integration ./internal/embedder/
func TestOllama_Integration_RanksRelatedTextHigher(t *testing.T) {
	cfg := Config{
		Backend:   "ollama",
		Model:     os.Getenv("EMBEDDING_MODEL"),
		Endpoint:  os.Getenv("OLLAMA_HOST"),
		CacheSize: 8,
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:11434"
	}
	emb, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	texts := []string{
		"What is encapsulation in object-oriented programming?",
		"Encapsulation bundles data with the methods that operate on it and hides internal state.",
		"The recipe calls for two cups of flour and a pinch of salt.",
	}
	vecs, err := emb.Embed(ctx, texts)
	if err != nil {
		t.Fatalf("Embed: %v (is Ollama running at %s?)", err, cfg.Endpoint)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors for %d texts", len(vecs), len(texts))
	}
	t.Logf("dimensions=%d (EMBEDDING_DIMENSIONS must match the vector store)", len(vecs[0]))

	related, unrelated := cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2])
	if related <= unrelated {
		t.Errorf("related similarity %.3f not above unrelated %.3f", related, unrelated)
	}

	// A repeat call is served from the cache and must match exactly.
	again, err := emb.Embed(ctx, texts[:1])
	if err != nil {
		t.Fatalf("cached Embed: %v", err)
	}
	if cosine(again[0], vecs[0]) < 0.9999 {
		t.Error("cached embedding differs from the original")
	}
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
