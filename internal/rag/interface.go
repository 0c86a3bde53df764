// Package rag defines the retrieval side of the question-answering service:
// embedding text, storing chunk vectors, and fetching the passages most
// similar to a query. Concrete stores (Qdrant, Weaviate) satisfy
// [VectorStore] so the workflow never depends on a specific backend.
package rag

import (
	"context"
)

// Document represents a unit of retrieved or stored knowledge.
type Document struct {
	// ID is the unique identifier for this document chunk. Stores require a
	// UUID string.
	ID string

	// Content is the raw text content of the chunk.
	Content string

	// Source is the origin file name or URL of the document.
	Source string

	// Metadata holds arbitrary key-value pairs (content type, chunk index, etc.).
	Metadata map[string]string

	// Score is the similarity score assigned during retrieval.
	// Zero value means the score was not computed.
	Score float32
}

// VectorStore is the interface for persisting and searching document embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of documents with their pre-computed embeddings.
	// embeddings[i] is the vector for docs[i].
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns at most topK documents ranked by similarity to the
	// query embedding, most similar first.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error)

	// Ping reports whether the backing service is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever fetches the documents most relevant to a natural-language query.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Document, error)
}

// payload keys shared by every store.
const (
	fieldText   = "text"
	fieldSource = "source"
)
