package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// DefaultWeaviateClass is the class name used when none is configured.
const DefaultWeaviateClass = "DocumentQA"

// Metadata keys persisted as Weaviate properties. Other metadata keys are
// dropped on upsert because the class schema is fixed.
const (
	MetaContentType = "content_type"
	MetaChunkIndex  = "chunk_index"
)

var weaviateProperties = []string{fieldText, fieldSource, MetaContentType, MetaChunkIndex}

// WeaviateConfig holds connection parameters for a Weaviate instance.
type WeaviateConfig struct {
	// Host is host:port of the REST endpoint (e.g. "localhost:8080").
	Host string
	// Scheme is http or https.
	Scheme string
	// Class is the object class holding chunks.
	Class string
	// APIKey is optional; empty connects anonymously.
	APIKey string
}

// WeaviateStore implements VectorStore on a Weaviate class with externally
// supplied vectors.
type WeaviateStore struct {
	client *weaviate.Client
	class  string
}

// NewWeaviateStore connects to Weaviate and creates the class if it does not
// exist yet. The class uses vectorizer "none" so the service's own embedder
// stays the single source of vectors.
func NewWeaviateStore(ctx context.Context, cfg WeaviateConfig) (*WeaviateStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost:8080"
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.Class == "" {
		cfg.Class = DefaultWeaviateClass
	}

	clientCfg := weaviate.Config{
		Host:   cfg.Host,
		Scheme: cfg.Scheme,
	}
	if cfg.APIKey != "" {
		clientCfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviate.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("weaviate: failed to create client: %w", err)
	}

	store := &WeaviateStore{client: client, class: cfg.Class}
	if err := store.ensureClass(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *WeaviateStore) ensureClass(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(s.class).Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate: failed to check class existence: %w", err)
	}
	if exists {
		return nil
	}

	props := make([]*models.Property, 0, len(weaviateProperties))
	for _, name := range weaviateProperties {
		props = append(props, &models.Property{Name: name, DataType: []string{"text"}})
	}

	err = s.client.Schema().ClassCreator().WithClass(&models.Class{
		Class:      s.class,
		Vectorizer: "none",
		Properties: props,
	}).Do(ctx)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("weaviate: failed to create class %q: %w", s.class, err)
	}
	return nil
}

// Upsert writes the documents through the batch endpoint, which replaces
// objects whose IDs already exist.
func (s *WeaviateStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("weaviate: %d documents but %d embeddings", len(docs), len(embeddings))
	}
	if len(docs) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(docs))
	for i, doc := range docs {
		props := map[string]any{
			fieldText:   doc.Content,
			fieldSource: doc.Source,
		}
		for _, k := range []string{MetaContentType, MetaChunkIndex} {
			if v, ok := doc.Metadata[k]; ok {
				props[k] = v
			}
		}
		objects = append(objects, &models.Object{
			Class:      s.class,
			ID:         strfmt.UUID(doc.ID),
			Properties: props,
			Vector:     embeddings[i],
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate: batch upsert failed: %w", err)
	}
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			if e != nil {
				return fmt.Errorf("weaviate: object %s rejected: %s", r.ID, e.Message)
			}
		}
	}
	return nil
}

// Search runs a nearVector GraphQL query and returns hits in rank order.
func (s *WeaviateStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error) {
	fields := make([]graphql.Field, 0, len(weaviateProperties)+1)
	for _, name := range weaviateProperties {
		fields = append(fields, graphql.Field{Name: name})
	}
	fields = append(fields, graphql.Field{Name: "_additional", Fields: []graphql.Field{
		{Name: "id"},
		{Name: "certainty"},
	}})

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(queryEmbedding)
	result, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithNearVector(nearVector).
		WithFields(fields...).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate: search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("weaviate: search failed: %s", strings.Join(msgs, "; "))
	}

	return parseWeaviateHits(result.Data, s.class), nil
}

// parseWeaviateHits extracts documents from the Get.<class> array of a
// GraphQL response. Malformed entries are skipped.
func parseWeaviateHits(data map[string]models.JSONObject, class string) []Document {
	get, ok := data["Get"].(map[string]any)
	if !ok {
		return []Document{}
	}
	items, ok := get[class].([]any)
	if !ok {
		return []Document{}
	}

	docs := make([]Document, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fields := make(map[string]string, len(weaviateProperties))
		for _, name := range weaviateProperties {
			if v, ok := m[name].(string); ok {
				fields[name] = v
			}
		}
		doc := documentFromFields(fields)
		if add, ok := m["_additional"].(map[string]any); ok {
			if id, ok := add["id"].(string); ok {
				doc.ID = id
			}
			if c, ok := add["certainty"].(float64); ok {
				doc.Score = float32(c)
			}
		}
		docs = append(docs, doc)
	}
	return docs
}

// Ping asks the Weaviate readiness endpoint.
func (s *WeaviateStore) Ping(ctx context.Context) error {
	ready, err := s.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate: readiness check failed: %w", err)
	}
	if !ready {
		return fmt.Errorf("weaviate: not ready")
	}
	return nil
}

// Close is a no-op; the Weaviate client holds no long-lived connection.
func (s *WeaviateStore) Close() error { return nil }
