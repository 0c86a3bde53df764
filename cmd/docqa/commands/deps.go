package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/docqa-go/internal/config"
	"github.com/54b3r/docqa-go/internal/embedder"
	"github.com/54b3r/docqa-go/internal/ingestion"
	"github.com/54b3r/docqa-go/internal/journal"
	"github.com/54b3r/docqa-go/internal/llm"
	"github.com/54b3r/docqa-go/internal/logging"
	"github.com/54b3r/docqa-go/internal/provider"
	"github.com/54b3r/docqa-go/internal/rag"
	"github.com/54b3r/docqa-go/internal/server"
	"github.com/54b3r/docqa-go/internal/workflow"
)

// env bundles the resolved settings with the logger built from them.
type env struct {
	settings config.Settings
	log      *slog.Logger
}

// loadEnv resolves settings and returns ctx carrying the configured logger.
func loadEnv(ctx context.Context) (context.Context, env, error) {
	s, err := config.Resolve()
	if err != nil {
		return ctx, env{}, err
	}
	log := logging.New(logging.Options{Level: s.Logging.Level, Format: s.Logging.Format})
	return logging.WithLogger(ctx, log), env{settings: s, log: log}, nil
}

// retrieval holds the embedding side shared by ask, ingest, serve and eval.
type retrieval struct {
	embedder rag.Embedder
	store    rag.VectorStore
}

func (r *retrieval) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// buildRetrieval validates the embedding settings, then connects to the
// configured vector store.
func buildRetrieval(ctx context.Context, e env) (*retrieval, error) {
	if err := embedder.Preflight(e.settings.Embedding, e.log); err != nil {
		return nil, err
	}
	emb, err := embedder.New(e.settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	store, err := buildStore(ctx, e.settings.Vector)
	if err != nil {
		return nil, err
	}
	e.log.Info("vector store ready",
		slog.String("backend", e.settings.Vector.Backend),
		slog.String("embedding_backend", e.settings.Embedding.Backend),
	)
	return &retrieval{embedder: emb, store: store}, nil
}

func buildStore(ctx context.Context, v config.VectorSettings) (rag.VectorStore, error) {
	switch v.Backend {
	case config.VectorWeaviate:
		s, err := rag.NewWeaviateStore(ctx, v.Weaviate)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Weaviate at %s: %w", v.Weaviate.Host, err)
		}
		return s, nil
	default:
		s, err := rag.NewQdrantStore(ctx, v.Qdrant)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", v.Qdrant.Host, v.Qdrant.Port, err)
		}
		return s, nil
	}
}

// buildWorkflow wires the chat model and retrieval into a compiled workflow.
// reg may be nil for one-shot commands.
func buildWorkflow(ctx context.Context, e env, r *retrieval, reg prometheus.Registerer) (*workflow.Workflow, error) {
	chatModel, err := provider.New(ctx, &e.settings.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	completer, err := llm.NewChatCompleter(chatModel, e.settings.Workflow.LLM, e.log)
	if err != nil {
		return nil, err
	}
	e.log.Info("provider initialised",
		slog.String("provider", string(e.settings.Model.Backend)),
		slog.String("model", e.settings.Model.ModelName()),
	)

	retriever, err := rag.NewRetriever(r.embedder, r.store, e.settings.Workflow.TopK)
	if err != nil {
		return nil, err
	}

	var metrics *workflow.Metrics
	if reg != nil {
		metrics = workflow.NewMetrics(reg)
	}
	return workflow.New(ctx, workflow.Config{
		Searcher:  rag.NewPassageSearcher(retriever),
		Completer: completer,
		TopK:      e.settings.Workflow.TopK,
		Metrics:   metrics,
	})
}

// buildPipeline constructs the ingestion pipeline over r.
func buildPipeline(e env, r *retrieval, reg prometheus.Registerer) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(r.embedder, r.store, ingestion.Config{
		ChunkSize:    e.settings.Chunking.Size,
		ChunkOverlap: e.settings.Chunking.Overlap,
		Registerer:   reg,
		Logger:       e.log,
	})
}

// openJournal opens the SQLite journal, falling back to a no-op recorder when
// it is disabled or cannot be opened. The returned func closes it.
func openJournal(e env) (journal.Recorder, func()) {
	path := e.settings.JournalPath
	if path == "" {
		e.log.Info("journal: disabled")
		return journal.Nop{}, func() {}
	}
	store, err := journal.Open(path)
	if err != nil {
		e.log.Warn("journal: failed to open, disabling", slog.String("path", path), slog.Any("error", err))
		return journal.Nop{}, func() {}
	}
	e.log.Debug("journal: opened", slog.String("path", path))
	return store, func() { _ = store.Close() }
}

// requireJournal opens the journal for read commands, which cannot fall back.
func requireJournal(e env) (*journal.Store, error) {
	if e.settings.JournalPath == "" {
		return nil, errors.New("journal is disabled (DOCQA_JOURNAL_DB=disabled)")
	}
	return journal.Open(e.settings.JournalPath)
}

// buildPingers returns the readiness probes for the chat provider and the
// vector store.
func buildPingers(e env, r *retrieval) []server.Pinger {
	return []server.Pinger{
		provider.NewHealthChecker(&e.settings.Model),
		server.NewPinger(e.settings.Vector.Backend, r.store.Ping),
	}
}
