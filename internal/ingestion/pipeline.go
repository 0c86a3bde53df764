// Package ingestion turns source documents into searchable chunks. It loads
// PDF, plain text and Markdown files (from disk, HTTP uploads or URLs), splits
// them with a recursive character splitter, embeds each chunk and upserts the
// results into the vector store. The `docqa ingest` command and the upload
// endpoint both drive a [Pipeline].
package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/docqa-go/internal/rag"
)

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk. Defaults to 1000.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive chunks.
	// Defaults to 200.
	ChunkOverlap int

	// BatchSize is the number of chunks embedded per request. Defaults to 64.
	BatchSize int

	// HTTPTimeout bounds each URL fetch. Defaults to 30s.
	HTTPTimeout time.Duration

	// MaxFetchBytes caps the body read from a URL. Defaults to 32 MiB.
	MaxFetchBytes int64

	// UserAgent is sent with URL fetches.
	UserAgent string

	// Registerer receives the ingestion counters. Nil disables metrics.
	Registerer prometheus.Registerer

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Result summarises one ingested document.
type Result struct {
	Name        string
	ContentType string
	Chunks      int
}

// Pipeline orchestrates the load → split → embed → upsert flow.
type Pipeline struct {
	embedder   rag.Embedder
	store      rag.VectorStore
	splitter   *Splitter
	cfg        Config
	httpClient *http.Client
	chunks     *prometheus.CounterVec
	log        *slog.Logger
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.MaxFetchBytes <= 0 {
		cfg.MaxFetchBytes = 32 << 20
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "docqa-go/1.0 (document ingestion)"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	p := &Pipeline{
		embedder:   embedder,
		store:      store,
		splitter:   NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		log:        cfg.Logger,
	}
	if cfg.Registerer != nil {
		p.chunks = promauto.With(cfg.Registerer).NewCounterVec(prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Chunks upserted into the vector store, by content type.",
		}, []string{"content_type"})
	}
	return p, nil
}

// IngestBytes loads, splits, embeds and stores one document held in memory.
// name selects the decoder by extension and is recorded as the chunk source.
func (p *Pipeline) IngestBytes(ctx context.Context, name string, data []byte) (Result, error) {
	doc, err := Load(name, data)
	if err != nil {
		return Result{}, err
	}
	return p.ingest(ctx, doc)
}

// IngestFile reads a document from disk and ingests it under its base name.
func (p *Pipeline) IngestFile(ctx context.Context, filePath string) (Result, error) {
	if _, err := DetectType(filePath); err != nil {
		return Result{}, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("ingestion: reading %s: %w", filePath, err)
	}
	return p.IngestBytes(ctx, filepath.Base(filePath), data)
}

// IngestURL fetches a document over HTTP(S) and ingests it. The URL path's
// extension picks the decoder; paths without one are treated as text.
func (p *Pipeline) IngestURL(ctx context.Context, rawURL string) (Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Result{}, fmt.Errorf("ingestion: %q is not an http(s) URL", rawURL)
	}

	name := path.Base(u.Path)
	if path.Ext(name) == "" {
		name += ".txt"
	}
	if _, err := DetectType(name); err != nil {
		return Result{}, err
	}

	data, err := p.fetch(ctx, rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("ingestion: fetch failed for %s: %w", rawURL, err)
	}

	doc, err := Load(name, data)
	if err != nil {
		return Result{}, err
	}
	doc.Name = rawURL
	return p.ingest(ctx, doc)
}

func (p *Pipeline) ingest(ctx context.Context, doc Loaded) (Result, error) {
	chunks := p.splitter.Split(doc.Text)
	log := p.log.With(slog.String("source", doc.Name), slog.String("content_type", doc.ContentType))
	log.Info("document split", slog.Int("chunks", len(chunks)))

	for start := 0; start < len(chunks); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(chunks))
		batch := chunks[start:end]

		embeddings, err := p.embedder.Embed(ctx, batch)
		if err != nil {
			return Result{}, fmt.Errorf("ingestion: embedding failed for %s: %w", doc.Name, err)
		}
		if len(embeddings) != len(batch) {
			return Result{}, fmt.Errorf("ingestion: embedder returned %d vectors for %d chunks", len(embeddings), len(batch))
		}

		docs := make([]rag.Document, len(batch))
		for i, text := range batch {
			idx := start + i
			docs[i] = rag.Document{
				ID:      ChunkID(doc.Name, idx),
				Content: text,
				Source:  doc.Name,
				Metadata: map[string]string{
					rag.MetaContentType: doc.ContentType,
					rag.MetaChunkIndex:  strconv.Itoa(idx),
				},
			}
		}

		if err := p.store.Upsert(ctx, docs, embeddings); err != nil {
			return Result{}, fmt.Errorf("ingestion: upsert failed for %s: %w", doc.Name, err)
		}
		log.Debug("batch stored", slog.Int("from", start), slog.Int("to", end))
	}

	if p.chunks != nil {
		p.chunks.WithLabelValues(doc.ContentType).Add(float64(len(chunks)))
	}
	log.Info("document ingested", slog.Int("chunks", len(chunks)))
	return Result{Name: doc.Name, ContentType: doc.ContentType, Chunks: len(chunks)}, nil
}

// fetch retrieves the raw body of a URL.
func (p *Pipeline) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.cfg.MaxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(body)) > p.cfg.MaxFetchBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", p.cfg.MaxFetchBytes)
	}
	return body, nil
}

// chunkNamespace scopes chunk IDs to this service.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/54b3r/docqa-go/chunks"))

// ChunkID derives a stable UUID for chunk index of source, so re-ingesting
// the same document overwrites its previous chunks.
func ChunkID(source string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(source+"#"+strconv.Itoa(index))).String()
}
