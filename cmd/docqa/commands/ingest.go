package commands

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/ingestion"
)

// NewIngestCmd constructs `docqa ingest`, which loads documents from disk or
// the web, splits them into chunks and indexes them in the vector store.
func NewIngestCmd() *cobra.Command {
	var files []string
	var urls []string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index documents in the vector store",
		Long: `Load one or more documents, split them into overlapping chunks, embed the
chunks and upsert them into the vector store. Supported types are .pdf, .txt
and .md. Re-ingesting a document overwrites its chunks.

Examples:
  docqa ingest --file ./python-oop.pdf
  docqa ingest --file notes.md --file glossary.txt
  docqa ingest --url https://example.com/guide.md`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(files) == 0 && len(urls) == 0 {
				return fmt.Errorf("ingest: at least one --file or --url is required")
			}

			ctx, e, err := loadEnv(cmd.Context())
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			r, err := buildRetrieval(ctx, e)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer r.Close()

			pipeline, err := buildPipeline(e, r, prometheus.NewRegistry())
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			total := 0
			report := func(res ingestion.Result) {
				total += res.Chunks
				e.log.Info("document ingested",
					slog.String("document", res.Name),
					slog.String("content_type", res.ContentType),
					slog.Int("chunks", res.Chunks),
				)
				fmt.Fprintf(cmd.OutOrStdout(), "Document '%s' ingested successfully (%d chunks)\n", res.Name, res.Chunks)
			}

			for _, f := range files {
				res, err := pipeline.IngestFile(ctx, f)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				report(res)
			}
			for _, u := range urls {
				res, err := pipeline.IngestURL(ctx, u)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				report(res)
			}

			e.log.Info("ingestion complete", slog.Int("documents", len(files)+len(urls)), slog.Int("chunks", total))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Local document to ingest (repeatable)")
	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "Document URL to ingest (repeatable)")

	return cmd
}
