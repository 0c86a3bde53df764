package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/54b3r/docqa-go/internal/ingestion"
	"github.com/54b3r/docqa-go/internal/logging"
)

// handleUpload handles POST /api/documents. The multipart field "file" holds
// a .pdf, .txt or .md document, which is split, embedded and stored.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || r.ContentLength > s.cfg.MaxUploadBytes {
			s.metrics.uploadsTotal.WithLabelValues("too_large").Inc()
			writeError(ctx, w, http.StatusRequestEntityTooLarge, fmt.Sprintf("document exceeds %d bytes", s.cfg.MaxUploadBytes))
			return
		}
		s.metrics.uploadsTotal.WithLabelValues("invalid").Inc()
		writeError(ctx, w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if _, err := ingestion.DetectType(name); err != nil {
		s.metrics.uploadsTotal.WithLabelValues("invalid").Inc()
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.metrics.uploadsTotal.WithLabelValues("invalid").Inc()
		writeError(ctx, w, http.StatusBadRequest, "could not read upload")
		return
	}

	res, err := s.ingester.IngestBytes(ctx, name, data)
	if err != nil {
		if errors.Is(err, ingestion.ErrUnsupportedType) || errors.Is(err, ingestion.ErrEmptyDocument) ||
			errors.Is(err, ingestion.ErrUnreadable) {
			s.metrics.uploadsTotal.WithLabelValues("invalid").Inc()
			writeError(ctx, w, http.StatusBadRequest, err.Error())
			return
		}
		s.metrics.uploadsTotal.WithLabelValues("error").Inc()
		log.Error("ingestion failed", slog.String("document", name), slog.Any("error", err))
		writeError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}

	s.metrics.uploadsTotal.WithLabelValues("ok").Inc()
	log.Info("document ingested", slog.String("document", name), slog.Int("chunks", res.Chunks))
	writeJSON(ctx, w, http.StatusOK, uploadResponse{
		Message: fmt.Sprintf("Document '%s' ingested successfully", name),
		Chunks:  res.Chunks,
	})
}
