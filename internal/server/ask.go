package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/54b3r/docqa-go/internal/journal"
	"github.com/54b3r/docqa-go/internal/logging"
	"github.com/54b3r/docqa-go/internal/workflow"
)

// maxAskBody caps the JSON body of POST /api/ask.
const maxAskBody = 64 << 10

// handleAsk handles POST /api/ask. It runs the workflow once and returns the
// answer that should be shown to the user together with the relevance score.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromContext(ctx)

	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAskBody)).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(ctx, w, http.StatusBadRequest, "question is required")
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.AskTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.asker.Run(runCtx, question)
	elapsed := time.Since(start)

	// The journal write must outlive a client that has already gone away.
	if jerr := s.journal.Record(context.WithoutCancel(ctx), journal.EntryFor(journal.ChannelHTTP, question, res, err, elapsed)); jerr != nil {
		log.Warn("journal write failed", slog.Any("error", jerr))
	}

	if err != nil {
		outcome := "error"
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
			status = http.StatusGatewayTimeout
		}
		s.metrics.observeAsk(outcome, elapsed)

		var nodeErr *workflow.NodeError
		if errors.As(err, &nodeErr) {
			log.Error("ask failed", slog.String("node", nodeErr.Node), slog.Any("error", nodeErr.Err))
		} else {
			log.Error("ask failed", slog.Any("error", err))
		}
		writeError(ctx, w, status, err.Error())
		return
	}

	s.metrics.observeAsk(string(res.Outcome), elapsed)
	writeJSON(ctx, w, http.StatusOK, askResponse{
		Question:       question,
		Answer:         workflow.PresentAnswer(res.State),
		RelevanceScore: finite(res.RelevanceScore),
		Outcome:        string(res.Outcome),
	})
}

// finite returns a pointer to v, or nil when JSON cannot encode it.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
