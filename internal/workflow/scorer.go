package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/54b3r/docqa-go/internal/logging"
)

// Scorer asks the model how relevant the retrieved passages are to the question.
type Scorer struct {
	completer Completer
	metrics   *Metrics
}

// NewScorer returns a Scorer backed by c. metrics may be nil.
func NewScorer(c Completer, metrics *Metrics) *Scorer {
	return &Scorer{completer: c, metrics: metrics}
}

// Score renders the scoring prompt, makes exactly one completion call, and
// parses the reply as a float.
//
// A reply that is not a number, and a completion call that fails while ctx is
// still live, both yield FallbackScore with a nil error. Only cancellation or
// expiry of ctx itself is returned as an error.
func (s *Scorer) Score(ctx context.Context, question string, passages []string) (float64, error) {
	log := logging.FromContext(ctx)

	p, err := RenderScoringPrompt(question, passages)
	if err != nil {
		return 0, err
	}

	reply, err := s.completer.Complete(ctx, p)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, fmt.Errorf("workflow: score: %w", ctxErr)
		}
		log.Warn("workflow: relevance call failed, using fallback score",
			slog.Float64("score", FallbackScore),
			slog.Any("error", err),
		)
		s.metrics.observeFallback(fallbackLLMError)
		return FallbackScore, nil
	}

	score, err := ParseScore(reply)
	var numErr *strconv.NumError
	switch {
	case errors.As(err, &numErr):
		log.Warn("workflow: relevance reply is not a number, using fallback score",
			slog.String("reply", truncate(reply, 80)),
			slog.Float64("score", FallbackScore),
		)
		s.metrics.observeFallback(fallbackUnparsable)
		return FallbackScore, nil
	case err != nil:
		return 0, fmt.Errorf("workflow: score: %w", err)
	}
	return score, nil
}

// ParseScore trims surrounding whitespace from a model reply and parses it as
// a 64-bit float. Failures are *strconv.NumError. A well-formed number too
// large for a float64 is not a failure: it parses to ±Inf, the same as "inf".
func ParseScore(reply string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if errors.Is(err, strconv.ErrRange) {
		return f, nil
	}
	return f, err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
