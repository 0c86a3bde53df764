// Package evaluation measures the question-answering workflow against a set
// of questions with known answers. Each answer and its retrieved passages are
// compared with the question and the ground truth by embedding similarity.
package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/54b3r/docqa-go/internal/journal"
	"github.com/54b3r/docqa-go/internal/logging"
	"github.com/54b3r/docqa-go/internal/rag"
	"github.com/54b3r/docqa-go/internal/workflow"
)

// DefaultConcurrency bounds how many cases run at once.
const DefaultConcurrency = 2

// ErrNoResults is returned when every case was skipped or failed.
var ErrNoResults = errors.New("evaluation: no case produced a result; ingest the document first")

// Asker runs one question through the workflow.
type Asker interface {
	Run(ctx context.Context, question string) (workflow.Result, error)
}

// Config holds the evaluator's collaborators.
type Config struct {
	// Concurrency overrides DefaultConcurrency when positive.
	Concurrency int
	// Journal receives one entry per case. Optional.
	Journal journal.Recorder
	Logger  *slog.Logger
}

// CaseResult holds the metrics for one question.
type CaseResult struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	GroundTruth string `json:"ground_truth"`
	Outcome     string `json:"outcome"`
	// RelevanceScore is nil when the scorer's value was not finite.
	RelevanceScore      *float64 `json:"agent_relevance_score"`
	RetrievalPrecision  float64  `json:"retrieval_precision"`
	RetrievalAccuracy   float64  `json:"retrieval_accuracy"`
	ContextualAccuracy  float64  `json:"contextual_accuracy"`
	ContextualPrecision float64  `json:"contextual_precision"`
}

// Metrics are the four averaged scores.
type Metrics struct {
	RetrievalPrecision  float64 `json:"retrieval_precision"`
	RetrievalAccuracy   float64 `json:"retrieval_accuracy"`
	ContextualAccuracy  float64 `json:"contextual_accuracy"`
	ContextualPrecision float64 `json:"contextual_precision"`
}

// Summary is the report written after a run.
type Summary struct {
	Document       string       `json:"document"`
	EvaluationDate time.Time    `json:"evaluation_date"`
	TestQuestions  int          `json:"test_questions"`
	Skipped        int          `json:"skipped"`
	Metrics        Metrics      `json:"metrics"`
	OverallScore   float64      `json:"overall_score"`
	Rating         string       `json:"rating"`
	Results        []CaseResult `json:"results"`
}

// Evaluator runs question sets through an Asker.
type Evaluator struct {
	asker    Asker
	embedder rag.Embedder
	cfg      Config
	log      *slog.Logger
}

// New returns an Evaluator. The embedder is used only for scoring and should
// be the one the documents were indexed with.
func New(asker Asker, emb rag.Embedder, cfg Config) (*Evaluator, error) {
	if asker == nil {
		return nil, errors.New("evaluation: asker must not be nil")
	}
	if emb == nil {
		return nil, errors.New("evaluation: embedder must not be nil")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Journal == nil {
		cfg.Journal = journal.Nop{}
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Evaluator{asker: asker, embedder: emb, cfg: cfg, log: log}, nil
}

// Run evaluates every case in set. Cases whose run fails or retrieves no
// passages are skipped and counted. Result order follows the set.
func (e *Evaluator) Run(ctx context.Context, set Set) (Summary, error) {
	results := make([]*CaseResult, len(set.Questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, c := range set.Questions {
		g.Go(func() error {
			res, err := e.runCase(gctx, c)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				e.log.Warn("evaluation case skipped",
					slog.Int("case", i+1),
					slog.String("question", c.Question),
					slog.Any("error", err),
				)
				return nil
			}
			results[i] = res
			e.log.Info("evaluation case done",
				slog.Int("case", i+1),
				slog.Float64("retrieval_precision", res.RetrievalPrecision),
				slog.Float64("retrieval_accuracy", res.RetrievalAccuracy),
				slog.Float64("contextual_accuracy", res.ContextualAccuracy),
				slog.Float64("contextual_precision", res.ContextualPrecision),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("evaluation: %w", err)
	}

	sum := Summary{
		Document:       set.Document,
		EvaluationDate: time.Now().UTC(),
	}
	var rp, ra, ca, cp []float64
	for _, r := range results {
		if r == nil {
			sum.Skipped++
			continue
		}
		sum.Results = append(sum.Results, *r)
		rp = append(rp, r.RetrievalPrecision)
		ra = append(ra, r.RetrievalAccuracy)
		ca = append(ca, r.ContextualAccuracy)
		cp = append(cp, r.ContextualPrecision)
	}
	sum.TestQuestions = len(sum.Results)
	if sum.TestQuestions == 0 {
		return sum, ErrNoResults
	}

	sum.Metrics = Metrics{
		RetrievalPrecision:  mean(rp),
		RetrievalAccuracy:   mean(ra),
		ContextualAccuracy:  mean(ca),
		ContextualPrecision: mean(cp),
	}
	sum.OverallScore = (sum.Metrics.RetrievalPrecision + sum.Metrics.RetrievalAccuracy +
		sum.Metrics.ContextualAccuracy + sum.Metrics.ContextualPrecision) / 4
	sum.Rating = Rating(sum.OverallScore)
	return sum, nil
}

// errNoPassages marks a case whose retrieval came back empty.
var errNoPassages = errors.New("no passages retrieved")

func (e *Evaluator) runCase(ctx context.Context, c Case) (*CaseResult, error) {
	start := time.Now()
	res, err := e.asker.Run(ctx, c.Question)
	entry := journal.EntryFor(journal.ChannelEval, c.Question, res, err, time.Since(start))
	if jerr := e.cfg.Journal.Record(context.WithoutCancel(ctx), entry); jerr != nil {
		e.log.Warn("journal write failed", slog.Any("error", jerr))
	}
	if err != nil {
		return nil, err
	}
	if len(res.Context) == 0 {
		return nil, errNoPassages
	}

	answer := workflow.PresentAnswer(res.State)

	// One batch: question, ground truth, answer, joined passages, then each
	// passage.
	texts := append([]string{c.Question, c.GroundTruth, answer, strings.Join(res.Context, " ")}, res.Context...)
	vecs, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed: got %d vectors for %d texts", len(vecs), len(texts))
	}
	question, truth, ans, joined := vecs[0], vecs[1], vecs[2], vecs[3]

	return &CaseResult{
		Question:            c.Question,
		Answer:              answer,
		GroundTruth:         c.GroundTruth,
		Outcome:             string(res.Outcome),
		RelevanceScore:      finite(res.RelevanceScore),
		RetrievalPrecision:  precision(question, vecs[4:]),
		RetrievalAccuracy:   Cosine(truth, joined),
		ContextualAccuracy:  Cosine(ans, truth),
		ContextualPrecision: Cosine(ans, question),
	}, nil
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// WriteSummary writes sum as indented JSON to path, creating parent
// directories.
func WriteSummary(path string, sum Summary) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("evaluation: create dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return fmt.Errorf("evaluation: encode summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("evaluation: write %s: %w", path, err)
	}
	return nil
}
