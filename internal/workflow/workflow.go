// Package workflow answers a question from retrieved passages in three steps:
// retrieve, score, and generate. Generation only happens when the model
// judges the passages relevant; otherwise the run ends without an answer.
//
// The steps are nodes of an eino compose graph:
//
//	START → retrieve → score ─┬─ score > 0.5 ─→ generate → END
//	                          └─ otherwise ────────────────→ END
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/compose"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/54b3r/docqa-go/internal/logging"
)

// DefaultTopK is the number of passages retrieved per question.
const DefaultTopK = 4

// Node names, also used as graph keys, span names and metric labels.
const (
	NodeRetrieve = "retrieve"
	NodeScore    = "score"
	NodeGenerate = "generate"
)

// Searcher returns up to k passages most similar to query, best first.
// An empty result is valid.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// Completer sends a prompt to a language model and returns its raw reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds the collaborators and tuning for a Workflow.
type Config struct {
	// Searcher supplies passages. Required.
	Searcher Searcher
	// Completer serves both the scoring and the answer call. Required.
	Completer Completer
	// TopK overrides DefaultTopK when positive.
	TopK int
	// Metrics is optional.
	Metrics *Metrics
}

// NodeError reports which node failed a run.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string { return fmt.Sprintf("workflow: %s: %v", e.Node, e.Err) }
func (e *NodeError) Unwrap() error { return e.Err }

// Workflow is a compiled question-answering graph. It holds no per-run state
// and is safe for concurrent use.
type Workflow struct {
	runnable  compose.Runnable[State, State]
	searcher  Searcher
	scorer    *Scorer
	generator *Generator
	topK      int
	metrics   *Metrics
	tracer    trace.Tracer
}

// New validates cfg and compiles the graph once.
func New(ctx context.Context, cfg Config) (*Workflow, error) {
	if cfg.Searcher == nil {
		return nil, fmt.Errorf("workflow: searcher must not be nil")
	}
	if cfg.Completer == nil {
		return nil, fmt.Errorf("workflow: completer must not be nil")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	w := &Workflow{
		searcher:  cfg.Searcher,
		scorer:    NewScorer(cfg.Completer, cfg.Metrics),
		generator: NewGenerator(cfg.Completer),
		topK:      topK,
		metrics:   cfg.Metrics,
		tracer:    otel.Tracer("github.com/54b3r/docqa-go/internal/workflow"),
	}

	g := compose.NewGraph[State, State]()
	if err := g.AddLambdaNode(NodeRetrieve, compose.InvokableLambda(w.node(NodeRetrieve, w.retrieve))); err != nil {
		return nil, fmt.Errorf("workflow: add %s node: %w", NodeRetrieve, err)
	}
	if err := g.AddLambdaNode(NodeScore, compose.InvokableLambda(w.node(NodeScore, w.score))); err != nil {
		return nil, fmt.Errorf("workflow: add %s node: %w", NodeScore, err)
	}
	if err := g.AddLambdaNode(NodeGenerate, compose.InvokableLambda(w.node(NodeGenerate, w.generate))); err != nil {
		return nil, fmt.Errorf("workflow: add %s node: %w", NodeGenerate, err)
	}
	if err := g.AddEdge(compose.START, NodeRetrieve); err != nil {
		return nil, fmt.Errorf("workflow: add edge: %w", err)
	}
	if err := g.AddEdge(NodeRetrieve, NodeScore); err != nil {
		return nil, fmt.Errorf("workflow: add edge: %w", err)
	}
	branch := compose.NewGraphBranch(route, map[string]bool{NodeGenerate: true, compose.END: true})
	if err := g.AddBranch(NodeScore, branch); err != nil {
		return nil, fmt.Errorf("workflow: add branch: %w", err)
	}
	if err := g.AddEdge(NodeGenerate, compose.END); err != nil {
		return nil, fmt.Errorf("workflow: add edge: %w", err)
	}

	r, err := g.Compile(ctx, compose.WithGraphName("docqa"))
	if err != nil {
		return nil, fmt.Errorf("workflow: compile graph: %w", err)
	}
	w.runnable = r
	return w, nil
}

// route picks the node after score.
func route(_ context.Context, s State) (string, error) {
	if ShouldGenerate(s.RelevanceScore) {
		return NodeGenerate, nil
	}
	return compose.END, nil
}

// runFailure records the first node error of a single run so Run can return
// it unchanged, whatever wrapping the graph runtime applies.
type runFailure struct{ err *NodeError }

type runFailureKey struct{}

// Run answers question. A run that ends without generating is not an error;
// its Result has Outcome Ended and an empty Answer. Retrieval and answer
// generation failures are returned as a *NodeError.
func (w *Workflow) Run(ctx context.Context, question string) (Result, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	ctx, span := w.tracer.Start(ctx, "workflow.run")
	defer span.End()

	failure := &runFailure{}
	ctx = context.WithValue(ctx, runFailureKey{}, failure)

	out, err := w.runnable.Invoke(ctx, NewState(question))
	if err != nil {
		if failure.err != nil {
			err = failure.err
		}
		w.metrics.observeRun("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("workflow: run failed",
			slog.Any("error", err),
			slog.Duration("elapsed", time.Since(start)),
		)
		return Result{}, err
	}

	res := Result{State: out, Outcome: Ended}
	if ShouldGenerate(out.RelevanceScore) {
		res.Outcome = Answered
	}
	w.metrics.observeRun(string(res.Outcome))
	span.SetAttributes(
		attribute.String("docqa.outcome", string(res.Outcome)),
		attribute.Float64("docqa.relevance_score", out.RelevanceScore),
		attribute.Int("docqa.passages", len(out.Context)),
	)
	log.Info("workflow: run complete",
		slog.String("outcome", string(res.Outcome)),
		slog.Float64("relevance_score", out.RelevanceScore),
		slog.Int("passages", len(out.Context)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// node wraps a step with a span, a duration metric, and failure capture.
func (w *Workflow) node(name string, fn func(context.Context, State) (State, error)) func(context.Context, State) (State, error) {
	return func(ctx context.Context, in State) (State, error) {
		start := time.Now()
		ctx, span := w.tracer.Start(ctx, "workflow."+name)
		defer span.End()
		defer w.metrics.observeNode(name, start)

		out, err := fn(ctx, in)
		if err != nil {
			nerr := &NodeError{Node: name, Err: err}
			var existing *NodeError
			if errors.As(err, &existing) {
				nerr = existing
			}
			if f, ok := ctx.Value(runFailureKey{}).(*runFailure); ok && f.err == nil {
				f.err = nerr
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return State{}, nerr
		}
		return out, nil
	}
}

func (w *Workflow) retrieve(ctx context.Context, s State) (State, error) {
	passages, err := w.searcher.Search(ctx, s.Question, w.topK)
	if err != nil {
		return State{}, err
	}
	if len(passages) > w.topK {
		passages = passages[:w.topK]
	}
	logging.FromContext(ctx).Debug("workflow: retrieved passages", slog.Int("count", len(passages)))
	return s.withContext(passages), nil
}

func (w *Workflow) score(ctx context.Context, s State) (State, error) {
	score, err := w.scorer.Score(ctx, s.Question, s.Context)
	if err != nil {
		return State{}, err
	}
	w.metrics.observeScore(score)
	logging.FromContext(ctx).Debug("workflow: scored relevance", slog.Float64("score", score))
	return s.withScore(score), nil
}

func (w *Workflow) generate(ctx context.Context, s State) (State, error) {
	answer, err := w.generator.Generate(ctx, s.Question, s.Context)
	if err != nil {
		return State{}, err
	}
	return s.withAnswer(answer), nil
}
