package workflow

import (
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Score fallback reasons.
const (
	fallbackUnparsable = "unparsable"
	fallbackLLMError   = "llm_error"
)

// Metrics holds the workflow's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	runs      *prometheus.CounterVec
	scores    prometheus.Histogram
	fallbacks *prometheus.CounterVec
	nodes     *prometheus.HistogramVec
}

// NewMetrics registers the workflow collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Workflow runs by terminal outcome (answered, ended, error).",
		}, []string{"outcome"}),
		scores: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "workflow",
			Name:      "relevance_score",
			Help:      "Relevance scores assigned by the score node.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "workflow",
			Name:      "score_fallbacks_total",
			Help:      "Relevance judgments replaced by the fallback score, by reason.",
		}, []string{"reason"}),
		nodes: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "workflow",
			Name:      "node_duration_seconds",
			Help:      "Time spent in each workflow node.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node"}),
	}
}

func (m *Metrics) observeRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeScore(score float64) {
	if m == nil || math.IsNaN(score) {
		return
	}
	m.scores.Observe(score)
}

func (m *Metrics) observeFallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) observeNode(node string, start time.Time) {
	if m == nil {
		return
	}
	m.nodes.WithLabelValues(node).Observe(time.Since(start).Seconds())
}
