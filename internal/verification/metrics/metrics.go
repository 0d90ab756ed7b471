package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the verification module: uploads, reviewer decisions,
// submissions and the evaluation cache. All methods are safe on a nil receiver.
type Metrics struct {
	DocumentsUploaded  *prometheus.CounterVec
	Decisions          *prometheus.CounterVec
	Submissions        *prometheus.CounterVec
	EvaluationCache    *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	StaleRefreshes     *prometheus.CounterVec
}

// New registers the module metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DocumentsUploaded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_documents_uploaded_total",
			Help: "Documents accepted for review, by type",
		}, []string{"type"}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_document_decisions_total",
			Help: "Reviewer decisions by decision and outcome",
		}, []string{"decision", "outcome"}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_profile_submissions_total",
			Help: "Submission attempts by role and outcome",
		}, []string{"role", "outcome"}),
		EvaluationCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_evaluation_cache_total",
			Help: "Evaluation reads by cache result (hit, refreshed, stale, unavailable)",
		}, []string{"result"}),
		EvaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "verigate_evaluation_refresh_duration_seconds",
			Help:    "Duration of fetching evidence and evaluating one role",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		StaleRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verigate_stale_refreshes_total",
			Help: "Background refreshes of stale evaluations by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementUploaded(docType string) {
	if m == nil {
		return
	}
	m.DocumentsUploaded.WithLabelValues(docType).Inc()
}

func (m *Metrics) IncrementDecision(decision, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision, outcome).Inc()
}

func (m *Metrics) IncrementSubmission(role, outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(role, outcome).Inc()
}

func (m *Metrics) IncrementCache(result string) {
	if m == nil {
		return
	}
	m.EvaluationCache.WithLabelValues(result).Inc()
}

// ObserveEvaluation records a refresh started at start.
func (m *Metrics) ObserveEvaluation(start time.Time) {
	if m == nil {
		return
	}
	m.EvaluationDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementStaleRefresh(outcome string) {
	if m == nil {
		return
	}
	m.StaleRefreshes.WithLabelValues(outcome).Inc()
}
