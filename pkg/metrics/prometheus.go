// Package metrics exports per-session beam-search counters in
// Prometheus text format, adapted from the teacher's probe/attempt
// exporter to this domain's iteration/candidate/comparison vocabulary.
package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
)

// Metrics tracks one session's beam-search execution statistics (spec
// §4.H, §4.B, §4.D).
type Metrics struct {
	IterationsRun       int64
	CandidatesGenerated int64
	CandidatesFailed    int64
	ComparisonsDirect   int64
	ComparisonsInferred int64
	GPULockWaitMillis   int64
}

// PrometheusExporter exports Metrics in Prometheus text format.
type PrometheusExporter struct {
	metrics *Metrics
}

// NewPrometheusExporter creates a new Prometheus exporter over m.
func NewPrometheusExporter(m *Metrics) *PrometheusExporter {
	return &PrometheusExporter{metrics: m}
}

// Export returns metrics in Prometheus text format.
func (e *PrometheusExporter) Export() string {
	var b strings.Builder

	iterationsRun := atomic.LoadInt64(&e.metrics.IterationsRun)
	candidatesGenerated := atomic.LoadInt64(&e.metrics.CandidatesGenerated)
	candidatesFailed := atomic.LoadInt64(&e.metrics.CandidatesFailed)
	comparisonsDirect := atomic.LoadInt64(&e.metrics.ComparisonsDirect)
	comparisonsInferred := atomic.LoadInt64(&e.metrics.ComparisonsInferred)
	gpuLockWaitMillis := atomic.LoadInt64(&e.metrics.GPULockWaitMillis)

	fmt.Fprintf(&b, "imagerefine_iterations_run %d\n", iterationsRun)

	fmt.Fprintf(&b, "imagerefine_candidates_total{status=\"generated\"} %d\n", candidatesGenerated)
	fmt.Fprintf(&b, "imagerefine_candidates_total{status=\"failed\"} %d\n", candidatesFailed)

	fmt.Fprintf(&b, "imagerefine_comparisons_total{source=\"direct\"} %d\n", comparisonsDirect)
	fmt.Fprintf(&b, "imagerefine_comparisons_total{source=\"inferred\"} %d\n", comparisonsInferred)

	var candidateFailureRate float64
	total := candidatesGenerated + candidatesFailed
	if total > 0 {
		candidateFailureRate = float64(candidatesFailed) / float64(total)
	}
	fmt.Fprintf(&b, "imagerefine_candidate_failure_rate %s\n", formatFloat(candidateFailureRate))

	fmt.Fprintf(&b, "imagerefine_gpu_lock_wait_milliseconds %d\n", gpuLockWaitMillis)

	return b.String()
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, e.Export())
	})
}

// formatFloat formats a float64 for Prometheus (removes trailing zeros).
func formatFloat(f float64) string {
	if f == 0.0 {
		return "0"
	}
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
