// Package metrics exposes Prometheus instrumentation for the analysis
// pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "plancost"

// Page outcomes.
const (
	PageAnalyzed    = "analyzed"
	PageFailed      = "failed"
	PageUnparseable = "unparseable"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and
// records nothing.
//
// Metrics:
//   - plancost_analyses_total{mode,outcome}
//   - plancost_analysis_duration_seconds{mode}
//   - plancost_pages_total{outcome}
//   - plancost_images_skipped_total{reason}
//   - plancost_llm_retries_total
//   - plancost_synthesized_categories_total{category}
type Metrics struct {
	AnalysesTotal        *prometheus.CounterVec
	AnalysisDuration     *prometheus.HistogramVec
	PagesTotal           *prometheus.CounterVec
	ImagesSkippedTotal   *prometheus.CounterVec
	LLMRetriesTotal      prometheus.Counter
	SynthesizedCategories *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Total number of analyses by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		AnalysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Duration of analyses in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"mode"},
		),
		PagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_total",
				Help:      "Total number of plan pages processed by outcome",
			},
			[]string{"outcome"},
		),
		ImagesSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "images_skipped_total",
				Help:      "Total number of images skipped before analysis",
			},
			[]string{"reason"},
		),
		LLMRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_retries_total",
				Help:      "Total number of retried vision model calls",
			},
		),
		SynthesizedCategories: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "synthesized_categories_total",
				Help:      "Total number of categories estimated from benchmarks",
			},
			[]string{"category"},
		),
	}
}

// ObserveAnalysis records one finished analysis.
func (m *Metrics) ObserveAnalysis(mode string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.AnalysesTotal.WithLabelValues(mode, outcome).Inc()
	m.AnalysisDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// Page records the outcome of one page.
func (m *Metrics) Page(outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

// ImageSkipped records an image left out, by reason ("too_large",
// "not_image", "fetch_error").
func (m *Metrics) ImageSkipped(reason string) {
	if m == nil {
		return
	}
	m.ImagesSkippedTotal.WithLabelValues(reason).Inc()
}

// Retry records one retried model call.
func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.LLMRetriesTotal.Inc()
}

// Synthesized records categories estimated from benchmarks.
func (m *Metrics) Synthesized(names ...string) {
	if m == nil {
		return
	}
	for _, n := range names {
		m.SynthesizedCategories.WithLabelValues(n).Inc()
	}
}
