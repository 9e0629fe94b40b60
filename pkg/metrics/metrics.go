// Package metrics defines the Prometheus instruments shared by the server
// and worker binaries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds counters and histograms for the analysis pipeline.
type BusinessMetrics struct {
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	AnswersTotal     *prometheus.CounterVec
	QueueWaitTime    prometheus.Histogram
}

// NewBusinessMetrics registers the pipeline metrics under the given
// namespace using the default registerer.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	return NewBusinessMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewBusinessMetricsWith registers the pipeline metrics with an explicit
// registerer. Tests pass a fresh registry to avoid duplicate registration.
func NewBusinessMetricsWith(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	factory := promauto.With(reg)
	return &BusinessMetrics{
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of text analyses by outcome.",
		}, []string{"status"}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent running a single text analysis.",
			Buckets:   prometheus.DefBuckets,
		}),
		AnswersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Total number of answered questions by source.",
		}, []string{"source"}),
		QueueWaitTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_wait_seconds",
			Help:      "Time a batch job spent queued before a worker picked it up.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
	}
}
