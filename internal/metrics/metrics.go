package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed analyses.
	OutcomeSuccess = "success"
	// OutcomeError labels analyses that failed in the pipeline or a dependency.
	OutcomeError = "error"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warroom_rca",
			Name:      "analyses_total",
			Help:      "Total number of batch analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "warroom_rca",
			Name:      "analysis_seconds",
			Help:      "Batch analysis latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 4, 5, 8},
		},
	)

	recordsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warroom_rca",
			Name:      "records_skipped_total",
			Help:      "Malformed records skipped during ingestion, partitioned by record kind.",
		},
		[]string{"kind"},
	)
)

// Register attaches warroom-rca collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		recordsSkippedTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records an analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// AddSkipped counts malformed records dropped during ingestion so skipped
// data stays observable.
func AddSkipped(kind string, count int) {
	if count <= 0 {
		return
	}
	recordsSkippedTotal.WithLabelValues(kind).Add(float64(count))
}
