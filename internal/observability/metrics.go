package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	ObservationsConsumed prometheus.Counter
	ObservationsStored   prometheus.Counter
	ParseErrors          prometheus.Counter
	CurvesPublished      prometheus.Counter
	PipelineRunning      prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Analysis metrics.
	FitRequests  *prometheus.CounterVec // labels: outcome={success,validation_error,arithmetic_error,fit_error}
	FitDuration  prometheus.Histogram
	CurveQueries prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ObservationsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_freq",
			Name:      "observations_consumed_total",
			Help:      "Total gauge records read from the source topic.",
		}),
		ObservationsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_freq",
			Name:      "observations_stored_total",
			Help:      "Total peak observations accepted into the station store.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_freq",
			Name:      "parse_errors_total",
			Help:      "Total gauge records rejected during parsing.",
		}),
		CurvesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_freq",
			Name:      "curves_published_total",
			Help:      "Total fitted curves written to the sink topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_freq",
			Name:      "pipeline_running",
			Help:      "1 when the ingest pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_freq",
			Name:      "batch_size",
			Help:      "Number of gauge records per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_freq",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-parse-store cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		FitRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_freq",
			Name:      "fit_requests_total",
			Help:      "Curve fit requests by outcome.",
		}, []string{"outcome"}),
		FitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_freq",
			Name:      "fit_duration_seconds",
			Help:      "Duration of a least-squares curve fit.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		CurveQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_freq",
			Name:      "curve_queries_total",
			Help:      "Total quantile and exceedance lookups served.",
		}),
	}

	prometheus.MustRegister(
		m.ObservationsConsumed,
		m.ObservationsStored,
		m.ParseErrors,
		m.CurvesPublished,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.FitRequests,
		m.FitDuration,
		m.CurveQueries,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ObservationsConsumed:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_freq", Name: "observations_consumed_total"}),
		ObservationsStored:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_freq", Name: "observations_stored_total"}),
		ParseErrors:             prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_freq", Name: "parse_errors_total"}),
		CurvesPublished:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_freq", Name: "curves_published_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_freq", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "flood_freq", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "flood_freq", Name: "batch_processing_duration_seconds"}),
		FitRequests:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_freq", Name: "fit_requests_total"}, []string{"outcome"}),
		FitDuration:             prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "flood_freq", Name: "fit_duration_seconds"}),
		CurveQueries:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_freq", Name: "curve_queries_total"}),
	}
}
