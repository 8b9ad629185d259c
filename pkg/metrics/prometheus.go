package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	errorsTotal      *prometheus.CounterVec
	latency          *prometheus.HistogramVec
	datasetRecords   prometheus.Gauge
	datasetItems     prometheus.Gauge
	trainingOutcomes *prometheus.CounterVec
	modelScore       *prometheus.GaugeVec
	cacheResults     *prometheus.CounterVec
}

// New creates a recorder registered on reg; nil means the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		datasetRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "stockcast_dataset_records",
			Help: "Records in the currently cached historical dataset",
		}),
		datasetItems: f.NewGauge(prometheus.GaugeOpts{
			Name: "stockcast_dataset_items",
			Help: "Distinct items in the currently cached historical dataset",
		}),
		trainingOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_training_items_total",
				Help: "Per-item training outcomes",
			},
			[]string{"outcome"},
		),
		modelScore: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockcast_model_score",
				Help: "Held-out R2 of the accepted model per item",
			},
			[]string{"item", "model"},
		),
		cacheResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_cache_requests_total",
				Help: "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordDatasetSize(records, items int) {
	r.datasetRecords.Set(float64(records))
	r.datasetItems.Set(float64(items))
}

func (r *Recorder) RecordTrainingOutcome(outcome string) {
	r.trainingOutcomes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordModelScore(item, kind string, score float64) {
	r.modelScore.WithLabelValues(item, kind).Set(score)
}

// RecordCacheResult counts a hit or miss on the named cache.
func (r *Recorder) RecordCacheResult(cache, result string) {
	r.cacheResults.WithLabelValues(cache, result).Inc()
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) RecordError(string)                       {}
func (Noop) RecordLatency(string, float64)            {}
func (Noop) RecordDatasetSize(int, int)               {}
func (Noop) RecordTrainingOutcome(string)             {}
func (Noop) RecordModelScore(string, string, float64) {}
func (Noop) RecordCacheResult(string, string)         {}
