package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchTotal   *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	points       *prometheus.HistogramVec
	lastClose    *prometheus.GaugeVec
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocklens_gateway_fetch_total",
				Help: "Gateway fetches by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stocklens_gateway_fetch_duration_seconds",
				Help:    "Gateway fetch duration including retries",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"op"},
		),
		points: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stocklens_series_points",
				Help:    "Points per returned series",
				Buckets: []float64{0, 10, 30, 60, 100, 250, 1000, 5000},
			},
			[]string{"symbol"},
		),
		lastClose: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stocklens_last_close",
				Help: "Last close price seen for a symbol",
			},
			[]string{"symbol"},
		),
		messagesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocklens_sink_messages_total",
				Help: "Series handed to a sink backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocklens_errors_total",
				Help: "Errors by kind",
			},
			[]string{"type"},
		),
	}
}

// RecordFetch counts a gateway call and observes its duration.
func (r *Recorder) RecordFetch(op, outcome string, seconds float64) {
	r.fetchTotal.WithLabelValues(op, outcome).Inc()
	r.fetchLatency.WithLabelValues(op).Observe(seconds)
}

// RecordPoints observes the length of a returned series.
func (r *Recorder) RecordPoints(symbol string, n int) {
	r.points.WithLabelValues(symbol).Observe(float64(n))
}

// RecordLastClose sets the last close gauge.
func (r *Recorder) RecordLastClose(symbol string, price float64) {
	r.lastClose.WithLabelValues(symbol).Set(price)
}

// RecordMessageSent records a series sent to a backend.
func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
