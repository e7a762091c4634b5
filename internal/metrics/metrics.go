// Package metrics holds the Prometheus collectors for extraction, matching, and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Extraction outcomes.
const (
	OutcomeReal        = "real"
	OutcomeCached      = "cached"
	OutcomePlaceholder = "placeholder"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	extractions     *prometheus.CounterVec
	extractDuration prometheus.Histogram
	modelLoads      *prometheus.CounterVec
	scores          prometheus.Histogram
	items           *prometheus.GaugeVec
	apiRequests     *prometheus.CounterVec
	apiDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		extractions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otoshimono_feature_extractions_total",
				Help: "Feature extractions by outcome",
			},
			[]string{"outcome"},
		),
		extractDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "otoshimono_feature_extraction_duration_seconds",
				Help:    "Feature extraction latency, including image fetch",
				Buckets: prometheus.DefBuckets,
			},
		),
		modelLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otoshimono_model_loads_total",
				Help: "Embedding model load attempts by result",
			},
			[]string{"result"},
		),
		scores: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "otoshimono_similarity_score",
				Help:    "Distribution of similarity scores (percent)",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
		items: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "otoshimono_indexed_items",
				Help: "Items with real feature vectors in the match index",
			},
			[]string{"kind"},
		),
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otoshimono_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"route", "method", "status"},
		),
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "otoshimono_api_duration_seconds",
				Help:    "API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.extractions, m.extractDuration, m.modelLoads, m.scores, m.items, m.apiRequests, m.apiDuration)
	}
	return m
}

// ObserveExtraction records one extraction with its outcome and latency.
func (m *Metrics) ObserveExtraction(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(outcome).Inc()
	m.extractDuration.Observe(d.Seconds())
}

// ObserveModelLoad records a model load attempt. Shaped to be passed as a load hook.
func (m *Metrics) ObserveModelLoad(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.modelLoads.WithLabelValues(result).Inc()
}

// ObserveScore records a computed similarity score.
func (m *Metrics) ObserveScore(score int) {
	if m == nil {
		return
	}
	m.scores.Observe(float64(score))
}

// SetIndexedItems sets the number of matchable items of a kind.
func (m *Metrics) SetIndexedItems(kind string, n int) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(kind).Set(float64(n))
}

// ObserveRequest records a finished API request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.apiDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// Handler serves the metrics gathered by g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
