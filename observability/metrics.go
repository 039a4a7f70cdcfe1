package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConvertorMetrics bundles the collectors tracking pool activity and the
// settlement pipeline.
type ConvertorMetrics struct {
	conversions *prometheus.CounterVec
	settlements *prometheus.CounterVec
	inflight    prometheus.Gauge
	latency     *prometheus.HistogramVec
	errors      *prometheus.CounterVec
}

var (
	convertorMetricsOnce sync.Once
	convertorRegistry    *ConvertorMetrics
)

// Convertor returns the lazily-initialised metrics registry for the
// conversion ledger.
func Convertor() *ConvertorMetrics {
	convertorMetricsOnce.Do(func() {
		convertorRegistry = &ConvertorMetrics{
			conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "convertor",
				Subsystem: "pool",
				Name:      "conversions_total",
				Help:      "Count of pool conversions segmented by input asset and outcome.",
			}, []string{"token", "outcome"}),
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "convertor",
				Subsystem: "settlement",
				Name:      "acknowledgments_total",
				Help:      "Count of external transfer acknowledgments segmented by outcome.",
			}, []string{"outcome"}),
			inflight: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "convertor",
				Subsystem: "settlement",
				Name:      "transfers_inflight",
				Help:      "Number of dispatched external transfers awaiting acknowledgment.",
			}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "convertor",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for ledger HTTP handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "convertor",
				Subsystem: "http",
				Name:      "errors_total",
				Help:      "Count of failed ledger requests segmented by route and reason.",
			}, []string{"route", "reason"}),
		}
		prometheus.MustRegister(
			convertorRegistry.conversions,
			convertorRegistry.settlements,
			convertorRegistry.inflight,
			convertorRegistry.latency,
			convertorRegistry.errors,
		)
	})
	return convertorRegistry
}

// RecordConversion increments the conversion counter for the supplied input
// asset.
func (m *ConvertorMetrics) RecordConversion(token string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.conversions.WithLabelValues(labelToken(token), outcome).Inc()
}

// RecordSettlement tracks one acknowledgment and adjusts the in-flight gauge.
func (m *ConvertorMetrics) RecordSettlement(outcome string) {
	if m == nil {
		return
	}
	if outcome = strings.TrimSpace(outcome); outcome == "" {
		outcome = "unknown"
	}
	m.settlements.WithLabelValues(outcome).Inc()
	m.inflight.Dec()
}

// RecordDispatch raises the in-flight gauge when a transfer leaves the
// ledger.
func (m *ConvertorMetrics) RecordDispatch() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

// ObserveRequest records the execution of one HTTP handler.
func (m *ConvertorMetrics) ObserveRequest(route string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	if route = strings.TrimSpace(route); route == "" {
		route = "unknown"
	}
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
	if err != nil {
		reason := strings.TrimSpace(err.Error())
		if len(reason) > 64 {
			reason = reason[:64]
		}
		m.errors.WithLabelValues(route, reason).Inc()
	}
}

func labelToken(token string) string {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
