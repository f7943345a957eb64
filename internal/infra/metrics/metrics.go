// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_requests_total",
			Help: "Pipeline requests by terminal status (completed/failed).",
		},
		[]string{"status"},
	)

	requestRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_retries_total",
			Help: "Retry dispatches by mode (step/all).",
		},
		[]string{"mode"},
	)

	stepLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_step_latency_ms",
			Help:    "Step execution latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000, 60000},
		},
		[]string{"step", "success"},
	)

	stepFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_step_failures_total",
			Help: "Failed step executions per step type.",
		},
		[]string{"step"},
	)

	notifyDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "done_notify_deliveries_total",
			Help: "Done-notification deliveries by target (chat/helpdesk) and outcome.",
		},
		[]string{"target", "success"},
	)

	adapterCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adapter_calls_latency_ms",
			Help:    "External adapter call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000, 60000},
		},
		[]string{"service", "success"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			requestsTotal, requestRetries,
			stepLatencyMs, stepFailures,
			notifyDeliveries, adapterCallsLatencyMs,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// -------- Pipeline helpers --------

func IncRequest(status string) {
	requestsTotal.WithLabelValues(norm(status)).Inc()
}

func IncRetry(mode string) {
	requestRetries.WithLabelValues(norm(mode)).Inc()
}

func ObserveStep(step string, latencyMs int64, success bool) {
	stepLatencyMs.WithLabelValues(norm(step), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
	if !success {
		stepFailures.WithLabelValues(norm(step)).Inc()
	}
}

// -------- Notifier helpers --------

func IncNotifyDelivery(target string, success bool) {
	notifyDeliveries.WithLabelValues(norm(target), strconv.FormatBool(success)).Inc()
}

// -------- Adapter helpers --------

func ObserveAdapterCall(service string, latencyMs int64, success bool) {
	adapterCallsLatencyMs.WithLabelValues(norm(service), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}
