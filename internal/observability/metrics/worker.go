package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal      *prometheus.CounterVec
	processDuration   *prometheus.HistogramVec
	processInFlight   prometheus.Gauge
	terminalStatus    *prometheus.CounterVec
	chunkStoreFailure *prometheus.CounterVec
	queueLag          *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragline",
			Subsystem: "worker",
			Name:      "document_process_total",
			Help:      "Total processed documents by outcome.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragline",
			Subsystem: "worker",
			Name:      "document_process_duration_seconds",
			Help:      "Document processing duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ragline",
			Subsystem: "worker",
			Name:      "document_process_in_flight",
			Help:      "Number of in-flight document pipeline runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	terminalStatus := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragline",
			Subsystem: "worker",
			Name:      "document_terminal_status_total",
			Help:      "Documents parked in a terminal status, by status.",
		},
		[]string{"service", "status"},
	)
	chunkStoreFailure := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragline",
			Subsystem: "worker",
			Name:      "chunk_store_failures_total",
			Help:      "Chunk writes that failed and were skipped.",
		},
		[]string{"service"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragline",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between document creation and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, terminalStatus, chunkStoreFailure, queueLag)

	return &WorkerMetrics{
		registry:          registry,
		processTotal:      processTotal,
		processDuration:   processDuration,
		processInFlight:   processInFlight,
		terminalStatus:    terminalStatus,
		chunkStoreFailure: chunkStoreFailure,
		queueLag:          queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordTerminalStatus(service, status string) {
	m.terminalStatus.WithLabelValues(service, status).Inc()
}

func (m *WorkerMetrics) RecordChunkStoreFailure(service string) {
	m.chunkStoreFailure.WithLabelValues(service).Inc()
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
