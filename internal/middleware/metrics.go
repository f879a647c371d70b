package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	messagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialog_bot_messages_received_total",
		Help: "Total number of messages received",
	})

	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dialog_bot_messages_processed_total",
		Help: "Total number of messages processed",
	}, []string{"status"})

	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dialog_bot_commands_executed_total",
		Help: "Total number of commands executed",
	}, []string{"command"})

	messagesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dialog_bot_messages_rejected_total",
		Help: "Total number of messages rejected before inference",
	}, []string{"reason"})

	inferenceRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dialog_bot_inference_request_duration_seconds",
		Help:    "Duration of inference requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	inferenceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dialog_bot_inference_requests_total",
		Help: "Total number of inference requests",
	}, []string{"status"})

	rateLimitExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialog_bot_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	})

	contextsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialog_bot_contexts_swept_total",
		Help: "Total number of expired dialog contexts removed",
	})

	activeContexts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dialog_bot_active_contexts",
		Help: "Number of active dialog contexts",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordMessageReceived records a received message
func (m *Metrics) RecordMessageReceived() {
	messagesReceived.Inc()
}

// RecordMessageProcessed records a processed message
func (m *Metrics) RecordMessageProcessed(status string) {
	messagesProcessed.WithLabelValues(status).Inc()
}

// RecordCommandExecuted records an executed command
func (m *Metrics) RecordCommandExecuted(command string) {
	commandsExecuted.WithLabelValues(command).Inc()
}

// RecordMessageRejected records a message stopped by validation or the
// content gate.
func (m *Metrics) RecordMessageRejected(reason string) {
	messagesRejected.WithLabelValues(reason).Inc()
}

// RecordInferenceRequest records an inference round trip
func (m *Metrics) RecordInferenceRequest(status string, duration time.Duration) {
	inferenceRequestDuration.WithLabelValues(status).Observe(duration.Seconds())
	inferenceRequestsTotal.WithLabelValues(status).Inc()
}

// RecordRateLimitExceeded records a rate limit exceeded event
func (m *Metrics) RecordRateLimitExceeded() {
	rateLimitExceeded.Inc()
}

// RecordContextsSwept records removed expired contexts
func (m *Metrics) RecordContextsSwept(count int) {
	contextsSwept.Add(float64(count))
}

// SetActiveContexts sets the active dialog context gauge
func (m *Metrics) SetActiveContexts(count int) {
	activeContexts.Set(float64(count))
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
