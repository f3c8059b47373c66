package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	extractedFields *prometheus.HistogramVec
	detectedErrors  *prometheus.HistogramVec
	inferenceTotal  *prometheus.CounterVec
	uploadsTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docv",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docv",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docv",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	extractedFields := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docv",
			Subsystem: "pipeline",
			Name:      "extracted_fields",
			Help:      "Distribution of extracted fields per processed document.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	detectedErrors := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docv",
			Subsystem: "pipeline",
			Name:      "detected_errors",
			Help:      "Distribution of detected compliance errors per analysis run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	inferenceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docv",
			Subsystem: "pipeline",
			Name:      "inference_total",
			Help:      "Total inference runs by operation and outcome.",
		},
		[]string{"service", "operation", "status"},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docv",
			Subsystem: "pipeline",
			Name:      "uploads_total",
			Help:      "Total accepted document uploads by type.",
		},
		[]string{"service", "document_type"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		extractedFields,
		detectedErrors,
		inferenceTotal,
		uploadsTotal,
	)

	return &HTTPServerMetrics{
		registry:        registry,
		service:         service,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		extractedFields: extractedFields,
		detectedErrors:  detectedErrors,
		inferenceTotal:  inferenceTotal,
		uploadsTotal:    uploadsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/v1/errors/"):
		return "/v1/errors/{error_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordExtraction(fieldCount int) {
	m.extractedFields.WithLabelValues(m.service).Observe(float64(fieldCount))
}

func (m *HTTPServerMetrics) RecordAnalysis(errorCount int) {
	m.detectedErrors.WithLabelValues(m.service).Observe(float64(errorCount))
}

func (m *HTTPServerMetrics) RecordInference(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.inferenceTotal.WithLabelValues(m.service, operation, status).Inc()
}

func (m *HTTPServerMetrics) RecordUpload(documentType string) {
	m.uploadsTotal.WithLabelValues(m.service, documentType).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
