package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	askTotal           *prometheus.CounterVec
	askDuration        *prometheus.HistogramVec
	retrievalHitTotal  *prometheus.CounterVec
	noContextTotal     *prometheus.CounterVec
	retrievedChunks    *prometheus.HistogramVec
	retrieverChunks    *prometheus.HistogramVec
	verificationTotal  *prometheus.CounterVec
	publishFailedTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "specqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "specqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "specqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	askTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "specqa",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total completed ask pipeline runs.",
		},
		[]string{"service", "endpoint"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "specqa",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "Ask pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "specqa",
			Subsystem: "ask",
			Name:      "retrieval_hit_total",
			Help:      "Total ask requests with at least one retrieved source.",
		},
		[]string{"service", "endpoint"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "specqa",
			Subsystem: "ask",
			Name:      "no_context_total",
			Help:      "Total ask requests without retrieved sources.",
		},
		[]string{"service", "endpoint"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "specqa",
			Subsystem: "ask",
			Name:      "retrieved_chunks",
			Help:      "Distribution of fused chunks per successful ask request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	retrieverChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "specqa",
			Subsystem: "retrieval",
			Name:      "chunks_per_retriever",
			Help:      "Distribution of chunks attributed to each retriever in fused results.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "retriever"},
	)
	verificationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "specqa",
			Subsystem: "ask",
			Name:      "verification_total",
			Help:      "Total fact verification runs by verdict.",
		},
		[]string{"service", "verdict"},
	)
	publishFailedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "specqa",
			Subsystem: "ask",
			Name:      "publish_failed_total",
			Help:      "Total answer events that could not be published.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		askTotal,
		askDuration,
		retrievalHitTotal,
		noContextTotal,
		retrievedChunks,
		retrieverChunks,
		verificationTotal,
		publishFailedTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		askTotal:           askTotal,
		askDuration:        askDuration,
		retrievalHitTotal:  retrievalHitTotal,
		noContextTotal:     noContextTotal,
		retrievedChunks:    retrievedChunks,
		retrieverChunks:    retrieverChunks,
		verificationTotal:  verificationTotal,
		publishFailedTotal: publishFailedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
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

func (m *HTTPServerMetrics) RecordAskObservation(service, endpoint string, sourceCount int, duration time.Duration) {
	m.askTotal.WithLabelValues(service, endpoint).Inc()
	m.retrievedChunks.WithLabelValues(service, endpoint).Observe(float64(sourceCount))
	m.askDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())

	if sourceCount > 0 {
		m.retrievalHitTotal.WithLabelValues(service, endpoint).Inc()
		return
	}
	m.noContextTotal.WithLabelValues(service, endpoint).Inc()
}

func (m *HTTPServerMetrics) RecordRetrieverChunks(service string, byRetriever map[string]int) {
	for retriever, count := range byRetriever {
		if retriever == "" {
			retriever = "unknown"
		}
		m.retrieverChunks.WithLabelValues(service, retriever).Observe(float64(count))
	}
}

func (m *HTTPServerMetrics) RecordVerification(service, verdict string) {
	if verdict == "" {
		verdict = "skipped"
	}
	m.verificationTotal.WithLabelValues(service, verdict).Inc()
}

func (m *HTTPServerMetrics) RecordPublishFailure(service string) {
	m.publishFailedTotal.WithLabelValues(service).Inc()
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
