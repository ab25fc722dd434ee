package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitsim_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbitsim_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	tleRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitsim_tle_records_total",
			Help: "TLE record groups seen by the parser, by outcome.",
		},
		[]string{"outcome"},
	)

	propagationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orbitsim_propagation_duration_seconds",
			Help:    "Wall time of one batch propagation.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
	)

	propagationSatellitesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitsim_propagation_satellites_total",
			Help: "Satellites propagated.",
		},
	)

	propagationSamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitsim_propagation_samples_total",
			Help: "Position samples computed, by outcome.",
		},
		[]string{"outcome"},
	)

	catalogSatellites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbitsim_catalog_satellites",
			Help: "Satellites in the currently loaded catalog.",
		},
	)

	catalogLoadedTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbitsim_catalog_loaded_timestamp_seconds",
			Help: "Unix time at which the current catalog was loaded.",
		},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitsim_stream_connections_total",
			Help: "SSE connection events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbitsim_streams_active",
			Help: "Open SSE streams.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitsim_stream_messages_total",
			Help: "SSE data messages sent.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitsim_stream_bytes_total",
			Help: "Bytes written to SSE streams.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitsim_stream_errors_total",
			Help: "SSE stream errors by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		tleRecordsTotal,
		propagationDurationSeconds,
		propagationSatellitesTotal,
		propagationSamplesTotal,
		catalogSatellites,
		catalogLoadedTimestamp,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTLEParse counts the outcome of one parse.
func RecordTLEParse(parsed, skipped int) {
	tleRecordsTotal.WithLabelValues("parsed").Add(float64(parsed))
	tleRecordsTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordPropagation records one batch propagation.
func RecordPropagation(d time.Duration, satellites, samplesOK, samplesFailed int) {
	propagationDurationSeconds.Observe(d.Seconds())
	propagationSatellitesTotal.Add(float64(satellites))
	propagationSamplesTotal.WithLabelValues("ok").Add(float64(samplesOK))
	propagationSamplesTotal.WithLabelValues("failed").Add(float64(samplesFailed))
}

// SetCatalog publishes the size and load time of the current catalog.
func SetCatalog(satellites int, loadedAt time.Time) {
	catalogSatellites.Set(float64(satellites))
	catalogLoadedTimestamp.Set(float64(loadedAt.UnixNano()) / 1e9)
}

// Stream lifecycle counters; event is connect or disconnect.
func IncStreamConnections(event string) { streamConnectionsTotal.WithLabelValues(event).Inc() }

func IncStreamsActive() { streamsActive.Inc() }

func DecStreamsActive() { streamsActive.Dec() }

func IncStreamMessages() { streamMessagesTotal.Inc() }

func AddStreamBytes(n int64) { streamBytesTotal.Add(float64(n)) }

func IncStreamErrors(reason string) { streamErrorsTotal.WithLabelValues(reason).Inc() }

var exactRoutes = map[string]bool{
	"/healthz":           true,
	"/readyz":            true,
	"/metrics":           true,
	"/api/v1/satellites": true,
	"/api/v1/tle":        true,
	"/api/v1/stream":     true,
}

var paramRoutes = []string{
	"/api/v1/propagate/",
	"/api/v1/groundtrack/",
}

// normalizeRoute maps a request path onto a bounded set of labels so that
// per-satellite paths and scanner noise do not explode label cardinality.
func normalizeRoute(path string) string {
	if exactRoutes[path] {
		return path
	}
	for _, prefix := range paramRoutes {
		if id, ok := strings.CutPrefix(path, prefix); ok && id != "" && !strings.Contains(id, "/") {
			return prefix + "{id}"
		}
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
