package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run pipeline metrics
var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeexec_runs_total",
			Help: "Total runs admitted, by language and terminal status",
		},
		[]string{"language", "status"},
	)

	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codeexec_run_duration_seconds",
			Help:    "Wall-clock time from admission to run record assembly",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"language"},
	)

	SandboxLaunchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codeexec_sandbox_launch_duration_seconds",
			Help:    "Time for the podman runner to produce a result",
			Buckets: []float64{0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0},
		},
		[]string{"language"},
	)

	ArtifactBytesStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeexec_artifact_bytes_stored_total",
			Help: "Total artifact bytes ingested into the store",
		},
		[]string{"tenant"},
	)

	ArtifactBytesServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeexec_artifact_bytes_served_total",
			Help: "Total artifact bytes served through signed download URLs",
		},
		[]string{"tenant"},
	)

	RateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeexec_rate_limit_rejections_total",
			Help: "Total requests rejected by the token-bucket limiter",
		},
		[]string{"tenant"},
	)

	StreamSubscribersActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "codeexec_stream_subscribers_active",
			Help: "Number of currently attached run-stream subscribers",
		},
		[]string{},
	)
)

// Control plane metrics
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeexec_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codeexec_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeexec_auth_attempts_total",
			Help: "Total API key authentication attempts",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		RunsTotal,
		RunDuration,
		SandboxLaunchDuration,
		ArtifactBytesStored,
		ArtifactBytesServed,
		RateLimitRejectionsTotal,
		StreamSubscribersActive,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AuthAttemptsTotal,
	)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// EchoMiddleware returns Echo middleware that instruments every request
// with request counts and latency, labeled by the matched route pattern
// rather than the raw path so per-run-id routes don't create label
// cardinality blowup.
func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			path := c.Path()
			HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			HTTPRequestDuration.WithLabelValues(c.Request().Method, path).Observe(duration.Seconds())

			return err
		}
	}
}

// StartMetricsServer starts a standalone HTTP server serving /metrics on
// the given address, separate from the main API listener.
func StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			// A failed metrics listener is ignored and not reported, so it
			// does not take the gateway down.
			_ = err
		}
	}()
	return srv
}
