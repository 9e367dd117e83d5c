package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphummel/hwreq/internal/db"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hwreq_http_requests_total",
			Help: "Total number of HTTP requests by method, route, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hwreq_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hwreq_http_requests_in_flight",
		Help: "Current number of HTTP requests being processed.",
	})

	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hwreq_evaluations_total",
			Help: "Total number of profile evaluations by verdict.",
		},
		[]string{"result"},
	)
)

// StatsDB is the subset of db.DB needed to collect requirement set metrics.
type StatsDB interface {
	Stats() (db.Stats, error)
}

// setCollector is a custom Prometheus collector that queries the database
// on each scrape to report stored requirement sets and their rules.
type setCollector struct {
	db        StatsDB
	setsDesc  *prometheus.Desc
	rulesDesc *prometheus.Desc
}

func (c *setCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.setsDesc
	ch <- c.rulesDesc
}

func (c *setCollector) Collect(ch chan<- prometheus.Metric) {
	st, err := c.db.Stats()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.setsDesc, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.setsDesc, prometheus.GaugeValue, float64(st.Sets))
	for archetype, n := range st.RulesByArchetype {
		ch <- prometheus.MustNewConstMetric(
			c.rulesDesc,
			prometheus.GaugeValue,
			float64(n),
			string(archetype),
		)
	}
}

func newSetCollector(db StatsDB) *setCollector {
	return &setCollector{
		db: db,
		setsDesc: prometheus.NewDesc(
			"hwreq_requirement_sets_total",
			"Number of stored requirement sets.",
			nil, nil,
		),
		rulesDesc: prometheus.NewDesc(
			"hwreq_rules_total",
			"Number of stored rules, partitioned by server archetype.",
			[]string{"archetype"},
			nil,
		),
	}
}

// RecordEvaluation counts one evaluation verdict.
func RecordEvaluation(satisfied bool) {
	result := "unsatisfied"
	if satisfied {
		result = "satisfied"
	}
	evaluationsTotal.WithLabelValues(result).Inc()
}

// Register registers the service metrics with the default Prometheus
// registry, which already carries the Go runtime and process collectors.
// Call once at startup after the database is initialised.
func Register(db StatsDB) {
	prometheus.MustRegister(
		// HTTP service metrics
		httpRequestsTotal,
		httpRequestDuration,
		httpRequestsInFlight,

		// Application metrics
		evaluationsTotal,
		newSetCollector(db),
	)
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture the response status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware wraps an http.Handler to record HTTP metrics.
// pattern should be the route pattern string (e.g. "/api/v1/requirements/{id}")
// so the path label has bounded cardinality.
func Middleware(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			httpRequestsInFlight.Dec()
			status := strconv.Itoa(rw.status)
			httpRequestsTotal.WithLabelValues(r.Method, pattern, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		}()

		next.ServeHTTP(rw, r)
	})
}
