package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recipe-gateway/middleware/ratelimit/infra"
)

// Metrics agrupa os coletores HTTP. path só assume as rotas conhecidas ou
// "other", para não explodir cardinalidade com URLs arbitrárias.
type Metrics struct {
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	panicRecoveries prometheus.Counter
	generations     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "recipe_gateway_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recipe_gateway_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"method", "path"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "recipe_gateway_http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		}),
		panicRecoveries: f.NewCounter(prometheus.CounterOpts{
			Name: "recipe_gateway_panic_recoveries_total",
			Help: "Total number of panics recovered in HTTP handlers",
		}),
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "recipe_gateway_generations_total",
			Help: "Generation attempts by outcome",
		}, []string{"outcome"}),
	}
}

func routeLabel(path string) string {
	switch path {
	case pathGenerate, pathRateLimit:
		return path
	default:
		return "other"
	}
}

func (m *Metrics) middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		path := routeLabel(r.URL.Path)
		m.requests.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		m.duration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) generation(outcome string) {
	if m != nil {
		m.generations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) panicRecovered() {
	if m != nil {
		m.panicRecoveries.Inc()
	}
}

type quotaStatsResponse struct {
	Total  infra.Counters            `json:"total"`
	Routes map[string]infra.Counters `json:"routes"`
}

// MetricsHandler serve /metrics e /healthz no listener interno, e /quota-stats
// quando stats não é nil.
func MetricsHandler(g prometheus.Gatherer, stats *infra.MemoryStatsStore) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if stats != nil {
		mux.HandleFunc("GET /quota-stats", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, quotaStatsResponse{Total: stats.Total(), Routes: stats.ByRoute()})
		})
	}
	return mux
}
