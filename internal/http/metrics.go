package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
	requestDur    *prometheus.HistogramVec

	turnsTotal   *prometheus.CounterVec
	turnDur      *prometheus.HistogramVec
	routingLoops prometheus.Counter
	saveFailures prometheus.Counter
}

// NewMetrics creates the collectors on the given registry. A nil registry
// gets a private one, which keeps tests isolated.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	registry.MustRegister(collectors.NewGoCollector())

	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taskbotd_http_requests_total",
			Help: "Total HTTP requests by method, endpoint and status code.",
		}, []string{"method", "endpoint", "status"}),
		requestDur: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskbotd_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds by method and endpoint.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"method", "endpoint"}),
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taskbotd_turns_total",
			Help: "Completed dialogue turns by the phase and state the session ended the turn in.",
		}, []string{"phase", "state"}),
		turnDur: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskbotd_turn_duration_seconds",
			Help:    "Policy step duration in seconds by final phase.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		}, []string{"phase"}),
		routingLoops: factory.NewCounter(prometheus.CounterOpts{
			Name: "taskbotd_routing_loops_total",
			Help: "Turns aborted because phase policies re-routed past the bound.",
		}),
		saveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "taskbotd_session_save_failures_total",
			Help: "Detached session saves that failed.",
		}),
	}
}

// ObserveTurn records one completed turn.
func (m *Metrics) ObserveTurn(phase session.Phase, state session.State, d time.Duration) {
	m.turnsTotal.WithLabelValues(string(phase), string(state)).Inc()
	m.turnDur.WithLabelValues(string(phase)).Observe(d.Seconds())
}

// RoutingLoop records an aborted turn.
func (m *Metrics) RoutingLoop() {
	m.routingLoops.Inc()
}

// SaveFailure records a failed detached save.
func (m *Metrics) SaveFailure() {
	m.saveFailures.Inc()
}

// Handler serves the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instruments every request. Echo's route template is used as
// the endpoint label so path parameters do not explode cardinality.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "/"
			}
			method := c.Request().Method
			m.requestsTotal.WithLabelValues(method, endpoint,
				strconv.Itoa(c.Response().Status)).Inc()
			m.requestDur.WithLabelValues(method, endpoint).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
