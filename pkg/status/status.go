// Package status serves the HTTP status surface of a running fabric: health
// probes, Prometheus metrics, the bus topology and the live TCP clients.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-busnet/pkg/gateway"
	"github.com/dd0wney/cluso-busnet/pkg/health"
	"github.com/dd0wney/cluso-busnet/pkg/logging"
	"github.com/dd0wney/cluso-busnet/pkg/metrics"
	"github.com/dd0wney/cluso-busnet/pkg/server"
)

// SystemMetricsInterval is how often runtime gauges are refreshed.
const SystemMetricsInterval = 10 * time.Second

// Deps supplies the data behind each endpoint. Nil fields disable their routes.
type Deps struct {
	Health   *health.HealthChecker
	Metrics  *metrics.Registry
	Topology func() map[string][]string
	Clients  func() []gateway.ClientInfo
	Logger   logging.Logger
}

// TopologyResponse is the body of GET /topology.
type TopologyResponse struct {
	Nodes map[string][]string `json:"nodes"`
}

// ConnectionsResponse is the body of GET /connections.
type ConnectionsResponse struct {
	Count   int                  `json:"count"`
	Clients []gateway.ClientInfo `json:"clients"`
}

type handler struct {
	deps   Deps
	logger logging.Logger
}

// NewRouter builds the status routes.
func NewRouter(deps Deps) *mux.Router {
	h := &handler{deps: deps, logger: logging.OrNop(deps.Logger).With(logging.Component("status"))}

	router := mux.NewRouter()
	if deps.Health != nil {
		router.HandleFunc("/health", deps.Health.HTTPHandler()).Methods(http.MethodGet)
		router.HandleFunc("/ready", deps.Health.ReadinessHandler()).Methods(http.MethodGet)
		router.HandleFunc("/live", deps.Health.LivenessHandler()).Methods(http.MethodGet)
	}
	if deps.Metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}
	if deps.Topology != nil {
		router.HandleFunc("/topology", h.topology).Methods(http.MethodGet)
	}
	if deps.Clients != nil {
		router.HandleFunc("/connections", h.connections).Methods(http.MethodGet)
	}

	router.Use(h.metricsMiddleware)
	return router
}

// NewServer wraps the status routes in a graceful HTTP server bound to addr.
func NewServer(addr string, deps Deps) *server.GracefulServer {
	return server.NewGracefulServer(addr, NewRouter(deps), deps.Logger)
}

// RunSystemMetrics refreshes uptime and runtime gauges until ctx is done.
func RunSystemMetrics(ctx context.Context, m *metrics.Registry, started time.Time, interval time.Duration) {
	if m == nil {
		return
	}
	if interval <= 0 {
		interval = SystemMetricsInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.UpdateSystemMetrics(started)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.UpdateSystemMetrics(started)
		}
	}
}

func (h *handler) topology(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, TopologyResponse{Nodes: h.deps.Topology()})
}

func (h *handler) connections(w http.ResponseWriter, r *http.Request) {
	clients := h.deps.Clients()
	if clients == nil {
		clients = []gateway.ClientInfo{}
	}
	h.respondJSON(w, http.StatusOK, ConnectionsResponse{Count: len(clients), Clients: clients})
}

func (h *handler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("failed to encode response", logging.Error(err))
	}
}

// metricsMiddleware tracks HTTP request metrics, labelled by route template.
func (h *handler) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := h.deps.Metrics
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		wrapper := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		m.RecordHTTPRequest(r.Method, path, strconv.Itoa(wrapper.statusCode), time.Since(start))
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
