package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Tick loop
	TicksTotal      prometheus.Counter
	TickDuration    prometheus.Histogram
	DeviceSteps     *prometheus.CounterVec
	DeviceStates    *prometheus.CounterVec
	TickErrorsTotal prometheus.Counter

	// Bus traffic
	BusBytesTotal *prometheus.CounterVec
	FramesTotal   *prometheus.CounterVec

	// Gateway connections
	GatewayConnections      prometheus.Gauge
	GatewayConnectionsTotal prometheus.Counter
	GatewayDisconnects      *prometheus.CounterVec
	GatewayRejectedTotal    prometheus.Counter

	// Events and control
	PinEventsTotal       prometheus.Counter
	EventsPublishedTotal *prometheus.CounterVec
	ControlRequestsTotal *prometheus.CounterVec

	// HTTP status surface
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initTickMetrics()
	r.initBusMetrics()
	r.initGatewayMetrics()
	r.initEventMetrics()
	r.initStatusMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
