package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// initStatusMetrics covers the HTTP status listener and the process itself.
func (r *Registry) initStatusMetrics() {
	factory := promauto.With(r.registry)
	labels := []string{"method", "route", "status"}

	r.HTTPRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "busnet_http_requests_total",
		Help: "Status endpoint requests by route template and response code",
	}, labels)
	r.HTTPRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "busnet_http_request_duration_seconds",
		Help:    "Status endpoint latency",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	}, labels)
	r.HTTPRequestsInFlight = factory.NewGauge(prometheus.GaugeOpts{
		Name: "busnet_http_requests_in_flight",
		Help: "Status requests being served",
	})

	r.UptimeSeconds = factory.NewGauge(prometheus.GaugeOpts{
		Name: "busnet_uptime_seconds",
		Help: "Seconds since busnet up started",
	})
	r.GoRoutines = factory.NewGauge(prometheus.GaugeOpts{
		Name: "busnet_goroutines",
		Help: "Live goroutines, two per gateway connection plus the fixed set",
	})
	r.MemoryAllocBytes = factory.NewGauge(prometheus.GaugeOpts{
		Name: "busnet_memory_alloc_bytes",
		Help: "Heap bytes allocated and in use",
	})
	r.MemorySysBytes = factory.NewGauge(prometheus.GaugeOpts{
		Name: "busnet_memory_sys_bytes",
		Help: "Bytes obtained from the OS",
	})
}
