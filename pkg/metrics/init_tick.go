package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTickMetrics() {
	r.TicksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "busnet_ticks_total",
			Help: "Total number of completed orchestrator ticks",
		},
	)

	r.TickDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "busnet_tick_duration_seconds",
			Help:    "Wall time of one orchestrator tick",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)

	r.DeviceSteps = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "busnet_device_steps_total",
			Help: "Total simulation steps executed per device",
		},
		[]string{"device"},
	)

	r.DeviceStates = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "busnet_device_step_stops_total",
			Help: "Step loops ended early, by the state that ended them",
		},
		[]string{"device", "state"}, // sleeping, done, crashed
	)

	r.TickErrorsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "busnet_tick_errors_total",
			Help: "Ticks that returned an error",
		},
	)
}
