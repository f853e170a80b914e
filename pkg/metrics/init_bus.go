package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initBusMetrics() {
	r.BusBytesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "busnet_bus_bytes_total",
			Help: "Bytes moved across the bus",
		},
		[]string{"direction"}, // device_out, gateway_in, gateway_out
	)

	r.FramesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "busnet_frames_total",
			Help: "Frames completed by the gateway framer",
		},
		[]string{"result"}, // accepted, filtered, oversized
	)
}
