package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGatewayMetrics() {
	r.GatewayConnections = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "busnet_gateway_connections",
			Help: "Number of currently connected TCP clients",
		},
	)

	r.GatewayConnectionsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "busnet_gateway_connections_total",
			Help: "Total number of accepted TCP clients",
		},
	)

	r.GatewayDisconnects = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "busnet_gateway_disconnects_total",
			Help: "Client removals by cause",
		},
		[]string{"reason"}, // eof, read_error, write_error, closed
	)

	r.GatewayRejectedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "busnet_gateway_rejected_total",
			Help: "Connections refused because the client id space is exhausted",
		},
	)
}
