package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEventMetrics() {
	r.PinEventsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "busnet_pin_events_total",
			Help: "Pin level changes observed on simulated devices",
		},
	)

	r.EventsPublishedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "busnet_events_published_total",
			Help: "Event publications by result",
		},
		[]string{"result"}, // ok, error
	)

	r.ControlRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "busnet_control_requests_total",
			Help: "Control requests served",
		},
		[]string{"kind", "status"},
	)
}
