package metrics

import (
	"runtime"
	"time"
)

// Traffic directions for BusBytesTotal.
const (
	DirectionDeviceOut  = "device_out"
	DirectionGatewayIn  = "gateway_in"
	DirectionGatewayOut = "gateway_out"
)

// Every Record method is a no-op on a nil *Registry so components can run
// without metrics.

// RecordTick records one completed tick.
func (r *Registry) RecordTick(duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.TicksTotal.Inc()
	r.TickDuration.Observe(duration.Seconds())
	if err != nil {
		r.TickErrorsTotal.Inc()
	}
}

// RecordSteps records how many steps a device ran in one tick and, when the
// loop stopped before the budget, the state that stopped it.
func (r *Registry) RecordSteps(device string, steps int, stoppedBy string) {
	if r == nil {
		return
	}
	r.DeviceSteps.WithLabelValues(device).Add(float64(steps))
	if stoppedBy != "" {
		r.DeviceStates.WithLabelValues(device, stoppedBy).Inc()
	}
}

// RecordBusBytes counts n bytes moved in direction.
func (r *Registry) RecordBusBytes(direction string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.BusBytesTotal.WithLabelValues(direction).Add(float64(n))
}

// RecordFrames adds framer counter deltas.
func (r *Registry) RecordFrames(accepted, filtered, oversized uint64) {
	if r == nil {
		return
	}
	if accepted > 0 {
		r.FramesTotal.WithLabelValues("accepted").Add(float64(accepted))
	}
	if filtered > 0 {
		r.FramesTotal.WithLabelValues("filtered").Add(float64(filtered))
	}
	if oversized > 0 {
		r.FramesTotal.WithLabelValues("oversized").Add(float64(oversized))
	}
}

// RecordConnect records an accepted client.
func (r *Registry) RecordConnect() {
	if r == nil {
		return
	}
	r.GatewayConnections.Inc()
	r.GatewayConnectionsTotal.Inc()
}

// RecordDisconnect records a client removal and why it happened.
func (r *Registry) RecordDisconnect(reason string) {
	if r == nil {
		return
	}
	r.GatewayConnections.Dec()
	r.GatewayDisconnects.WithLabelValues(reason).Inc()
}

// RecordRejected records a refused connection.
func (r *Registry) RecordRejected() {
	if r == nil {
		return
	}
	r.GatewayRejectedTotal.Inc()
}

// RecordPinEvents counts pin level changes.
func (r *Registry) RecordPinEvents(n int) {
	if r == nil || n == 0 {
		return
	}
	r.PinEventsTotal.Add(float64(n))
}

// RecordPublish records one event publication.
func (r *Registry) RecordPublish(err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.EventsPublishedTotal.WithLabelValues("error").Inc()
		return
	}
	r.EventsPublishedTotal.WithLabelValues("ok").Inc()
}

// RecordControlRequest records a served control request.
func (r *Registry) RecordControlRequest(kind, status string) {
	if r == nil {
		return
	}
	r.ControlRequestsTotal.WithLabelValues(kind, status).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// UpdateSystemMetrics refreshes uptime and Go runtime gauges.
func (r *Registry) UpdateSystemMetrics(started time.Time) {
	if r == nil {
		return
	}
	r.UptimeSeconds.Set(time.Since(started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}
