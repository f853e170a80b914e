package health

import (
	"sync"
	"time"
)

// Status is the state a check reports.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses so the worst one can be picked.
func (s Status) severity() int {
	switch s {
	case StatusDegraded:
		return 1
	case StatusUnhealthy:
		return 2
	default:
		return 0
	}
}

// Set groups checks by the endpoint that serves them.
type Set int

const (
	// SetGeneral backs /health. Degraded still answers 200.
	SetGeneral Set = iota
	// SetReadiness backs /ready: gateway accepting, sockets bound.
	SetReadiness
	// SetLiveness backs /live: tick loop advancing.
	SetLiveness
)

// strict sets answer 503 for anything but healthy.
func (s Set) strict() bool {
	return s != SetGeneral
}

// Check is the result of one probe.
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	DurationMS  float64        `json:"duration_ms"`
}

// CheckFunc probes one part of the fabric.
type CheckFunc func() Check

// HealthChecker holds the registered probes of a running fabric.
type HealthChecker struct {
	runID   string
	started time.Time

	mu   sync.RWMutex
	sets map[Set]map[string]CheckFunc
}

// Response is the body of every health endpoint.
type Response struct {
	Status    Status           `json:"status"`
	RunID     string           `json:"run_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Uptime    float64          `json:"uptime_seconds"`
}
