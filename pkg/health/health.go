package health

import (
	"time"
)

// NewHealthChecker creates a health checker that reports runID with every response.
func NewHealthChecker(runID string) *HealthChecker {
	return &HealthChecker{
		runID:   runID,
		started: time.Now(),
		sets: map[Set]map[string]CheckFunc{
			SetGeneral:   {},
			SetReadiness: {},
			SetLiveness:  {},
		},
	}
}

// Register adds check to set under name, replacing any earlier check of that name.
func (hc *HealthChecker) Register(set Set, name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if hc.sets[set] == nil {
		hc.sets[set] = make(map[string]CheckFunc)
	}
	hc.sets[set][name] = check
}

// RegisterCheck adds a check served on /health.
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.Register(SetGeneral, name, check)
}

// RegisterReadinessCheck adds a check served on /ready.
func (hc *HealthChecker) RegisterReadinessCheck(name string, check CheckFunc) {
	hc.Register(SetReadiness, name, check)
}

// RegisterLivenessCheck adds a check served on /live.
func (hc *HealthChecker) RegisterLivenessCheck(name string, check CheckFunc) {
	hc.Register(SetLiveness, name, check)
}

// Check runs the general checks.
func (hc *HealthChecker) Check() Response {
	return hc.Run(SetGeneral)
}

// CheckReadiness runs the readiness checks.
func (hc *HealthChecker) CheckReadiness() Response {
	return hc.Run(SetReadiness)
}

// CheckLiveness runs the liveness checks.
func (hc *HealthChecker) CheckLiveness() Response {
	return hc.Run(SetLiveness)
}

// Run executes every check in set. The worst check status becomes the response status.
func (hc *HealthChecker) Run(set Set) Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	checks := hc.sets[set]
	response := Response{
		Status:    StatusHealthy,
		RunID:     hc.runID,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(checks)),
		Uptime:    time.Since(hc.started).Seconds(),
	}

	for name, probe := range checks {
		start := time.Now()
		check := probe()
		check.LastChecked = start
		check.DurationMS = float64(time.Since(start).Microseconds()) / 1000
		if check.Name == "" {
			check.Name = name
		}
		response.Checks[name] = check

		if check.Status.severity() > response.Status.severity() {
			response.Status = check.Status
		}
	}

	return response
}
