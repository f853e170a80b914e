package health

import (
	"encoding/json"
	"net/http"
)

// HTTPHandler serves the general checks. Degraded answers 200.
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return hc.Handler(SetGeneral)
}

// ReadinessHandler serves the readiness checks.
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return hc.Handler(SetReadiness)
}

// LivenessHandler serves the liveness checks.
func (hc *HealthChecker) LivenessHandler() http.HandlerFunc {
	return hc.Handler(SetLiveness)
}

// Handler serves set as JSON. Unhealthy answers 503, and so does degraded
// for the readiness and liveness sets.
func (hc *HealthChecker) Handler(set Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := hc.Run(set)

		code := http.StatusOK
		switch {
		case response.Status == StatusUnhealthy:
			code = http.StatusServiceUnavailable
		case response.Status == StatusDegraded && set.strict():
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(response)
	}
}
