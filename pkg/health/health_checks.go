package health

import (
	"fmt"
	"time"
)

// Common health check functions

// GatewayCheck reports whether the TCP gateway is accepting connections.
func GatewayCheck(state func() (addr string, clients int, listening bool)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "gateway",
			Details: make(map[string]any),
		}

		addr, clients, listening := state()
		check.Details["addr"] = addr
		check.Details["clients"] = clients

		if listening {
			check.Status = StatusHealthy
			check.Message = "Accepting connections"
		} else {
			check.Status = StatusUnhealthy
			check.Message = "Listener not running"
		}

		return check
	}
}

// TickCheck reports whether the orchestrator loop is advancing. A loop that
// has not completed a tick within staleAfter is degraded; one that has never
// ticked is unhealthy.
func TickCheck(state func() (ticks uint64, last time.Time), staleAfter time.Duration) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "tick_loop",
			Details: make(map[string]any),
		}

		ticks, last := state()
		check.Details["ticks"] = ticks

		switch {
		case ticks == 0:
			check.Status = StatusUnhealthy
			check.Message = "No ticks completed"
		case time.Since(last) > staleAfter:
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("Last tick %s ago", time.Since(last).Round(time.Millisecond))
			check.Details["last_tick"] = last
		default:
			check.Status = StatusHealthy
			check.Message = "Advancing"
			check.Details["last_tick"] = last
		}

		return check
	}
}

// DevicesCheck reports devices that have stopped running.
func DevicesCheck(state func() (total int, halted []string)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "devices",
			Details: make(map[string]any),
		}

		total, halted := state()
		check.Details["total"] = total
		if len(halted) > 0 {
			check.Details["halted"] = halted
		}

		switch {
		case total > 0 && len(halted) == total:
			check.Status = StatusUnhealthy
			check.Message = "All devices halted"
		case len(halted) > 0:
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("%d of %d devices halted", len(halted), total)
		default:
			check.Status = StatusHealthy
			check.Message = "All devices running"
		}

		return check
	}
}
