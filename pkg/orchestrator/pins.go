package orchestrator

import (
	"github.com/dd0wney/cluso-busnet/pkg/device"
)

// PinEvent is one GPIO bit that changed between two ticks.
type PinEvent struct {
	Device string
	Port   byte
	Bit    uint8
	State  bool
}

// PinTracker remembers the last sampled level of every bit on a device's ports.
// All bits start low.
type PinTracker struct {
	ports []byte
	last  map[byte]uint8
}

// NewPinTracker tracks ports ('B', 'C', ...).
func NewPinTracker(ports []byte) *PinTracker {
	return &PinTracker{
		ports: append([]byte(nil), ports...),
		last:  make(map[byte]uint8, len(ports)),
	}
}

// Ports returns the tracked ports.
func (p *PinTracker) Ports() []byte {
	return append([]byte(nil), p.ports...)
}

// Update samples dev and returns one event per bit that changed since the
// previous call, ordered by port then bit.
func (p *PinTracker) Update(dev device.Device) []PinEvent {
	var out []PinEvent
	for _, port := range p.ports {
		var now uint8
		for bit := uint8(0); bit < 8; bit++ {
			if dev.DigitalPin(port, bit) {
				now |= 1 << bit
			}
		}

		changed := now ^ p.last[port]
		if changed == 0 {
			continue
		}
		for bit := uint8(0); bit < 8; bit++ {
			if changed&(1<<bit) != 0 {
				out = append(out, PinEvent{
					Device: dev.Name(),
					Port:   port,
					Bit:    bit,
					State:  now&(1<<bit) != 0,
				})
			}
		}
		p.last[port] = now
	}
	return out
}

// Snapshot returns the last sampled byte for port.
func (p *PinTracker) Snapshot(port byte) uint8 {
	return p.last[port]
}
