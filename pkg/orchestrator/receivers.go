package orchestrator

import (
	"github.com/dd0wney/cluso-busnet/pkg/device"
	"github.com/dd0wney/cluso-busnet/pkg/framing"
	"github.com/dd0wney/cluso-busnet/pkg/gateway"
)

// Multiplexer is the part of the TCP gateway the tick loop drives.
type Multiplexer interface {
	ConnectedClientIDs() []gateway.ClientID
	ReadData(id gateway.ClientID) ([]byte, bool)
	SendData(id gateway.ClientID, data []byte)
}

// DeviceReceiver forwards bus bytes to a device's serial input.
type DeviceReceiver struct {
	dev  device.Device
	port int
}

// NewDeviceReceiver wires dev's serial port to the bus.
func NewDeviceReceiver(dev device.Device, port int) *DeviceReceiver {
	return &DeviceReceiver{dev: dev, port: port}
}

// Receive implements network.Receiver.
func (r *DeviceReceiver) Receive(b byte) {
	r.dev.WriteSerial(r.port, b)
}

// GatewayReceiver reassembles frames addressed to the gateway and sends each
// payload to every live TCP client.
type GatewayReceiver struct {
	framer *framing.Framer
	mux    Multiplexer
	sent   int
}

// NewGatewayReceiver builds a receiver that accepts frames for address.
func NewGatewayReceiver(address uint16, mux Multiplexer) *GatewayReceiver {
	return &GatewayReceiver{framer: framing.NewFramer(address), mux: mux}
}

// Receive implements network.Receiver.
func (r *GatewayReceiver) Receive(b byte) {
	msg, ok := r.framer.Feed(b)
	if !ok || r.mux == nil {
		return
	}
	for _, id := range r.mux.ConnectedClientIDs() {
		r.mux.SendData(id, msg.Payload)
		r.sent += len(msg.Payload)
	}
}

// Stats returns the framer counters.
func (r *GatewayReceiver) Stats() framing.Stats {
	return r.framer.Stats()
}

// takeSent returns and clears the byte count queued to clients.
func (r *GatewayReceiver) takeSent() int {
	n := r.sent
	r.sent = 0
	return n
}
