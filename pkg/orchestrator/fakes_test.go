package orchestrator

import (
	"slices"
	"sync"

	"github.com/dd0wney/cluso-busnet/pkg/control"
	"github.com/dd0wney/cluso-busnet/pkg/device"
	"github.com/dd0wney/cluso-busnet/pkg/gateway"
)

// scriptDevice is a device whose serial output, pins and state are set by the test.
type scriptDevice struct {
	name  string
	tx    []byte
	rx    []byte
	gpio  map[byte]uint8
	state device.State
	steps int
}

func newScriptDevice(name string) *scriptDevice {
	return &scriptDevice{name: name, gpio: make(map[byte]uint8), state: device.StateSleeping}
}

func (d *scriptDevice) Name() string { return d.name }

func (d *scriptDevice) Step() device.State {
	d.steps++
	return d.state
}

func (d *scriptDevice) ReadSerial(port int) (byte, bool) {
	if port != 0 || len(d.tx) == 0 {
		return 0, false
	}
	b := d.tx[0]
	d.tx = d.tx[1:]
	return b, true
}

func (d *scriptDevice) WriteSerial(port int, b byte) {
	if port == 0 {
		d.rx = append(d.rx, b)
	}
}

func (d *scriptDevice) DigitalPin(port byte, index uint8) bool {
	return d.gpio[port]&(1<<index) != 0
}

func (d *scriptDevice) setPin(port byte, bit uint8, high bool) {
	if high {
		d.gpio[port] |= 1 << bit
	} else {
		d.gpio[port] &^= 1 << bit
	}
}

// fakeMux is an in-memory Multiplexer.
type fakeMux struct {
	mu sync.Mutex
	rx map[gateway.ClientID][]byte
	tx map[gateway.ClientID][]byte
}

func newFakeMux(ids ...gateway.ClientID) *fakeMux {
	m := &fakeMux{rx: make(map[gateway.ClientID][]byte), tx: make(map[gateway.ClientID][]byte)}
	for _, id := range ids {
		m.rx[id] = nil
		m.tx[id] = nil
	}
	return m
}

func (m *fakeMux) ConnectedClientIDs() []gateway.ClientID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]gateway.ClientID, 0, len(m.rx))
	for id := range m.rx {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (m *fakeMux) ReadData(id gateway.ClientID) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data := m.rx[id]
	if len(data) == 0 {
		return nil, false
	}
	m.rx[id] = nil
	return data, true
}

func (m *fakeMux) SendData(id gateway.ClientID, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tx[id]; ok {
		m.tx[id] = append(m.tx[id], data...)
	}
}

func (m *fakeMux) input(id gateway.ClientID, data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rx[id] = append(m.rx[id], data...)
}

func (m *fakeMux) output(id gateway.ClientID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.tx[id])
}

// queueResponder serves queued requests and records replies.
type queueResponder struct {
	incoming []queued
	replies  []string
}

type queued struct {
	req control.Request
	err error
}

func (r *queueResponder) push(req control.Request, err error) {
	r.incoming = append(r.incoming, queued{req: req, err: err})
}

func (r *queueResponder) TryRecv() (control.Request, bool, error) {
	if len(r.incoming) == 0 {
		return control.Request{}, false, nil
	}
	q := r.incoming[0]
	r.incoming = r.incoming[1:]
	return q.req, true, q.err
}

func (r *queueResponder) Send(resp string) error {
	r.replies = append(r.replies, resp)
	return nil
}

func (r *queueResponder) Close() error { return nil }
