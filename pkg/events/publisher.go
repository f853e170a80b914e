package events

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dd0wney/cluso-busnet/pkg/logging"
	"github.com/dd0wney/cluso-busnet/pkg/transport"
)

// Opener creates a publisher bound to addr.
type Opener func(addr string, logger logging.Logger) (Publisher, error)

var (
	transportsMu sync.RWMutex
	transports   = map[string]Opener{
		"mangos": func(addr string, logger logging.Logger) (Publisher, error) {
			return NewSocketPublisher(transport.NewMangosFactory(), addr, logger)
		},
	}
)

// RegisterTransport makes a publisher transport available by name.
func RegisterTransport(name string, open Opener) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	transports[name] = open
}

// Transports returns the available transport names.
func Transports() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	names := make([]string, 0, len(transports))
	for name := range transports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates a publisher for the named transport.
func Open(name, addr string, logger logging.Logger) (Publisher, error) {
	transportsMu.RLock()
	open, ok := transports[name]
	transportsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownTransport, name, Transports())
	}
	return open(addr, logger)
}

// SocketPublisher publishes over a PUB socket.
type SocketPublisher struct {
	mu     sync.Mutex
	socket transport.ListenSocket
	addr   string
	closed bool
}

// NewSocketPublisher binds a PUB socket from factory to addr.
func NewSocketPublisher(factory transport.SocketFactory, addr string, logger logging.Logger) (*SocketPublisher, error) {
	socket, err := factory.NewPubSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := socket.Listen(addr); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("failed to bind PUB socket to %s: %w", addr, err)
	}

	logging.OrNop(logger).Info("event publisher bound",
		logging.Component("events"), logging.Addr(addr))

	return &SocketPublisher{socket: socket, addr: addr}, nil
}

// Publish sends one event. PUB never blocks on slow subscribers.
func (p *SocketPublisher) Publish(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	return p.socket.Send(encode(topic, payload))
}

// Close releases the socket.
func (p *SocketPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.socket.Close()
}
