package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-busnet/pkg/transport"
)

// Stream is the receiving end of an event transport.
type Stream interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// StreamOpener dials addr and subscribes to prefixes.
type StreamOpener func(addr string, prefixes ...string) (Stream, error)

var (
	streamsMu sync.RWMutex
	streams   = map[string]StreamOpener{
		"mangos": func(addr string, prefixes ...string) (Stream, error) {
			return NewSubscriber(transport.NewMangosFactory(), addr, prefixes...)
		},
	}
)

// RegisterStreamTransport makes a subscriber transport available by name.
func RegisterStreamTransport(name string, open StreamOpener) {
	streamsMu.Lock()
	defer streamsMu.Unlock()
	streams[name] = open
}

// Dial subscribes to prefixes on the named transport. No prefixes receives everything.
func Dial(name, addr string, prefixes ...string) (Stream, error) {
	streamsMu.RLock()
	open, ok := streams[name]
	streamsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownTransport, name, Transports())
	}
	return open(addr, prefixes...)
}
