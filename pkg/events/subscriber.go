package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-busnet/pkg/transport"
)

// pollInterval bounds how long Next blocks in the socket before rechecking ctx.
const pollInterval = 100 * time.Millisecond

// Subscriber receives events from a SocketPublisher.
type Subscriber struct {
	socket transport.SubscribeSocket
}

// NewSubscriber dials addr and subscribes to each prefix. No prefixes
// subscribes to everything.
func NewSubscriber(factory transport.SocketFactory, addr string, prefixes ...string) (*Subscriber, error) {
	socket, err := factory.NewSubSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}

	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	for _, p := range prefixes {
		if err := socket.Subscribe([]byte(p)); err != nil {
			_ = socket.Close()
			return nil, fmt.Errorf("failed to subscribe to %q: %w", p, err)
		}
	}
	if err := socket.SetRecvDeadline(pollInterval); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.Dial(addr); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	return &Subscriber{socket: socket}, nil
}

// Next blocks until an event arrives or ctx is done.
func (s *Subscriber) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		msg, err := s.socket.Recv()
		if errors.Is(err, transport.ErrTimeout) {
			continue
		}
		if err != nil {
			return Event{}, err
		}
		ev, err := decode(msg)
		if err != nil {
			// Foreign publishers on the same endpoint are skipped.
			continue
		}
		return ev, nil
	}
}

// Close releases the socket.
func (s *Subscriber) Close() error {
	return s.socket.Close()
}
