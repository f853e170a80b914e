//go:build zmq
// +build zmq

package events

import (
	"context"
	"fmt"
	"sync"
	"syscall"

	zmq "github.com/pebbe/zmq4"

	"github.com/dd0wney/cluso-busnet/pkg/logging"
)

func init() {
	RegisterTransport("zmq", func(addr string, logger logging.Logger) (Publisher, error) {
		return NewZMQPublisher(addr, logger)
	})
	RegisterStreamTransport("zmq", func(addr string, prefixes ...string) (Stream, error) {
		return NewZMQSubscriber(addr, prefixes...)
	})
}

// ZMQPublisher publishes two-frame [topic, payload] messages on a ZeroMQ PUB socket.
type ZMQPublisher struct {
	mu     sync.Mutex
	socket *zmq.Socket
	closed bool
}

// NewZMQPublisher binds a PUB socket to addr.
func NewZMQPublisher(addr string, logger logging.Logger) (*ZMQPublisher, error) {
	socket, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := socket.Bind(addr); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("failed to bind PUB socket to %s: %w", addr, err)
	}

	logging.OrNop(logger).Info("event publisher bound",
		logging.Component("events"), logging.Addr(addr), logging.String("transport", "zmq"))

	return &ZMQPublisher{socket: socket}, nil
}

// Publish sends one multipart event.
func (p *ZMQPublisher) Publish(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	_, err := p.socket.SendMessage(topic, payload)
	return err
}

// Close releases the socket.
func (p *ZMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.socket.Close()
}

// ZMQSubscriber receives events from a ZMQPublisher.
type ZMQSubscriber struct {
	socket *zmq.Socket
}

// NewZMQSubscriber connects to addr and subscribes to each prefix.
func NewZMQSubscriber(addr string, prefixes ...string) (*ZMQSubscriber, error) {
	socket, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	for _, p := range prefixes {
		if err := socket.SetSubscribe(p); err != nil {
			_ = socket.Close()
			return nil, err
		}
	}
	if err := socket.SetRcvtimeo(pollInterval); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.Connect(addr); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &ZMQSubscriber{socket: socket}, nil
}

// Next blocks until an event arrives or ctx is done.
func (s *ZMQSubscriber) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		frames, err := s.socket.RecvMessageBytes(0)
		if err != nil {
			if zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN) {
				continue
			}
			return Event{}, err
		}
		if len(frames) != 2 {
			continue
		}
		return Event{Topic: string(frames[0]), Payload: frames[1]}, nil
	}
}

// Close releases the socket.
func (s *ZMQSubscriber) Close() error {
	return s.socket.Close()
}
