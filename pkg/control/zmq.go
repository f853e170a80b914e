//go:build zmq
// +build zmq

package control

import (
	"fmt"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/dd0wney/cluso-busnet/pkg/logging"
	"github.com/dd0wney/cluso-busnet/pkg/transport"
)

func init() {
	RegisterTransport("zmq", func(addr string, logger logging.Logger) (Responder, error) {
		return NewZMQResponder(addr, logger)
	})
	RegisterClientTransport("zmq", func(addr string, timeout time.Duration) (Conn, error) {
		return DialZMQ(addr, timeout)
	})
}

// ZMQResponder serves requests on a ZeroMQ REP socket.
type ZMQResponder struct {
	socket *zmq.Socket
}

// NewZMQResponder binds a REP socket to addr.
func NewZMQResponder(addr string, logger logging.Logger) (*ZMQResponder, error) {
	socket, err := zmq.NewSocket(zmq.REP)
	if err != nil {
		return nil, fmt.Errorf("failed to create REP socket: %w", err)
	}
	if err := socket.Bind(addr); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("failed to bind REP socket to %s: %w", addr, err)
	}

	logging.OrNop(logger).Info("control responder bound",
		logging.Component("control"), logging.Addr(addr), logging.String("transport", "zmq"))

	return &ZMQResponder{socket: socket}, nil
}

// TryRecv polls for one request without blocking.
func (r *ZMQResponder) TryRecv() (Request, bool, error) {
	msg, err := r.socket.RecvBytes(zmq.DONTWAIT)
	if err != nil {
		if zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN) {
			return Request{}, false, nil
		}
		return Request{}, false, err
	}
	req, err := DecodeRequest(msg)
	return req, true, err
}

// Send replies to the last received request.
func (r *ZMQResponder) Send(resp string) error {
	_, err := r.socket.Send(resp, 0)
	return err
}

// Close releases the socket.
func (r *ZMQResponder) Close() error {
	return r.socket.Close()
}

// ZMQConn is a Conn over a ZeroMQ REQ socket.
type ZMQConn struct {
	socket *zmq.Socket
}

// DialZMQ connects a REQ socket to addr. timeout bounds both directions.
func DialZMQ(addr string, timeout time.Duration) (*ZMQConn, error) {
	socket, err := zmq.NewSocket(zmq.REQ)
	if err != nil {
		return nil, fmt.Errorf("failed to create REQ socket: %w", err)
	}
	if err := socket.SetRcvtimeo(timeout); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.SetSndtimeo(timeout); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.SetLinger(0); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.Connect(addr); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &ZMQConn{socket: socket}, nil
}

// RoundTrip sends request and waits for the reply.
func (c *ZMQConn) RoundTrip(request []byte) ([]byte, error) {
	if _, err := c.socket.SendBytes(request, 0); err != nil {
		return nil, err
	}
	reply, err := c.socket.RecvBytes(0)
	if err != nil && zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN) {
		return nil, fmt.Errorf("%w: %w", transport.ErrTimeout, err)
	}
	return reply, err
}

// Close releases the socket.
func (c *ZMQConn) Close() error {
	return c.socket.Close()
}
