package control

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dd0wney/cluso-busnet/pkg/transport"
)

// DefaultTimeout bounds a client round trip.
const DefaultTimeout = 5 * time.Second

// Conn carries one request and its reply.
type Conn interface {
	RoundTrip(request []byte) ([]byte, error)
	Close() error
}

// ConnOpener dials a control endpoint.
type ConnOpener func(addr string, timeout time.Duration) (Conn, error)

var (
	connsMu sync.RWMutex
	conns   = map[string]ConnOpener{
		"mangos": func(addr string, timeout time.Duration) (Conn, error) {
			return DialSocket(transport.NewMangosFactory(), addr, timeout)
		},
	}
)

// RegisterClientTransport makes a client transport available by name.
func RegisterClientTransport(name string, open ConnOpener) {
	connsMu.Lock()
	defer connsMu.Unlock()
	conns[name] = open
}

// Dial connects a client over the named transport.
func Dial(name, addr string, timeout time.Duration) (*Client, error) {
	connsMu.RLock()
	open, ok := conns[name]
	connsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownTransport, name, Transports())
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	conn, err := open(addr, timeout)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// SocketConn is a Conn over a REQ socket.
type SocketConn struct {
	socket transport.DialSocket
}

// DialSocket dials addr with a REQ socket from factory. timeout bounds both
// directions of every round trip.
func DialSocket(factory transport.SocketFactory, addr string, timeout time.Duration) (*SocketConn, error) {
	socket, err := factory.NewReqSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create REQ socket: %w", err)
	}
	for _, set := range []func(time.Duration) error{socket.SetRecvDeadline, socket.SetSendDeadline} {
		if err := set(timeout); err != nil {
			_ = socket.Close()
			return nil, err
		}
	}
	if err := socket.Dial(addr); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return &SocketConn{socket: socket}, nil
}

// RoundTrip sends request and waits for the reply.
func (c *SocketConn) RoundTrip(request []byte) ([]byte, error) {
	if err := c.socket.Send(request); err != nil {
		return nil, err
	}
	return c.socket.Recv()
}

// Close releases the socket.
func (c *SocketConn) Close() error {
	return c.socket.Close()
}

// Client issues typed control requests.
type Client struct {
	conn Conn
}

// NewClient wraps conn.
func NewClient(conn Conn) *Client {
	return &Client{conn: conn}
}

// Do sends req and returns the raw reply. An ErrorResponse reply is returned
// as ErrRemote.
func (c *Client) Do(req Request) (string, error) {
	data, err := EncodeRequest(req)
	if err != nil {
		return "", err
	}
	reply, err := c.conn.RoundTrip(data)
	if err != nil {
		if errors.Is(err, transport.ErrTimeout) {
			return "", fmt.Errorf("%s request: no reply (is busnet up running?): %w", req.Kind, err)
		}
		return "", fmt.Errorf("%s request: %w", req.Kind, err)
	}
	if string(reply) == ErrorResponse {
		return "", ErrRemote
	}
	return string(reply), nil
}

// List returns the device names.
func (c *Client) List() ([]string, error) {
	reply, err := c.Do(ListRequest())
	if err != nil {
		return nil, err
	}
	if reply == "" {
		return nil, nil
	}
	names := strings.Split(reply, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	return names, nil
}

// Logs returns recent log lines.
func (c *Client) Logs() (string, error) {
	return c.Do(LogsRequest())
}

// Pin returns the level of one pin.
func (c *Client) Pin(machine, port string, index uint8) (bool, error) {
	reply, err := c.Do(IoRequest(machine, port, index))
	if err != nil {
		return false, err
	}
	switch reply {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("unexpected io reply %q", reply)
	}
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
