package control

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dd0wney/cluso-busnet/pkg/logging"
	"github.com/dd0wney/cluso-busnet/pkg/transport"
)

// DefaultPollWait is how long TryRecv waits for a request before reporting none.
const DefaultPollWait = time.Millisecond

// Responder is the serving end of the control channel.
//
// TryRecv never blocks for long. It reports ok=false when nothing is waiting.
// When a message arrived but could not be decoded it reports ok=true with an
// error wrapping ErrMalformedRequest; the caller must still Send a reply.
type Responder interface {
	TryRecv() (req Request, ok bool, err error)
	Send(resp string) error
	Close() error
}

// ResponderOpener creates a responder bound to addr.
type ResponderOpener func(addr string, logger logging.Logger) (Responder, error)

var (
	transportsMu sync.RWMutex
	transports   = map[string]ResponderOpener{
		"mangos": func(addr string, logger logging.Logger) (Responder, error) {
			return NewSocketResponder(transport.NewMangosFactory(), addr, logger)
		},
	}
)

// RegisterTransport makes a responder transport available by name.
func RegisterTransport(name string, open ResponderOpener) {
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

// Open creates a responder for the named transport.
func Open(name, addr string, logger logging.Logger) (Responder, error) {
	transportsMu.RLock()
	open, ok := transports[name]
	transportsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownTransport, name, Transports())
	}
	return open(addr, logger)
}

// SocketResponder serves requests on a REP socket.
type SocketResponder struct {
	socket transport.ListenSocket
}

// NewSocketResponder binds a REP socket from factory to addr.
func NewSocketResponder(factory transport.SocketFactory, addr string, logger logging.Logger) (*SocketResponder, error) {
	socket, err := factory.NewRepSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create REP socket: %w", err)
	}
	if err := socket.SetRecvDeadline(DefaultPollWait); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.Listen(addr); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("failed to bind REP socket to %s: %w", addr, err)
	}

	logging.OrNop(logger).Info("control responder bound",
		logging.Component("control"), logging.Addr(addr))

	return &SocketResponder{socket: socket}, nil
}

// TryRecv polls for one request.
func (r *SocketResponder) TryRecv() (Request, bool, error) {
	msg, err := r.socket.Recv()
	if errors.Is(err, transport.ErrTimeout) {
		return Request{}, false, nil
	}
	if err != nil {
		return Request{}, false, err
	}
	req, err := DecodeRequest(msg)
	return req, true, err
}

// Send replies to the last received request.
func (r *SocketResponder) Send(resp string) error {
	return r.socket.Send([]byte(resp))
}

// Close releases the socket.
func (r *SocketResponder) Close() error {
	return r.socket.Close()
}
