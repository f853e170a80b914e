// Package gateway multiplexes TCP clients onto the bus.
//
// Each accepted connection gets a ClientID and a pair of byte buffers. A
// reader goroutine appends inbound bytes to the receive buffer and a pump
// goroutine drains the transmit buffer to the socket. The tick loop moves
// bytes in and out with ReadData and SendData without ever touching a socket.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/dd0wney/cluso-busnet/pkg/lifecycle"
	"github.com/dd0wney/cluso-busnet/pkg/logging"
	"github.com/dd0wney/cluso-busnet/pkg/metrics"
)

// ClientID identifies a connection for the lifetime of the process.
type ClientID uint16

// maxClientIDs is the size of the ClientID space. IDs are never reused.
const maxClientIDs = 1 << 16

var (
	ErrAlreadyRunning = errors.New("gateway already running")
	ErrNotRunning     = errors.New("gateway not running")
	ErrIDsExhausted   = errors.New("client id space exhausted")
)

// Disconnect reasons reported to metrics and logs.
const (
	reasonEOF        = "eof"
	reasonReadError  = "read_error"
	reasonWriteError = "write_error"
	reasonClosed     = "closed"
)

type client struct {
	conn   net.Conn
	rx     []byte
	tx     []byte
	notify chan struct{} // wakes the pump when tx grows
	gone   chan struct{} // closed when the entry is removed
}

// ClientInfo is a point-in-time view of one connection.
type ClientInfo struct {
	ID         ClientID `json:"id"`
	RemoteAddr string   `json:"remote_addr"`
	RxPending  int      `json:"rx_pending"`
	TxPending  int      `json:"tx_pending"`
}

// Server is the connection multiplexer.
type Server struct {
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry

	state lifecycle.State
	group lifecycle.Group
	stop  chan struct{}

	// mu guards the fields below. It is never held across socket I/O.
	mu       sync.Mutex
	clients  map[ClientID]*client
	nextID   uint32
	listener net.Listener
	closing  bool
}

// NewServer creates a gateway. m may be nil.
func NewServer(cfg Config, logger logging.Logger, m *metrics.Registry) *Server {
	cfg.ApplyDefaults()
	return &Server{
		cfg:     cfg,
		logger:  logging.OrNop(logger).With(logging.Component("gateway")),
		metrics: m,
		clients: make(map[ClientID]*client),
	}
}

// Start binds the listener and begins accepting in the background. The
// server shuts down when ctx is cancelled or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	unlock, alreadyRunning := s.state.TryStart()
	if alreadyRunning {
		return ErrAlreadyRunning
	}
	defer unlock()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("gateway listen on %s: %w", s.cfg.ListenAddr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.closing = false
	s.mu.Unlock()
	s.stop = make(chan struct{})
	s.state.MarkStarted()

	s.logger.Info("gateway listening", logging.Addr(ln.Addr().String()))

	stop := s.stop
	s.group.Go(func() { s.acceptLoop(ln, stop) })
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Shutdown()
		case <-stop:
		}
	}()

	return nil
}

// Addr returns the listener address, or nil when not running.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Listening reports whether the accept loop is running.
func (s *Server) Listening() bool {
	return s.state.IsRunning()
}

func (s *Server) acceptLoop(ln net.Listener, stop <-chan struct{}) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-stop:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", logging.Error(err))
			time.Sleep(5 * time.Millisecond)
			continue
		}
		s.register(conn)
	}
}

func (s *Server) register(conn net.Conn) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	if s.nextID >= maxClientIDs {
		s.mu.Unlock()
		_ = conn.Close()
		s.metrics.RecordRejected()
		s.logger.Warn("connection refused", logging.Addr(conn.RemoteAddr().String()), logging.Error(ErrIDsExhausted))
		return
	}
	id := ClientID(s.nextID)
	s.nextID++
	c := &client{
		conn:   conn,
		notify: make(chan struct{}, 1),
		gone:   make(chan struct{}),
	}
	s.clients[id] = c
	s.mu.Unlock()

	s.metrics.RecordConnect()
	s.logger.Info("client connected", logging.ClientID(uint16(id)), logging.Addr(conn.RemoteAddr().String()))

	s.group.Go(func() { s.readLoop(id, c) })
	s.group.Go(func() { s.pumpLoop(id, c) })
}

func (s *Server) readLoop(id ClientID, c *client) {
	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			s.mu.Lock()
			if s.clients[id] != c {
				s.mu.Unlock()
				return
			}
			c.rx = append(c.rx, buf[:n]...)
			s.mu.Unlock()
		}
		if err != nil {
			reason := reasonReadError
			switch {
			case errors.Is(err, io.EOF):
				reason = reasonEOF
			case errors.Is(err, net.ErrClosed):
				reason = reasonClosed
			}
			s.remove(id, c, reason, err)
			return
		}
	}
}

func (s *Server) pumpLoop(id ClientID, c *client) {
	ticker := time.NewTicker(s.cfg.PumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.gone:
			return
		case <-c.notify:
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.clients[id] != c {
			s.mu.Unlock()
			return
		}
		if len(c.tx) == 0 {
			s.mu.Unlock()
			continue
		}
		pending := slices.Clone(c.tx)
		s.mu.Unlock()

		n, err := c.conn.Write(pending)

		s.mu.Lock()
		if s.clients[id] == c {
			c.tx = c.tx[n:]
			if len(c.tx) == 0 {
				c.tx = nil
			}
		}
		s.mu.Unlock()

		if err != nil {
			s.remove(id, c, reasonWriteError, err)
			return
		}
	}
}

// remove deletes the entry for id if it is still c and closes its socket.
func (s *Server) remove(id ClientID, c *client, reason string, cause error) {
	s.mu.Lock()
	if s.clients[id] != c {
		s.mu.Unlock()
		return
	}
	delete(s.clients, id)
	close(c.gone)
	s.mu.Unlock()

	_ = c.conn.Close()
	s.metrics.RecordDisconnect(reason)

	fields := []logging.Field{logging.ClientID(uint16(id)), logging.String("reason", reason)}
	if cause != nil && reason != reasonEOF && reason != reasonClosed {
		fields = append(fields, logging.Error(cause))
	}
	if reason == reasonWriteError {
		s.logger.Warn("cannot write data, client disconnected", fields...)
		return
	}
	s.logger.Info("client disconnected", fields...)
}

// ConnectedClientIDs returns a sorted snapshot of live client ids.
func (s *Server) ConnectedClientIDs() []ClientID {
	s.mu.Lock()
	ids := make([]ClientID, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	slices.Sort(ids)
	return ids
}

// Clients returns a sorted snapshot of every live connection.
func (s *Server) Clients() []ClientInfo {
	s.mu.Lock()
	infos := make([]ClientInfo, 0, len(s.clients))
	for id, c := range s.clients {
		infos = append(infos, ClientInfo{
			ID:         id,
			RemoteAddr: c.conn.RemoteAddr().String(),
			RxPending:  len(c.rx),
			TxPending:  len(c.tx),
		})
	}
	s.mu.Unlock()

	slices.SortFunc(infos, func(a, b ClientInfo) int { return int(a.ID) - int(b.ID) })
	return infos
}

// IsConnected reports whether id is live.
func (s *Server) IsConnected(id ClientID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.clients[id]
	return ok
}

// ReadData takes everything received from id since the last call. It returns
// false when the client is gone or nothing is buffered.
func (s *Server) ReadData(id ClientID) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok || len(c.rx) == 0 {
		return nil, false
	}
	data := c.rx
	c.rx = nil
	return data, true
}

// SendData queues data for id. Unknown ids are ignored.
func (s *Server) SendData(id ClientID, data []byte) {
	if len(data) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[id]; ok {
		c.tx = append(c.tx, data...)
		wake(c)
	}
}

// Broadcast queues data for every live client.
func (s *Server) Broadcast(data []byte) {
	if len(data) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		c.tx = append(c.tx, data...)
		wake(c)
	}
}

func wake(c *client) {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Disconnect removes id and closes its socket. Unknown ids are ignored.
func (s *Server) Disconnect(id ClientID) {
	s.mu.Lock()
	c, ok := s.clients[id]
	s.mu.Unlock()
	if ok {
		s.remove(id, c, reasonClosed, nil)
	}
}

// DisconnectAll removes every client.
func (s *Server) DisconnectAll() {
	s.mu.Lock()
	snapshot := make(map[ClientID]*client, len(s.clients))
	for id, c := range s.clients {
		snapshot[id] = c
	}
	s.mu.Unlock()

	for id, c := range snapshot {
		s.remove(id, c, reasonClosed, nil)
	}
}

// Shutdown stops accepting, disconnects every client and waits for all
// connection goroutines to exit.
func (s *Server) Shutdown() error {
	unlock, notRunning := s.state.TryStop()
	if notRunning {
		return ErrNotRunning
	}
	defer unlock()

	close(s.stop)

	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.closing = true
	s.mu.Unlock()

	var err error
	if ln != nil {
		if closeErr := ln.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
			err = closeErr
		}
	}

	s.DisconnectAll()
	s.group.Wait()
	s.state.MarkStopped()

	s.logger.Info("gateway stopped")
	return err
}

// Close implements io.Closer. Closing a stopped server is not an error.
func (s *Server) Close() error {
	if err := s.Shutdown(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return nil
}
