package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dd0wney/cluso-busnet/pkg/logging"
)

// DefaultShutdownTimeout bounds how long Shutdown waits for in-flight requests.
const DefaultShutdownTimeout = 5 * time.Second

// GracefulServer wraps an HTTP server with context-driven graceful shutdown
type GracefulServer struct {
	server       *http.Server
	logger       logging.Logger
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	mu       sync.Mutex
	listener net.Listener
	serveErr error
}

// NewGracefulServer creates a new graceful HTTP server
func NewGracefulServer(addr string, handler http.Handler, logger logging.Logger) *GracefulServer {
	return &GracefulServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		logger:     logging.OrNop(logger).With(logging.Component("http")),
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start binds the listen address and serves in the background until ctx is
// cancelled or Shutdown is called. Bind errors are returned synchronously.
func (gs *GracefulServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}

	gs.mu.Lock()
	gs.listener = ln
	gs.mu.Unlock()

	gs.logger.Info("http server listening", logging.Addr(ln.Addr().String()))

	go func() {
		defer close(gs.done)
		if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			gs.mu.Lock()
			gs.serveErr = err
			gs.mu.Unlock()
			gs.logger.Error("http server stopped", logging.Error(err))
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = gs.Shutdown(DefaultShutdownTimeout)
		case <-gs.shutdownCh:
		}
	}()

	return nil
}

// Addr returns the bound address, or nil before Start.
func (gs *GracefulServer) Addr() net.Addr {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.listener == nil {
		return nil
	}
	return gs.listener.Addr()
}

// Shutdown initiates a graceful shutdown
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("initiating graceful shutdown", logging.Duration("timeout", timeout))

		if shutdownErr := gs.server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
			gs.logger.Error("error during shutdown", logging.Error(shutdownErr))
		} else {
			gs.logger.Info("http server shutdown complete")
		}
	})
	return err
}

// Wait blocks until the serve loop has returned and reports its error, if any.
func (gs *GracefulServer) Wait() error {
	<-gs.done
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.serveErr
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}
