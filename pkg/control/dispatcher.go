package control

import (
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-busnet/pkg/logging"
)

// Handler serves one request kind.
type Handler func(req Request) (string, error)

// Dispatcher routes requests to registered handlers.
type Dispatcher struct {
	handlers map[Kind]Handler
	mu       sync.RWMutex
	logger   logging.Logger
}

// NewDispatcher creates an empty dispatcher. logger may be nil.
func NewDispatcher(logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[Kind]Handler),
		logger:   logging.OrNop(logger).With(logging.Component("control")),
	}
}

// Handle registers a handler for kind.
func (d *Dispatcher) Handle(kind Kind, handler Handler) *Dispatcher {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = handler
	return d
}

// Dispatch routes req to its handler.
func (d *Dispatcher) Dispatch(req Request) (string, error) {
	d.mu.RLock()
	handler, ok := d.handlers[req.Kind]
	d.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoHandler, req.Kind)
	}

	resp, err := handler(req)
	if err != nil {
		d.logger.Warn("control request failed", logging.String("kind", string(req.Kind)), logging.Error(err))
		return "", err
	}
	return resp, nil
}

// DispatchRaw decodes data and dispatches it.
func (d *Dispatcher) DispatchRaw(data []byte) (string, error) {
	req, err := DecodeRequest(data)
	if err != nil {
		return "", err
	}
	return d.Dispatch(req)
}

// Reply dispatches req and maps any failure to ErrorResponse.
func (d *Dispatcher) Reply(req Request) string {
	resp, err := d.Dispatch(req)
	if err != nil {
		return ErrorResponse
	}
	return resp
}

// HasHandler returns true if a handler is registered for kind.
func (d *Dispatcher) HasHandler(kind Kind) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[kind]
	return ok
}

// HandlerCount returns the number of registered handlers.
func (d *Dispatcher) HandlerCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}
