package lifecycle

import (
	"io"

	"github.com/dd0wney/cluso-busnet/pkg/logging"
)

// Cleanup provides a stack-based cleanup mechanism for resources.
// Resources are closed in reverse order (LIFO).
//
// Example usage:
//
//	cleanup := lifecycle.NewCleanup(logger)
//	defer cleanup.Cleanup() // closes everything registered so far on error
//
//	pub, err := events.Open("mangos", url, logger)
//	if err != nil {
//	    return err
//	}
//	cleanup.Add(pub, "event publisher")
//
//	resp, err := control.Open("mangos", url, logger)
//	if err != nil {
//	    return err // closes pub
//	}
//	cleanup.Add(resp, "control responder")
type Cleanup struct {
	logger    logging.Logger
	resources []namedCloser
}

// namedCloser wraps a closer with a descriptive name for logging
type namedCloser struct {
	closer io.Closer
	name   string
}

// CloserFunc adapts a function to io.Closer.
type CloserFunc func() error

// Close calls fn.
func (fn CloserFunc) Close() error { return fn() }

// NewCleanup creates an empty cleanup stack.
func NewCleanup(logger logging.Logger) *Cleanup {
	return &Cleanup{
		logger:    logging.OrNop(logger),
		resources: make([]namedCloser, 0, 8),
	}
}

// Add registers a resource to be closed.
func (c *Cleanup) Add(closer io.Closer, name string) {
	c.resources = append(c.resources, namedCloser{closer: closer, name: name})
}

// AddFunc registers a close function.
func (c *Cleanup) AddFunc(fn func() error, name string) {
	c.Add(CloserFunc(fn), name)
}

// Len returns the number of registered resources.
func (c *Cleanup) Len() int {
	return len(c.resources)
}

// Cleanup closes all registered resources in reverse order, logging failures.
// Calling it more than once is safe.
func (c *Cleanup) Cleanup() {
	_ = c.CloseAll()
}

// Clear forgets all registered resources without closing them.
func (c *Cleanup) Clear() {
	c.resources = c.resources[:0]
}

// CloseAll closes all registered resources in reverse order and returns the
// first error encountered.
func (c *Cleanup) CloseAll() error {
	var firstErr error
	for i := len(c.resources) - 1; i >= 0; i-- {
		r := c.resources[i]
		if r.closer == nil {
			continue
		}
		if err := r.closer.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			c.logger.Warn("failed to close resource", logging.String("resource", r.name), logging.Error(err))
		}
	}
	c.resources = c.resources[:0]
	return firstErr
}
