package lifecycle

import (
	"sync"
	"sync/atomic"
)

// State provides thread-safe running state management.
// It can be embedded in structs that need to track running status.
type State struct {
	running atomic.Bool
	mu      sync.Mutex // protects startup/shutdown sequences
}

// IsRunning returns whether the component is running.
func (s *State) IsRunning() bool {
	return s.running.Load()
}

// TryStart attempts to start, returning alreadyRunning when it is.
// The returned unlock function must be called when startup is complete.
func (s *State) TryStart() (unlock func(), alreadyRunning bool) {
	s.mu.Lock()
	if s.running.Load() {
		s.mu.Unlock()
		return nil, true
	}
	return s.mu.Unlock, false
}

// TryStop attempts to stop, returning notRunning when it is not running.
// The returned unlock function must be called when shutdown is complete.
func (s *State) TryStop() (unlock func(), notRunning bool) {
	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return nil, true
	}
	return s.mu.Unlock, false
}

// MarkStarted marks the component as running.
func (s *State) MarkStarted() {
	s.running.Store(true)
}

// MarkStopped marks the component as stopped.
func (s *State) MarkStopped() {
	s.running.Store(false)
}

// Group tracks goroutines started with Go.
type Group struct {
	wg sync.WaitGroup
}

// Go runs fn in a goroutine tracked by the group.
func (g *Group) Go(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
}

// Wait blocks until every tracked goroutine has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}
