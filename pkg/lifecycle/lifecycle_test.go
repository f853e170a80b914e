package lifecycle

import (
	"errors"
	"sync/atomic"
	"testing"
)

type mockCloser struct {
	name     string
	closeErr error
	calls    int
	order    *[]string
}

func (m *mockCloser) Close() error {
	m.calls++
	if m.order != nil {
		*m.order = append(*m.order, m.name)
	}
	return m.closeErr
}

func TestCleanup_ReverseOrder(t *testing.T) {
	var order []string
	c := NewCleanup(nil)
	for _, name := range []string{"publisher", "responder", "gateway"} {
		c.Add(&mockCloser{name: name, order: &order}, name)
	}

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	c.Cleanup()

	want := []string{"gateway", "responder", "publisher"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("close order = %v, want %v", order, want)
		}
	}
	if c.Len() != 0 {
		t.Errorf("Len() after Cleanup = %d, want 0", c.Len())
	}
}

func TestCleanup_Idempotent(t *testing.T) {
	m := &mockCloser{}
	c := NewCleanup(nil)
	c.Add(m, "m")

	c.Cleanup()
	c.Cleanup()

	if m.calls != 1 {
		t.Errorf("Close called %d times, want 1", m.calls)
	}
}

func TestCleanup_Clear(t *testing.T) {
	m := &mockCloser{}
	c := NewCleanup(nil)
	c.Add(m, "m")
	c.Clear()
	c.Cleanup()

	if m.calls != 0 {
		t.Error("Clear() should prevent Close")
	}
}

func TestCleanup_CloseAllReturnsFirstError(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	a := &mockCloser{closeErr: errA}
	b := &mockCloser{closeErr: errB}

	c := NewCleanup(nil)
	c.Add(a, "a")
	c.Add(b, "b")
	c.AddFunc(func() error { return nil }, "func")

	if err := c.CloseAll(); !errors.Is(err, errB) {
		t.Errorf("CloseAll() = %v, want %v (last added closes first)", err, errB)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Error("every resource must be closed despite errors")
	}
}

func TestState_StartStop(t *testing.T) {
	var s State

	if s.IsRunning() {
		t.Fatal("IsRunning() should be false initially")
	}
	if _, notRunning := s.TryStop(); !notRunning {
		t.Error("TryStop() on stopped state should report notRunning")
	}

	unlock, already := s.TryStart()
	if already {
		t.Fatal("TryStart() reported already running")
	}
	s.MarkStarted()
	unlock()

	if _, already := s.TryStart(); !already {
		t.Error("second TryStart() should report already running")
	}

	unlock, notRunning := s.TryStop()
	if notRunning {
		t.Fatal("TryStop() reported not running")
	}
	s.MarkStopped()
	unlock()

	if s.IsRunning() {
		t.Error("IsRunning() should be false after stop")
	}
}

func TestGroup(t *testing.T) {
	var g Group
	var n atomic.Int32
	for i := 0; i < 10; i++ {
		g.Go(func() { n.Add(1) })
	}
	g.Wait()

	if n.Load() != 10 {
		t.Errorf("ran %d goroutines, want 10", n.Load())
	}
}
