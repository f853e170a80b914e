package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestLocalBus_PrefixRouting(t *testing.T) {
	bus := NewLocalBus()
	defer bus.Close()

	ctx := context.Background()
	satOnly, _ := bus.Subscribe(ctx, DevicePrefix("sat"))
	everything, _ := bus.Subscribe(ctx, "")

	_ = bus.Publish("cam/bus", []byte("c"))
	_ = bus.Publish("sat/pin/B/0", PinPayload(true))

	if ev := receive(t, everything); ev.Topic != "cam/bus" {
		t.Errorf("first event = %q, want cam/bus", ev.Topic)
	}
	if ev := receive(t, everything); ev.Topic != "sat/pin/B/0" {
		t.Errorf("second event = %q, want sat/pin/B/0", ev.Topic)
	}
	ev := receive(t, satOnly)
	if ev.Topic != "sat/pin/B/0" || string(ev.Payload) != "1" {
		t.Errorf("sat subscriber got %+v", ev)
	}

	select {
	case extra := <-satOnly.Events():
		t.Errorf("sat subscriber got unexpected %+v", extra)
	default:
	}
}

func TestLocalBus_ContextCancelUnsubscribes(t *testing.T) {
	bus := NewLocalBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := bus.Subscribe(ctx, "")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if bus.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", bus.SubscriberCount())
	}

	cancel()

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d after cancel, want 0", bus.SubscriberCount())
	}
}

func TestLocalBus_FullSubscriberDrops(t *testing.T) {
	bus := NewLocalBus()
	defer bus.Close()

	sub, _ := bus.Subscribe(context.Background(), "")
	for i := 0; i < DefaultSubscriptionBuffer+5; i++ {
		if err := bus.Publish("sat/bus", []byte{byte(i)}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	if bus.Dropped() != 5 {
		t.Errorf("Dropped() = %d, want 5", bus.Dropped())
	}
	sub.Unsubscribe()
	sub.Unsubscribe()
}

func TestLocalBus_Close(t *testing.T) {
	bus := NewLocalBus()
	sub, _ := bus.Subscribe(context.Background(), "")

	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, ok := <-sub.Events(); ok {
		t.Error("subscription channel should be closed")
	}
	if err := bus.Publish("sat/bus", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() after Close error = %v, want ErrClosed", err)
	}
	if _, err := bus.Subscribe(context.Background(), ""); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe() after Close error = %v, want ErrClosed", err)
	}
}
