package events

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dd0wney/cluso-busnet/pkg/transport"
)

var inprocSeq atomic.Int64

func inprocAddr() string {
	return fmt.Sprintf("inproc://events-test-%d", inprocSeq.Add(1))
}

func TestSocketPublisher_Subscriber(t *testing.T) {
	f := transport.NewMangosFactory()
	addr := inprocAddr()

	pub, err := NewSocketPublisher(f, addr, nil)
	if err != nil {
		t.Fatalf("NewSocketPublisher() error = %v", err)
	}
	defer pub.Close()

	sub, err := NewSubscriber(f, addr, DevicePrefix("sat"))
	if err != nil {
		t.Fatalf("NewSubscriber() error = %v", err)
	}
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// PUB drops events until the subscription is attached; keep publishing.
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = pub.Publish(BusTopic("cam"), []byte("no"))
				_ = pub.Publish(BusTopic("sat"), []byte("hi"))
			}
		}
	}()

	ev, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if ev.Topic != "sat/bus" || string(ev.Payload) != "hi" {
		t.Errorf("Next() = %+v, want sat/bus hi", ev)
	}
}

func TestSubscriber_NextHonoursContext(t *testing.T) {
	f := transport.NewMangosFactory()
	addr := inprocAddr()

	pub, err := NewSocketPublisher(f, addr, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	sub, err := NewSubscriber(f, addr)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if _, err := sub.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next() error = %v, want DeadlineExceeded", err)
	}
}

func TestSocketPublisher_Close(t *testing.T) {
	pub, err := NewSocketPublisher(transport.NewMangosFactory(), inprocAddr(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := pub.Publish("sat/bus", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() after Close error = %v, want ErrClosed", err)
	}
}

func TestOpen_Mangos(t *testing.T) {
	pub, err := Open("mangos", inprocAddr(), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer pub.Close()

	if err := pub.Publish("sat/bus", []byte("x")); err != nil {
		t.Errorf("Publish() with no subscribers error = %v", err)
	}
}

func TestDial(t *testing.T) {
	addr := inprocAddr()
	pub, err := Open("mangos", addr, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer pub.Close()

	stream, err := Dial("mangos", addr, DevicePrefix("sat"))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer stream.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = pub.Publish(PinTopic("sat", 'B', 1), PinPayload(true))
			}
		}
	}()

	ev, err := stream.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if ev.Topic != "sat/pin/B/1" || string(ev.Payload) != "1" {
		t.Errorf("Next() = %+v", ev)
	}

	if _, err := Dial("pigeon", addr); !errors.Is(err, ErrUnknownTransport) {
		t.Errorf("Dial(pigeon) error = %v, want ErrUnknownTransport", err)
	}
}
