package orchestrator

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-busnet/pkg/control"
	"github.com/dd0wney/cluso-busnet/pkg/device"
	"github.com/dd0wney/cluso-busnet/pkg/events"
	"github.com/dd0wney/cluso-busnet/pkg/gateway"
	"github.com/dd0wney/cluso-busnet/pkg/metrics"
	"github.com/dd0wney/cluso-busnet/pkg/transport"
)

var inprocSeq atomic.Int64

func TestIntegration_EchoOverTCP(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	m := metrics.NewRegistry()
	gwServer := gateway.NewServer(gateway.Config{ListenAddr: "127.0.0.1:0"}, nil, m)
	require.NoError(t, gwServer.Start(context.Background()))
	t.Cleanup(func() { _ = gwServer.Close() })

	echo, err := device.New(device.Spec{Name: "sat", MCU: "echo"})
	require.NoError(t, err)
	blink, err := device.New(device.Spec{Name: "led", MCU: "blink", Options: device.Options{Port: "B", Pin: 5, Period: 150}})
	require.NoError(t, err)

	bus := events.NewLocalBus()
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	busSub, err := bus.Subscribe(ctx, events.DevicePrefix("sat"))
	require.NoError(t, err)
	pinSub, err := bus.Subscribe(ctx, events.DevicePrefix("led"))
	require.NoError(t, err)

	factory := transport.NewMangosFactory()
	controlAddr := fmt.Sprintf("inproc://orchestrator-test-%d", inprocSeq.Add(1))
	responder, err := control.NewSocketResponder(factory, controlAddr, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = responder.Close() })

	o, err := New(Config{TickInterval: time.Millisecond, StepBudget: 100}, Deps{
		Nodes: []Node{
			{Device: echo, Peers: []string{gw}},
			{Device: blink, Ports: []byte{'B'}},
		},
		Gateway: gwServer,
		Events:  bus,
		Control: responder,
		Metrics: m,
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	conn, err := net.Dial("tcp", gwServer.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return len(gwServer.ConnectedClientIDs()) == 1 }, 2*time.Second, 5*time.Millisecond)

	// The gateway frames "hi" to address 1; echo sends the same frame back,
	// which the gateway framer accepts and writes to the client.
	_, err = conn.Write([]byte("hi"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	buf := make([]byte, 2)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(buf))

	select {
	case ev := <-busSub.Events():
		assert.Equal(t, "sat/bus", ev.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("no bus event published")
	}

	select {
	case ev := <-pinSub.Events():
		assert.Equal(t, "led/pin/B/5", ev.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("no pin event published")
	}

	ctrlConn, err := control.DialSocket(factory, controlAddr, 2*time.Second)
	require.NoError(t, err)
	client := control.NewClient(ctrlConn)
	defer client.Close()

	names, err := client.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"led", "sat"}, names)

	_, err = client.Pin("ghost", "B", 0)
	assert.ErrorIs(t, err, control.ErrRemote)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
