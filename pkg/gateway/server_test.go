package gateway

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-busnet/pkg/metrics"
)

const waitFor = 2 * time.Second
const pollEvery = 5 * time.Millisecond

func startServer(t *testing.T) (*Server, *metrics.Registry) {
	t.Helper()
	m := metrics.NewRegistry()
	s := NewServer(Config{ListenAddr: "127.0.0.1:0"}, nil, m)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s, m
}

func dial(t *testing.T, s *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func metricValue(m prometheus.Metric) float64 {
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		return -1
	}
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

func waitForClients(t *testing.T, s *Server, n int) []ClientID {
	t.Helper()
	require.Eventually(t, func() bool { return len(s.ConnectedClientIDs()) == n }, waitFor, pollEvery)
	return s.ConnectedClientIDs()
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())

	bad := Config{ListenAddr: "7001", ReadBufferSize: 0, PumpInterval: 0}
	assert.Error(t, bad.Validate())
}

func TestServer_ReceiveAndSend(t *testing.T) {
	s, _ := startServer(t)
	conn := dial(t, s)

	ids := waitForClients(t, s, 1)
	id := ids[0]
	assert.Equal(t, ClientID(0), id)
	assert.True(t, s.IsConnected(id))

	_, ok := s.ReadData(id)
	assert.False(t, ok, "nothing buffered yet")

	_, err := conn.Write([]byte("hi"))
	require.NoError(t, err)

	var got []byte
	require.Eventually(t, func() bool {
		if data, ok := s.ReadData(id); ok {
			got = append(got, data...)
		}
		return len(got) >= 2
	}, waitFor, pollEvery)
	assert.Equal(t, "hi", string(got))

	s.SendData(id, []byte("hello"))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	buf := make([]byte, 5)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
}

func TestServer_Broadcast(t *testing.T) {
	s, _ := startServer(t)
	a := dial(t, s)
	b := dial(t, s)
	waitForClients(t, s, 2)

	s.Broadcast([]byte("all"))

	for _, conn := range []net.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
		buf := make([]byte, 3)
		_, err := io.ReadFull(conn, buf)
		require.NoError(t, err)
		assert.Equal(t, "all", string(buf))
	}
}

func TestServer_ChurnNeverReusesIDs(t *testing.T) {
	s, m := startServer(t)

	first := dial(t, s)
	dial(t, s)
	dial(t, s)
	ids := waitForClients(t, s, 3)
	assert.Equal(t, []ClientID{0, 1, 2}, ids)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return !s.IsConnected(0) }, waitFor, pollEvery)

	dial(t, s)
	ids = waitForClients(t, s, 3)
	assert.Equal(t, []ClientID{1, 2, 3}, ids)

	require.Eventually(t, func() bool {
		return metricValue(m.GatewayConnectionsTotal) == 4 &&
			metricValue(m.GatewayConnections) == 3 &&
			metricValue(m.GatewayDisconnects.WithLabelValues(reasonEOF)) == 1
	}, waitFor, pollEvery)
}

func TestServer_GoneClientIsNoop(t *testing.T) {
	s, _ := startServer(t)

	_, ok := s.ReadData(42)
	assert.False(t, ok)
	assert.False(t, s.IsConnected(42))
	assert.NotPanics(t, func() {
		s.SendData(42, []byte("x"))
		s.Disconnect(42)
	})
}

func TestServer_DisconnectClosesSocket(t *testing.T) {
	s, _ := startServer(t)
	conn := dial(t, s)
	id := waitForClients(t, s, 1)[0]

	s.Disconnect(id)
	assert.False(t, s.IsConnected(id))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	_, err := conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestServer_DisconnectAll(t *testing.T) {
	s, _ := startServer(t)
	dial(t, s)
	dial(t, s)
	waitForClients(t, s, 2)

	s.DisconnectAll()
	assert.Empty(t, s.ConnectedClientIDs())
}

func TestServer_IDSpaceExhausted(t *testing.T) {
	s, m := startServer(t)

	s.mu.Lock()
	s.nextID = maxClientIDs
	s.mu.Unlock()

	conn := dial(t, s)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	_, err := conn.Read(make([]byte, 1))
	assert.Error(t, err, "refused connection should be closed")

	assert.Empty(t, s.ConnectedClientIDs())
	require.Eventually(t, func() bool {
		return metricValue(m.GatewayRejectedTotal) == 1
	}, waitFor, pollEvery)
}

func TestServer_Clients(t *testing.T) {
	s, _ := startServer(t)
	conn := dial(t, s)
	id := waitForClients(t, s, 1)[0]

	_, err := conn.Write([]byte("abc"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		infos := s.Clients()
		return len(infos) == 1 && infos[0].RxPending == 3
	}, waitFor, pollEvery)

	info := s.Clients()[0]
	assert.Equal(t, id, info.ID)
	assert.Equal(t, conn.LocalAddr().String(), info.RemoteAddr)
}

func TestServer_Lifecycle(t *testing.T) {
	s := NewServer(Config{ListenAddr: "127.0.0.1:0"}, nil, nil)
	assert.Nil(t, s.Addr())
	assert.ErrorIs(t, s.Shutdown(), ErrNotRunning)
	assert.NoError(t, s.Close(), "closing a stopped server is not an error")

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Listening())
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	waitForClients(t, s, 1)

	require.NoError(t, s.Shutdown())
	assert.False(t, s.Listening())
	assert.Empty(t, s.ConnectedClientIDs())
}

func TestServer_ContextCancelShutsDown(t *testing.T) {
	s := NewServer(Config{ListenAddr: "127.0.0.1:0"}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	addr := s.Addr().String()

	cancel()
	require.Eventually(t, func() bool { return !s.Listening() }, waitFor, pollEvery)

	_, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err)
}

func TestServer_StartBindError(t *testing.T) {
	s, _ := startServer(t)

	other := NewServer(Config{ListenAddr: s.Addr().String()}, nil, nil)
	err := other.Start(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAlreadyRunning))
	assert.False(t, other.Listening())
}
