// Package transport abstracts the message sockets used for the event stream
// and the control channel, so components can be built on mangos or tested
// against in-process sockets.
package transport

import (
	"errors"
	"io"
	"time"
)

var (
	// ErrTimeout is returned by Recv when the receive deadline passes.
	ErrTimeout = errors.New("transport: receive timed out")
	// ErrClosed is returned by operations on a closed socket.
	ErrClosed = errors.New("transport: socket closed")
)

// Socket represents a messaging socket that can send and receive messages.
type Socket interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
	SetRecvDeadline(d time.Duration) error
	SetSendDeadline(d time.Duration) error
}

// ListenSocket is a socket that can bind to an address and accept connections.
type ListenSocket interface {
	Socket
	Listen(addr string) error
}

// DialSocket is a socket that can connect to a remote address.
type DialSocket interface {
	Socket
	Dial(addr string) error
}

// SubscribeSocket is a SUB socket that can subscribe to topic prefixes.
type SubscribeSocket interface {
	DialSocket
	Subscribe(prefix []byte) error
}

// SocketFactory creates sockets for the messaging patterns busnet uses.
type SocketFactory interface {
	// Event stream
	NewPubSocket() (ListenSocket, error)
	NewSubSocket() (SubscribeSocket, error)

	// Control channel
	NewRepSocket() (ListenSocket, error)
	NewReqSocket() (DialSocket, error)
}

// Schemes lists the URL schemes accepted for socket addresses.
var Schemes = []string{"tcp", "ipc", "inproc"}
