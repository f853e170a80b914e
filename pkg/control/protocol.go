// Package control implements the request/response side channel used to
// query a running fabric: list devices, fetch recent logs, and sample a pin.
//
// Requests are JSON objects:
//
//	{"kind":"list"}
//	{"kind":"logs"}
//	{"kind":"io","io":{"machine_id":"sat","port":"B","pin_index":5}}
//
// Replies are plain strings. Any failure is answered with ErrorResponse.
package control

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-busnet/pkg/validation"
)

// ErrorResponse is the reply to any request that could not be served.
const ErrorResponse = "Error!"

var (
	ErrMalformedRequest = errors.New("malformed control request")
	ErrNoHandler        = errors.New("no handler for request kind")
	ErrRemote           = errors.New("remote returned an error")
	ErrUnknownTransport = errors.New("unknown control transport")
)

// Kind selects the operation a request performs.
type Kind string

const (
	KindList Kind = "list"
	KindLogs Kind = "logs"
	KindIo   Kind = "io"
)

// Request is one control query.
type Request struct {
	Kind Kind    `json:"kind" validate:"required,oneof=list logs io"`
	Io   *IoArgs `json:"io,omitempty"`
}

// IoArgs selects a pin on a device.
type IoArgs struct {
	MachineID string `json:"machine_id" validate:"required,nodename"`
	Port      string `json:"port" validate:"required,avrport"`
	PinIndex  uint8  `json:"pin_index" validate:"max=7"`
}

// ListRequest asks for the device names.
func ListRequest() Request { return Request{Kind: KindList} }

// LogsRequest asks for recent log lines.
func LogsRequest() Request { return Request{Kind: KindLogs} }

// IoRequest asks for the level of one pin.
func IoRequest(machine, port string, index uint8) Request {
	return Request{Kind: KindIo, Io: &IoArgs{MachineID: machine, Port: port, PinIndex: index}}
}

// Validate checks the request shape.
func (r Request) Validate() error {
	if err := validation.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if r.Kind == KindIo && r.Io == nil {
		return fmt.Errorf("%w: io request without io arguments", ErrMalformedRequest)
	}
	return nil
}

// EncodeRequest serializes req.
func EncodeRequest(req Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(req)
}

// DecodeRequest parses and validates a request. Every failure wraps ErrMalformedRequest.
func DecodeRequest(data []byte) (Request, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var req Request
	if err := dec.Decode(&req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}
