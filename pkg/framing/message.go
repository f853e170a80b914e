package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the number of header bytes preceding every payload.
	HeaderSize = 4

	// MaxPayload is the largest payload a streaming Framer will buffer.
	MaxPayload = 256

	// MaxEncodedPayload is the largest payload the length field can describe.
	MaxEncodedPayload = 0xFFFF
)

// Format errors. All of them wrap ErrFormat.
var (
	ErrFormat          = errors.New("frame format error")
	ErrShortFrame      = fmt.Errorf("%w: frame shorter than header", ErrFormat)
	ErrLengthMismatch  = fmt.Errorf("%w: payload length does not match header", ErrFormat)
	ErrPayloadTooLarge = fmt.Errorf("%w: payload exceeds %d bytes", ErrFormat, MaxEncodedPayload)
	ErrFrameTooLarge   = fmt.Errorf("%w: declared length exceeds %d byte buffer", ErrFormat, MaxPayload)
)

// Message is an addressed unit of bytes on the bus.
type Message struct {
	Address uint16
	Payload []byte
}

// Encode produces the wire form of m.
func Encode(m Message) ([]byte, error) {
	if len(m.Payload) > MaxEncodedPayload {
		return nil, ErrPayloadTooLarge
	}

	out := make([]byte, HeaderSize+len(m.Payload))
	binary.BigEndian.PutUint16(out[0:2], m.Address)
	binary.BigEndian.PutUint16(out[2:4], uint16(len(m.Payload)))
	copy(out[HeaderSize:], m.Payload)
	return out, nil
}

// Decode parses exactly one frame occupying all of b.
func Decode(b []byte) (Message, error) {
	if len(b) < HeaderSize {
		return Message{}, ErrShortFrame
	}
	if len(b) > HeaderSize+MaxEncodedPayload {
		return Message{}, ErrPayloadTooLarge
	}

	length := int(binary.BigEndian.Uint16(b[2:4]))
	if len(b)-HeaderSize != length {
		return Message{}, fmt.Errorf("%w: header says %d, got %d", ErrLengthMismatch, length, len(b)-HeaderSize)
	}

	payload := make([]byte, length)
	copy(payload, b[HeaderSize:])

	return Message{
		Address: binary.BigEndian.Uint16(b[0:2]),
		Payload: payload,
	}, nil
}

// Split encodes payload as a sequence of frames addressed to address, each
// carrying at most MaxPayload bytes so that any Framer can accept them.
// An empty payload yields no frames.
func Split(address uint16, payload []byte) [][]byte {
	if len(payload) == 0 {
		return nil
	}

	frames := make([][]byte, 0, (len(payload)+MaxPayload-1)/MaxPayload)
	for start := 0; start < len(payload); start += MaxPayload {
		end := min(start+MaxPayload, len(payload))
		// Chunks never exceed MaxPayload, so Encode cannot fail here.
		frame, _ := Encode(Message{Address: address, Payload: payload[start:end]})
		frames = append(frames, frame)
	}
	return frames
}
