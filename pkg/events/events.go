// Package events publishes bus traffic and pin changes as topic-addressed
// messages.
//
// Topics:
//
//	<device>/bus                 raw bytes a device transmitted
//	<device>/pin/<port>/<bit>    "0" or "1" after a pin level change
//
// Socket transports carry one message per event, "<topic>\x00<payload>", so
// prefix subscriptions select a device or a kind of event.
package events

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrClosed           = errors.New("publisher closed")
	ErrUnknownTransport = errors.New("unknown event transport")
	ErrMalformedEvent   = errors.New("malformed event")
)

// Publisher sends events to subscribers.
type Publisher interface {
	Publish(topic string, payload []byte) error
	Close() error
}

// Event is one received publication.
type Event struct {
	Topic   string
	Payload []byte
}

// BusTopic is the topic carrying bytes transmitted by device.
func BusTopic(device string) string {
	return device + "/bus"
}

// PinTopic is the topic carrying level changes of one pin.
func PinTopic(device string, port byte, bit uint8) string {
	return fmt.Sprintf("%s/pin/%c/%d", device, port, bit)
}

// PinPayload encodes a pin level.
func PinPayload(high bool) []byte {
	if high {
		return []byte("1")
	}
	return []byte("0")
}

// DevicePrefix selects every topic of device.
func DevicePrefix(device string) string {
	return device + "/"
}

// Kind of a parsed topic.
type Kind int

const (
	KindBus Kind = iota + 1
	KindPin
)

// Topic is a parsed topic name.
type Topic struct {
	Device string
	Kind   Kind
	Port   byte
	Bit    uint8
}

// ParseTopic splits a topic produced by BusTopic or PinTopic.
func ParseTopic(topic string) (Topic, error) {
	parts := strings.Split(topic, "/")
	switch {
	case len(parts) == 2 && parts[1] == "bus" && parts[0] != "":
		return Topic{Device: parts[0], Kind: KindBus}, nil
	case len(parts) == 4 && parts[1] == "pin" && parts[0] != "" && len(parts[2]) == 1:
		bit, err := strconv.ParseUint(parts[3], 10, 8)
		if err != nil || bit > 7 {
			return Topic{}, fmt.Errorf("%w: bad pin index in %q", ErrMalformedEvent, topic)
		}
		return Topic{Device: parts[0], Kind: KindPin, Port: parts[2][0], Bit: uint8(bit)}, nil
	default:
		return Topic{}, fmt.Errorf("%w: unrecognised topic %q", ErrMalformedEvent, topic)
	}
}

// encode builds the single-message wire form.
func encode(topic string, payload []byte) []byte {
	msg := make([]byte, 0, len(topic)+1+len(payload))
	msg = append(msg, topic...)
	msg = append(msg, 0)
	return append(msg, payload...)
}

// decode splits the single-message wire form.
func decode(msg []byte) (Event, error) {
	i := bytes.IndexByte(msg, 0)
	if i < 0 {
		return Event{}, fmt.Errorf("%w: missing topic separator", ErrMalformedEvent)
	}
	return Event{Topic: string(msg[:i]), Payload: bytes.Clone(msg[i+1:])}, nil
}
