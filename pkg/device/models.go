package device

import (
	"slices"

	"github.com/dd0wney/cluso-busnet/pkg/framing"
)

func init() {
	Register("echo", newEcho)
	Register("blink", newBlink)
	Register("hello", newHello)
	Register("responder", newResponder)
}

// base carries the pieces every stand-in shares: a name, serial queues on
// port 0 and GPIO output registers.
type base struct {
	name string
	rx   []byte
	tx   []byte
	gpio map[byte]uint8
}

func newBase(name string) base {
	return base{name: name, gpio: make(map[byte]uint8)}
}

func (b *base) Name() string { return b.name }

func (b *base) ReadSerial(port int) (byte, bool) {
	if port != 0 || len(b.tx) == 0 {
		return 0, false
	}
	c := b.tx[0]
	b.tx = b.tx[1:]
	return c, true
}

func (b *base) WriteSerial(port int, c byte) {
	if port != 0 {
		return
	}
	b.rx = append(b.rx, c)
}

func (b *base) DigitalPin(port byte, index uint8) bool {
	if index > 7 {
		return false
	}
	return b.gpio[port]&(1<<index) != 0
}

// echo transmits every received byte after Delay steps.
type echo struct {
	base
	delay   int
	waiting int
}

func newEcho(spec Spec, _ []byte) (Device, error) {
	return &echo{base: newBase(spec.Name), delay: spec.Options.Delay}, nil
}

func (e *echo) Step() State {
	if len(e.rx) == 0 {
		e.waiting = 0
		return StateSleeping
	}
	if e.waiting < e.delay {
		e.waiting++
		return StateRunning
	}
	e.waiting = 0
	e.tx = append(e.tx, e.rx[0])
	e.rx = e.rx[1:]
	return StateRunning
}

// blink toggles one GPIO pin every Period steps.
type blink struct {
	base
	port   byte
	mask   uint8
	period int
	count  int
}

func newBlink(spec Spec, _ []byte) (Device, error) {
	port := byte('B')
	if spec.Options.Port != "" {
		port = spec.Options.Port[0]
	}
	period := spec.Options.Period
	if period <= 0 {
		period = 1000
	}
	return &blink{
		base:   newBase(spec.Name),
		port:   port,
		mask:   1 << spec.Options.Pin,
		period: period,
	}, nil
}

func (b *blink) Step() State {
	b.count++
	if b.count >= b.period {
		b.count = 0
		b.gpio[b.port] ^= b.mask
	}
	return StateRunning
}

// hello transmits its greeting as raw unframed text, once or every Period
// steps. The greeting is Message, else the EEPROM string, else "hello world".
type hello struct {
	base
	message []byte
	period  int
	count   int
	sent    bool
}

func newHello(spec Spec, _ []byte) (Device, error) {
	msg := []byte(spec.Options.Message)
	if len(msg) == 0 {
		msg = eepromString(spec.EEPROM)
	}
	if len(msg) == 0 {
		msg = []byte("hello world")
	}
	return &hello{base: newBase(spec.Name), message: msg, period: spec.Options.Period}, nil
}

// eepromString returns the bytes before the first NUL or erased (0xFF) cell.
func eepromString(eeprom []byte) []byte {
	for i, b := range eeprom {
		if b == 0x00 || b == 0xff {
			return slices.Clone(eeprom[:i])
		}
	}
	return slices.Clone(eeprom)
}

func (h *hello) Step() State {
	if !h.sent {
		h.tx = append(h.tx, h.message...)
		h.sent = true
		return StateRunning
	}
	if h.period <= 0 {
		return StateSleeping
	}
	h.count++
	if h.count >= h.period {
		h.count = 0
		h.sent = false
	}
	return StateRunning
}

// responder answers every frame addressed to it with a framed Message sent to
// ReplyAddress.
type responder struct {
	base
	framer   *framing.Framer
	reply    framing.Message
	received int
}

func newResponder(spec Spec, _ []byte) (Device, error) {
	msg := spec.Options.Message
	if msg == "" {
		msg = "hello from " + spec.Name
	}
	return &responder{
		base:   newBase(spec.Name),
		framer: framing.NewFramer(spec.Options.Address),
		reply:  framing.Message{Address: spec.Options.ReplyAddress, Payload: []byte(msg)},
	}, nil
}

func (r *responder) Step() State {
	if len(r.rx) == 0 {
		return StateSleeping
	}
	c := r.rx[0]
	r.rx = r.rx[1:]
	if _, ok := r.framer.Feed(c); ok {
		r.received++
		for _, frame := range framing.Split(r.reply.Address, r.reply.Payload) {
			r.tx = append(r.tx, frame...)
		}
	}
	return StateRunning
}
