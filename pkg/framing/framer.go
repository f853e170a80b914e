package framing

// mode is the position of a Framer inside the current frame.
type mode uint8

const (
	modeAddrHi mode = iota
	modeAddrLo
	modeLenHi
	modeLenLo
	modeData
)

func (m mode) String() string {
	switch m {
	case modeAddrHi:
		return "addr_hi"
	case modeAddrLo:
		return "addr_lo"
	case modeLenHi:
		return "len_hi"
	case modeLenLo:
		return "len_lo"
	case modeData:
		return "data"
	default:
		return "unknown"
	}
}

// Stats counts what a Framer has done with completed frames.
type Stats struct {
	Accepted  uint64 // frames addressed to this framer
	Filtered  uint64 // well-formed frames for other addresses
	Oversized uint64 // frames skipped because the declared length exceeded MaxPayload
}

// Framer is the streaming decoder for one logical bus stream.
// It is not safe for concurrent use.
type Framer struct {
	address uint16
	mode    mode

	pendingAddress uint16
	pendingLength  uint16
	pendingIndex   int
	// overflow is set for a frame whose declared length does not fit buf.
	// Its payload bytes are counted but not stored.
	overflow bool
	buf      [MaxPayload]byte

	stats Stats
}

// NewFramer returns a Framer that surfaces frames addressed to address.
func NewFramer(address uint16) *Framer {
	return &Framer{address: address}
}

// Address returns the address this framer accepts.
func (f *Framer) Address() uint16 {
	return f.address
}

// Stats returns counters for completed frames.
func (f *Framer) Stats() Stats {
	return f.stats
}

// Reset discards any partial frame and waits for the next header.
func (f *Framer) Reset() {
	f.mode = modeAddrHi
	f.pendingAddress = 0
	f.pendingLength = 0
	f.pendingIndex = 0
	f.overflow = false
}

// Feed consumes one byte. It returns the assembled message when b completes
// a frame addressed to this framer.
func (f *Framer) Feed(b byte) (Message, bool) {
	switch f.mode {
	case modeAddrHi:
		f.pendingAddress = uint16(b) << 8
		f.mode = modeAddrLo
	case modeAddrLo:
		f.pendingAddress |= uint16(b)
		f.mode = modeLenHi
	case modeLenHi:
		f.pendingLength = uint16(b) << 8
		f.mode = modeLenLo
	case modeLenLo:
		f.pendingLength |= uint16(b)
		f.pendingIndex = 0
		f.overflow = int(f.pendingLength) > MaxPayload
		if f.pendingLength == 0 {
			return f.complete()
		}
		f.mode = modeData
	case modeData:
		if !f.overflow {
			f.buf[f.pendingIndex] = b
		}
		f.pendingIndex++
		if f.pendingIndex == int(f.pendingLength) {
			return f.complete()
		}
	}
	return Message{}, false
}

// FeedAll feeds every byte of data and returns the messages completed along the way.
func (f *Framer) FeedAll(data []byte) []Message {
	var out []Message
	for _, b := range data {
		if m, ok := f.Feed(b); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *Framer) complete() (Message, bool) {
	address, length, overflow := f.pendingAddress, int(f.pendingLength), f.overflow
	f.Reset()

	switch {
	case overflow:
		f.stats.Oversized++
		return Message{}, false
	case address != f.address:
		f.stats.Filtered++
		return Message{}, false
	}

	f.stats.Accepted++
	payload := make([]byte, length)
	copy(payload, f.buf[:length])
	return Message{Address: address, Payload: payload}, true
}
