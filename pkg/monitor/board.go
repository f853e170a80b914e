// Package monitor renders a live terminal dashboard of a running fabric from
// its event stream: bus traffic per device and the current level of every
// GPIO pin that has changed.
package monitor

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dd0wney/cluso-busnet/pkg/events"
)

// maxRecent is how many printable bus bytes a row keeps.
const maxRecent = 32

// DeviceRow is the dashboard state of one device.
type DeviceRow struct {
	Name     string
	BusBytes uint64
	Recent   []byte
	Pins     map[string]bool // "B5" -> high
	Updated  time.Time
}

// PinSummary renders the pins as "B3=1 B5=0", sorted.
func (r DeviceRow) PinSummary() string {
	keys := make([]string, 0, len(r.Pins))
	for k := range r.Pins {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		v := "0"
		if r.Pins[k] {
			v = "1"
		}
		parts[i] = k + "=" + v
	}
	return strings.Join(parts, " ")
}

// Board folds events into per-device rows.
type Board struct {
	rows    map[string]*DeviceRow
	total   uint64
	skipped uint64
	traffic []string
	keep    int
}

// NewBoard keeps at most keep traffic lines.
func NewBoard(keep int) *Board {
	if keep < 1 {
		keep = 1
	}
	return &Board{rows: make(map[string]*DeviceRow), keep: keep}
}

// Apply folds one event into the board. Events with unrecognised topics are
// counted and otherwise ignored.
func (b *Board) Apply(ev events.Event, at time.Time) error {
	t, err := events.ParseTopic(ev.Topic)
	if err != nil {
		b.skipped++
		return err
	}
	b.total++

	row, ok := b.rows[t.Device]
	if !ok {
		row = &DeviceRow{Name: t.Device, Pins: make(map[string]bool)}
		b.rows[t.Device] = row
	}
	row.Updated = at

	switch t.Kind {
	case events.KindBus:
		row.BusBytes += uint64(len(ev.Payload))
		row.Recent = append(row.Recent, ev.Payload...)
		if over := len(row.Recent) - maxRecent; over > 0 {
			row.Recent = row.Recent[over:]
		}
		b.log(fmt.Sprintf("%s %s bus %q", at.Format("15:04:05.000"), t.Device, Printable(ev.Payload)))
	case events.KindPin:
		high := string(ev.Payload) == "1"
		row.Pins[fmt.Sprintf("%c%d", t.Port, t.Bit)] = high
		b.log(fmt.Sprintf("%s %s pin %c%d -> %s", at.Format("15:04:05.000"), t.Device, t.Port, t.Bit, ev.Payload))
	}
	return nil
}

func (b *Board) log(line string) {
	b.traffic = append(b.traffic, line)
	if over := len(b.traffic) - b.keep; over > 0 {
		b.traffic = b.traffic[over:]
	}
}

// Rows returns a copy of every row, sorted by device name.
func (b *Board) Rows() []DeviceRow {
	out := make([]DeviceRow, 0, len(b.rows))
	for _, r := range b.rows {
		cp := *r
		cp.Recent = slices.Clone(r.Recent)
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b DeviceRow) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Traffic returns the recent traffic lines, oldest first.
func (b *Board) Traffic() []string {
	return slices.Clone(b.traffic)
}

// Total returns the number of events applied.
func (b *Board) Total() uint64 { return b.total }

// Skipped returns the number of events with unrecognised topics.
func (b *Board) Skipped() uint64 { return b.skipped }

// Reset clears all rows and counters.
func (b *Board) Reset() {
	b.rows = make(map[string]*DeviceRow)
	b.total, b.skipped = 0, 0
	b.traffic = nil
}

// Printable keeps printable ASCII and replaces everything else with '.'.
func Printable(data []byte) string {
	out := make([]byte, len(data))
	for i, c := range data {
		if c >= 0x20 && c < 0x7f {
			out[i] = c
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
