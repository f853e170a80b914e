package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-busnet/pkg/events"
)

func TestPrintable(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte("hello"), "hello"},
		{[]byte{0, 1, 'h', 'i', '\n', 0x7f, 0xff}, "..hi..."},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := Printable(tt.in); got != tt.want {
			t.Errorf("Printable(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBoard_Apply(t *testing.T) {
	b := NewBoard(10)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	must := func(ev events.Event) {
		t.Helper()
		if err := b.Apply(ev, at); err != nil {
			t.Fatalf("Apply(%q) error = %v", ev.Topic, err)
		}
	}
	must(events.Event{Topic: events.BusTopic("sat"), Payload: []byte("hi")})
	must(events.Event{Topic: events.BusTopic("sat"), Payload: []byte{0, 1}})
	must(events.Event{Topic: events.PinTopic("cam", 'B', 5), Payload: events.PinPayload(true)})
	must(events.Event{Topic: events.PinTopic("cam", 'B', 3), Payload: events.PinPayload(false)})

	if err := b.Apply(events.Event{Topic: "junk"}, at); !errors.Is(err, events.ErrMalformedEvent) {
		t.Errorf("Apply(junk) error = %v, want ErrMalformedEvent", err)
	}

	rows := b.Rows()
	if len(rows) != 2 || rows[0].Name != "cam" || rows[1].Name != "sat" {
		t.Fatalf("Rows() = %+v", rows)
	}
	if rows[1].BusBytes != 4 || Printable(rows[1].Recent) != "hi.." {
		t.Errorf("sat row = %+v", rows[1])
	}
	if got := rows[0].PinSummary(); got != "B3=0 B5=1" {
		t.Errorf("PinSummary() = %q", got)
	}
	if b.Total() != 4 || b.Skipped() != 1 {
		t.Errorf("Total/Skipped = %d/%d, want 4/1", b.Total(), b.Skipped())
	}
	if lines := b.Traffic(); len(lines) != 4 || !strings.Contains(lines[0], `sat bus "hi"`) {
		t.Errorf("Traffic() = %v", lines)
	}

	b.Reset()
	if len(b.Rows()) != 0 || b.Total() != 0 {
		t.Error("Reset() left state behind")
	}
}

func TestBoard_RecentAndTrafficBounded(t *testing.T) {
	b := NewBoard(3)
	for i := 0; i < 10; i++ {
		_ = b.Apply(events.Event{Topic: "sat/bus", Payload: []byte(strings.Repeat("x", 10))}, time.Now())
	}
	rows := b.Rows()
	if len(rows[0].Recent) != maxRecent {
		t.Errorf("Recent length = %d, want %d", len(rows[0].Recent), maxRecent)
	}
	if len(b.Traffic()) != 3 {
		t.Errorf("Traffic length = %d, want 3", len(b.Traffic()))
	}
}

func TestChannelSource(t *testing.T) {
	ch := make(chan events.Event, 1)
	src := ChannelSource(ch)

	ch <- events.Event{Topic: "sat/bus"}
	ev, err := src.Next(context.Background())
	if err != nil || ev.Topic != "sat/bus" {
		t.Fatalf("Next() = %+v, %v", ev, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next(cancelled) error = %v", err)
	}

	close(ch)
	if _, err := src.Next(context.Background()); !errors.Is(err, events.ErrClosed) {
		t.Errorf("Next(closed) error = %v, want ErrClosed", err)
	}
}

func TestModel_Update(t *testing.T) {
	ch := make(chan events.Event)
	m := New(context.Background(), ChannelSource(ch), "busnet monitor")

	next, _ := m.Update(eventMsg{Topic: "sat/bus", Payload: []byte("hi")})
	m = next.(Model)
	next, _ = m.Update(eventMsg{Topic: "sat/pin/B/5", Payload: []byte("1")})
	m = next.(Model)

	view := m.View()
	for _, want := range []string{"busnet monitor", "sat", "B5=1", "events: 2"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	m = next.(Model)
	next, _ = m.Update(eventMsg{Topic: "cam/bus", Payload: []byte("x")})
	m = next.(Model)
	if m.board.Total() != 2 {
		t.Errorf("paused board applied event, total = %d", m.board.Total())
	}
	if !strings.Contains(m.View(), "[paused]") {
		t.Error("View() missing paused marker")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if !strings.Contains(m.View(), `sat bus "hi"`) {
		t.Error("traffic view missing bus line")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	m = next.(Model)
	if m.board.Total() != 0 {
		t.Error("clear did not reset the board")
	}
}

func TestModel_StreamErrors(t *testing.T) {
	m := New(context.Background(), ChannelSource(nil), "t")

	_, cmd := m.Update(streamErrMsg{err: context.Canceled})
	if cmd == nil {
		t.Fatal("cancelled stream should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("cancelled stream did not return tea.Quit")
	}

	next, cmd := m.Update(streamErrMsg{err: errors.New("socket closed")})
	m = next.(Model)
	if cmd != nil {
		t.Error("stream error should stop reading")
	}
	if !strings.Contains(m.View(), "socket closed") {
		t.Error("View() missing stream error")
	}
}
