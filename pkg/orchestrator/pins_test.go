package orchestrator

import (
	"testing"
)

func TestPinTracker_SingleBitChange(t *testing.T) {
	dev := newScriptDevice("d")
	tracker := NewPinTracker([]byte{'B', 'C'})

	if events := tracker.Update(dev); len(events) != 0 {
		t.Fatalf("first Update() with all pins low = %v, want none", events)
	}

	dev.setPin('B', 3, true)
	events := tracker.Update(dev)
	if len(events) != 1 {
		t.Fatalf("Update() = %v, want exactly one event", events)
	}
	want := PinEvent{Device: "d", Port: 'B', Bit: 3, State: true}
	if events[0] != want {
		t.Errorf("Update() = %+v, want %+v", events[0], want)
	}

	if events := tracker.Update(dev); len(events) != 0 {
		t.Errorf("Update() without change = %v, want none", events)
	}
}

func TestPinTracker_MultipleBitsOrdered(t *testing.T) {
	dev := newScriptDevice("d")
	tracker := NewPinTracker([]byte{'B', 'C'})

	dev.setPin('C', 0, true)
	dev.setPin('B', 7, true)
	dev.setPin('B', 1, true)

	events := tracker.Update(dev)
	want := []PinEvent{
		{Device: "d", Port: 'B', Bit: 1, State: true},
		{Device: "d", Port: 'B', Bit: 7, State: true},
		{Device: "d", Port: 'C', Bit: 0, State: true},
	}
	if len(events) != len(want) {
		t.Fatalf("Update() = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}

	dev.setPin('B', 7, false)
	events = tracker.Update(dev)
	if len(events) != 1 || events[0].Bit != 7 || events[0].State {
		t.Errorf("Update() after falling edge = %v", events)
	}
	if got := tracker.Snapshot('B'); got != 0x02 {
		t.Errorf("Snapshot(B) = %#x, want 0x02", got)
	}
}

func TestPinTracker_IgnoresUntrackedPorts(t *testing.T) {
	dev := newScriptDevice("d")
	tracker := NewPinTracker([]byte{'B'})

	dev.setPin('D', 2, true)
	if events := tracker.Update(dev); len(events) != 0 {
		t.Errorf("Update() = %v, want none for untracked port", events)
	}
}
