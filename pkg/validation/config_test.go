package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidator_Required(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.Required("Name", "  ")

	if !cv.HasErrors() {
		t.Error("Expected error for blank required field")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.Required("Name", "value")

	if cv2.HasErrors() {
		t.Error("Expected no error for non-empty required field")
	}
}

func TestConfigValidator_RangeInt(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		min       int
		max       int
		expectErr bool
	}{
		{"within range", 50, 1, 100, false},
		{"at min", 1, 1, 100, false},
		{"at max", 100, 1, 100, false},
		{"below min", 0, 1, 100, true},
		{"above max", 101, 1, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("TestConfig")
			cv.RangeInt("Value", tt.value, tt.min, tt.max)

			if cv.HasErrors() != tt.expectErr {
				t.Errorf("RangeInt(%d, %d, %d) hasErrors = %v, want %v", tt.value, tt.min, tt.max, cv.HasErrors(), tt.expectErr)
			}
		})
	}
}

func TestConfigValidator_PositiveAndMinDuration(t *testing.T) {
	cv := NewConfigValidator("TestConfig").
		Positive("Budget", 0).
		MinDuration("Interval", -time.Second, 0)

	if len(cv.Errors()) != 2 {
		t.Errorf("Expected 2 errors, got %d: %v", len(cv.Errors()), cv.Errors())
	}
}

func TestConfigValidator_OneOf(t *testing.T) {
	allowed := []string{"mangos", "zmq", "local"}

	if NewConfigValidator("C").OneOf("Transport", "zmq", allowed).HasErrors() {
		t.Error("Expected zmq to be accepted")
	}
	if !NewConfigValidator("C").OneOf("Transport", "kafka", allowed).HasErrors() {
		t.Error("Expected kafka to be rejected")
	}
}

func TestConfigValidator_HostPort(t *testing.T) {
	tests := []struct {
		value     string
		expectErr bool
	}{
		{"0.0.0.0:7001", false},
		{":9100", false},
		{"localhost:0", false},
		{"7001", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cv := NewConfigValidator("Gateway").HostPort("Listen", tt.value)
			if cv.HasErrors() != tt.expectErr {
				t.Errorf("HostPort(%q) hasErrors = %v, want %v", tt.value, cv.HasErrors(), tt.expectErr)
			}
		})
	}
}

func TestConfigValidator_Endpoint(t *testing.T) {
	tests := []struct {
		value     string
		schemes   []string
		expectErr bool
	}{
		{"tcp://*:6712", []string{"tcp", "ipc", "inproc"}, false},
		{"inproc://events", []string{"tcp", "ipc", "inproc"}, false},
		{"ws://host:1", []string{"tcp"}, true},
		{"tcp://", nil, true},
		{"localhost:6712", nil, true},
		{"ipc:///tmp/bus.sock", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cv := NewConfigValidator("Events").Endpoint("Publish", tt.value, tt.schemes...)
			if cv.HasErrors() != tt.expectErr {
				t.Errorf("Endpoint(%q) hasErrors = %v, want %v (%v)", tt.value, cv.HasErrors(), tt.expectErr, cv.Errors())
			}
		})
	}
}

func TestConfigValidator_When(t *testing.T) {
	cv := NewConfigValidator("C").
		When(false, func(v *ConfigValidator) { v.Required("Skipped", "") }).
		When(true, func(v *ConfigValidator) { v.Required("Checked", "") })

	errs := cv.Errors()
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "Checked") {
		t.Errorf("Errors() = %v, want one error for Checked", errs)
	}
}

func TestConfigValidator_Custom(t *testing.T) {
	sentinel := errors.New("bad peer")
	err := NewConfigValidator("Device").Custom("Peers", func() error { return sentinel }).Validate()

	if !errors.Is(err, sentinel) {
		t.Errorf("Validate() = %v, want wrapped sentinel", err)
	}
}

func TestConfigValidator_ValidateJoinsErrors(t *testing.T) {
	sentinel := errors.New("second")
	err := NewConfigValidator("C").
		Required("A", "").
		Custom("B", func() error { return sentinel }).
		Validate()

	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	if !strings.Contains(err.Error(), "2 errors") {
		t.Errorf("Validate() = %q, want error count", err)
	}
	if !errors.Is(err, sentinel) {
		t.Error("Validate() should keep every error reachable with errors.Is")
	}

	if err := NewConfigValidator("C").Validate(); err != nil {
		t.Errorf("Validate() with no checks = %v", err)
	}
}

func TestDefaultOr(t *testing.T) {
	if got := DefaultOr("", "tcp_gateway"); got != "tcp_gateway" {
		t.Errorf("DefaultOr(\"\") = %q", got)
	}
	if got := DefaultOr(uint16(5), 1); got != 5 {
		t.Errorf("DefaultOr(5) = %d", got)
	}
	if got := DefaultOrDuration(0, time.Second); got != time.Second {
		t.Errorf("DefaultOrDuration(0) = %v", got)
	}
	if got := DefaultOrDuration(time.Millisecond, time.Second); got != time.Millisecond {
		t.Errorf("DefaultOrDuration(1ms) = %v", got)
	}
}
