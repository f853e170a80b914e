package validation

import (
	"strings"
	"testing"
)

type deviceSpec struct {
	Name  string   `validate:"required,nodename"`
	Ports []string `validate:"max=12,dive,avrport"`
	Steps int      `validate:"min=1"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantErr string
	}{
		{"valid", &deviceSpec{Name: "sat-1", Ports: []string{"B", "D"}, Steps: 10}, ""},
		{"missing name", &deviceSpec{Steps: 1}, "field is required"},
		{"bad name", &deviceSpec{Name: "sat/1", Steps: 1}, "invalid characters"},
		{"bad port", &deviceSpec{Name: "a", Ports: []string{"BB"}, Steps: 1}, "single letter"},
		{"steps below min", &deviceSpec{Name: "a", Steps: 0}, "must be at least 1"},
		{"nil", nil, "cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Struct() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Struct() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNodeName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"tcp_gateway", false},
		{"device-2", false},
		{"", true},
		{"a b", true},
		{"a/b", true},
		{strings.Repeat("x", MaxNodeNameLength+1), true},
	}

	for _, tt := range tests {
		if err := ValidateNodeName(tt.name); (err != nil) != tt.wantErr {
			t.Errorf("ValidateNodeName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestValidatePortLetter(t *testing.T) {
	for _, ok := range []string{"A", "B", "C", "D", "L"} {
		if err := ValidatePortLetter(ok); err != nil {
			t.Errorf("ValidatePortLetter(%q) error = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "b", "M", "BC", "1"} {
		if err := ValidatePortLetter(bad); err == nil {
			t.Errorf("ValidatePortLetter(%q) expected error", bad)
		}
	}
}
