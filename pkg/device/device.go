// Package device defines the seam between the bus fabric and a simulated
// microcontroller, plus a registry of behavioural stand-in models.
//
// A real instruction-level core plugs in by registering a Factory under its
// mcu name. The fabric only needs to step it, move serial bytes, and sample
// digital pins.
package device

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/dd0wney/cluso-busnet/pkg/validation"
)

// EEPROMSize is the largest EEPROM image a device accepts.
const EEPROMSize = 1024

var (
	ErrUnknownModel    = errors.New("unknown device model")
	ErrEEPROMTooLarge  = fmt.Errorf("eeprom image exceeds %d bytes", EEPROMSize)
	ErrFirmwareMissing = errors.New("firmware file not readable")
)

// State is what a device reports after one step.
type State int

const (
	StateRunning State = iota
	StateSleeping
	StateDone
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateDone:
		return "done"
	case StateCrashed:
		return "crashed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Halted reports whether the device will make no further progress.
func (s State) Halted() bool {
	return s == StateDone || s == StateCrashed
}

// Device is a simulated microcontroller.
type Device interface {
	Name() string
	// Step advances the device by one unit of work.
	Step() State
	// ReadSerial pops one byte the device has transmitted on port.
	ReadSerial(port int) (byte, bool)
	// WriteSerial delivers one byte to the device's receiver on port.
	WriteSerial(port int, b byte)
	// DigitalPin samples the output level of pin index on GPIO port ('B', 'C', ...).
	DigitalPin(port byte, index uint8) bool
}

// Options tunes the stand-in models. Fields a model does not use are ignored.
type Options struct {
	// Address is the bus address the device answers on.
	Address uint16 `yaml:"address"`
	// ReplyAddress is where framed replies are sent.
	ReplyAddress uint16 `yaml:"reply_address"`
	// Message is the text a model transmits.
	Message string `yaml:"message"`
	// Period is a step count between repeated actions. Zero means once.
	Period int `yaml:"period" validate:"min=0"`
	// Delay is the number of steps before a received byte is echoed.
	Delay int `yaml:"delay" validate:"min=0"`
	// Port and Pin select the GPIO a blinking model toggles.
	Port string `yaml:"port" validate:"omitempty,avrport"`
	Pin  uint8  `yaml:"pin" validate:"max=7"`
}

// Spec describes one device to build.
type Spec struct {
	Name     string `validate:"required,nodename"`
	MCU      string `validate:"required"`
	Firmware string
	EEPROM   []byte
	Options  Options
}

// Validate checks spec fields that do not need the filesystem.
func (s Spec) Validate() error {
	if len(s.EEPROM) > EEPROMSize {
		return fmt.Errorf("device %s: %w", s.Name, ErrEEPROMTooLarge)
	}
	return validation.Struct(s)
}

// Factory builds a device from a validated spec and its firmware image.
type Factory func(spec Spec, firmware []byte) (Device, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a model available under mcu. Registering the same name twice
// replaces the earlier factory.
func Register(mcu string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[mcu] = f
}

// Models returns the registered model names, sorted.
func Models() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New validates spec, loads its firmware and builds the device.
func New(spec Spec) (Device, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	registryMu.RLock()
	factory, ok := registry[spec.MCU]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownModel, spec.MCU, Models())
	}

	firmware, err := LoadFirmware(spec.Firmware)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", spec.Name, err)
	}

	return factory(spec, firmware)
}

// LoadFirmware reads the firmware image at path. An empty path yields no image.
func LoadFirmware(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFirmwareMissing, path, err)
	}
	return data, nil
}
