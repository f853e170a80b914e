// Package config loads busnet.yaml, the description of a bus fabric: its
// devices and their wiring, the TCP gateway, the event and control sockets,
// tick pacing and the status listener.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-busnet/pkg/control"
	"github.com/dd0wney/cluso-busnet/pkg/device"
	"github.com/dd0wney/cluso-busnet/pkg/events"
	"github.com/dd0wney/cluso-busnet/pkg/gateway"
	"github.com/dd0wney/cluso-busnet/pkg/orchestrator"
	"github.com/dd0wney/cluso-busnet/pkg/transport"
	"github.com/dd0wney/cluso-busnet/pkg/validation"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "busnet.yaml"

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid config")
)

// Config is the root of busnet.yaml.
type Config struct {
	LogLevel string                  `yaml:"log_level"`
	Devices  map[string]DeviceConfig `yaml:"devices"`
	Gateway  GatewayConfig           `yaml:"gateway"`
	Events   EventsConfig            `yaml:"events"`
	Tick     TickConfig              `yaml:"tick"`
	Status   StatusConfig            `yaml:"status"`
}

// DeviceConfig describes one simulated device.
type DeviceConfig struct {
	MCU      string   `yaml:"mcu"`
	Firmware string   `yaml:"firmware"`
	Peers    []string `yaml:"peers"`
	Ports    []string `yaml:"ports"`
	EEPROM   []byte   `yaml:"eeprom"`

	device.Options `yaml:",inline"`
}

// GatewayConfig places the TCP gateway on the bus.
type GatewayConfig struct {
	Listen         string        `yaml:"listen"`
	Name           string        `yaml:"name"`
	Address        uint16        `yaml:"address"`
	InboundAddress uint16        `yaml:"inbound_address"`
	ReadBufferSize int           `yaml:"read_buffer_size"`
	PumpInterval   time.Duration `yaml:"pump_interval"`
}

// EventsConfig selects the pub/sub transport and its endpoints.
type EventsConfig struct {
	Transport string `yaml:"transport"`
	Publish   string `yaml:"publish"`
	Control   string `yaml:"control"`
}

// TickConfig paces the tick loop.
type TickConfig struct {
	StepBudget int           `yaml:"step_budget"`
	Interval   time.Duration `yaml:"interval"`
	SerialPort int           `yaml:"serial_port"`
	LogLines   int           `yaml:"log_lines"`
}

// StatusConfig is the HTTP status listener. An empty Listen disables it.
type StatusConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns a configuration with every section defaulted and no devices.
func Default() *Config {
	gw := gateway.DefaultConfig()
	orch := orchestrator.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Devices:  map[string]DeviceConfig{},
		Gateway: GatewayConfig{
			Listen:         gw.ListenAddr,
			Name:           orch.GatewayName,
			Address:        orch.GatewayAddress,
			InboundAddress: orch.InboundAddress,
			ReadBufferSize: gw.ReadBufferSize,
			PumpInterval:   gw.PumpInterval,
		},
		Events: EventsConfig{
			Transport: "mangos",
			Publish:   "tcp://127.0.0.1:6712",
			Control:   "tcp://127.0.0.1:6711",
		},
		Tick: TickConfig{
			StepBudget: orch.StepBudget,
			SerialPort: orch.SerialPort,
			LogLines:   orch.LogLines,
		},
		Status: StatusConfig{Listen: "127.0.0.1:9100"},
	}
}

// Load reads, defaults and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML from r over Default, then applies defaults and validates.
// Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// ApplyDefaults fills zero fields from Default.
func (c *Config) ApplyDefaults() {
	d := Default()

	c.LogLevel = validation.DefaultOr(c.LogLevel, d.LogLevel)
	if c.Devices == nil {
		c.Devices = map[string]DeviceConfig{}
	}

	c.Gateway.Listen = validation.DefaultOr(c.Gateway.Listen, d.Gateway.Listen)
	c.Gateway.Name = validation.DefaultOr(c.Gateway.Name, d.Gateway.Name)
	c.Gateway.ReadBufferSize = validation.DefaultOr(c.Gateway.ReadBufferSize, d.Gateway.ReadBufferSize)
	c.Gateway.PumpInterval = validation.DefaultOrDuration(c.Gateway.PumpInterval, d.Gateway.PumpInterval)

	c.Events.Transport = validation.DefaultOr(c.Events.Transport, d.Events.Transport)
	c.Events.Publish = validation.DefaultOr(c.Events.Publish, d.Events.Publish)
	c.Events.Control = validation.DefaultOr(c.Events.Control, d.Events.Control)

	c.Tick.StepBudget = validation.DefaultOr(c.Tick.StepBudget, d.Tick.StepBudget)
	c.Tick.LogLines = validation.DefaultOr(c.Tick.LogLines, d.Tick.LogLines)
}

// Validate checks every section. Peers must name a declared device or the
// gateway, and never the device itself.
func (c *Config) Validate() error {
	cv := validation.NewConfigValidator("busnet").
		OneOf("log_level", c.LogLevel, []string{"debug", "info", "warn", "error"}).
		Custom("devices", func() error {
			if len(c.Devices) == 0 {
				return errors.New("at least one device is required")
			}
			return nil
		}).
		Custom("gateway", func() error { return c.GatewayServer().Validate() }).
		Custom("tick", func() error { return c.Orchestrator().Validate() }).
		OneOf("events.transport", c.Events.Transport, transports()).
		Endpoint("events.publish", c.Events.Publish, transport.Schemes...).
		Endpoint("events.control", c.Events.Control, transport.Schemes...).
		When(c.Status.Listen != "", func(cv *validation.ConfigValidator) {
			cv.HostPort("status.listen", c.Status.Listen)
		})

	models := device.Models()
	for _, name := range c.DeviceNames() {
		dc := c.Devices[name]
		field := "devices." + name

		cv.Custom(field, func() error { return validation.ValidateNodeName(name) }).
			OneOf(field+".mcu", dc.MCU, models).
			Custom(field, func() error { return dc.Spec(name).Validate() })

		if name == c.Gateway.Name {
			cv.Custom(field, func() error { return fmt.Errorf("device name collides with gateway %q", c.Gateway.Name) })
		}
		for _, port := range dc.Ports {
			cv.Custom(field+".ports", func() error { return validation.ValidatePortLetter(port) })
		}
		for _, peer := range dc.Peers {
			cv.Custom(field+".peers", func() error {
				switch {
				case peer == name:
					return fmt.Errorf("device %s lists itself as a peer", name)
				case peer == c.Gateway.Name:
					return nil
				case !c.hasDevice(peer):
					return fmt.Errorf("peer %q is not a declared device", peer)
				}
				return nil
			})
		}
	}

	return cv.Validate()
}

func (c *Config) hasDevice(name string) bool {
	_, ok := c.Devices[name]
	return ok
}

// DeviceNames returns the declared device names, sorted.
func (c *Config) DeviceNames() []string {
	names := make([]string, 0, len(c.Devices))
	for name := range c.Devices {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Spec converts the entry to a device.Spec.
func (dc DeviceConfig) Spec(name string) device.Spec {
	return device.Spec{
		Name:     name,
		MCU:      dc.MCU,
		Firmware: dc.Firmware,
		EEPROM:   dc.EEPROM,
		Options:  dc.Options,
	}
}

// GatewayServer returns the TCP listener settings.
func (c *Config) GatewayServer() gateway.Config {
	return gateway.Config{
		ListenAddr:     c.Gateway.Listen,
		ReadBufferSize: c.Gateway.ReadBufferSize,
		PumpInterval:   c.Gateway.PumpInterval,
	}
}

// Orchestrator returns the tick loop settings.
func (c *Config) Orchestrator() orchestrator.Config {
	return orchestrator.Config{
		GatewayName:    c.Gateway.Name,
		GatewayAddress: c.Gateway.Address,
		InboundAddress: c.Gateway.InboundAddress,
		StepBudget:     c.Tick.StepBudget,
		SerialPort:     c.Tick.SerialPort,
		TickInterval:   c.Tick.Interval,
		LogLines:       c.Tick.LogLines,
	}
}

// BuildNodes constructs every device in name order with its wiring.
func (c *Config) BuildNodes() ([]orchestrator.Node, error) {
	nodes := make([]orchestrator.Node, 0, len(c.Devices))
	for _, name := range c.DeviceNames() {
		dc := c.Devices[name]
		dev, err := device.New(dc.Spec(name))
		if err != nil {
			return nil, err
		}

		var ports []byte
		for _, p := range dc.Ports {
			ports = append(ports, p[0])
		}
		nodes = append(nodes, orchestrator.Node{Device: dev, Peers: dc.Peers, Ports: ports})
	}
	return nodes, nil
}

// transports lists names usable for both the event publisher and the control responder.
func transports() []string {
	var out []string
	for _, name := range events.Transports() {
		if slices.Contains(control.Transports(), name) {
			out = append(out, name)
		}
	}
	return out
}
