package orchestrator

import (
	"time"

	"github.com/dd0wney/cluso-busnet/pkg/validation"
)

// Config tunes the tick loop.
type Config struct {
	// GatewayName is the node name of the TCP gateway on the bus.
	GatewayName string `yaml:"name"`
	// GatewayAddress is the bus address the gateway framer accepts.
	GatewayAddress uint16 `yaml:"address"`
	// InboundAddress is the destination written on frames built from TCP input.
	InboundAddress uint16 `yaml:"inbound_address"`
	// StepBudget caps the steps a device runs per tick.
	StepBudget int `yaml:"step_budget"`
	// SerialPort is the device UART wired to the bus.
	SerialPort int `yaml:"serial_port"`
	// TickInterval paces Run. Zero free-runs.
	TickInterval time.Duration `yaml:"interval"`
	// LogLines is how many recent log lines a Logs request returns at most.
	LogLines int `yaml:"log_lines"`
}

// DefaultConfig returns the tick loop defaults.
func DefaultConfig() Config {
	return Config{
		GatewayName:    "tcp_gateway",
		GatewayAddress: 1,
		InboundAddress: 1,
		StepBudget:     1000,
		SerialPort:     0,
		LogLines:       200,
	}
}

// ApplyDefaults fills zero fields. A zero GatewayAddress or InboundAddress
// means unset and becomes the gateway's bus identity.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	c.GatewayName = validation.DefaultOr(c.GatewayName, d.GatewayName)
	c.GatewayAddress = validation.DefaultOr(c.GatewayAddress, d.GatewayAddress)
	c.InboundAddress = validation.DefaultOr(c.InboundAddress, d.InboundAddress)
	c.StepBudget = validation.DefaultOr(c.StepBudget, d.StepBudget)
	c.LogLines = validation.DefaultOr(c.LogLines, d.LogLines)
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return validation.NewConfigValidator("OrchestratorConfig").
		Custom("GatewayName", func() error { return validation.ValidateNodeName(c.GatewayName) }).
		RangeInt("GatewayAddress", int(c.GatewayAddress), 1, 0xffff).
		RangeInt("InboundAddress", int(c.InboundAddress), 1, 0xffff).
		Positive("StepBudget", c.StepBudget).
		RangeInt("SerialPort", c.SerialPort, 0, 3).
		MinDuration("TickInterval", c.TickInterval, 0).
		Positive("LogLines", c.LogLines).
		Validate()
}
