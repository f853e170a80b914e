package gateway

import (
	"time"

	"github.com/dd0wney/cluso-busnet/pkg/validation"
)

// Config controls the TCP gateway.
type Config struct {
	// ListenAddr is the TCP address clients connect to.
	ListenAddr string `yaml:"listen"`
	// ReadBufferSize is the size of each connection's read buffer.
	ReadBufferSize int `yaml:"read_buffer_size"`
	// PumpInterval is how often a connection's writer retries a partially
	// written transmit buffer when no new data arrives.
	PumpInterval time.Duration `yaml:"pump_interval"`
}

// DefaultConfig returns the gateway defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:     "0.0.0.0:7001",
		ReadBufferSize: 1024,
		PumpInterval:   10 * time.Millisecond,
	}
}

// ApplyDefaults fills zero fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	c.ListenAddr = validation.DefaultOr(c.ListenAddr, d.ListenAddr)
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	c.PumpInterval = validation.DefaultOrDuration(c.PumpInterval, d.PumpInterval)
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return validation.NewConfigValidator("GatewayConfig").
		HostPort("ListenAddr", c.ListenAddr).
		RangeInt("ReadBufferSize", c.ReadBufferSize, 1, 1<<20).
		MinDuration("PumpInterval", c.PumpInterval, time.Millisecond).
		Validate()
}
