// Package config loads the TOML settings for the scope tools.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/neilo40/dos1102_remote/internal/scope"
	"github.com/neilo40/dos1102_remote/internal/transport"
)

// Duration is a time.Duration written as a string such as "1s" or "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Config is the full configuration of the scope tools.
type Config struct {
	VendorID     uint16    `toml:"vendor_id"`
	ProductID    uint16    `toml:"product_id"`
	OutEndpoint  int       `toml:"out_endpoint"`
	InEndpoint   int       `toml:"in_endpoint"`
	ReadTimeout  Duration  `toml:"read_timeout"`
	WriteTimeout Duration  `toml:"write_timeout"`
	ReadSize     int       `toml:"read_size"`
	Settle       Duration  `toml:"settle"`
	VISAResource string    `toml:"visa_resource"` // empty means direct USB
	Log          LogConfig `toml:"log"`
}

// Default returns the settings for a Hanmatek DOS1102 on direct USB.
func Default() *Config {
	t := transport.DefaultConfig()
	return &Config{
		VendorID:     t.VendorID,
		ProductID:    t.ProductID,
		OutEndpoint:  t.OutEndpoint,
		InEndpoint:   t.InEndpoint,
		ReadTimeout:  Duration{t.ReadTimeout},
		WriteTimeout: Duration{t.WriteTimeout},
		ReadSize:     scope.DefaultReadSize,
		Settle:       Duration{100 * time.Millisecond},
		Log:          LogConfig{Level: "info"},
	}
}

// Load reads the TOML file at path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if _, err := toml.Decode(string(file), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ReadSize <= 0 {
		return fmt.Errorf("read_size must be positive, got %d", c.ReadSize)
	}
	if c.ReadTimeout.Duration <= 0 || c.WriteTimeout.Duration <= 0 {
		return fmt.Errorf("read_timeout and write_timeout must be positive")
	}
	if c.Settle.Duration < 0 {
		return fmt.Errorf("settle must not be negative")
	}
	return nil
}

// Transport returns the USB settings.
func (c *Config) Transport() transport.Config {
	return transport.Config{
		VendorID:     c.VendorID,
		ProductID:    c.ProductID,
		OutEndpoint:  c.OutEndpoint,
		InEndpoint:   c.InEndpoint,
		ReadTimeout:  c.ReadTimeout.Duration,
		WriteTimeout: c.WriteTimeout.Duration,
	}
}
