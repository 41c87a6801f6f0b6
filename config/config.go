// Package config loads the YAML description of a strip and its encoder.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/nrzspi/encoder"
	"github.com/coreman2200/nrzspi/timing"
)

// Drivers understood by cmd/nrzspi.
const (
	DriverSPI    = "spi"    // our encoder on a SPI port
	DriverNRZLED = "nrzled" // periph's nrzled driver, for comparison
	DriverDry    = "dry"    // no hardware, frames are logged
)

type SPI struct {
	Dev string `yaml:"dev"` // e.g. /dev/spidev0.0, empty for the first port
}

type Config struct {
	Driver            string  `yaml:"driver"`
	Chip              string  `yaml:"chip"`
	RateHz            int64   `yaml:"rate_hz"`
	PatternBits       int     `yaml:"pattern_bits"` // 0 picks the shortest valid length
	ColorOrder        string  `yaml:"color_order"`
	LatchSafetyFactor float64 `yaml:"latch_safety_factor"`
	Pixels            int     `yaml:"pixels"`
	Reverse           bool    `yaml:"reverse"`
	FPS               int     `yaml:"fps"`
	SkipUnchanged     bool    `yaml:"skip_unchanged"`
	Listen            string  `yaml:"listen"`

	SPI SPI `yaml:"spi,omitempty"`
}

func Default() *Config {
	return &Config{
		Driver:            DriverSPI,
		Chip:              "ws2812b",
		RateHz:            8000000,
		ColorOrder:        "GRB",
		LatchSafetyFactor: encoder.DefaultLatchSafetyFactor,
		Pixels:            30,
		FPS:               30,
		Listen:            ":8080",
	}
}

// Load reads path over Default. Keys missing from the file keep their
// default value.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate checks the fields that do not need an encoder to verify.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSPI, DriverNRZLED, DriverDry:
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	if _, err := timing.Lookup(c.Chip); err != nil {
		return err
	}
	if c.RateHz <= 0 {
		return fmt.Errorf("rate_hz must be positive, got %d", c.RateHz)
	}
	if c.Pixels <= 0 {
		return fmt.Errorf("pixels must be positive, got %d", c.Pixels)
	}
	if c.FPS < 0 {
		return fmt.Errorf("fps must not be negative, got %d", c.FPS)
	}
	return nil
}

// Rate is RateHz as a periph frequency.
func (c *Config) Rate() physic.Frequency {
	return physic.Frequency(c.RateHz) * physic.Hertz
}

// Protocol resolves Chip.
func (c *Config) Protocol() (timing.Protocol, error) {
	return timing.Lookup(c.Chip)
}

// Encoder builds the encoder described by c. Encoder errors are returned
// unwrapped so callers can inspect the *encoder.ConfigurationError.
func (c *Config) Encoder() (*encoder.Encoder, error) {
	p, err := c.Protocol()
	if err != nil {
		return nil, err
	}
	opts := []encoder.Option{encoder.WithPatternBits(c.PatternBits)}
	if c.ColorOrder != "" {
		opts = append(opts, encoder.WithOrderString(c.ColorOrder))
	}
	if c.LatchSafetyFactor != 0 {
		opts = append(opts, encoder.WithLatchSafetyFactor(c.LatchSafetyFactor))
	}
	return encoder.New(c.Rate(), p, opts...)
}
