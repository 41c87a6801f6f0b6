package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/nrzspi/encoder"
)

func TestDefaultEncoder(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 8*physic.MegaHertz, c.Rate())

	enc, err := c.Encoder()
	require.NoError(t, err)
	assert.Equal(t, 10, enc.PatternBits())
	assert.Equal(t, 300, enc.LatchBytes())
	assert.Equal(t, encoder.OrderGRB, enc.Config().Order)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chip: SK6812
pixels: 144
color_order: grbw
pattern_bits: 16
reverse: true
spi:
  dev: /dev/spidev0.1
`), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "SK6812", c.Chip)
	assert.Equal(t, 144, c.Pixels)
	assert.True(t, c.Reverse)
	assert.Equal(t, "/dev/spidev0.1", c.SPI.Dev)
	// Untouched keys keep their defaults.
	assert.Equal(t, int64(8000000), c.RateHz)
	assert.Equal(t, 30, c.FPS)
	assert.Equal(t, DriverSPI, c.Driver)

	enc, err := c.Encoder()
	require.NoError(t, err)
	assert.Equal(t, 16, enc.PatternBits())
	assert.Equal(t, 4, enc.Channels())
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.Driver = DriverDry
	c.LatchSafetyFactor = 1.5
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"driver", "driver: pwm"},
		{"chip", "chip: apa102"},
		{"rate", "rate_hz: 0"},
		{"pixels", "pixels: -1"},
		{"fps", "fps: -30"},
		{"syntax", "pixels: [1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestEncoderConfigurationError(t *testing.T) {
	c := Default()
	c.RateHz = 1000000
	_, err := c.Encoder()
	var ce *encoder.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "T0H", ce.Field)

	c = Default()
	c.ColorOrder = "RGBX"
	_, err = c.Encoder()
	require.ErrorIs(t, err, encoder.ErrInvalidConfig)
}
