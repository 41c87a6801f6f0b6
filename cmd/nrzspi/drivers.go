package main

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/conn/v3/spi/spitest"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"

	"github.com/coreman2200/nrzspi/config"
	"github.com/coreman2200/nrzspi/encoder"
	"github.com/coreman2200/nrzspi/model"
	"github.com/coreman2200/nrzspi/spi"
)

// nrzledFreq is the data rate periph's nrzled driver expects; it picks the
// SPI clock itself.
const nrzledFreq = 800 * physic.KiloHertz

func openDriver(cfg *config.Config, enc *encoder.Encoder) (display.Drawer, error) {
	opts := &spi.Opts{NumPixels: cfg.Pixels, SkipUnchanged: cfg.SkipUnchanged}
	if cfg.Driver == config.DriverDry {
		d, err := spi.NewSPI(spitest.NewRecordRaw(frameLogger{}), enc, opts)
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, err
	}
	p, err := spireg.Open(cfg.SPI.Dev)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", cfg.SPI.Dev, err)
	}
	if cfg.Driver == config.DriverNRZLED {
		d, err := nrzled.NewSPI(p, &nrzled.Opts{
			NumPixels: cfg.Pixels,
			Channels:  enc.Channels(),
			Freq:      nrzledFreq,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	d, err := spi.NewSPI(p, enc, opts)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// frameLogger stands in for a SPI port when no hardware is attached.
type frameLogger struct{}

func (frameLogger) Write(b []byte) (int, error) {
	log.Debug().Int("bytes", len(b)).Str("xxh64", fmt.Sprintf("%016x", xxhash.Sum64(b))).Msg("dry: transfer")
	return len(b), nil
}

// drawerSink feeds pixels to a Drawer that cannot take them directly. White
// is lost.
type drawerSink struct {
	d display.Drawer
}

func (s drawerSink) WritePixels(px []encoder.Pixel) error {
	img := image.NewNRGBA(image.Rect(0, 0, len(px), 1))
	for i, p := range px {
		for _, v := range p {
			if v < 0 || v > 255 {
				return fmt.Errorf("%w: pixel %d", encoder.ErrInvalidValue, i)
			}
		}
		img.SetNRGBA(i, 0, color.NRGBA{R: uint8(p[encoder.Red]), G: uint8(p[encoder.Green]), B: uint8(p[encoder.Blue]), A: 255})
	}
	return s.d.Draw(img.Bounds(), img, image.Point{})
}

// rainbow spreads one turn of the colour wheel over the strip and rotates it
// once every three seconds.
func rainbow(elapsed time.Duration, s *model.LedStrip) {
	phase := math.Mod(elapsed.Seconds()/3, 1)
	n := float64(s.Len())
	s.ColorF(func(i int, _ model.ColorVal) model.ColorVal {
		return model.FromNRGBA(colorWheel(math.Mod(phase+float64(i)/n, 1)))
	})
}

func colorWheel(h float64) color.NRGBA {
	h *= 6
	switch {
	case h < 1.:
		return color.NRGBA{R: 255, G: byte(255 * h), A: 255}
	case h < 2.:
		return color.NRGBA{R: byte(255 * (2 - h)), G: 255, A: 255}
	case h < 3.:
		return color.NRGBA{G: 255, B: byte(255 * (h - 2)), A: 255}
	case h < 4.:
		return color.NRGBA{G: byte(255 * (4 - h)), B: 255, A: 255}
	case h < 5.:
		return color.NRGBA{R: byte(255 * (h - 4)), B: 255, A: 255}
	default:
		return color.NRGBA{R: 255, B: byte(255 * (6 - h)), A: 255}
	}
}
