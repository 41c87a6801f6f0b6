// Package spi drives WS2812-class LED strips from an SPI MOSI line using the
// oversampled bitstream produced by package encoder.
package spi

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	spiconn "periph.io/x/conn/v3/spi"

	"github.com/coreman2200/nrzspi/encoder"
)

// ErrTooLarge is returned when a frame does not fit in a single transfer.
var ErrTooLarge = errors.New("spi: frame exceeds maximum transfer size")

// Opts configures a Dev.
type Opts struct {
	NumPixels int
	// SkipUnchanged drops transfers identical to the previous one.
	SkipUnchanged bool
	Logger        *zerolog.Logger
}

// Dev is a handle to a LED strip on a SPI port.
//
// Every transfer is a latch, the frame, then another latch, so the strip
// resets before and after each frame regardless of what the port did before.
type Dev struct {
	c      spiconn.Conn
	enc    *encoder.Encoder
	skip   bool
	maxTx  int
	log    zerolog.Logger
	stride int

	mu      sync.Mutex
	pixels  []encoder.Pixel
	lastSum uint64
	sent    bool
}

// NewSPI connects to p at the encoder's output rate.
func NewSPI(p spiconn.Port, enc *encoder.Encoder, opts *Opts) (*Dev, error) {
	if opts.NumPixels <= 0 {
		return nil, fmt.Errorf("spi: invalid LED count: %d", opts.NumPixels)
	}
	c, err := p.Connect(enc.Rate(), spiconn.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("spi: connect at %s: %w", enc.Rate(), err)
	}
	d := &Dev{
		c:      c,
		enc:    enc,
		skip:   opts.SkipUnchanged,
		log:    log.Logger,
		stride: 3,
		pixels: make([]encoder.Pixel, opts.NumPixels),
	}
	if opts.Logger != nil {
		d.log = *opts.Logger
	}
	if enc.Config().Order.HasWhite() {
		d.stride = 4
	}
	if l, ok := c.(conn.Limits); ok {
		d.maxTx = l.MaxTxSize()
	}
	d.log.Debug().
		Str("conn", c.String()).
		Stringer("rate", enc.Rate()).
		Int("pattern_bits", enc.PatternBits()).
		Int("latch_bytes", enc.LatchBytes()).
		Int("pixels", opts.NumPixels).
		Msg("spi: connected")
	return d, nil
}

func (d *Dev) String() string {
	return "nrzspi{" + d.c.String() + "}"
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{X: len(d.pixels), Y: 1}}
}

// Draw implements display.Drawer. Only the first row of r is used. Pixels
// outside r keep their previous value.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.Bounds())
	srcR := src.Bounds()
	srcR.Min = srcR.Min.Add(sp)
	if dX := r.Dx(); dX < srcR.Dx() {
		srcR.Max.X = srcR.Min.X + dX
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !srcR.Empty() {
		for x := 0; x < srcR.Dx(); x++ {
			d.pixels[r.Min.X+x] = encoder.FromColor(src.At(srcR.Min.X+x, srcR.Min.Y))
		}
	}
	return d.flush(false)
}

// Write accepts a raw R,G,B (or R,G,B,W) stream for the first pixels of the
// strip and sends the whole strip.
func (d *Dev) Write(raw []byte) (int, error) {
	if len(raw)%d.stride != 0 {
		return 0, fmt.Errorf("%w: %d bytes is not a multiple of %d", encoder.ErrInvalidLength, len(raw), d.stride)
	}
	n := len(raw) / d.stride
	d.mu.Lock()
	defer d.mu.Unlock()
	if n > len(d.pixels) {
		return 0, fmt.Errorf("%w: %d pixels for a strip of %d", encoder.ErrInvalidLength, n, len(d.pixels))
	}
	for i := 0; i < n; i++ {
		var p encoder.Pixel
		for c := 0; c < d.stride; c++ {
			p[c] = int(raw[i*d.stride+c])
		}
		d.pixels[i] = p
	}
	if err := d.flush(false); err != nil {
		return 0, err
	}
	return len(raw), nil
}

// WritePixels replaces the first len(px) pixels and sends the strip. Invalid
// channel values are reported as *encoder.ValueError and nothing is sent.
func (d *Dev) WritePixels(px []encoder.Pixel) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(px) > len(d.pixels) {
		return fmt.Errorf("%w: %d pixels for a strip of %d", encoder.ErrInvalidLength, len(px), len(d.pixels))
	}
	if _, err := d.enc.EncodeFrame(px); err != nil {
		return err
	}
	copy(d.pixels, px)
	return d.flush(false)
}

// Halt turns every LED off.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.pixels {
		d.pixels[i] = encoder.Pixel{}
	}
	return d.flush(true)
}

func (d *Dev) flush(force bool) error {
	data, err := d.enc.EncodeFrame(d.pixels)
	if err != nil {
		return err
	}
	latch := d.enc.LatchBytes()
	buf := make([]byte, latch, 2*latch+len(data))
	buf = append(buf, data...)
	buf = append(buf, make([]byte, latch)...)

	sum := xxhash.Sum64(buf)
	if d.skip && !force && d.sent && sum == d.lastSum {
		d.log.Trace().Msg("spi: frame unchanged")
		return nil
	}
	if d.maxTx > 0 && len(buf) > d.maxTx {
		return fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(buf), d.maxTx)
	}
	if err := d.c.Tx(buf, nil); err != nil {
		return fmt.Errorf("spi: tx: %w", err)
	}
	d.lastSum, d.sent = sum, true
	return nil
}

var _ display.Drawer = &Dev{}
