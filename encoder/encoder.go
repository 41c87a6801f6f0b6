package encoder

import (
	"fmt"
	"image"
	"math"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/nrzspi/internal/options"
	"github.com/coreman2200/nrzspi/timing"
)

// DefaultLatchSafetyFactor over-provisions the reset time so that transport
// gaps cannot shorten it below the protocol minimum.
const DefaultLatchSafetyFactor = 1.2

// Config describes an Encoder. A PatternBits of 0 lets New pick the shortest
// valid pattern.
type Config struct {
	Rate              physic.Frequency
	Protocol          timing.Protocol
	PatternBits       int
	Order             ChannelOrder
	LatchSafetyFactor float64
}

// Period is the duration of one output bit.
func (c Config) Period() time.Duration {
	return timing.Period(c.Rate)
}

// Option configures an Encoder.
type Option = options.Option[*Config]

// WithPatternBits sets the number of output bits per logical bit.
func WithPatternBits(n int) Option {
	return options.NoError(func(c *Config) { c.PatternBits = n })
}

// WithOrder sets the channel order.
func WithOrder(o ChannelOrder) Option {
	return options.NoError(func(c *Config) { c.Order = o })
}

// WithOrderString sets the channel order from a string such as "GRBW".
func WithOrderString(s string) Option {
	return options.New(func(c *Config) error {
		o, err := ParseOrder(s)
		if err != nil {
			return err
		}
		c.Order = o
		return nil
	})
}

// WithLatchSafetyFactor sets the multiplier applied to the minimum latch
// time. It must be at least 1.
func WithLatchSafetyFactor(f float64) Option {
	return options.NoError(func(c *Config) { c.LatchSafetyFactor = f })
}

// Encoder converts pixels to the output bitstream of a single configuration.
type Encoder struct {
	cfg      Config
	patterns Patterns
	// lut[v] is the encoding of channel byte v; always PatternBits bytes.
	lut        [256][]byte
	latchBytes int
}

// New returns an Encoder for protocol p at rate. The default channel order is
// GRB with DefaultLatchSafetyFactor.
func New(rate physic.Frequency, p timing.Protocol, opts ...Option) (*Encoder, error) {
	cfg := Config{
		Rate:              rate,
		Protocol:          p,
		Order:             OrderGRB,
		LatchSafetyFactor: DefaultLatchSafetyFactor,
	}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	return NewFromConfig(cfg)
}

// NewFromConfig validates cfg and derives its patterns. Any error is a
// *ConfigurationError.
func NewFromConfig(cfg Config) (*Encoder, error) {
	if err := cfg.Order.validate(); err != nil {
		return nil, err
	}
	f := cfg.LatchSafetyFactor
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return nil, &ConfigurationError{Field: "LatchSafetyFactor", Reason: fmt.Sprintf("%v is less than 1", f)}
	}
	if cfg.Protocol.Latch.Min <= 0 {
		return nil, &ConfigurationError{Field: "TLL", Reason: "minimum latch time must be positive"}
	}

	ps, err := Derive(cfg.Rate, cfg.Protocol, cfg.PatternBits)
	if err != nil {
		return nil, err
	}
	cfg.PatternBits = ps.Zero.Len
	cfg.Order = append(ChannelOrder(nil), cfg.Order...)

	e := &Encoder{cfg: cfg, patterns: ps}
	for v := range e.lut {
		w := bitWriter{buf: make([]byte, 0, cfg.PatternBits)}
		for i := 7; i >= 0; i-- {
			w.writePattern(ps.For(v>>uint(i)&1 == 1))
		}
		e.lut[v] = w.buf
	}

	required := float64(cfg.Protocol.Latch.Min) * f
	perByte := 8 * timing.PeriodNs(cfg.Rate)
	// The epsilon absorbs float noise from factors like 1.2.
	e.latchBytes = int(math.Ceil(required/perByte - 1e-9))
	return e, nil
}

// Config returns a copy of the resolved configuration.
func (e *Encoder) Config() Config {
	c := e.cfg
	c.Order = append(ChannelOrder(nil), e.cfg.Order...)
	return c
}

// Rate is the output bit rate the transport must run at.
func (e *Encoder) Rate() physic.Frequency { return e.cfg.Rate }

// Patterns returns the derived patterns.
func (e *Encoder) Patterns() Patterns { return e.patterns }

// PatternBits is the number of output bits per logical bit.
func (e *Encoder) PatternBits() int { return e.cfg.PatternBits }

// Channels is the number of channels sent per pixel.
func (e *Encoder) Channels() int { return len(e.cfg.Order) }

// FrameSize is the length in bytes of an encoded frame of n pixels, latch
// excluded.
func (e *Encoder) FrameSize(n int) int {
	return n * len(e.cfg.Order) * e.cfg.PatternBits
}

// EncodeFrame encodes pixels in the given order. The result is a new slice.
// An empty input yields an empty buffer.
func (e *Encoder) EncodeFrame(pixels []Pixel) ([]byte, error) {
	out := make([]byte, 0, e.FrameSize(len(pixels)))
	for i := range pixels {
		var err error
		if out, err = e.appendPixel(out, i, &pixels[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Frame is EncodeFrame followed by the latch.
func (e *Encoder) Frame(pixels []Pixel) ([]byte, error) {
	out, err := e.EncodeFrame(pixels)
	if err != nil {
		return nil, err
	}
	return append(out, make([]byte, e.latchBytes)...), nil
}

func (e *Encoder) appendPixel(out []byte, i int, p *Pixel) ([]byte, error) {
	for _, ch := range e.cfg.Order {
		v := p[ch]
		if v < 0 || v > 255 {
			return nil, &ValueError{Pixel: i, Channel: ch, Value: v}
		}
		out = append(out, e.lut[v]...)
	}
	return out, nil
}

// EncodeBytes encodes a raw interleaved stream of R,G,B bytes, or R,G,B,W
// when the order includes white.
func (e *Encoder) EncodeBytes(raw []byte) ([]byte, error) {
	stride := 3
	if e.cfg.Order.HasWhite() {
		stride = 4
	}
	if len(raw)%stride != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrInvalidLength, len(raw), stride)
	}
	n := len(raw) / stride
	out := make([]byte, 0, e.FrameSize(n))
	for i := 0; i < n; i++ {
		var p Pixel
		for c := 0; c < stride; c++ {
			p[c] = int(raw[i*stride+c])
		}
		out, _ = e.appendPixel(out, i, &p)
	}
	return out, nil
}

// EncodeImage encodes the pixels of img in row-major order.
func (e *Encoder) EncodeImage(img image.Image) []byte {
	b := img.Bounds()
	out := make([]byte, 0, e.FrameSize(b.Dx()*b.Dy()))
	i := 0
	if n, ok := img.(*image.NRGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := n.PixOffset(b.Min.X, y)
			for x := b.Min.X; x < b.Max.X; x++ {
				p := RGB(int(n.Pix[off]), int(n.Pix[off+1]), int(n.Pix[off+2]))
				out, _ = e.appendPixel(out, i, &p)
				off += 4
				i++
			}
		}
		return out
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			p := FromColor(img.At(x, y))
			out, _ = e.appendPixel(out, i, &p)
			i++
		}
	}
	return out
}

// LatchBytes is the number of zero bytes that hold the line low for at least
// the minimum latch time times the safety factor.
func (e *Encoder) LatchBytes() int { return e.latchBytes }

// Latch returns a new all-zero reset buffer.
func (e *Encoder) Latch() []byte {
	return make([]byte, e.latchBytes)
}
