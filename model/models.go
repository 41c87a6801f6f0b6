// Package model holds the pixel buffer of a single LED strip.
package model

import (
	"image"

	"github.com/coreman2200/nrzspi/encoder"
)

// DFLT_COLOR_INIT is a dim amber used when a strip is first created.
const DFLT_COLOR_INIT uint32 = 0x00102000

// LedStrip is an ordered buffer of LED colours. Index 0 is the LED nearest
// the controller unless Reverse is set, in which case the strip is wired
// from the far end.
type LedStrip struct {
	Reverse bool
	leds    []ColorVal
}

func NewStrip(size int, c ColorVal) *LedStrip {
	v := &LedStrip{leds: make([]ColorVal, size)}
	v.Fill(c)
	return v
}

func (s *LedStrip) Len() int {
	return len(s.leds)
}

func (s *LedStrip) At(i int) ColorVal {
	return s.leds[i]
}

func (s *LedStrip) Set(i int, c ColorVal) {
	s.leds[i] = c
}

func (s *LedStrip) Fill(c ColorVal) {
	for i := range s.leds {
		s.leds[i] = c
	}
}

func (s *LedStrip) Clear() {
	s.Fill(NewColor(0))
}

// ColorF calls f for every LED in index order and stores the result.
func (s *LedStrip) ColorF(f func(i int, c ColorVal) ColorVal) {
	for i := range s.leds {
		s.leds[i] = f(i, s.leds[i])
	}
}

// sorted returns the LEDs in wire order.
func (s *LedStrip) sorted() []ColorVal {
	ss := make([]ColorVal, len(s.leds))
	copy(ss, s.leds)
	if s.Reverse {
		for i, j := 0, len(ss)-1; i < j; i, j = i+1, j-1 {
			ss[i], ss[j] = ss[j], ss[i]
		}
	}
	return ss
}

// Pixels returns the strip in wire order.
func (s *LedStrip) Pixels() []encoder.Pixel {
	ss := s.sorted()
	out := make([]encoder.Pixel, len(ss))
	for i := range ss {
		out[i] = ss[i].Pixel()
	}
	return out
}

// Image returns the strip in wire order as a single row.
func (s *LedStrip) Image() *image.NRGBA {
	ss := s.sorted()
	im := image.NewNRGBA(image.Rect(0, 0, len(ss), 1))
	for x := range ss {
		im.SetNRGBA(x, 0, ss[x].ToNRGBA())
	}
	return im
}

// Serialize returns the raw R,G,B stream in wire order, with W appended to
// every pixel when white is set.
func (s *LedStrip) Serialize(white bool) []byte {
	stride := 3
	if white {
		stride = 4
	}
	ss := s.sorted()
	buf := make([]byte, 0, len(ss)*stride)
	for _, c := range ss {
		buf = append(buf, c.GetR(), c.GetG(), c.GetB())
		if white {
			buf = append(buf, c.GetW())
		}
	}
	return buf
}
