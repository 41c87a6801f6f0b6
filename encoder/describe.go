package encoder

import (
	"fmt"
	"io"
	"strings"

	"github.com/coreman2200/nrzspi/timing"
)

// Describe writes a human readable layout of frame to w: one line per LED
// channel with its bytes in binary, then a summary of the latch tail.
//
// Pixel data is recognised by its leading high bit, so the tail starts at the
// first pixel-sized block whose first byte is zero.
func (e *Encoder) Describe(w io.Writer, frame []byte) error {
	perChannel := e.cfg.PatternBits
	perPixel := e.FrameSize(1)

	n := 0
	for (n+1)*perPixel <= len(frame) && frame[n*perPixel]&0x80 != 0 {
		n++
	}

	if _, err := fmt.Fprintf(w, "%d pixels, %s, %d bits per bit, 0=%s 1=%s\n",
		n, e.cfg.Order, perChannel, e.patterns.Zero, e.patterns.One); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		for c, ch := range e.cfg.Order {
			start := i*perPixel + c*perChannel
			end := start + perChannel
			parts := make([]string, 0, perChannel)
			for _, b := range frame[start:end] {
				parts = append(parts, fmt.Sprintf("%08b", b))
			}
			if _, err := fmt.Fprintf(w, "LED %03d %s (%03d..%03d): %s\n", i, ch, start, end, strings.Join(parts, " ")); err != nil {
				return err
			}
		}
	}

	tail := frame[n*perPixel:]
	zeros := 0
	for zeros < len(tail) && tail[zeros] == 0 {
		zeros++
	}
	start := n * perPixel
	if _, err := fmt.Fprintf(w, "Latch   (%03d..%03d): %d zero bytes, %v low\n",
		start, start+zeros, zeros, timing.Duration(8*zeros, e.cfg.Rate)); err != nil {
		return err
	}
	if rest := len(tail) - zeros; rest > 0 {
		_, err := fmt.Fprintf(w, "Trailing (%03d..%03d): %d unrecognised bytes\n", start+zeros, len(frame), rest)
		return err
	}
	return nil
}
