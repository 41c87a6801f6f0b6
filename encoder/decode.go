package encoder

import "fmt"

// Decode recovers the pixels of a frame produced by EncodeFrame with the
// same configuration. Each pattern slot is read as a run of ones followed by
// zeros and classified by the nearer of the two high run lengths. Channels
// outside the order are left at zero.
func (e *Encoder) Decode(frame []byte) ([]Pixel, error) {
	perPixel := e.FrameSize(1)
	if len(frame)%perPixel != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrMalformedFrame, len(frame), perPixel)
	}
	h0, h1 := e.patterns.Zero.HighBits(), e.patterns.One.HighBits()
	n := e.cfg.PatternBits

	pixels := make([]Pixel, len(frame)/perPixel)
	r := bitReader{buf: frame}
	for i := range pixels {
		for _, ch := range e.cfg.Order {
			v := 0
			for bit := 0; bit < 8; bit++ {
				run, err := readSlot(&r, n)
				if err != nil {
					return nil, fmt.Errorf("pixel %d channel %s bit %d: %w", i, ch, 7-bit, err)
				}
				v <<= 1
				if abs(run-h1) < abs(run-h0) {
					v |= 1
				}
			}
			pixels[i][ch] = v
		}
	}
	return pixels, nil
}

// readSlot consumes n bits and returns the length of the leading run of ones.
func readSlot(r *bitReader, n int) (int, error) {
	run := 0
	for run < n && r.readBit() == 1 {
		run++
	}
	if run == 0 {
		return 0, fmt.Errorf("%w: no high pulse", ErrMalformedFrame)
	}
	// The bit ending the run has already been consumed.
	for i := run + 1; i < n; i++ {
		if r.readBit() == 1 {
			return 0, fmt.Errorf("%w: second high pulse in one bit", ErrMalformedFrame)
		}
	}
	return run, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
