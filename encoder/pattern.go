package encoder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/nrzspi/timing"
)

// MaxPatternBits is the longest pattern a BitPattern can hold.
const MaxPatternBits = 64

// BitPattern is the sequence of output bits sent for one logical bit. Bits
// holds the Len output bits right-aligned, first transmitted bit most
// significant.
type BitPattern struct {
	Bits uint64
	Len  int
}

func newPattern(high, n int) BitPattern {
	ones := uint64(1)<<uint(high) - 1
	return BitPattern{Bits: ones << uint(n-high), Len: n}
}

// HighBits is the number of leading one bits.
func (p BitPattern) HighBits() int {
	n := 0
	for i := p.Len - 1; i >= 0 && p.Bits>>uint(i)&1 == 1; i-- {
		n++
	}
	return n
}

// LowBits is the number of trailing zero bits.
func (p BitPattern) LowBits() int {
	n := 0
	for i := 0; i < p.Len && p.Bits>>uint(i)&1 == 0; i++ {
		n++
	}
	return n
}

// String renders the pattern in binary, grouped by byte.
func (p BitPattern) String() string {
	var sb strings.Builder
	for i := p.Len - 1; i >= 0; i-- {
		if p.Bits>>uint(i)&1 == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
		if pos := p.Len - i; pos%8 == 0 && i != 0 {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// Patterns is the pair of patterns for logical 0 and logical 1.
type Patterns struct {
	Zero BitPattern
	One  BitPattern
}

// For returns the pattern sent for a logical bit.
func (p Patterns) For(bit bool) BitPattern {
	if bit {
		return p.One
	}
	return p.Zero
}

// Derive computes the patterns for a protocol at rate. Each high run is the
// typical high time rounded to whole output bits; the remainder of the
// pattern is low. Both runs of both patterns must fall inside their windows.
//
// A patternBits of 0 selects the shortest length that satisfies every window.
func Derive(rate physic.Frequency, p timing.Protocol, patternBits int) (Patterns, error) {
	if rate <= 0 {
		return Patterns{}, &ConfigurationError{Field: "Rate", Reason: fmt.Sprintf("%v is not positive", rate)}
	}
	if patternBits == 0 {
		return deriveShortest(rate, p)
	}
	if patternBits < 2 || patternBits > MaxPatternBits {
		return Patterns{}, &ConfigurationError{Field: "PatternBits", Reason: fmt.Sprintf("%d not in [2, %d]", patternBits, MaxPatternBits)}
	}

	zero, err := derivePattern("T0", rate, p.ZeroHigh, p.DataLow, patternBits)
	if err != nil {
		return Patterns{}, err
	}
	one, err := derivePattern("T1", rate, p.OneHigh, p.DataLow, patternBits)
	if err != nil {
		return Patterns{}, err
	}
	if zero.HighBits() == one.HighBits() {
		return Patterns{}, &ConfigurationError{
			Field:  "T1H",
			Reason: fmt.Sprintf("indistinguishable from T0H at %v per bit (%d high bits each)", timing.Period(rate), zero.HighBits()),
		}
	}
	return Patterns{Zero: zero, One: one}, nil
}

func deriveShortest(rate physic.Frequency, p timing.Protocol) (Patterns, error) {
	for n := 2; n <= MaxPatternBits; n++ {
		ps, err := Derive(rate, p, n)
		if err == nil {
			return ps, nil
		}
		// High times do not depend on the pattern length.
		var ce *ConfigurationError
		if errors.As(err, &ce) && (ce.Field == "T0H" || ce.Field == "T1H") {
			return Patterns{}, err
		}
	}
	return Patterns{}, &ConfigurationError{
		Field:  "PatternBits",
		Reason: fmt.Sprintf("no length in [2, %d] fits the low window %v at %v per bit", MaxPatternBits, p.DataLow, timing.Period(rate)),
	}
}

func derivePattern(symbol string, rate physic.Frequency, high, low timing.Window, n int) (BitPattern, error) {
	hb := timing.Bits(high.Typical, rate)
	if hb < 1 {
		return BitPattern{}, &ConfigurationError{Field: symbol + "H", Bound: BoundMin, Got: 0, Limit: high.Min,
			Reason: fmt.Sprintf("%v rounds to no high bits at %v per bit", high.Typical, timing.Period(rate))}
	}
	if err := checkWindow(symbol+"H", timing.Duration(hb, rate), high); err != nil {
		return BitPattern{}, err
	}
	lb := n - hb
	if lb < 1 {
		return BitPattern{}, &ConfigurationError{
			Field:  "PatternBits",
			Reason: fmt.Sprintf("%d bits leave no low time after %d high bits for %sH", n, hb, symbol),
		}
	}
	if err := checkWindow(symbol+"L", timing.Duration(lb, rate), low); err != nil {
		return BitPattern{}, err
	}
	return newPattern(hb, n), nil
}

func checkWindow(field string, d time.Duration, w timing.Window) error {
	switch {
	case d < w.Min:
		return &ConfigurationError{Field: field, Bound: BoundMin, Got: d, Limit: w.Min}
	case d > w.Max:
		return &ConfigurationError{Field: field, Bound: BoundMax, Got: d, Limit: w.Max}
	}
	return nil
}

// bitWriter packs bits MSB-first.
type bitWriter struct {
	buf []byte
	n   uint
}

func (w *bitWriter) writeBit(b uint64) {
	if w.n == 0 {
		w.buf = append(w.buf, 0)
	}
	if b&1 == 1 {
		w.buf[len(w.buf)-1] |= 0x80 >> w.n
	}
	w.n = (w.n + 1) & 7
}

func (w *bitWriter) writePattern(p BitPattern) {
	for i := p.Len - 1; i >= 0; i-- {
		w.writeBit(p.Bits >> uint(i))
	}
}

// bitReader reads bits MSB-first.
type bitReader struct {
	buf []byte
	pos int
}

func (r *bitReader) readBit() uint64 {
	b := r.buf[r.pos>>3] >> (7 - uint(r.pos&7)) & 1
	r.pos++
	return uint64(b)
}
