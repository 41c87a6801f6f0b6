// Package timing holds the pulse timing windows of single-wire addressable
// LEDs and the conversions between durations and bit counts at a fixed
// output clock rate.
package timing

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Window is the accepted range of a pulse duration, as given by a datasheet.
type Window struct {
	Min     time.Duration
	Typical time.Duration
	Max     time.Duration
}

// Contains reports whether d lies inside [Min, Max].
func (w Window) Contains(d time.Duration) bool {
	return d >= w.Min && d <= w.Max
}

func (w Window) String() string {
	return fmt.Sprintf("%v<=%v<=%v", w.Min, w.Typical, w.Max)
}

// Protocol describes the symbols of a WS2812-class data line.
//
// DataLow is the low time following the high pulse of either logical value;
// the LEDs accept the same window for both.
type Protocol struct {
	Name     string
	ZeroHigh Window // T0H
	OneHigh  Window // T1H
	DataLow  Window // TLD
	Latch    Window // TLL
}

// Supports reports whether one period at rate is shorter than the maximum of
// every data window. A rate failing this check can never be configured.
func (p Protocol) Supports(rate physic.Frequency) bool {
	if rate <= 0 {
		return false
	}
	period := PeriodNs(rate)
	for _, w := range []Window{p.ZeroHigh, p.OneHigh, p.DataLow, p.Latch} {
		if period >= float64(w.Max) {
			return false
		}
	}
	return true
}

// Timings from https://wp.josh.com/2014/05/13/ws2812-neopixels-are-not-so-finicky-once-you-get-to-know-them/
var WS2812B = Protocol{
	Name:     "ws2812b",
	ZeroHigh: Window{Min: 200 * time.Nanosecond, Typical: 350 * time.Nanosecond, Max: 500 * time.Nanosecond},
	OneHigh:  Window{Min: 550 * time.Nanosecond, Typical: 700 * time.Nanosecond, Max: 5500 * time.Nanosecond},
	DataLow:  Window{Min: 450 * time.Nanosecond, Typical: 600 * time.Nanosecond, Max: 5000 * time.Nanosecond},
	Latch:    Window{Min: 250 * time.Microsecond, Typical: 250500 * time.Nanosecond, Max: 251 * time.Microsecond},
}

// WS2812BLegacy is the WS2812B data timing with the short reset of early
// WS2812 parts.
var WS2812BLegacy = Protocol{
	Name:     "ws2812b-legacy",
	ZeroHigh: WS2812B.ZeroHigh,
	OneHigh:  WS2812B.OneHigh,
	DataLow:  WS2812B.DataLow,
	Latch:    Window{Min: 6 * time.Microsecond, Typical: 6500 * time.Nanosecond, Max: 10 * time.Microsecond},
}

// SK6812 covers the RGB and RGBW variants.
var SK6812 = Protocol{
	Name:     "sk6812",
	ZeroHigh: Window{Min: 150 * time.Nanosecond, Typical: 300 * time.Nanosecond, Max: 450 * time.Nanosecond},
	OneHigh:  Window{Min: 450 * time.Nanosecond, Typical: 600 * time.Nanosecond, Max: 750 * time.Nanosecond},
	DataLow:  Window{Min: 450 * time.Nanosecond, Typical: 900 * time.Nanosecond, Max: 5000 * time.Nanosecond},
	Latch:    Window{Min: 80 * time.Microsecond, Typical: 100 * time.Microsecond, Max: 200 * time.Microsecond},
}

var presets = map[string]Protocol{
	WS2812B.Name:       WS2812B,
	WS2812BLegacy.Name: WS2812BLegacy,
	SK6812.Name:        SK6812,
}

// Lookup returns the preset registered under name, case-insensitively.
func Lookup(name string) (Protocol, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Protocol{}, fmt.Errorf("timing: unknown chip %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Names lists the preset names in sorted order.
func Names() []string {
	out := make([]string, 0, len(presets))
	for k := range presets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PeriodNs returns the duration of one output bit at rate, in nanoseconds.
func PeriodNs(rate physic.Frequency) float64 {
	return 1e9 * float64(physic.Hertz) / float64(rate)
}

// Period returns the duration of one output bit at rate, rounded to the
// nearest nanosecond.
func Period(rate physic.Frequency) time.Duration {
	return time.Duration(math.Round(PeriodNs(rate)))
}

// Duration returns how long n output bits last at rate.
func Duration(n int, rate physic.Frequency) time.Duration {
	return time.Duration(math.Round(float64(n) * PeriodNs(rate)))
}

// Bits returns d expressed in output bits at rate, rounded to the nearest
// whole bit.
func Bits(d time.Duration, rate physic.Frequency) int {
	return int(math.Round(float64(d) / PeriodNs(rate)))
}
