// Package encoder turns pixel colours into the oversampled bitstream a
// fixed-rate serial line (typically SPI MOSI) must emit to drive WS2812-class
// LEDs.
//
// Every logical data bit becomes a fixed-width pattern of output bits: a run
// of ones followed by a run of zeros. The run lengths are derived from the
// protocol's typical pulse widths at the configured output rate and then
// checked against the full min/max tolerance of each pulse, so a successfully
// constructed Encoder only ever emits compliant waveforms.
//
// At 8MHz (125ns per output bit) with 16-bit patterns and WS2812B timing a 0
// is sent as 11100000 00000000 and a 1 as 11111100 00000000.
//
// An Encoder is immutable once New returns and is safe for concurrent use.
package encoder
