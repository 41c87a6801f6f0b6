package model

import (
	"image/color"

	"github.com/coreman2200/nrzspi/encoder"
)

// Packed layout of a ColorVal, 0xWWGGRRBB.
const (
	WHITE_OFFSET uint8 = 0x18
	GREEN_OFFSET uint8 = 0x10
	RED_OFFSET   uint8 = 0x08
	BLUE_OFFSET  uint8 = 0x0
)

type ColorVal struct {
	val uint32
}

func NewColor(c uint32) ColorVal {
	return ColorVal{val: c}
}

// FromNRGBA packs c, dropping alpha.
func FromNRGBA(c color.NRGBA) ColorVal {
	v := NewColor(0)
	v.SetR(c.R)
	v.SetG(c.G)
	v.SetB(c.B)
	return v
}

func (c *ColorVal) Color() uint32 {
	return c.val
}

func setcolor(c uint32, n uint8, off uint8) uint32 {
	var val uint32 = uint32(n) << off
	var mask uint32 = 0xFF << off
	return (c & (^mask)) | val
}

func getcolor(c uint32, off uint8) uint8 {
	var mask uint32 = 0xFF << off
	return uint8((c & (mask)) >> off)
}

func (c *ColorVal) SetR(r uint8) {
	c.val = setcolor(c.val, r, RED_OFFSET)
}
func (c *ColorVal) SetG(g uint8) {
	c.val = setcolor(c.val, g, GREEN_OFFSET)
}
func (c *ColorVal) SetB(b uint8) {
	c.val = setcolor(c.val, b, BLUE_OFFSET)
}
func (c *ColorVal) SetW(w uint8) {
	c.val = setcolor(c.val, w, WHITE_OFFSET)
}

func (c *ColorVal) GetR() uint8 {
	return getcolor(c.val, RED_OFFSET)
}
func (c *ColorVal) GetG() uint8 {
	return getcolor(c.val, GREEN_OFFSET)
}
func (c *ColorVal) GetB() uint8 {
	return getcolor(c.val, BLUE_OFFSET)
}
func (c *ColorVal) GetW() uint8 {
	return getcolor(c.val, WHITE_OFFSET)
}

// ToNRGBA drops the white channel.
func (c *ColorVal) ToNRGBA() color.NRGBA {
	return color.NRGBA{R: c.GetR(), G: c.GetG(), B: c.GetB(), A: 255}
}

func (c *ColorVal) Pixel() encoder.Pixel {
	return encoder.RGBW(int(c.GetR()), int(c.GetG()), int(c.GetB()), int(c.GetW()))
}

// Scale multiplies every channel by s, which must be within [0, 1].
func (c *ColorVal) Scale(s float64) {
	if s > 1.0 || s < 0.0 {
		return
	}
	c.SetR(uint8(float64(c.GetR()) * s))
	c.SetG(uint8(float64(c.GetG()) * s))
	c.SetB(uint8(float64(c.GetB()) * s))
	c.SetW(uint8(float64(c.GetW()) * s))
}
