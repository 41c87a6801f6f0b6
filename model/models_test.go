package model_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/nrzspi/encoder"
	. "github.com/coreman2200/nrzspi/model"
)

var TestStartColorChangesToExpectedColor = []struct {
	Start  uint32
	Given  uint32
	Expect uint32
}{
	{0xFF112233, 0x00112233, 0xFF224466},
	{0x00448800, 0xFF0000FF, 0xFF4488FF},
	{0x87650000, 0x00004321, 0x87654321},
	{0x37650105, 0x30004321, 0x67654426},
}

var TestWGRBIsExpectedColor = []struct {
	W      uint8
	G      uint8
	R      uint8
	B      uint8
	Expect uint32
}{
	{0xFF, 0x11, 0x22, 0x33, 0xFF112233},
	{0x00, 0x2A, 0x44, 0x34, 0x002A4434},
	{0xAB, 0x3B, 0x88, 0x35, 0xAB3B8835},
	{0x22, 0x4C, 0xAA, 0x36, 0x224CAA36},
	{0xFF, 0x5D, 0xCC, 0x37, 0xFF5DCC37},
}

func TestColorsWGRB(t *testing.T) {
	for k, v := range TestWGRBIsExpectedColor {
		t.Run("Given WGRB"+strconv.FormatUint(uint64(k), 10), func(t *testing.T) {
			col := NewColor(0)
			col.SetW(v.W)
			col.SetR(v.R)
			col.SetG(v.G)
			col.SetB(v.B)
			assert.Equal(t, v.Expect, col.Color(), "should be same val")
			assert.Equal(t, encoder.RGBW(int(v.R), int(v.G), int(v.B), int(v.W)), col.Pixel())
		})
	}
}

func TestColorsChanges(t *testing.T) {
	for k, v := range TestStartColorChangesToExpectedColor {
		t.Run("Given WGRB"+strconv.FormatUint(uint64(k), 10), func(t *testing.T) {
			col1 := NewColor(v.Start)
			col2 := NewColor(v.Given)

			col1.SetW(col1.GetW() + col2.GetW())
			col1.SetR(col1.GetR() + col2.GetR())
			col1.SetG(col1.GetG() + col2.GetG())
			col1.SetB(col1.GetB() + col2.GetB())

			assert.Equal(t, v.Expect, col1.Color(), "should be same val")
		})
	}
}

func TestColorScale(t *testing.T) {
	c := NewColor(0x80402010)
	c.Scale(0.5)
	assert.Equal(t, uint32(0x40201008), c.Color())
	c.Scale(2)
	assert.Equal(t, uint32(0x40201008), c.Color(), "out of range scale is ignored")
}

func TestStripWireOrder(t *testing.T) {
	s := NewStrip(3, NewColor(0))
	red, green := NewColor(0), NewColor(0)
	red.SetR(255)
	green.SetG(255)
	s.Set(0, red)
	s.Set(2, green)

	assert.Equal(t, []encoder.Pixel{encoder.RGB(255, 0, 0), {}, encoder.RGB(0, 255, 0)}, s.Pixels())
	assert.Equal(t, []byte{255, 0, 0, 0, 0, 0, 0, 255, 0}, s.Serialize(false))

	s.Reverse = true
	assert.Equal(t, []encoder.Pixel{encoder.RGB(0, 255, 0), {}, encoder.RGB(255, 0, 0)}, s.Pixels())
	assert.Equal(t, []byte{0, 255, 0, 0, 0, 0, 0, 0, 255, 0, 0, 0}, s.Serialize(true))
	assert.Equal(t, red, s.At(0), "reversal does not touch the buffer")

	im := s.Image()
	assert.Equal(t, 3, im.Bounds().Dx())
	assert.Equal(t, green.ToNRGBA(), im.NRGBAAt(0, 0))
}

func TestStripFillAndColorF(t *testing.T) {
	s := NewStrip(4, NewColor(DFLT_COLOR_INIT))
	assert.Equal(t, 4, s.Len())
	last := s.At(3)
	assert.Equal(t, uint8(0x20), last.GetR())

	s.ColorF(func(i int, c ColorVal) ColorVal {
		c.SetB(uint8(i))
		return c
	})
	last = s.At(3)
	assert.Equal(t, uint8(3), last.GetB())

	s.Clear()
	for i := 0; i < s.Len(); i++ {
		c := s.At(i)
		assert.Equal(t, uint32(0), c.Color())
	}
}
