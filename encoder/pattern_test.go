package encoder

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPattern(t *testing.T) {
	p := newPattern(3, 16)
	assert.Equal(t, uint64(0xE000), p.Bits)
	assert.Equal(t, 3, p.HighBits())
	assert.Equal(t, 13, p.LowBits())

	p = newPattern(2, 3)
	assert.Equal(t, uint64(0b110), p.Bits)
	assert.Equal(t, "110", p.String())
}

func TestBitWriterPacksAcrossBytes(t *testing.T) {
	var w bitWriter
	for i := 0; i < 8; i++ {
		w.writePattern(newPattern(1, 3))
	}
	// 100 repeated eight times.
	assert.Equal(t, []byte{0x92, 0x49, 0x24}, w.buf)

	r := bitReader{buf: w.buf}
	for i := 0; i < 8; i++ {
		assert.Equal(t, uint64(1), r.readBit())
		assert.Equal(t, uint64(0), r.readBit())
		assert.Equal(t, uint64(0), r.readBit())
	}
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    ChannelOrder
		wantErr bool
	}{
		{"GRB", OrderGRB, false},
		{"rgbw", OrderRGBW, false},
		{"BRG", OrderBRG, false},
		{"", nil, true},
		{"GGB", nil, true},
		{"RGBX", nil, true},
		{"RGBWR", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrder(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in != "rgbw", got.String() == tt.in)
		})
	}
	assert.True(t, OrderGRBW.HasWhite())
	assert.False(t, OrderGRB.HasWhite())
	assert.Equal(t, "Channel(9)", Channel(9).String())
}

func TestFromColor(t *testing.T) {
	assert.Equal(t, RGB(1, 2, 3), FromColor(color.NRGBA{R: 1, G: 2, B: 3, A: 255}))
	// Alpha is dropped after un-premultiplying.
	assert.Equal(t, RGB(255, 0, 0), FromColor(color.RGBA{R: 128, A: 128}))
}
