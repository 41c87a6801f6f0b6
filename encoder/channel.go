package encoder

import (
	"fmt"
	"image/color"
	"strings"
)

// Channel identifies a colour channel of a Pixel.
type Channel uint8

const (
	Red Channel = iota
	Green
	Blue
	White
)

func (c Channel) String() string {
	switch c {
	case Red:
		return "R"
	case Green:
		return "G"
	case Blue:
		return "B"
	case White:
		return "W"
	default:
		return fmt.Sprintf("Channel(%d)", uint8(c))
	}
}

// ChannelOrder is the order in which a LED shifts in its channels.
type ChannelOrder []Channel

// Common wiring orders.
var (
	OrderGRB  = ChannelOrder{Green, Red, Blue}
	OrderRGB  = ChannelOrder{Red, Green, Blue}
	OrderBRG  = ChannelOrder{Blue, Red, Green}
	OrderGRBW = ChannelOrder{Green, Red, Blue, White}
	OrderRGBW = ChannelOrder{Red, Green, Blue, White}
)

// ParseOrder parses an order such as "GRB" or "rgbw".
func ParseOrder(s string) (ChannelOrder, error) {
	o := make(ChannelOrder, 0, len(s))
	for _, r := range strings.ToUpper(s) {
		switch r {
		case 'R':
			o = append(o, Red)
		case 'G':
			o = append(o, Green)
		case 'B':
			o = append(o, Blue)
		case 'W':
			o = append(o, White)
		default:
			return nil, &ConfigurationError{Field: "ChannelOrder", Reason: fmt.Sprintf("unknown channel %q in %q", r, s)}
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o ChannelOrder) String() string {
	var sb strings.Builder
	for _, c := range o {
		sb.WriteString(c.String())
	}
	return sb.String()
}

// HasWhite reports whether the order includes a white channel.
func (o ChannelOrder) HasWhite() bool {
	for _, c := range o {
		if c == White {
			return true
		}
	}
	return false
}

func (o ChannelOrder) validate() error {
	if len(o) == 0 {
		return &ConfigurationError{Field: "ChannelOrder", Reason: "empty"}
	}
	var seen [4]bool
	for _, c := range o {
		if c > White {
			return &ConfigurationError{Field: "ChannelOrder", Reason: fmt.Sprintf("unknown channel %d", uint8(c))}
		}
		if seen[c] {
			return &ConfigurationError{Field: "ChannelOrder", Reason: fmt.Sprintf("channel %s repeated in %s", c, o)}
		}
		seen[c] = true
	}
	return nil
}

// Pixel holds one LED's channel intensities, indexed by Channel. Valid values
// are 0-255; channels absent from the encoder's order are ignored.
type Pixel [4]int

// RGB returns a pixel without a white component.
func RGB(r, g, b int) Pixel {
	return Pixel{Red: r, Green: g, Blue: b}
}

// RGBW returns a pixel with a white component.
func RGBW(r, g, b, w int) Pixel {
	return Pixel{Red: r, Green: g, Blue: b, White: w}
}

// FromColor converts c to a pixel. Alpha is ignored.
func FromColor(c color.Color) Pixel {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB(int(n.R), int(n.G), int(n.B))
}
