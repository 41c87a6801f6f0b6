package encoder

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig is wrapped by every ConfigurationError.
	ErrInvalidConfig = errors.New("encoder: invalid configuration")
	// ErrInvalidValue is wrapped by every ValueError.
	ErrInvalidValue = errors.New("encoder: invalid channel value")
	// ErrInvalidLength is returned for raw channel streams that do not hold a
	// whole number of pixels.
	ErrInvalidLength = errors.New("encoder: invalid raw stream length")
	// ErrMalformedFrame is returned by Decode for data that no Encoder with
	// the same configuration could have produced.
	ErrMalformedFrame = errors.New("encoder: malformed frame")
)

// Bound names the side of a timing window that was violated.
type Bound string

const (
	BoundMin Bound = "min"
	BoundMax Bound = "max"
)

// ConfigurationError reports a configuration that cannot produce a compliant
// waveform. For timing violations Bound, Got and Limit are set.
type ConfigurationError struct {
	Field  string
	Bound  Bound
	Got    time.Duration
	Limit  time.Duration
	Reason string
}

// Delta is how far Got lies outside the violated bound.
func (e *ConfigurationError) Delta() time.Duration {
	switch e.Bound {
	case BoundMin:
		return e.Limit - e.Got
	case BoundMax:
		return e.Got - e.Limit
	default:
		return 0
	}
}

func (e *ConfigurationError) Error() string {
	var msg string
	switch e.Bound {
	case BoundMin:
		msg = fmt.Sprintf("encoder: %s of %v is below min %v by %v", e.Field, e.Got, e.Limit, e.Delta())
	case BoundMax:
		msg = fmt.Sprintf("encoder: %s of %v is above max %v by %v", e.Field, e.Got, e.Limit, e.Delta())
	default:
		return fmt.Sprintf("encoder: invalid %s: %s", e.Field, e.Reason)
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidConfig }

// ValueError reports a channel value outside 0-255.
type ValueError struct {
	Pixel   int
	Channel Channel
	Value   int
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("encoder: pixel %d channel %s value %d out of range 0-255", e.Pixel, e.Channel, e.Value)
}

func (e *ValueError) Unwrap() error { return ErrInvalidValue }
