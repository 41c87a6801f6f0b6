package spi

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"

	"github.com/coreman2200/nrzspi/encoder"
	"github.com/coreman2200/nrzspi/model"
)

const DFLT_FPS = 30

// UpdateFunc mutates the strip before each redraw. elapsed is measured from
// the start of Run.
type UpdateFunc func(elapsed time.Duration, s *model.LedStrip)

// PixelWriter accepts pixels with all four channels. Drawers that implement
// it receive the white channel, which an image cannot carry.
type PixelWriter interface {
	WritePixels(px []encoder.Pixel) error
}

// Looper redraws a strip at a fixed frame rate until its context ends.
type Looper struct {
	Strip  *model.LedStrip
	Drawer display.Drawer
	Update UpdateFunc
	FPS    int
	Logger *zerolog.Logger

	frames uint64
}

// Frames is the number of frames drawn by the last Run.
func (l *Looper) Frames() uint64 { return l.frames }

// Run blocks until ctx is done or a draw fails. The drawer is halted on
// return. Cancellation is not an error.
func (l *Looper) Run(ctx context.Context) error {
	lg := log.Logger
	if l.Logger != nil {
		lg = *l.Logger
	}
	fps := l.FPS
	if fps <= 0 {
		fps = DFLT_FPS
	}
	frame := time.Second / time.Duration(fps)
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	defer func() {
		if err := l.Drawer.Halt(); err != nil {
			lg.Warn().Err(err).Msg("looper: halt failed")
		}
	}()

	l.frames = 0
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			lg.Debug().Uint64("frames", l.frames).Msg("looper: stopped")
			return nil
		case t := <-ticker.C:
			if l.Update != nil {
				l.Update(t.Sub(start), l.Strip)
			}
			if err := l.draw(); err != nil {
				lg.Error().Err(err).Uint64("frame", l.frames).Msg("looper: draw failed")
				return err
			}
			l.frames++
			if spent := time.Since(t); spent > frame {
				lg.Trace().Dur("spent", spent).Dur("budget", frame).Msg("looper: frame overran")
			}
		}
	}
}

func (l *Looper) draw() error {
	if w, ok := l.Drawer.(PixelWriter); ok {
		return w.WritePixels(l.Strip.Pixels())
	}
	img := l.Strip.Image()
	return l.Drawer.Draw(l.Drawer.Bounds(), img, img.Bounds().Min)
}
