package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/nrzspi/config"
	"github.com/coreman2200/nrzspi/encoder"
	"github.com/coreman2200/nrzspi/model"
	"github.com/coreman2200/nrzspi/spi"
	"github.com/coreman2200/nrzspi/stream"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to config.yaml")
		driver      = flag.String("driver", "", "driver: spi | nrzled | dry")
		chip        = flag.String("chip", "", "LED chip timing preset")
		rateHz      = flag.Int64("rate", 0, "SPI bit rate in Hz")
		patternBits = flag.Int("pattern-bits", -1, "output bits per data bit, 0 for the shortest valid")
		order       = flag.String("order", "", "channel order, e.g. GRB or GRBW")
		pixels      = flag.Int("pixels", 0, "number of LEDs")
		fps         = flag.Int("fps", 0, "animation frames per second")
		listen      = flag.String("listen", "", "ingest server address")
		spiDev      = flag.String("spi", "", "SPI port name, empty for the first one")
		reverse     = flag.Bool("reverse", false, "strip is wired from the far end")
		dump        = flag.Bool("dump", false, "print the encoding of a test frame and exit")
		serve       = flag.Bool("serve", false, "accept frames over websocket instead of animating")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg := config.Default()
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
		}
		cfg = c
	}

	// Flags only override the config when given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "driver":
			cfg.Driver = strings.ToLower(*driver)
		case "chip":
			cfg.Chip = *chip
		case "rate":
			cfg.RateHz = *rateHz
		case "pattern-bits":
			cfg.PatternBits = *patternBits
		case "order":
			cfg.ColorOrder = *order
		case "pixels":
			cfg.Pixels = *pixels
		case "fps":
			cfg.FPS = *fps
		case "listen":
			cfg.Listen = *listen
		case "spi":
			cfg.SPI.Dev = *spiDev
		case "reverse":
			cfg.Reverse = *reverse
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	enc, err := cfg.Encoder()
	if err != nil {
		log.Fatal().Err(err).Msg("encoder")
	}
	ps := enc.Patterns()
	log.Info().
		Str("chip", cfg.Chip).
		Stringer("rate", enc.Rate()).
		Dur("period", enc.Config().Period()).
		Int("pattern_bits", enc.PatternBits()).
		Stringer("zero", ps.Zero).
		Stringer("one", ps.One).
		Int("latch_bytes", enc.LatchBytes()).
		Msg("encoder ready")

	strip := model.NewStrip(cfg.Pixels, model.NewColor(model.DFLT_COLOR_INIT))
	strip.Reverse = cfg.Reverse

	if *dump {
		if err := dumpFrame(enc, strip); err != nil {
			log.Fatal().Err(err).Msg("dump")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := openDriver(cfg, enc)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Driver).Msg("driver init failed")
	}
	log.Info().Str("driver", cfg.Driver).Str("dev", out.String()).Int("pixels", cfg.Pixels).Msg("driver ready")

	if *serve {
		sink, ok := out.(stream.Sink)
		if !ok {
			sink = drawerSink{out}
		}
		srv, err := stream.NewServer(sink, cfg.Pixels)
		if err != nil {
			log.Fatal().Err(err).Msg("stream")
		}
		err = srv.ListenAndServe(ctx, cfg.Listen)
		if herr := out.Halt(); herr != nil {
			log.Warn().Err(herr).Msg("halt failed")
		}
		if err != nil {
			log.Fatal().Err(err).Msg("http server crashed")
		}
		return
	}

	l := &spi.Looper{
		Strip:  strip,
		Drawer: out,
		FPS:    cfg.FPS,
		Update: rainbow,
	}
	if err := l.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("render loop")
	}
	log.Info().Uint64("frames", l.Frames()).Msg("shutting down")
}

// dumpFrame describes the encoding of the first LEDs of a colour wheel.
func dumpFrame(enc *encoder.Encoder, s *model.LedStrip) error {
	n := s.Len()
	if n > 3 {
		n = 3
	}
	test := model.NewStrip(n, model.NewColor(0))
	rainbow(0, test)
	frame, err := enc.Frame(test.Pixels())
	if err != nil {
		return err
	}
	return enc.Describe(os.Stdout, frame)
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags]\n\nDrives WS2812-class LEDs from a SPI MOSI line.\n\n", os.Args[0])
		flag.PrintDefaults()
	}
}
