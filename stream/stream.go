// Package stream accepts pixel frames over a websocket and hands them to a
// Sink, typically a *spi.Dev.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/nrzspi/encoder"
	"github.com/coreman2200/nrzspi/internal/options"
)

var (
	ackEncMode   cbor.EncMode
	frameDecMode cbor.DecMode
)

func init() {
	var err error
	ackEncMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create ack CBOR encoder mode: %v", err))
	}
	frameDecMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create frame CBOR decoder mode: %v", err))
	}
}

// FrameMessage is one frame sent by a client, as CBOR in a binary message.
// Each pixel is [r, g, b] or [r, g, b, w].
type FrameMessage struct {
	Seq    uint64  `cbor:"seq"`
	Pixels [][]int `cbor:"pixels"`
}

// Ack answers every FrameMessage. Error is empty when the frame was sent.
type Ack struct {
	Seq    uint64 `cbor:"seq"`
	Client string `cbor:"client"`
	Error  string `cbor:"error,omitempty"`
}

// Health is the body of /health.
type Health struct {
	Frames  uint64  `json:"frames"`
	Errors  uint64  `json:"errors"`
	UptimeS float64 `json:"uptime_s"`
	Pixels  int     `json:"pixels"`
}

// Sink receives decoded frames. Calls are serialized by the server.
type Sink interface {
	WritePixels(px []encoder.Pixel) error
}

type Server struct {
	sink   Sink
	pixels int
	log    zerolog.Logger
	up     websocket.Upgrader
	start  time.Time

	mu       sync.Mutex
	frames   atomic.Uint64
	rejected atomic.Uint64
}

// Option configures a Server.
type Option = options.Option[*Server]

// WithLogger replaces the global logger.
func WithLogger(l zerolog.Logger) Option {
	return options.NoError(func(s *Server) { s.log = l })
}

// WithReadBufferSize sets the websocket read buffer size in bytes.
func WithReadBufferSize(n int) Option {
	return options.New(func(s *Server) error {
		if n <= 0 {
			return fmt.Errorf("stream: invalid read buffer size %d", n)
		}
		s.up.ReadBufferSize = n
		return nil
	})
}

// NewServer returns a server feeding sink, which drives a strip of the given
// number of pixels.
func NewServer(sink Sink, pixels int, opts ...Option) (*Server, error) {
	if pixels <= 0 {
		return nil, fmt.Errorf("stream: invalid LED count: %d", pixels)
	}
	s := &Server{
		sink:   sink,
		pixels: pixels,
		log:    log.Logger,
		up:     websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		start:  time.Now(),
	}
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler serves /frames and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/frames", s.HandleFramesWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return mux
}

// ListenAndServe serves Handler on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("stream: listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) Health() Health {
	return Health{
		Frames:  s.frames.Load(),
		Errors:  s.rejected.Load(),
		UptimeS: time.Since(s.start).Seconds(),
		Pixels:  s.pixels,
	}
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Health())
}

func (s *Server) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	client := uuid.New().String()
	lg := s.log.With().Str("client", client).Str("remote", r.RemoteAddr).Logger()
	lg.Info().Msg("stream: client connected")
	defer func() { lg.Info().Msg("stream: client disconnected") }()

	for {
		mt, b, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				lg.Debug().Err(err).Msg("stream: read")
			}
			return
		}
		ack := Ack{Client: client}
		if err := s.handle(mt, b, &ack); err != nil {
			s.rejected.Add(1)
			ack.Error = err.Error()
			lg.Warn().Err(err).Uint64("seq", ack.Seq).Msg("stream: frame rejected")
		} else {
			s.frames.Add(1)
		}
		out, err := ackEncMode.Marshal(ack)
		if err != nil {
			lg.Error().Err(err).Msg("stream: marshal ack")
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, out); err != nil {
			lg.Debug().Err(err).Msg("stream: write")
			return
		}
	}
}

func (s *Server) handle(mt int, b []byte, ack *Ack) error {
	if mt != websocket.BinaryMessage {
		return errors.New("stream: expected a binary message")
	}
	var msg FrameMessage
	if err := frameDecMode.Unmarshal(b, &msg); err != nil {
		return fmt.Errorf("%w: %v", encoder.ErrMalformedFrame, err)
	}
	ack.Seq = msg.Seq
	px, err := s.pixelsOf(msg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.WritePixels(px)
}

func (s *Server) pixelsOf(msg FrameMessage) ([]encoder.Pixel, error) {
	if len(msg.Pixels) > s.pixels {
		return nil, fmt.Errorf("%w: %d pixels for a strip of %d", encoder.ErrInvalidLength, len(msg.Pixels), s.pixels)
	}
	px := make([]encoder.Pixel, len(msg.Pixels))
	for i, p := range msg.Pixels {
		if len(p) != 3 && len(p) != 4 {
			return nil, fmt.Errorf("%w: pixel %d has %d channels", encoder.ErrInvalidLength, i, len(p))
		}
		copy(px[i][:], p)
	}
	return px, nil
}
