package audio

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/roach88/downbeat/internal/engine"
)

// ErrSinkClosed is returned by PlayTone after Close.
var ErrSinkClosed = errors.New("audio sink closed")

// OtoOptions tune the oto output.
type OtoOptions struct {
	// Volume scales every tone, in [0, 1].
	Volume float64

	// BufferSize is the device buffer length. Zero lets oto choose.
	BufferSize time.Duration

	Envelope Envelope
}

// OtoSink plays tones through the system audio device.
//
// Each tone gets its own player whose buffer starts with silence up to the
// tone's start time, so the click lands on the clock time it was scheduled
// for, give or take the device latency.
//
// Thread-safety: OtoSink is safe for concurrent use.
type OtoSink struct {
	ctx    *oto.Context
	clock  engine.Clock
	opts   OtoOptions
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	players sync.WaitGroup
}

// OpenOto creates the oto context and waits until the device is ready.
// Only one oto context may exist per process.
func OpenOto(clock engine.Clock, opts OtoOptions, logger *slog.Logger) (*OtoSink, error) {
	if opts.Volume <= 0 || opts.Volume > 1 {
		opts.Volume = 1
	}
	if opts.Envelope == (Envelope{}) {
		opts.Envelope = DefaultEnvelope()
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatFloat32LE,
		BufferSize:   opts.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create oto context: %w", err)
	}
	<-ready

	logger.Debug("oto context ready", "sample_rate", SampleRate, "buffer", opts.BufferSize)
	return &OtoSink{ctx: ctx, clock: clock, opts: opts, logger: logger}, nil
}

// PlayTone renders t and starts a player for it. It returns immediately.
func (s *OtoSink) PlayTone(t engine.Tone) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("oto context: %w", err)
	}

	lead := framesFor(t.Start-s.clock.Now(), SampleRate)
	pcm := encodeStereo(lead, RenderTone(t, s.opts.Envelope, SampleRate), float32(s.opts.Volume))

	player := s.ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()

	s.players.Add(1)
	go func() {
		defer s.players.Done()
		for player.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}
		if err := player.Close(); err != nil {
			s.logger.Warn("close oto player", "error", err)
		}
	}()
	return nil
}

// Close waits for playing tones to finish and suspends the device.
func (s *OtoSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.players.Wait()
	if err := s.ctx.Suspend(); err != nil {
		return fmt.Errorf("suspend oto context: %w", err)
	}
	return nil
}
