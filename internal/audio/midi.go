package audio

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/roach88/downbeat/internal/engine"
)

// MIDIOptions choose the notes the MIDI sink plays.
type MIDIOptions struct {
	// Port is a substring of the output port name. Empty picks the first port.
	Port string

	// Channel is zero based; 9 is the General MIDI percussion channel.
	Channel uint8

	DownbeatKey uint8
	BeatKey     uint8
	Velocity    uint8
}

// DefaultMIDIOptions plays the General MIDI high and low wood blocks.
func DefaultMIDIOptions() MIDIOptions {
	return MIDIOptions{Channel: 9, DownbeatKey: 76, BeatKey: 77, Velocity: 110}
}

// sendFunc delivers one message to the output port.
type sendFunc func(msg midi.Message) error

// MIDISink sends a note-on at each tone's start time and a note-off after
// its duration. MIDI carries no timestamps, so notes are released by timers.
//
// Thread-safety: MIDISink is safe for concurrent use.
type MIDISink struct {
	clock  engine.Clock
	opts   MIDIOptions
	send   sendFunc
	close  func() error
	after  func(d time.Duration, f func())
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

func newMIDISink(clock engine.Clock, opts MIDIOptions, send sendFunc, closeFn func() error, logger *slog.Logger) *MIDISink {
	if logger == nil {
		logger = slog.Default()
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return &MIDISink{
		clock:  clock,
		opts:   opts,
		send:   send,
		close:  closeFn,
		after:  func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		logger: logger,
	}
}

func (s *MIDISink) key(t engine.Tone) uint8 {
	if t.Accent {
		return s.opts.DownbeatKey
	}
	return s.opts.BeatKey
}

// PlayTone schedules the note for t. It returns immediately.
func (s *MIDISink) PlayTone(t engine.Tone) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	key := s.key(t)
	lead := secondsToDuration(t.Start - s.clock.Now())
	hold := secondsToDuration(t.Duration)

	s.pending.Add(1)
	s.after(lead, func() {
		if err := s.send(midi.NoteOn(s.opts.Channel, key, s.opts.Velocity)); err != nil {
			s.logger.Warn("midi note on", "key", key, "error", err)
			s.pending.Done()
			return
		}
		s.after(hold, func() {
			defer s.pending.Done()
			if err := s.send(midi.NoteOff(s.opts.Channel, key)); err != nil {
				s.logger.Warn("midi note off", "key", key, "error", err)
			}
		})
	})
	return nil
}

// Close waits for scheduled notes to be released and closes the port.
func (s *MIDISink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.pending.Wait()
	if err := s.close(); err != nil {
		return fmt.Errorf("close midi port: %w", err)
	}
	return nil
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(math.Round(s * float64(time.Second)))
}
