package testutil

import (
	"errors"
	"sync"

	"github.com/roach88/downbeat/internal/engine"
)

// ErrSinkClosed is returned by RecordingSink.PlayTone after Close.
var ErrSinkClosed = errors.New("recording sink closed")

// PlayedTone is a tone together with the clock reading when it was requested.
type PlayedTone struct {
	engine.Tone
	At float64
}

// RecordingSink is an engine.AudioSink that remembers every tone.
//
// Thread-safety: RecordingSink is safe for concurrent use.
type RecordingSink struct {
	mu     sync.Mutex
	clock  engine.Clock
	tones  []PlayedTone
	fail   error
	closed bool
}

// NewRecordingSink creates a sink. clock may be nil, in which case At is 0.
func NewRecordingSink(clock engine.Clock) *RecordingSink {
	return &RecordingSink{clock: clock}
}

// PlayTone records t.
func (s *RecordingSink) PlayTone(t engine.Tone) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	var at float64
	if s.clock != nil {
		at = s.clock.Now()
	}
	s.tones = append(s.tones, PlayedTone{Tone: t, At: at})
	return s.fail
}

// FailWith makes later PlayTone calls record the tone and return err.
func (s *RecordingSink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Tones returns a copy of the recorded tones.
func (s *RecordingSink) Tones() []PlayedTone {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PlayedTone, len(s.tones))
	copy(out, s.tones)
	return out
}

// Len returns the number of recorded tones.
func (s *RecordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tones)
}

// Close implements io.Closer.
func (s *RecordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *RecordingSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Opener returns an engine.SinkOpener that yields s, counting its calls.
func (s *RecordingSink) Opener(calls *int) engine.SinkOpener {
	return func() (engine.AudioSink, error) {
		if calls != nil {
			*calls++
		}
		return s, nil
	}
}

// FailingOpener returns an engine.SinkOpener that always fails with err.
func FailingOpener(err error) engine.SinkOpener {
	return func() (engine.AudioSink, error) {
		return nil, err
	}
}
