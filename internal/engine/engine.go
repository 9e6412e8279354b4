package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Timing holds the lookahead parameters.
//
// ScheduleAhead must exceed the worst expected delay between two scheduler
// wake-ups; otherwise a late wake-up lets a beat pass before it is queued.
type Timing struct {
	// Lookahead is the scheduler wake-up period.
	Lookahead time.Duration

	// ScheduleAhead is the horizon, in seconds, the scheduler fills.
	ScheduleAhead float64

	// StartOffset delays the first beat of a session, in seconds.
	StartOffset float64

	// FrameInterval is the renderer wake-up period.
	FrameInterval time.Duration
}

// DefaultTiming wakes the scheduler every 25 ms with a 100 ms horizon, starts
// 50 ms after Start, and renders at roughly 60 frames per second.
func DefaultTiming() Timing {
	return Timing{
		Lookahead:     25 * time.Millisecond,
		ScheduleAhead: 0.1,
		StartOffset:   0.05,
		FrameInterval: 16 * time.Millisecond,
	}
}

// Metronome is the lookahead beat scheduler.
//
// Thread-safety model:
//   - Every exported method is safe from any goroutine.
//   - Display and AudioSink callbacks run with the lock held and must not
//     call back into the Metronome.
//
// INVARIANTS:
//   - session is nil exactly when playback is stopped
//   - the queue is empty whenever session is nil
type Metronome struct {
	mu sync.Mutex

	tempo   TempoState
	taps    TapTempo
	queue   *eventQueue
	session *Session

	clock    Clock
	sink     AudioSink
	openSink SinkOpener
	display  Display
	timing   Timing
	voice    Voice
	ids      SessionIDGenerator
	manual   bool
	closed   bool
	logger   *slog.Logger
}

// Option configures a Metronome.
type Option func(*Metronome)

// WithClock replaces the default MonotonicClock.
func WithClock(c Clock) Option {
	return func(m *Metronome) {
		m.clock = c
	}
}

// WithSink installs an already opened audio sink.
func WithSink(s AudioSink) Option {
	return func(m *Metronome) {
		m.sink = s
	}
}

// WithSinkOpener defers opening the audio sink until the first Start.
// An opener error makes that Start fail with an EnvironmentError.
func WithSinkOpener(open SinkOpener) Option {
	return func(m *Metronome) {
		m.openSink = open
	}
}

// WithDisplay installs the visual consumer of fired beats.
func WithDisplay(d Display) Option {
	return func(m *Metronome) {
		m.display = d
	}
}

// WithTiming overrides the lookahead parameters. Non-positive fields keep
// their defaults.
func WithTiming(t Timing) Option {
	return func(m *Metronome) {
		def := DefaultTiming()
		if t.Lookahead <= 0 {
			t.Lookahead = def.Lookahead
		}
		if t.ScheduleAhead <= 0 {
			t.ScheduleAhead = def.ScheduleAhead
		}
		if t.StartOffset < 0 {
			t.StartOffset = def.StartOffset
		}
		if t.FrameInterval <= 0 {
			t.FrameInterval = def.FrameInterval
		}
		m.timing = t
	}
}

// WithVoice overrides the tone policy.
func WithVoice(v Voice) Option {
	return func(m *Metronome) {
		m.voice = v
	}
}

// WithTempo sets the initial tempo and meter (clamped).
func WithTempo(bpm, beatsPerMeasure int) Option {
	return func(m *Metronome) {
		m.tempo = TempoState{BPM: ClampBPM(bpm), BeatsPerMeasure: ClampMeter(beatsPerMeasure)}
	}
}

// WithSessionIDs replaces the UUIDv7 session id generator.
func WithSessionIDs(g SessionIDGenerator) Option {
	return func(m *Metronome) {
		m.ids = g
	}
}

// WithManualDrive disables the scheduler and renderer goroutines. The caller
// drives the metronome by calling Poll and Frame itself.
func WithManualDrive() Option {
	return func(m *Metronome) {
		m.manual = true
	}
}

// WithLogger replaces slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Metronome) {
		m.logger = l
	}
}

// New creates a stopped Metronome at 120 bpm in 4/4 unless options say
// otherwise.
func New(opts ...Option) *Metronome {
	m := &Metronome{
		tempo:   DefaultTempo(),
		queue:   newEventQueue(),
		clock:   NewMonotonicClock(),
		display: NopDisplay{},
		timing:  DefaultTiming(),
		voice:   DefaultVoice(),
		ids:     UUIDv7Generator{},
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start moves the metronome from Stopped to Playing. It is a no-op when
// already playing.
//
// The first Start opens the audio sink; failure returns an EnvironmentError
// and leaves the metronome stopped. Every Start resets the clock (when it
// implements Resetter), rewinds to the downbeat and schedules the first beat
// StartOffset seconds ahead. ctx bounds the lifetime of the scheduler and
// renderer goroutines; its cancellation stops playback.
func (m *Metronome) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(ctx)
}

// startLocked is Start with m.mu held.
func (m *Metronome) startLocked(ctx context.Context) error {
	if m.closed {
		return ErrClosed
	}
	if m.session != nil {
		return nil
	}

	if m.sink == nil {
		if m.openSink == nil {
			return &EnvironmentError{Code: ErrCodeNoSink, Message: "no audio sink configured"}
		}
		sink, err := m.openSink()
		if err != nil {
			m.logger.Error("cannot open audio sink", "error", err)
			return newSinkError(err)
		}
		m.sink = sink
	}

	if r, ok := m.clock.(Resetter); ok {
		r.Reset()
	}
	now := m.clock.Now()

	m.tempo.CurrentBeat = 0
	m.taps.Reset()
	s := &Session{
		ID:           m.ids.Generate(),
		NextNoteTime: now + m.timing.StartOffset,
		StartedAt:    now,
	}
	m.session = s
	m.display.PlaybackChanged(true)

	m.logger.Info("playback started",
		"session", s.ID,
		"bpm", m.tempo.BPM,
		"beats_per_measure", m.tempo.BeatsPerMeasure,
		"lookahead", m.timing.Lookahead,
		"schedule_ahead", m.timing.ScheduleAhead,
	)

	if m.manual {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(2)
	go m.schedulerLoop(runCtx, s)
	go m.renderLoop(runCtx, s)

	return nil
}

// Stop moves the metronome from Playing to Stopped: both periodic tasks are
// halted before Stop returns, the queue is cleared and the display is reset.
// It is a no-op when already stopped.
func (m *Metronome) Stop() {
	m.mu.Lock()
	s := m.session
	if s == nil {
		m.mu.Unlock()
		return
	}
	m.endSession(s, "stop")
	m.mu.Unlock()

	s.wg.Wait()
}

// Toggle starts a stopped metronome or stops a playing one. The transition
// is decided under the lock, so concurrent toggles alternate.
func (m *Metronome) Toggle(ctx context.Context) error {
	m.mu.Lock()
	s := m.session
	if s == nil {
		defer m.mu.Unlock()
		return m.startLocked(ctx)
	}
	m.endSession(s, "toggle")
	m.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Close stops playback and closes the audio sink if it is an io.Closer.
// A closed Metronome refuses to start again; Close is idempotent.
func (m *Metronome) Close() error {
	m.mu.Lock()
	s := m.session
	if s != nil {
		m.endSession(s, "close")
	}
	m.closed = true
	sink := m.sink
	m.sink = nil
	m.mu.Unlock()

	if s != nil {
		s.wg.Wait()
	}
	if c, ok := sink.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close audio sink: %w", err)
		}
	}
	return nil
}

// endSession tears s down. Caller holds m.mu and has checked s is current.
func (m *Metronome) endSession(s *Session, reason string) {
	m.session = nil
	if s.cancel != nil {
		s.cancel()
	}
	m.queue.Clear()
	m.display.PlaybackChanged(false)

	m.logger.Info("playback stopped",
		"session", s.ID,
		"reason", reason,
		"scheduled", s.Stats.Scheduled,
		"fired", s.Stats.Fired,
		"late", s.Stats.Late,
	)
}

// SetTempo clamps bpm to [MinBPM, MaxBPM] and applies it. The new tempo
// takes effect from the next beat the scheduler generates.
func (m *Metronome) SetTempo(bpm int) TempoState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setTempo(bpm)
}

// NudgeTempo moves the tempo by delta bpm (keyboard up/down).
func (m *Metronome) NudgeTempo(delta int) TempoState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setTempo(m.tempo.BPM + delta)
}

func (m *Metronome) setTempo(bpm int) TempoState {
	m.tempo = m.tempo.WithTempo(bpm)
	m.display.TempoChanged(m.tempo)
	m.logger.Debug("tempo changed", "requested", bpm, "bpm", m.tempo.BPM)
	return m.tempo
}

// SetMeter moves the beats per measure by delta, clamped to
// [MinBeatsPerMeasure, MaxBeatsPerMeasure].
//
// The pending beat index is not clamped here. If it now lies beyond the
// measure, the scheduler wraps it to the downbeat when it emits the next beat.
func (m *Metronome) SetMeter(delta int) TempoState {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tempo = m.tempo.WithMeterDelta(delta)
	m.display.TempoChanged(m.tempo)
	m.logger.Debug("meter changed", "delta", delta, "beats_per_measure", m.tempo.BeatsPerMeasure)
	return m.tempo
}

// Tap feeds one tap-tempo sample taken at the given offset from any fixed
// epoch. Once two or more taps are in the window the derived tempo is
// applied through SetTempo; applied reports whether that happened.
func (m *Metronome) Tap(at time.Duration) (tempo TempoState, applied bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bpm, ok := m.taps.Tap(at)
	if !ok {
		return m.tempo, false
	}
	return m.setTempo(bpm), true
}

// Tempo returns the current tempo state.
func (m *Metronome) Tempo() TempoState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tempo
}

// IsPlaying reports whether a session is active.
func (m *Metronome) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// Session returns a copy of the active session, if any.
func (m *Metronome) Session() (SessionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return SessionInfo{}, false
	}
	return m.session.info(), true
}

// Pending returns the queued, not yet fired events, front first.
func (m *Metronome) Pending() []Event {
	return m.queue.Snapshot()
}

// Timing returns the lookahead parameters in use.
func (m *Metronome) Timing() Timing {
	return m.timing
}

// Clock returns the clock the metronome schedules against.
func (m *Metronome) Clock() Clock {
	return m.clock
}
