package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/roach88/downbeat/internal/engine"
	"github.com/roach88/downbeat/internal/testutil"
)

// Harness drives one metronome through a scenario on a virtual clock.
type Harness struct {
	m      *engine.Metronome
	clock  *testutil.ManualClock
	timing engine.Timing
	logger *slog.Logger

	playing   bool
	nextPoll  time.Duration
	nextFrame time.Duration
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sends the metronome's logs to l. By default they are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns its trace and assertion results.
// Every run uses a fresh metronome, clock and session id sequence.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	clock := testutil.NewManualClock()
	result := NewResult()
	rec := &recorder{clock: clock, result: result}

	h := &Harness{
		clock:  clock,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	cfg := scenario.Config
	engineOpts := append(cfg.EngineOptions(),
		engine.WithClock(clock),
		engine.WithSink(rec),
		engine.WithDisplay(rec),
		engine.WithSessionIDs(testutil.NewSequentialIDs("session")),
		engine.WithManualDrive(),
		engine.WithLogger(h.logger),
	)
	h.m = engine.New(engineOpts...)
	h.timing = h.m.Timing()

	ctx := context.Background()
	for i, step := range scenario.Steps {
		if err := h.step(ctx, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
	}

	tempo := h.m.Tempo()
	result.Final = FinalState{
		Playing:         h.m.IsPlaying(),
		BPM:             tempo.BPM,
		BeatsPerMeasure: tempo.BeatsPerMeasure,
		NextBeat:        tempo.CurrentBeat,
		Pending:         len(h.m.Pending()),
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) step(ctx context.Context, step Step) error {
	switch step.Action {
	case StepStart:
		return h.start(ctx)
	case StepStop:
		h.stop()
	case StepToggle:
		if h.playing {
			h.stop()
			return nil
		}
		return h.start(ctx)
	case StepAdvance:
		h.advance(secondsToDuration(step.Seconds))
	case StepSetTempo:
		h.m.SetTempo(step.BPM)
	case StepNudge:
		h.m.NudgeTempo(step.Delta)
	case StepMeter:
		h.m.SetMeter(step.Delta)
	case StepTap:
		h.m.Tap(h.clock.Elapsed())
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

// start begins a session. The metronome resets the clock, so the periodic
// tasks are scheduled from zero: the renderer at once, the scheduler one
// lookahead period later.
func (h *Harness) start(ctx context.Context) error {
	if h.playing {
		return h.m.Start(ctx)
	}
	if err := h.m.Start(ctx); err != nil {
		return err
	}
	h.playing = true
	now := h.clock.Elapsed()
	h.nextFrame = now
	h.nextPoll = now + h.timing.Lookahead
	return nil
}

func (h *Harness) stop() {
	h.m.Stop()
	h.playing = false
}

// advance moves the clock forward by d, running every poll and frame that
// falls inside the interval. A poll runs before a frame due at the same time.
func (h *Harness) advance(d time.Duration) {
	target := h.clock.Elapsed() + d

	for h.playing {
		next := min(h.nextPoll, h.nextFrame)
		if next > target {
			break
		}
		h.clock.Set(next)
		if h.nextPoll <= h.nextFrame {
			h.m.Poll()
			h.nextPoll += h.timing.Lookahead
		} else {
			h.m.Frame()
			h.nextFrame += h.timing.FrameInterval
		}
	}
	h.clock.Set(target)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// recorder is the scenario's audio sink and display. Every call becomes a
// trace event stamped with the session clock.
type recorder struct {
	mu     sync.Mutex
	clock  engine.Clock
	result *Result
}

func (r *recorder) add(e TraceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Seq = len(r.result.Trace) + 1
	e.At = r.clock.Now()
	r.result.Trace = append(r.result.Trace, e)
}

func (r *recorder) PlayTone(t engine.Tone) error {
	r.add(TraceEvent{
		Kind:      KindTone,
		Frequency: t.Frequency,
		Start:     t.Start,
		Duration:  t.Duration,
		Accent:    t.Accent,
	})
	return nil
}

func (r *recorder) BeatFired(ev engine.Event, _ engine.TempoState) {
	r.add(TraceEvent{Kind: KindFire, Beat: ev.Beat, Time: ev.Time})
}

func (r *recorder) TempoChanged(tempo engine.TempoState) {
	r.add(TraceEvent{Kind: KindTempo, BPM: tempo.BPM, BeatsPerMeasure: tempo.BeatsPerMeasure})
}

func (r *recorder) PlaybackChanged(playing bool) {
	r.add(TraceEvent{Kind: KindState, Playing: playing})
}
