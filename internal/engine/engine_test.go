package engine_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/downbeat/internal/engine"
	"github.com/roach88/downbeat/internal/testutil"
)

type fixture struct {
	clock   *testutil.ManualClock
	sink    *testutil.RecordingSink
	display *testutil.RecordingDisplay
	m       *engine.Metronome
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, opts ...engine.Option) *fixture {
	t.Helper()
	clock := testutil.NewManualClock()
	sink := testutil.NewRecordingSink(clock)
	display := testutil.NewRecordingDisplay(clock)

	base := []engine.Option{
		engine.WithClock(clock),
		engine.WithSink(sink),
		engine.WithDisplay(display),
		engine.WithSessionIDs(testutil.NewSequentialIDs("s")),
		engine.WithManualDrive(),
		engine.WithLogger(quietLogger()),
	}
	m := engine.New(append(base, opts...)...)
	return &fixture{clock: clock, sink: sink, display: display, m: m}
}

// run advances the clock to end in lookahead steps, polling and rendering at
// every step like the two periodic tasks would.
func (f *fixture) run(end time.Duration) {
	step := f.m.Timing().Lookahead
	for f.clock.Elapsed()+step <= end {
		f.clock.Advance(step)
		f.m.Poll()
		f.m.Frame()
	}
}

func TestMetronome_New_Defaults(t *testing.T) {
	m := engine.New()
	assert.Equal(t, engine.DefaultTempo(), m.Tempo())
	assert.False(t, m.IsPlaying())
	assert.Equal(t, engine.DefaultTiming(), m.Timing())
	assert.Empty(t, m.Pending())
}

func TestMetronome_WithTempo_Clamps(t *testing.T) {
	m := engine.New(engine.WithTempo(1000, 0))
	assert.Equal(t, engine.MaxBPM, m.Tempo().BPM)
	assert.Equal(t, engine.MinBeatsPerMeasure, m.Tempo().BeatsPerMeasure)
}

func TestMetronome_WithTiming_FillsDefaults(t *testing.T) {
	m := engine.New(engine.WithTiming(engine.Timing{ScheduleAhead: 0.2}))
	got := m.Timing()
	assert.Equal(t, 0.2, got.ScheduleAhead)
	assert.Equal(t, 25*time.Millisecond, got.Lookahead)
	assert.Equal(t, 16*time.Millisecond, got.FrameInterval)
	assert.Equal(t, 0.0, got.StartOffset, "zero start offset is valid")
}

func TestMetronome_EndToEnd_120BPM(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Start(context.Background()))

	f.run(500 * time.Millisecond)

	tones := f.sink.Tones()
	require.Len(t, tones, 2)
	assert.InDelta(t, 0.05, tones[0].Start, 1e-9)
	assert.InDelta(t, 0.55, tones[1].Start, 1e-9)

	// Beat 0 fired once its time passed; beat 1 is still queued.
	fired := f.display.Fired()
	require.Len(t, fired, 1)
	assert.Equal(t, 0, fired[0].Beat)

	pending := f.m.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Beat)
	assert.InDelta(t, 0.55, pending[0].Time, 1e-9)

	// Scheduled beats match the pure generator output.
	tempo := engine.TempoState{BPM: 120, BeatsPerMeasure: 4}
	want := engine.Event{Beat: 0, Time: 0.05}
	for i, tone := range tones {
		assert.InDelta(t, want.Time, tone.Start, 1e-9, "tone %d", i)
		assert.Equal(t, want.Downbeat(), tone.Accent, "tone %d", i)
		want = tempo.Next(want)
	}
}

func TestMetronome_AccentPolicy(t *testing.T) {
	f := newFixture(t, engine.WithTempo(240, 3))
	require.NoError(t, f.m.Start(context.Background()))

	f.run(2 * time.Second)

	tones := f.sink.Tones()
	require.NotEmpty(t, tones)
	for i, tone := range tones {
		if i%3 == 0 {
			assert.True(t, tone.Accent, "tone %d", i)
			assert.Equal(t, 880.0, tone.Frequency, "tone %d", i)
		} else {
			assert.False(t, tone.Accent, "tone %d", i)
			assert.Equal(t, 440.0, tone.Frequency, "tone %d", i)
		}
		assert.Equal(t, 0.03, tone.Duration)
	}
}

func TestMetronome_ExactlyOnceWithinHorizon(t *testing.T) {
	f := newFixture(t, engine.WithTempo(200, 5))
	require.NoError(t, f.m.Start(context.Background()))

	// An erratic wake-up pattern: bursts, long stalls, repeated polls.
	polls := []time.Duration{
		3 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond,
		90 * time.Millisecond, 400 * time.Millisecond, 401 * time.Millisecond,
		1200 * time.Millisecond, 1210 * time.Millisecond, 3000 * time.Millisecond,
	}
	for _, at := range polls {
		f.clock.Set(at)
		f.m.Poll()
	}

	last := f.clock.Now()
	horizon := last + f.m.Timing().ScheduleAhead
	spb := 60.0 / 200

	tones := f.sink.Tones()
	require.NotEmpty(t, tones)
	for k, tone := range tones {
		assert.InDelta(t, 0.05+float64(k)*spb, tone.Start, 1e-9, "beat %d time", k)
		assert.Less(t, tone.Start, horizon)
	}

	// The next beat the generator would produce lies beyond the horizon.
	info, ok := f.m.Session()
	require.True(t, ok)
	assert.GreaterOrEqual(t, info.NextNoteTime, horizon)
	assert.InDelta(t, 0.05+float64(len(tones))*spb, info.NextNoteTime, 1e-9)

	// Queue holds each beat once, in time order.
	pending := f.m.Pending()
	require.Len(t, pending, len(tones))
	for k, ev := range pending {
		assert.Equal(t, k%5, ev.Beat)
		if k > 0 {
			assert.Greater(t, ev.Time, pending[k-1].Time)
		}
	}
}

func TestMetronome_StalledTimerCountsLateBeats(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Start(context.Background()))

	f.clock.Set(2 * time.Second)
	n := f.m.Poll()
	assert.Equal(t, 5, n, "0.05 0.55 1.05 1.55 2.05 fall before 2.1")

	info, _ := f.m.Session()
	assert.Equal(t, 4, info.Stats.Late)
	assert.Equal(t, 5, info.Stats.Scheduled)
}

func TestMetronome_StartIsIdempotent(t *testing.T) {
	clock := testutil.NewManualClock()
	sink := testutil.NewRecordingSink(clock)
	opens := 0
	m := engine.New(
		engine.WithClock(clock),
		engine.WithSinkOpener(sink.Opener(&opens)),
		engine.WithSessionIDs(testutil.NewSequentialIDs("s")),
		engine.WithManualDrive(),
		engine.WithLogger(quietLogger()),
	)

	require.NoError(t, m.Start(context.Background()))
	first, ok := m.Session()
	require.True(t, ok)

	clock.Advance(10 * time.Millisecond)
	require.NoError(t, m.Start(context.Background()))
	second, ok := m.Session()
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, opens)
	assert.Equal(t, "s-1", second.ID)
	assert.InDelta(t, 0.05, second.NextNoteTime, 1e-12)
}

func TestMetronome_StopIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.m.Stop()
	assert.False(t, f.m.IsPlaying())

	require.NoError(t, f.m.Start(context.Background()))
	f.m.Stop()
	f.m.Stop()
	assert.False(t, f.m.IsPlaying())

	var transitions []bool
	for _, e := range f.display.Events() {
		if e.Kind == testutil.DisplayPlayback {
			transitions = append(transitions, e.Playing)
		}
	}
	assert.Equal(t, []bool{true, false}, transitions)
}

func TestMetronome_StopClearsQueueAndSilencesSink(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Start(context.Background()))
	f.run(500 * time.Millisecond)
	require.NotEmpty(t, f.m.Pending())

	f.m.Stop()
	assert.Empty(t, f.m.Pending())
	toneCount := f.sink.Len()
	firedCount := len(f.display.Fired())

	f.clock.Advance(5 * time.Second)
	assert.Equal(t, 0, f.m.Poll())
	assert.Equal(t, 0, f.m.Frame())
	assert.Equal(t, toneCount, f.sink.Len())
	assert.Equal(t, firedCount, len(f.display.Fired()))

	_, ok := f.m.Session()
	assert.False(t, ok)
}

func TestMetronome_RestartResetsSession(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Start(context.Background()))
	f.run(1200 * time.Millisecond)
	assert.NotEqual(t, 0, f.m.Tempo().CurrentBeat)

	f.m.Stop()
	require.NoError(t, f.m.Start(context.Background()))

	info, ok := f.m.Session()
	require.True(t, ok)
	assert.Equal(t, "s-2", info.ID)
	assert.Equal(t, 0.0, info.StartedAt, "the clock is reset on start")
	assert.InDelta(t, 0.05, info.NextNoteTime, 1e-12)
	assert.Equal(t, 0, f.m.Tempo().CurrentBeat)
	assert.Equal(t, engine.SessionStats{}, info.Stats)
}

func TestMetronome_TempoSurvivesStop(t *testing.T) {
	f := newFixture(t)
	f.m.SetTempo(90)
	f.m.SetMeter(-1)

	require.NoError(t, f.m.Start(context.Background()))
	f.m.Stop()

	assert.Equal(t, 90, f.m.Tempo().BPM)
	assert.Equal(t, 3, f.m.Tempo().BeatsPerMeasure)
}

func TestMetronome_Toggle(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.m.Toggle(context.Background()))
	assert.True(t, f.m.IsPlaying())

	require.NoError(t, f.m.Toggle(context.Background()))
	assert.False(t, f.m.IsPlaying())
}

func TestMetronome_SinkUnavailable(t *testing.T) {
	cause := errors.New("no output device")
	m := engine.New(
		engine.WithClock(testutil.NewManualClock()),
		engine.WithSinkOpener(testutil.FailingOpener(cause)),
		engine.WithManualDrive(),
		engine.WithLogger(quietLogger()),
	)

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrSinkUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.True(t, engine.IsEnvironmentError(err))
	assert.False(t, m.IsPlaying())
	assert.Equal(t, 0, m.Poll())
}

func TestMetronome_NoSinkConfigured(t *testing.T) {
	m := engine.New(engine.WithManualDrive(), engine.WithLogger(quietLogger()))

	err := m.Start(context.Background())
	var envErr *engine.EnvironmentError
	require.ErrorAs(t, err, &envErr)
	assert.Equal(t, engine.ErrCodeNoSink, envErr.Code)
}

func TestMetronome_SinkErrorsDoNotStopScheduling(t *testing.T) {
	f := newFixture(t)
	f.sink.FailWith(errors.New("buffer full"))
	require.NoError(t, f.m.Start(context.Background()))

	f.run(1100 * time.Millisecond)

	info, _ := f.m.Session()
	assert.Equal(t, 3, info.Stats.Scheduled)
	assert.Equal(t, 3, info.Stats.SinkErrors)
	assert.Len(t, f.display.Fired(), 3, "beats still reach the display")
}

func TestMetronome_SetTempo(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, 40, f.m.SetTempo(10).BPM)
	assert.Equal(t, 240, f.m.SetTempo(999).BPM)
	assert.Equal(t, 133, f.m.SetTempo(133).BPM)

	assert.Equal(t, 134, f.m.NudgeTempo(1).BPM)
	assert.Equal(t, 132, f.m.NudgeTempo(-2).BPM)

	var seen []int
	for _, e := range f.display.Events() {
		if e.Kind == testutil.DisplayTempo {
			seen = append(seen, e.Tempo.BPM)
		}
	}
	assert.Equal(t, []int{40, 240, 133, 134, 132}, seen)
}

func TestMetronome_TempoChangeAppliesToNextBeat(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Start(context.Background()))

	f.clock.Set(500 * time.Millisecond)
	f.m.Poll() // 0.05 and 0.55 queued; next computed at 120 bpm is 1.05
	f.m.SetTempo(60)

	f.clock.Set(1500 * time.Millisecond)
	f.m.Poll()

	tones := f.sink.Tones()
	require.Len(t, tones, 3)
	assert.InDelta(t, 1.05, tones[2].Start, 1e-9)

	info, _ := f.m.Session()
	assert.InDelta(t, 2.05, info.NextNoteTime, 1e-9, "beats after the change use 60 bpm")
}

func TestMetronome_SetMeter_LazyWrap(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Start(context.Background()))

	f.clock.Set(time.Second)
	require.Equal(t, 3, f.m.Poll(), "beats 0, 1, 2 at 0.05, 0.55, 1.05")
	require.Equal(t, 3, f.m.Tempo().CurrentBeat)

	ts := f.m.SetMeter(-2)
	assert.Equal(t, 2, ts.BeatsPerMeasure)
	assert.Equal(t, 3, ts.CurrentBeat, "no immediate clamp")

	f.clock.Set(2500 * time.Millisecond)
	f.m.Poll()

	var beats []int
	for _, ev := range f.m.Pending() {
		beats = append(beats, ev.Beat)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 0}, beats)
	assert.Less(t, f.m.Tempo().CurrentBeat, f.m.Tempo().BeatsPerMeasure)
}

func TestMetronome_SetMeter_Clamps(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 12, f.m.SetMeter(100).BeatsPerMeasure)
	assert.Equal(t, 1, f.m.SetMeter(-100).BeatsPerMeasure)
}

func TestMetronome_Tap(t *testing.T) {
	f := newFixture(t, engine.WithTempo(60, 4))

	_, applied := f.m.Tap(0)
	assert.False(t, applied)
	assert.Equal(t, 60, f.m.Tempo().BPM)

	var ts engine.TempoState
	for _, at := range []time.Duration{500, 1000, 1500} {
		ts, applied = f.m.Tap(at * time.Millisecond)
	}
	assert.True(t, applied)
	assert.Equal(t, 120, ts.BPM)
	assert.Equal(t, 120, f.m.Tempo().BPM)
}

func TestMetronome_Tap_ClampsDerivedTempo(t *testing.T) {
	f := newFixture(t)
	f.m.Tap(0)
	ts, applied := f.m.Tap(100 * time.Millisecond) // 600 bpm
	assert.True(t, applied)
	assert.Equal(t, engine.MaxBPM, ts.BPM)
}

func TestMetronome_FrameOnEmptyQueue(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 0, f.m.Frame(), "stopped")

	require.NoError(t, f.m.Start(context.Background()))
	assert.Equal(t, 0, f.m.Frame(), "playing with an empty queue")
}

func TestMetronome_Close(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Start(context.Background()))

	require.NoError(t, f.m.Close())
	assert.False(t, f.m.IsPlaying())
	assert.True(t, f.sink.Closed())
}

func TestMetronome_StartAfterClose(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Close())

	assert.ErrorIs(t, f.m.Start(context.Background()), engine.ErrClosed)
	assert.ErrorIs(t, f.m.Toggle(context.Background()), engine.ErrClosed)
	assert.False(t, f.m.IsPlaying())
	assert.NotPanics(t, func() { f.m.Poll() })

	require.NoError(t, f.m.Close(), "second close is a no-op")
}

func TestMetronome_CloseRacesStart(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newFixture(t)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = f.m.Start(context.Background())
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, f.m.Close())
		}()
		wg.Wait()

		assert.False(t, f.m.IsPlaying(), "iteration %d", i)
		f.clock.Advance(100 * time.Millisecond)
		assert.NotPanics(t, func() { f.m.Poll() })
	}
}

func TestMetronome_ToggleConcurrent(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 50; i++ {
		var wg sync.WaitGroup
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, f.m.Toggle(context.Background()))
			}()
		}
		wg.Wait()
		require.False(t, f.m.IsPlaying(), "two toggles from stopped end stopped (iteration %d)", i)
	}
}

func TestMetronome_StartForgetsTaps(t *testing.T) {
	f := newFixture(t, engine.WithTempo(60, 4))
	f.clock.Set(2 * time.Second)
	f.m.Tap(f.clock.Elapsed())

	// Start resets the clock, so a tap taken before it would look like it
	// came after.
	require.NoError(t, f.m.Start(context.Background()))
	f.clock.Advance(300 * time.Millisecond)

	ts, applied := f.m.Tap(f.clock.Elapsed())
	assert.False(t, applied, "first tap of a session has no interval")
	assert.Equal(t, 60, ts.BPM)

	f.clock.Advance(500 * time.Millisecond)
	ts, applied = f.m.Tap(f.clock.Elapsed())
	assert.True(t, applied)
	assert.Equal(t, 120, ts.BPM)
}

func TestMetronome_Goroutines(t *testing.T) {
	sink := testutil.NewRecordingSink(nil)
	display := testutil.NewRecordingDisplay(nil)
	m := engine.New(
		engine.WithSink(sink),
		engine.WithDisplay(display),
		engine.WithTempo(240, 4),
		engine.WithTiming(engine.Timing{
			Lookahead:     5 * time.Millisecond,
			ScheduleAhead: 0.1,
			StartOffset:   0,
			FrameInterval: 2 * time.Millisecond,
		}),
		engine.WithLogger(quietLogger()),
	)

	require.NoError(t, m.Start(context.Background()))
	require.Eventually(t, func() bool {
		return len(display.Fired()) >= 1
	}, 2*time.Second, 5*time.Millisecond, "the first beat should fire")

	m.Stop()
	assert.Empty(t, m.Pending())
	tones := sink.Len()
	fired := len(display.Fired())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, tones, sink.Len(), "no tones after stop")
	assert.Equal(t, fired, len(display.Fired()), "no beats after stop")
}

func TestMetronome_ContextCancelStops(t *testing.T) {
	m := engine.New(
		engine.WithSink(testutil.NewRecordingSink(nil)),
		engine.WithTiming(engine.Timing{Lookahead: 2 * time.Millisecond, FrameInterval: 2 * time.Millisecond}),
		engine.WithLogger(quietLogger()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx))
	cancel()

	require.Eventually(t, func() bool {
		return !m.IsPlaying()
	}, time.Second, 2*time.Millisecond)
	assert.Empty(t, m.Pending())
}
