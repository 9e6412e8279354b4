package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampBPM(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-1000, MinBPM},
		{0, MinBPM},
		{39, MinBPM},
		{40, 40},
		{120, 120},
		{240, 240},
		{241, MaxBPM},
		{1 << 30, MaxBPM},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampBPM(tt.in), "ClampBPM(%d)", tt.in)
	}
}

func TestClampBPM_AlwaysInRange(t *testing.T) {
	for v := -500; v <= 500; v++ {
		got := ClampBPM(v)
		assert.GreaterOrEqual(t, got, MinBPM)
		assert.LessOrEqual(t, got, MaxBPM)
		if v >= MinBPM && v <= MaxBPM {
			assert.Equal(t, v, got, "in-range values pass through")
		}
	}
}

func TestWithMeterDelta_AlwaysInRange(t *testing.T) {
	for start := MinBeatsPerMeasure; start <= MaxBeatsPerMeasure; start++ {
		for d := -20; d <= 20; d++ {
			got := TempoState{BPM: 120, BeatsPerMeasure: start}.WithMeterDelta(d)
			assert.GreaterOrEqual(t, got.BeatsPerMeasure, MinBeatsPerMeasure)
			assert.LessOrEqual(t, got.BeatsPerMeasure, MaxBeatsPerMeasure)
		}
	}
}

func TestWithMeterDelta_KeepsCurrentBeat(t *testing.T) {
	ts := TempoState{BPM: 120, BeatsPerMeasure: 6, CurrentBeat: 5}.WithMeterDelta(-3)
	assert.Equal(t, 3, ts.BeatsPerMeasure)
	assert.Equal(t, 5, ts.CurrentBeat, "the meter change does not clamp the pending beat")
}

func TestWithTempo_Idempotent(t *testing.T) {
	ts := DefaultTempo()
	once := ts.WithTempo(300)
	twice := once.WithTempo(300)
	assert.Equal(t, once, twice)
	assert.Equal(t, MaxBPM, twice.BPM)
}

func TestSecondsPerBeat(t *testing.T) {
	assert.Equal(t, 0.5, TempoState{BPM: 120}.SecondsPerBeat())
	assert.Equal(t, 1.5, TempoState{BPM: 40}.SecondsPerBeat())
	assert.Equal(t, 0.25, TempoState{BPM: 240}.SecondsPerBeat())
}

func TestNext_TimesAndCycle(t *testing.T) {
	for _, bpm := range []int{40, 97, 120, 240} {
		for _, meter := range []int{1, 3, 4, 7, 12} {
			ts := TempoState{BPM: bpm, BeatsPerMeasure: meter}
			t0 := 0.05
			ev := Event{Beat: 0, Time: t0}

			for k := 1; k <= 100; k++ {
				ev = ts.Next(ev)
				assert.InDelta(t, t0+float64(k)*(60.0/float64(bpm)), ev.Time, 1e-9,
					"bpm=%d meter=%d k=%d", bpm, meter, k)
				assert.Equal(t, k%meter, ev.Beat, "bpm=%d meter=%d k=%d", bpm, meter, k)
			}
		}
	}
}

func TestNext_WrapsOutOfRangeIndex(t *testing.T) {
	ts := TempoState{BPM: 120, BeatsPerMeasure: 3}
	next := ts.Next(Event{Beat: 5, Time: 1})
	assert.Equal(t, 0, next.Beat)
	assert.Less(t, next.Beat, ts.BeatsPerMeasure)
}

func TestDefaultTempo(t *testing.T) {
	assert.Equal(t, TempoState{BPM: 120, BeatsPerMeasure: 4, CurrentBeat: 0}, DefaultTempo())
}
