package engine

// Tempo and meter bounds. Values outside are clamped, never rejected.
const (
	MinBPM = 40
	MaxBPM = 240

	MinBeatsPerMeasure = 1
	MaxBeatsPerMeasure = 12

	DefaultBPM             = 120
	DefaultBeatsPerMeasure = 4
)

// TempoState is the tempo and meter the scheduler works from.
//
// CurrentBeat is the index of the next beat to be scheduled. It is normally
// below BeatsPerMeasure; after the meter shrinks it may briefly point past the
// end of the measure until the scheduler wraps it (see Metronome.SetMeter).
type TempoState struct {
	BPM             int `json:"bpm"`
	BeatsPerMeasure int `json:"beats_per_measure"`
	CurrentBeat     int `json:"current_beat"`
}

// DefaultTempo returns 120 bpm in 4/4, positioned on the downbeat.
func DefaultTempo() TempoState {
	return TempoState{BPM: DefaultBPM, BeatsPerMeasure: DefaultBeatsPerMeasure}
}

// ClampBPM returns v limited to [MinBPM, MaxBPM].
func ClampBPM(v int) int {
	return clamp(v, MinBPM, MaxBPM)
}

// ClampMeter returns v limited to [MinBeatsPerMeasure, MaxBeatsPerMeasure].
func ClampMeter(v int) int {
	return clamp(v, MinBeatsPerMeasure, MaxBeatsPerMeasure)
}

// WithTempo returns a copy with BPM set to the clamped value.
func (t TempoState) WithTempo(bpm int) TempoState {
	t.BPM = ClampBPM(bpm)
	return t
}

// WithMeterDelta returns a copy with BeatsPerMeasure moved by delta and
// clamped. CurrentBeat is left untouched.
func (t TempoState) WithMeterDelta(delta int) TempoState {
	t.BeatsPerMeasure = ClampMeter(t.BeatsPerMeasure + delta)
	return t
}

// SecondsPerBeat is the beat period at the current tempo.
func (t TempoState) SecondsPerBeat() float64 {
	return 60.0 / float64(t.BPM)
}

// Next is the beat generator: it maps the last scheduled beat to the one that
// follows it under this tempo and meter.
func (t TempoState) Next(prev Event) Event {
	return Event{
		Beat: (prev.Beat + 1) % t.BeatsPerMeasure,
		Time: prev.Time + t.SecondsPerBeat(),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
