package engine

// Tone is one request to the audio sink: sound Frequency from clock time
// Start for Duration seconds, fading to near silence by the end.
type Tone struct {
	Frequency float64 `json:"frequency"`
	Start     float64 `json:"start"`
	Duration  float64 `json:"duration"`
	Accent    bool    `json:"accent"`
}

// AudioSink receives one tone per scheduled beat. PlayTone is called with
// the Metronome lock held and must not block; Start is usually in the near
// future and the sink is expected to honour it.
type AudioSink interface {
	PlayTone(Tone) error
}

// SinkOpener creates the audio sink on the first Start.
type SinkOpener func() (AudioSink, error)

// Voice decides how beats sound.
type Voice struct {
	// Duration of every tone, in seconds.
	Duration float64

	// DownbeatHz is used for beat 0, BeatHz for every other beat.
	DownbeatHz float64
	BeatHz     float64
}

// DefaultVoice is a 30 ms click at 880 Hz on the downbeat and 440 Hz elsewhere.
func DefaultVoice() Voice {
	return Voice{Duration: 0.03, DownbeatHz: 880, BeatHz: 440}
}

// ToneFor returns the tone that sounds ev.
func (v Voice) ToneFor(ev Event) Tone {
	t := Tone{
		Frequency: v.BeatHz,
		Start:     ev.Time,
		Duration:  v.Duration,
		Accent:    ev.Downbeat(),
	}
	if t.Accent {
		t.Frequency = v.DownbeatHz
	}
	return t
}
