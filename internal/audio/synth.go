package audio

import (
	"math"

	"github.com/viterin/vek/vek32"

	"github.com/roach88/downbeat/internal/engine"
)

const (
	// SampleRate of every rendered buffer.
	SampleRate = 44100

	// ChannelCount of every rendered buffer. Mono tones are duplicated to
	// both channels.
	ChannelCount = 2

	bytesPerFrame = ChannelCount * 4 // float32 LE per channel
)

// Envelope shapes a click: full gain for Attack seconds, an exponential
// ramp down to Floor by Decay seconds, then Floor until the tone stops.
type Envelope struct {
	Attack float64
	Decay  float64
	Floor  float64
}

// DefaultEnvelope holds gain 1 for 1 ms and ramps to 0.001 by 20 ms.
func DefaultEnvelope() Envelope {
	return Envelope{Attack: 0.001, Decay: 0.02, Floor: 0.001}
}

// Gain returns the envelope value t seconds after the tone start.
func (e Envelope) Gain(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t <= e.Attack:
		return 1
	case t < e.Decay:
		return math.Pow(e.Floor, (t-e.Attack)/(e.Decay-e.Attack))
	default:
		return e.Floor
	}
}

// RenderTone returns the mono samples of t: a sine at t.Frequency, shaped
// by env and cut at t.Duration.
func RenderTone(t engine.Tone, env Envelope, sampleRate int) []float32 {
	n := int(math.Round(t.Duration * float64(sampleRate)))
	if n <= 0 {
		return nil
	}

	wave := make([]float32, n)
	gain := make([]float32, n)
	step := 2 * math.Pi * t.Frequency / float64(sampleRate)
	for i := range wave {
		wave[i] = float32(math.Sin(step * float64(i)))
		gain[i] = float32(env.Gain(float64(i) / float64(sampleRate)))
	}

	vek32.Mul_Inplace(wave, gain)
	return wave
}

// framesFor converts a duration in seconds to a whole number of frames.
func framesFor(seconds float64, sampleRate int) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Round(seconds * float64(sampleRate)))
}

// encodeStereo returns lead frames of silence followed by samples, as
// interleaved float32 little-endian stereo, scaled by volume.
func encodeStereo(lead int, samples []float32, volume float32) []byte {
	if volume != 1 {
		scaled := make([]float32, len(samples))
		copy(scaled, samples)
		vek32.MulNumber_Inplace(scaled, volume)
		samples = scaled
	}

	buf := make([]byte, (lead+len(samples))*bytesPerFrame)
	for i, s := range samples {
		putStereoF32(buf, lead+i, s)
	}
	return buf
}

// putStereoF32 writes sample as float32 LE to both channels of frame i.
func putStereoF32(buf []byte, i int, sample float32) {
	v := math.Float32bits(sample)
	off := i * bytesPerFrame
	for ch := 0; ch < ChannelCount; ch++ {
		buf[off+ch*4] = byte(v)
		buf[off+ch*4+1] = byte(v >> 8)
		buf[off+ch*4+2] = byte(v >> 16)
		buf[off+ch*4+3] = byte(v >> 24)
	}
}
