package engine

import (
	"math"
	"time"
)

// TapWindow is how many taps the tap-tempo estimator remembers.
const TapWindow = 5

// TapTempo estimates a tempo from a sliding window of tap timestamps.
//
// The zero value is ready to use. TapTempo is not safe for concurrent use;
// the Metronome serializes access to it.
type TapTempo struct {
	taps []time.Duration
}

// Tap records a tap at the given offset from any fixed epoch. With at least
// two taps in the window it returns the tempo implied by the mean interval.
// ok is false when there are too few taps or the mean interval is not
// positive.
func (t *TapTempo) Tap(at time.Duration) (bpm int, ok bool) {
	t.taps = append(t.taps, at)
	if len(t.taps) > TapWindow {
		t.taps = t.taps[len(t.taps)-TapWindow:]
	}
	if len(t.taps) < 2 {
		return 0, false
	}

	var total float64
	for i := 1; i < len(t.taps); i++ {
		total += float64(t.taps[i]-t.taps[i-1]) / float64(time.Millisecond)
	}
	mean := total / float64(len(t.taps)-1)
	if mean <= 0 {
		return 0, false
	}
	return int(math.Round(60000 / mean)), true
}

// Len returns the number of taps in the window.
func (t *TapTempo) Len() int {
	return len(t.taps)
}

// Reset forgets every tap.
func (t *TapTempo) Reset() {
	t.taps = t.taps[:0]
}
