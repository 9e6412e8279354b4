package harness

import (
	"fmt"
	"strings"
)

// Trace event kinds.
const (
	KindTone  = "tone"
	KindFire  = "fire"
	KindTempo = "tempo"
	KindState = "state"
)

// TraceEvent is one recorded sink call or display notification.
// At is the session clock reading when it happened.
type TraceEvent struct {
	Seq  int     `json:"seq"`
	At   float64 `json:"at"`
	Kind string  `json:"kind"`

	// tone
	Frequency float64 `json:"frequency,omitempty"`
	Start     float64 `json:"start,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Accent    bool    `json:"accent,omitempty"`

	// fire
	Beat int     `json:"beat,omitempty"`
	Time float64 `json:"time,omitempty"`

	// tempo
	BPM             int `json:"bpm,omitempty"`
	BeatsPerMeasure int `json:"beats_per_measure,omitempty"`

	// state
	Playing bool `json:"playing,omitempty"`
}

// String renders the event as one trace line.
func (e TraceEvent) String() string {
	var detail string
	switch e.Kind {
	case KindTone:
		detail = fmt.Sprintf("freq=%g start=%.3f dur=%.3f", e.Frequency, e.Start, e.Duration)
		if e.Accent {
			detail += " accent"
		}
	case KindFire:
		detail = fmt.Sprintf("beat=%d time=%.3f", e.Beat, e.Time)
	case KindTempo:
		detail = fmt.Sprintf("bpm=%d meter=%d", e.BPM, e.BeatsPerMeasure)
	case KindState:
		detail = "stopped"
		if e.Playing {
			detail = "playing"
		}
	}
	return fmt.Sprintf("%.3f %s %s", e.At, e.Kind, detail)
}

// FinalState is the metronome state after the last step.
type FinalState struct {
	Playing         bool `json:"playing"`
	BPM             int  `json:"bpm"`
	BeatsPerMeasure int  `json:"beats_per_measure"`
	NextBeat        int  `json:"next_beat"`
	Pending         int  `json:"pending"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace lists sink calls and display notifications in order.
	Trace []TraceEvent `json:"trace"`

	Final FinalState `json:"final"`

	// Errors holds assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Count returns the number of trace events of the given kind.
func (r *Result) Count(kind string) int {
	n := 0
	for _, e := range r.Trace {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Text renders the trace and final state, one line per event.
func (r *Result) Text(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# scenario: %s\n", name)
	for _, e := range r.Trace {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	f := r.Final
	fmt.Fprintf(&b, "final playing=%t bpm=%d meter=%d next_beat=%d pending=%d\n",
		f.Playing, f.BPM, f.BeatsPerMeasure, f.NextBeat, f.Pending)
	fmt.Fprintf(&b, "count tones=%d fires=%d\n", r.Count(KindTone), r.Count(KindFire))
	return b.String()
}
