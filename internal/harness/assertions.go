package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// timeTolerance absorbs floating-point accumulation in beat times.
const timeTolerance = 1e-9

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, event)
		}
	}
	return buf.String()
}

func assertToneCount(r *Result, a Assertion) error {
	if got := r.Count(KindTone); got != a.Count {
		return &AssertionError{
			Type:     AssertToneCount,
			Expected: fmt.Sprintf("%d tones", a.Count),
			Actual:   fmt.Sprintf("%d tones", got),
			Trace:    r.Trace,
		}
	}
	return nil
}

func assertFireOrder(r *Result, a Assertion) error {
	var beats []int
	for _, e := range r.Trace {
		if e.Kind == KindFire {
			beats = append(beats, e.Beat)
		}
	}
	if !slices.Equal(beats, a.Beats) {
		return &AssertionError{
			Type:     AssertFireOrder,
			Expected: fmt.Sprintf("fired beats %v", a.Beats),
			Actual:   fmt.Sprintf("fired beats %v", beats),
			Trace:    r.Trace,
		}
	}
	return nil
}

func assertToneTimes(r *Result, a Assertion) error {
	var times []float64
	for _, e := range r.Trace {
		if e.Kind == KindTone {
			times = append(times, e.Start)
		}
	}

	equal := len(times) == len(a.Times)
	for i := 0; equal && i < len(times); i++ {
		equal = math.Abs(times[i]-a.Times[i]) <= timeTolerance
	}
	if !equal {
		return &AssertionError{
			Type:     AssertToneTimes,
			Expected: fmt.Sprintf("tone starts %v", a.Times),
			Actual:   fmt.Sprintf("tone starts %v", times),
			Trace:    r.Trace,
		}
	}
	return nil
}

func assertFinalTempo(r *Result, a Assertion) error {
	f := r.Final
	if (a.BPM != 0 && a.BPM != f.BPM) || (a.BeatsPerMeasure != 0 && a.BeatsPerMeasure != f.BeatsPerMeasure) {
		return &AssertionError{
			Type:     AssertFinalTempo,
			Expected: fmt.Sprintf("bpm=%d meter=%d", a.BPM, a.BeatsPerMeasure),
			Actual:   fmt.Sprintf("bpm=%d meter=%d", f.BPM, f.BeatsPerMeasure),
		}
	}
	return nil
}

func assertFinalPlaying(r *Result, a Assertion) error {
	if *a.Playing != r.Final.Playing {
		return &AssertionError{
			Type:     AssertFinalPlaying,
			Expected: fmt.Sprintf("playing=%t", *a.Playing),
			Actual:   fmt.Sprintf("playing=%t", r.Final.Playing),
		}
	}
	return nil
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertToneCount:
			err = assertToneCount(result, a)
		case AssertFireOrder:
			err = assertFireOrder(result, a)
		case AssertToneTimes:
			err = assertToneTimes(result, a)
		case AssertFinalTempo:
			err = assertFinalTempo(result, a)
		case AssertFinalPlaying:
			if a.Playing == nil {
				err = fmt.Errorf("assertion[%d]: final_playing needs playing", i)
			} else {
				err = assertFinalPlaying(result, a)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
