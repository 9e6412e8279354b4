package cli

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/downbeat/internal/engine"
)

// TapOptions holds flags for the tap command.
type TapOptions struct {
	*RootOptions
}

// TapStep is the estimate after one tap.
type TapStep struct {
	At   float64 `json:"at_ms"`
	BPM  int     `json:"bpm,omitempty"` // clamped tempo, 0 when no estimate
	Raw  int     `json:"raw,omitempty"` // unclamped estimate
	Used int     `json:"taps"`          // taps in the window
}

// TapResult is the tap command's output.
type TapResult struct {
	Steps []TapStep `json:"steps"`
	BPM   int       `json:"bpm,omitempty"`
}

// NewTapCommand creates the tap command.
func NewTapCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TapOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tap <ms>...",
		Short: "Estimate a tempo from tap times",
		Long: fmt.Sprintf(`Estimate a tempo from tap timestamps given in milliseconds.

The estimate uses the mean interval over the last %d taps, the same
window the metronome's tap key uses, and is clamped to %d-%d bpm.

Example:
  downbeat tap 0 500 1000 1500`, engine.TapWindow, engine.MinBPM, engine.MaxBPM),
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTap(opts, args, cmd)
		},
	}

	return cmd
}

func runTap(opts *TapOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var (
		tapper engine.TapTempo
		result TapResult
	)
	for _, arg := range args {
		ms, err := parseTapTime(arg)
		if err != nil {
			_ = formatter.Error(ErrCodeInput, fmt.Sprintf("invalid tap time %q", arg), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("[%s] invalid tap time %q", ErrCodeInput, arg), err)
		}

		step := TapStep{At: ms}
		if raw, ok := tapper.Tap(time.Duration(ms * float64(time.Millisecond))); ok {
			step.Raw = raw
			step.BPM = engine.ClampBPM(raw)
			result.BPM = step.BPM
		}
		step.Used = tapper.Len()
		result.Steps = append(result.Steps, step)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	p := message.NewPrinter(language.English)
	w := cmd.OutOrStdout()
	for i, step := range result.Steps {
		switch {
		case step.BPM == 0:
			p.Fprintf(w, "tap %d at %.0f ms\n", i+1, step.At)
		case step.BPM != step.Raw:
			p.Fprintf(w, "tap %d at %.0f ms: %d bpm (clamped from %d)\n", i+1, step.At, step.BPM, step.Raw)
		default:
			p.Fprintf(w, "tap %d at %.0f ms: %d bpm\n", i+1, step.At, step.BPM)
		}
	}
	if result.BPM == 0 {
		return NewExitError(ExitFailure, "not enough taps for an estimate")
	}
	return nil
}

// maxTapMS is the largest tap time, in milliseconds, a time.Duration holds.
const maxTapMS = math.MaxInt64 / float64(time.Millisecond)

func parseTapTime(arg string) (float64, error) {
	ms, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(ms) || math.Abs(ms) >= maxTapMS {
		return 0, fmt.Errorf("tap time %q out of range", arg)
	}
	return ms, nil
}
