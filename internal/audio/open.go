// Package audio provides the engine.AudioSink implementations: an oto
// device output, a MIDI output and a logging sink for headless runs.
package audio

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/downbeat/internal/engine"
)

// Sink kinds accepted by Open.
const (
	KindOto  = "oto"
	KindMIDI = "midi"
	KindLog  = "log"
	KindNull = "null"
)

// Kinds lists every sink kind, default first.
var Kinds = []string{KindOto, KindMIDI, KindLog, KindNull}

// Options select and tune a sink.
type Options struct {
	Kind string
	Oto  OtoOptions
	MIDI MIDIOptions
}

// Open returns an opener for the sink named by opts.Kind. Nothing touches a
// device until the opener runs, which the engine does on the first Start.
func Open(opts Options, clock engine.Clock, logger *slog.Logger) (engine.SinkOpener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !slices.Contains(Kinds, opts.Kind) {
		return nil, fmt.Errorf("unknown audio sink %q (want one of %v)", opts.Kind, Kinds)
	}

	return func() (engine.AudioSink, error) {
		switch opts.Kind {
		case KindOto:
			return OpenOto(clock, opts.Oto, logger)
		case KindMIDI:
			return OpenMIDI(clock, opts.MIDI, logger)
		case KindLog:
			return NewLogSink(logger), nil
		default:
			return NewLogSink(slog.New(slog.NewTextHandler(io.Discard, nil))), nil
		}
	}, nil
}
