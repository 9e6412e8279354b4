//go:build !cgo

package audio

import (
	"errors"
	"log/slog"

	"github.com/roach88/downbeat/internal/engine"
)

// ErrMIDIUnsupported is returned by OpenMIDI in builds without cgo.
var ErrMIDIUnsupported = errors.New("midi output requires a cgo build")

// OpenMIDI always fails without cgo; rtmidi is a C library.
func OpenMIDI(engine.Clock, MIDIOptions, *slog.Logger) (*MIDISink, error) {
	return nil, ErrMIDIUnsupported
}
