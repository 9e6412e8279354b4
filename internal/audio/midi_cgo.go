//go:build cgo

package audio

import (
	"fmt"
	"log/slog"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/roach88/downbeat/internal/engine"
)

// OpenMIDI opens the first output port whose name contains opts.Port.
func OpenMIDI(clock engine.Clock, opts MIDIOptions, logger *slog.Logger) (*MIDISink, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("open rtmidi driver: %w", err)
	}

	outs, err := driver.Outs()
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("list midi outputs: %w", err)
	}

	var out drivers.Out
	for _, o := range outs {
		if opts.Port == "" || strings.Contains(o.String(), opts.Port) {
			out = o
			break
		}
	}
	if out == nil {
		driver.Close()
		return nil, fmt.Errorf("no midi output port matching %q", opts.Port)
	}

	if err := out.Open(); err != nil {
		driver.Close()
		return nil, fmt.Errorf("open midi output %q: %w", out.String(), err)
	}

	send := func(msg midi.Message) error {
		return out.Send(msg)
	}
	closeFn := func() error {
		if err := out.Close(); err != nil {
			return err
		}
		return driver.Close()
	}
	return newMIDISink(clock, opts, send, closeFn, logger), nil
}
