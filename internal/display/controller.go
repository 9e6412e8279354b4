package display

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/downbeat/internal/engine"
)

// Controller applies user commands to a Metronome. It only calls the
// metronome's public entry points and must not run on a Display callback.
type Controller struct {
	m      *engine.Metronome
	epoch  time.Time
	now    func() time.Time
	logger *slog.Logger
}

// NewController returns a controller for m. Tap times are measured on the
// wall clock.
func NewController(m *engine.Metronome, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{m: m, now: time.Now, logger: logger}
	c.epoch = c.now()
	return c
}

// Apply runs cmd. quit reports whether the user asked to leave; err is only
// set when starting playback fails.
func (c *Controller) Apply(ctx context.Context, cmd Command) (quit bool, err error) {
	c.logger.Debug("command", "action", cmd.Action, "bpm", cmd.BPM)

	switch cmd.Action {
	case ActionToggle:
		return false, c.m.Toggle(ctx)
	case ActionTempoUp:
		c.m.NudgeTempo(1)
	case ActionTempoDown:
		c.m.NudgeTempo(-1)
	case ActionSetTempo:
		c.m.SetTempo(cmd.BPM)
	case ActionMeterUp:
		c.m.SetMeter(1)
	case ActionMeterDown:
		c.m.SetMeter(-1)
	case ActionTap:
		c.m.Tap(c.now().Sub(c.epoch))
	case ActionQuit:
		return true, nil
	}
	return false, nil
}
