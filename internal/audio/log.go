package audio

import (
	"log/slog"

	"github.com/roach88/downbeat/internal/engine"
)

// LogSink writes one DEBUG record per tone and never fails. It stands in for
// a device on headless machines.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink logging to logger, or slog.Default() when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) PlayTone(t engine.Tone) error {
	s.logger.Debug("tone",
		"frequency", t.Frequency,
		"start", t.Start,
		"duration", t.Duration,
		"accent", t.Accent,
	)
	return nil
}
