package audio

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/downbeat/internal/engine"
	"github.com/roach88/downbeat/internal/testutil"
)

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open(Options{Kind: "speaker"}, testutil.NewManualClock(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown audio sink "speaker"`)
}

func TestOpen_LogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	open, err := Open(Options{Kind: KindLog}, testutil.NewManualClock(), logger)
	require.NoError(t, err)

	sink, err := open()
	require.NoError(t, err)
	require.IsType(t, &LogSink{}, sink)

	require.NoError(t, sink.PlayTone(engine.Tone{Frequency: 880, Start: 0.05, Duration: 0.03, Accent: true}))
	out := buf.String()
	assert.Contains(t, out, "msg=tone")
	assert.Contains(t, out, "frequency=880")
	assert.Contains(t, out, "accent=true")
}

func TestOpen_NullSinkIsSilent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	open, err := Open(Options{Kind: KindNull}, testutil.NewManualClock(), logger)
	require.NoError(t, err)
	sink, err := open()
	require.NoError(t, err)

	require.NoError(t, sink.PlayTone(engine.Tone{Frequency: 440}))
	assert.Empty(t, buf.String())
}

func TestOpen_DrivesMetronome(t *testing.T) {
	clock := testutil.NewManualClock()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	open, err := Open(Options{Kind: KindLog}, clock, logger)
	require.NoError(t, err)

	m := engine.New(
		engine.WithClock(clock),
		engine.WithSinkOpener(open),
		engine.WithManualDrive(),
		engine.WithLogger(logger),
	)
	require.NoError(t, m.Start(context.Background()))
	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, 1, m.Poll())
	assert.Contains(t, buf.String(), "frequency=880")
}
