package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/roach88/downbeat/internal/audio"
	"github.com/roach88/downbeat/internal/config"
	"github.com/roach88/downbeat/internal/display"
	"github.com/roach88/downbeat/internal/engine"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Config   string
	BPM      int
	Meter    int
	Sink     string
	Plain    bool
	Paused   bool
	Duration time.Duration

	// NewScreen overrides the terminal used in screen mode (for testing).
	NewScreen func() (tcell.Screen, error)
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	return newPlayCommand(&PlayOptions{RootOptions: rootOpts, NewScreen: tcell.NewScreen})
}

func newPlayCommand(opts *PlayOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run the metronome",
		Long: `Run the metronome in the terminal.

The full-screen view takes single keys:
  space      start / stop
  up / down  tempo +1 / -1
  ] / [      beats per measure +1 / -1 (+ / - also work)
  t          tap tempo
  q, esc     quit

With --plain, beats are printed one per line and commands are read from
standard input (toggle, up, down, bpm N, tap, quit; an empty line toggles).

Examples:
  downbeat play
  downbeat play --bpm 96 --meter 3
  downbeat play --plain --sink log --duration 10s`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "configuration file (YAML)")
	cmd.Flags().IntVar(&opts.BPM, "bpm", engine.DefaultBPM, "tempo in beats per minute")
	cmd.Flags().IntVar(&opts.Meter, "meter", engine.DefaultBeatsPerMeasure, "beats per measure")
	cmd.Flags().StringVar(&opts.Sink, "sink", "", fmt.Sprintf("audio output %v", audio.Kinds))
	cmd.Flags().BoolVar(&opts.Plain, "plain", false, "line output with commands on stdin")
	cmd.Flags().BoolVar(&opts.Paused, "paused", false, "wait for a toggle before playing")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (0 runs until quit)")

	return cmd
}

func runPlay(opts *PlayOptions, cmd *cobra.Command) error {
	logger := opts.logger()

	cfg, err := playConfig(opts, cmd)
	if err != nil {
		return err
	}

	clock := engine.NewMonotonicClock()
	opener, err := audio.Open(cfg.AudioOptions(), clock, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid audio sink", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	base := append(cfg.EngineOptions(),
		engine.WithClock(clock),
		engine.WithSinkOpener(opener),
		engine.WithLogger(logger),
	)

	logger.Info("playing", "bpm", cfg.BPM, "meter", cfg.BeatsPerMeasure, "sink", cfg.Sink.Kind, "display", cfg.Display.Mode)

	if cfg.Display.Mode == config.DisplayLine {
		return playLines(ctx, opts, cmd, cfg, base)
	}
	return playScreen(ctx, opts, cfg, base)
}

// playConfig loads the config file, if any, and applies flag overrides.
// Tempo and meter flags are clamped like the file values.
func playConfig(opts *PlayOptions, cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.fs(), opts.Config)
		if err != nil {
			return cfg, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("bpm") {
		cfg.BPM = opts.BPM
	}
	if flags.Changed("meter") {
		cfg.BeatsPerMeasure = opts.Meter
	}
	cfg.Clamp()
	if opts.Sink != "" {
		cfg.Sink.Kind = opts.Sink
	}
	if opts.Plain {
		cfg.Display.Mode = config.DisplayLine
	}

	if err := config.Validate(cfg); err != nil {
		return cfg, WrapExitError(ExitCommandError, "invalid options", err)
	}
	return cfg, nil
}

func playLines(ctx context.Context, opts *PlayOptions, cmd *cobra.Command, cfg config.Config, base []engine.Option) error {
	logger := opts.logger()

	line, err := display.NewLine(cmd.OutOrStdout(), cfg.Display.Template, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid display template", err)
	}

	m := engine.New(append(base, engine.WithDisplay(line))...)
	defer closeMetronome(m, logger)

	if err := startPlaying(ctx, opts, m); err != nil {
		return err
	}

	ctrl := display.NewController(m, logger)
	if err := display.RunLines(ctx, cmd.InOrStdin(), cmd.ErrOrStderr(), ctrl); err != nil {
		return playError(err)
	}

	// A bounded run keeps playing after stdin runs dry.
	if opts.Duration > 0 && m.IsPlaying() && ctx.Err() == nil {
		<-ctx.Done()
	}
	return line.Err()
}

func playScreen(ctx context.Context, opts *PlayOptions, cfg config.Config, base []engine.Option) error {
	logger := opts.logger()

	scr, err := opts.NewScreen()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open terminal", err)
	}
	if err := scr.Init(); err != nil {
		return WrapExitError(ExitCommandError, "failed to open terminal", err)
	}
	defer scr.Fini()

	screen := display.NewScreen(scr, engine.TempoState{BPM: cfg.BPM, BeatsPerMeasure: cfg.BeatsPerMeasure})
	m := engine.New(append(base, engine.WithDisplay(screen))...)
	defer closeMetronome(m, logger)

	if err := startPlaying(ctx, opts, m); err != nil {
		return err
	}

	if err := screen.Run(ctx, display.NewController(m, logger)); err != nil {
		return playError(err)
	}
	return nil
}

func startPlaying(ctx context.Context, opts *PlayOptions, m *engine.Metronome) error {
	if opts.Paused {
		return nil
	}
	if err := m.Start(ctx); err != nil {
		return playError(err)
	}
	return nil
}

func playError(err error) error {
	if errors.Is(err, engine.ErrSinkUnavailable) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("[%s] audio output unavailable", ErrCodeAudio), err)
	}
	return WrapExitError(ExitFailure, "playback failed", err)
}

func closeMetronome(m *engine.Metronome, logger *slog.Logger) {
	if err := m.Close(); err != nil {
		logger.Error("error closing audio output", "error", err)
	}
}
