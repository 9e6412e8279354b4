// Package display renders metronome state for a terminal: a line-oriented
// view for plain output and a full-screen tcell view with keyboard controls.
package display

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/downbeat/internal/engine"
)

// Glyphs used for beats.
const (
	DownbeatGlyph = "●"
	BeatGlyph     = "○"
)

// BeatLine is the data a line template sees.
type BeatLine struct {
	Glyph           string
	Beat            int
	Time            float64
	Downbeat        bool
	BPM             int
	BeatsPerMeasure int
}

// Line writes one line per notification to an io.Writer.
//
// Thread-safety: Line is safe for concurrent use.
type Line struct {
	mu       sync.Mutex
	w        io.Writer
	tmpl     *template.Template
	accent   lipgloss.Style
	beat     lipgloss.Style
	caser    cases.Caser
	logger   *slog.Logger
	firstErr error
}

// NewLine parses text as the per-beat template. Sprig functions are available.
func NewLine(w io.Writer, text string, logger *slog.Logger) (*Line, error) {
	tmpl, err := template.New("beat").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse line template: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := lipgloss.NewRenderer(w)
	return &Line{
		w:      w,
		tmpl:   tmpl,
		accent: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		beat:   r.NewStyle().Foreground(lipgloss.Color("8")),
		caser:  cases.Title(language.English),
		logger: logger,
	}, nil
}

func (l *Line) BeatFired(ev engine.Event, tempo engine.TempoState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data := BeatLine{
		Glyph:           l.beat.Render(BeatGlyph),
		Beat:            ev.Beat,
		Time:            ev.Time,
		Downbeat:        ev.Downbeat(),
		BPM:             tempo.BPM,
		BeatsPerMeasure: tempo.BeatsPerMeasure,
	}
	if data.Downbeat {
		data.Glyph = l.accent.Render(DownbeatGlyph)
	}

	var buf bytes.Buffer
	if err := l.tmpl.Execute(&buf, data); err != nil {
		l.fail(fmt.Errorf("render beat line: %w", err))
		return
	}
	buf.WriteByte('\n')
	l.write(buf.Bytes())
}

func (l *Line) TempoChanged(tempo engine.TempoState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write(fmt.Appendf(nil, "tempo %d bpm, %s\n", tempo.BPM, meterLabel(tempo.BeatsPerMeasure)))
}

func (l *Line) PlaybackChanged(playing bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write([]byte(l.caser.String(playbackWord(playing)) + "\n"))
}

// Err returns the first render or write error, if any.
func (l *Line) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.firstErr
}

func (l *Line) write(p []byte) {
	if _, err := l.w.Write(p); err != nil {
		l.fail(fmt.Errorf("write display line: %w", err))
	}
}

func (l *Line) fail(err error) {
	if l.firstErr == nil {
		l.firstErr = err
		l.logger.Warn("display error", "error", err)
	}
}

func playbackWord(playing bool) string {
	if playing {
		return "playing"
	}
	return "stopped"
}
