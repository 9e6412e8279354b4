package display

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/downbeat/internal/engine"
)

const helpText = "space start/stop  ↑/↓ tempo  ]/[ meter  t tap  q quit"

// meterLabel renders beats per measure as a quarter-note time signature.
func meterLabel(beats int) string {
	return fmt.Sprintf("%d/4", beats)
}

// Screen is a full-screen tcell view: a pulse that flashes on every beat,
// one dot per beat of the measure and the tempo readout.
//
// Thread-safety: Screen is safe for concurrent use. Run owns the event loop.
type Screen struct {
	scr tcell.Screen

	mu      sync.Mutex
	tempo   engine.TempoState
	playing bool
	beat    int // last fired beat, -1 when none
	caser   cases.Caser

	base   tcell.Style
	accent tcell.Style
	dim    tcell.Style
}

// NewScreen wraps an initialised tcell screen.
func NewScreen(scr tcell.Screen, tempo engine.TempoState) *Screen {
	base := tcell.StyleDefault
	return &Screen{
		scr:    scr,
		tempo:  tempo,
		beat:   -1,
		caser:  cases.Title(language.English),
		base:   base,
		accent: base.Foreground(tcell.ColorRed).Bold(true),
		dim:    base.Foreground(tcell.ColorGray),
	}
}

func (s *Screen) BeatFired(ev engine.Event, tempo engine.TempoState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beat = ev.Beat
	s.tempo = tempo
	s.draw()
}

func (s *Screen) TempoChanged(tempo engine.TempoState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempo = tempo
	s.draw()
}

func (s *Screen) PlaybackChanged(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = playing
	if !playing {
		s.beat = -1
	}
	s.draw()
}

// Run draws the screen and handles keys until the user quits or ctx is
// done. Start failures are returned. Playback started from Run is bound to
// Run's lifetime.
func (s *Screen) Run(ctx context.Context, ctrl *Controller) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.draw()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = s.scr.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	for {
		switch ev := s.scr.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventInterrupt:
			if ctx.Err() != nil {
				return nil
			}
		case *tcell.EventResize:
			s.mu.Lock()
			s.scr.Sync()
			s.draw()
			s.mu.Unlock()
		case *tcell.EventKey:
			quit, err := ctrl.Apply(ctx, FromKey(ev))
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

// draw repaints everything. Caller holds s.mu.
func (s *Screen) draw() {
	s.scr.Clear()

	status := s.caser.String(playbackWord(s.playing))
	s.text(2, 1, s.base.Bold(true), "downbeat")
	s.text(2, 3, s.base, fmt.Sprintf("%s  %d bpm  %s", status, s.tempo.BPM, meterLabel(s.tempo.BeatsPerMeasure)))

	pulse := strings.Repeat(" ", 3)
	style := s.dim
	if s.beat >= 0 {
		pulse = strings.Repeat("█", 3)
		if s.beat == 0 {
			style = s.accent
		} else {
			style = s.base
		}
	}
	s.text(2, 5, style, pulse)

	x := 8
	for i := 0; i < s.tempo.BeatsPerMeasure; i++ {
		glyph, st := BeatGlyph, s.dim
		if i == s.beat {
			glyph, st = DownbeatGlyph, s.base
			if i == 0 {
				st = s.accent
			}
		}
		s.text(x, 5, st, glyph)
		x += 2
	}

	s.text(2, 7, s.dim, helpText)
	s.scr.Show()
}

func (s *Screen) text(x, y int, style tcell.Style, str string) {
	for _, r := range str {
		s.scr.SetContent(x, y, r, nil, style)
		x++
	}
}
