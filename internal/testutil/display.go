package testutil

import (
	"sync"

	"github.com/roach88/downbeat/internal/engine"
)

// DisplayEventKind distinguishes recorded display notifications.
type DisplayEventKind string

const (
	DisplayBeat     DisplayEventKind = "beat"
	DisplayTempo    DisplayEventKind = "tempo"
	DisplayPlayback DisplayEventKind = "playback"
)

// DisplayEvent is one recorded notification.
type DisplayEvent struct {
	Kind    DisplayEventKind
	Event   engine.Event      // DisplayBeat
	Tempo   engine.TempoState // DisplayBeat, DisplayTempo
	Playing bool              // DisplayPlayback
	At      float64           // clock reading, 0 without a clock
}

// RecordingDisplay is an engine.Display that remembers every notification.
//
// Thread-safety: RecordingDisplay is safe for concurrent use.
type RecordingDisplay struct {
	mu     sync.Mutex
	clock  engine.Clock
	events []DisplayEvent
}

// NewRecordingDisplay creates a display. clock may be nil.
func NewRecordingDisplay(clock engine.Clock) *RecordingDisplay {
	return &RecordingDisplay{clock: clock}
}

func (d *RecordingDisplay) record(e DisplayEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.clock != nil {
		e.At = d.clock.Now()
	}
	d.events = append(d.events, e)
}

// BeatFired implements engine.Display.
func (d *RecordingDisplay) BeatFired(ev engine.Event, tempo engine.TempoState) {
	d.record(DisplayEvent{Kind: DisplayBeat, Event: ev, Tempo: tempo})
}

// TempoChanged implements engine.Display.
func (d *RecordingDisplay) TempoChanged(tempo engine.TempoState) {
	d.record(DisplayEvent{Kind: DisplayTempo, Tempo: tempo})
}

// PlaybackChanged implements engine.Display.
func (d *RecordingDisplay) PlaybackChanged(playing bool) {
	d.record(DisplayEvent{Kind: DisplayPlayback, Playing: playing})
}

// Events returns a copy of every recorded notification.
func (d *RecordingDisplay) Events() []DisplayEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DisplayEvent, len(d.events))
	copy(out, d.events)
	return out
}

// Fired returns the beats passed to BeatFired, in order.
func (d *RecordingDisplay) Fired() []engine.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []engine.Event
	for _, e := range d.events {
		if e.Kind == DisplayBeat {
			out = append(out, e.Event)
		}
	}
	return out
}
