package engine

// Display is the visual side of the metronome. The Metronome calls it with
// its lock held, so implementations must return quickly and must not call
// back into the Metronome.
type Display interface {
	// BeatFired is called once per beat when its time has arrived.
	// Beat 0 is the downbeat and should look different from the others.
	BeatFired(ev Event, tempo TempoState)

	// TempoChanged is called after every tempo or meter mutation.
	TempoChanged(tempo TempoState)

	// PlaybackChanged is called on every Stopped/Playing transition. A false
	// value means the visual state should be reset.
	PlaybackChanged(playing bool)
}

// NopDisplay ignores every notification.
type NopDisplay struct{}

func (NopDisplay) BeatFired(Event, TempoState) {}
func (NopDisplay) TempoChanged(TempoState)     {}
func (NopDisplay) PlaybackChanged(bool)        {}
