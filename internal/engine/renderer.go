package engine

import (
	"context"
	"time"
)

// Frame is one renderer pass. It pops every queued beat whose time is at or
// before now, in order, notifies the display for each, and returns how many
// fired. Frame does nothing while stopped or when the queue is empty.
func (m *Metronome) Frame() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return 0
	}
	return m.frame(m.session)
}

// frame drains due events for s. Caller holds m.mu.
func (m *Metronome) frame(s *Session) int {
	due := m.queue.PopDue(m.clock.Now())
	for _, ev := range due {
		s.Stats.Fired++
		m.display.BeatFired(ev, m.tempo)
	}
	return len(due)
}

// renderLoop runs one frame immediately, then one every FrameInterval until
// ctx is done or s ends.
func (m *Metronome) renderLoop(ctx context.Context, s *Session) {
	defer s.wg.Done()

	if !m.pass(s, "renderer", m.frame) {
		return
	}

	ticker := time.NewTicker(m.timing.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.abandon(s)
			return
		case <-ticker.C:
			if !m.pass(s, "renderer", m.frame) {
				return
			}
		}
	}
}
