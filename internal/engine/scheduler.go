package engine

import (
	"context"
	"time"
)

// Poll is one scheduler wake-up. It queues, and sends to the audio sink,
// every beat whose time falls before now+ScheduleAhead, and returns how many
// it scheduled. Poll does nothing while stopped.
func (m *Metronome) Poll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return 0
	}
	return m.poll(m.session)
}

// poll fills the horizon for s. Caller holds m.mu.
//
// The loop terminates because NextNoteTime grows by at least 60/MaxBPM
// seconds per iteration.
func (m *Metronome) poll(s *Session) int {
	now := m.clock.Now()
	horizon := now + m.timing.ScheduleAhead
	s.Stats.Polls++

	scheduled := 0
	for s.NextNoteTime < horizon {
		// Lazy wrap after the meter shrank below the pending index.
		if m.tempo.CurrentBeat >= m.tempo.BeatsPerMeasure {
			m.tempo.CurrentBeat = 0
		}

		ev := Event{Beat: m.tempo.CurrentBeat, Time: s.NextNoteTime}
		m.queue.Push(ev)
		s.Stats.Scheduled++
		scheduled++

		if ev.Time < now {
			s.Stats.Late++
			m.logger.Warn("beat scheduled after its time",
				"session", s.ID,
				"beat", ev.Beat,
				"time", ev.Time,
				"now", now,
			)
		} else {
			m.logger.Debug("beat scheduled",
				"session", s.ID,
				"beat", ev.Beat,
				"time", ev.Time,
				"lead", ev.Time-now,
			)
		}

		if err := m.sink.PlayTone(m.voice.ToneFor(ev)); err != nil {
			// Log and continue: the beat stays queued for the display.
			s.Stats.SinkErrors++
			m.logger.Warn("audio sink rejected tone",
				"session", s.ID,
				"beat", ev.Beat,
				"time", ev.Time,
				"error", err,
			)
		}

		next := m.tempo.Next(ev)
		m.tempo.CurrentBeat = next.Beat
		s.NextNoteTime = next.Time
	}
	return scheduled
}

// schedulerLoop wakes every Lookahead until ctx is done or s ends.
func (m *Metronome) schedulerLoop(ctx context.Context, s *Session) {
	defer s.wg.Done()

	ticker := time.NewTicker(m.timing.Lookahead)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.abandon(s)
			return
		case <-ticker.C:
			if !m.pass(s, "scheduler", m.poll) {
				return
			}
		}
	}
}

// pass runs fn for s under the lock. It returns false once s is no longer
// the active session, which tells the calling loop to exit.
func (m *Metronome) pass(s *Session, task string, fn func(*Session) int) (alive bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != s {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("periodic task panicked", "task", task, "session", s.ID, "panic", r)
			alive = true
		}
	}()

	fn(s)
	return true
}

// abandon ends s after its context was cancelled from outside.
func (m *Metronome) abandon(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == s {
		m.endSession(s, "context done")
	}
}
