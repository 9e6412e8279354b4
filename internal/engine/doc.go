// Package engine implements the downbeat lookahead beat scheduler.
//
// The scheduler decouples a coarse, unreliable wake-up timer from a precise
// audio timeline. Every wake-up queues all beats that fall due within a short
// horizon, so the audio sink already holds them when the next wake-up is late.
//
// ARCHITECTURE:
//
// Two periodic tasks share one Metronome:
//   - Scheduler: wakes every Timing.Lookahead and calls Poll, which fills the
//     event queue up to now+Timing.ScheduleAhead and hands each beat to the
//     AudioSink.
//   - Renderer: wakes every Timing.FrameInterval and calls Frame, which pops
//     every queued beat whose time has arrived and notifies the Display.
//
// Both tasks run as goroutines bound to the current Session. Shared state
// (TempoState, Session, event queue) is guarded by the Metronome mutex, and
// each pass re-checks that its session is still current, so a stopped session
// can never schedule or fire a beat.
//
// Tests and the simulation harness drive Poll and Frame directly on a manual
// clock (see WithManualDrive).
//
// INVARIANTS:
//   - Queue order equals time order; only the front is ever removed.
//   - BPM stays within [MinBPM, MaxBPM]; BeatsPerMeasure within
//     [MinBeatsPerMeasure, MaxBeatsPerMeasure].
//   - Every beat due in [poll, poll+ScheduleAhead) is queued exactly once.
package engine
