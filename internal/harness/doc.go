// Package harness runs metronome scenarios on a virtual clock.
//
// A scenario starts from a configuration, applies a list of steps (start,
// stop, tempo and meter changes, taps, clock advances) and records every
// tone sent to the audio sink and every display notification. The recorded
// trace is deterministic, so it can be compared against golden files.
//
// # Scenario Format
//
//	name: tempo_change
//	description: "Slowing down mid-measure keeps the queued beat"
//	config:
//	  bpm: 120
//	  timing:
//	    lookahead_ms: 20
//	steps:
//	  - action: start
//	  - action: advance
//	    seconds: 1.0
//	  - action: set_tempo
//	    bpm: 60
//	  - action: meter
//	    delta: -2
//	assertions:
//	  - type: tone_count
//	    count: 3
//	  - type: fire_order
//	    beats: [0, 1]
//
// The config block is decoded over config.Default(), so it only needs the
// values it changes.
//
// # Simulation
//
// The harness drives the metronome in manual mode. After a start, the
// renderer runs immediately and then every frame interval; the scheduler
// first runs one lookahead period after the start. When a poll and a frame
// fall on the same instant, the poll runs first. Trace times are readings
// of the session clock, which restarts at zero on every start.
//
// # Assertion Types
//
//   - tone_count: number of tones sent to the sink
//   - fire_order: beat indices of fired beats, in order
//   - tone_times: start times of the tones, in order
//   - final_tempo: bpm and beats per measure after the last step
//   - final_playing: playback state after the last step
package harness
