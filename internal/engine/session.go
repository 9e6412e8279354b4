package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SessionIDGenerator produces identifiers for playback sessions.
// UUIDv7Generator is the production implementation.
type SessionIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session ids, so log lines
// from consecutive sessions sort in start order.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Session is the transient state of one Stopped→Playing→Stopped cycle.
// It is created by Start and discarded by Stop; nothing in it survives.
type Session struct {
	ID string

	// NextNoteTime is the clock time of the next beat to schedule.
	NextNoteTime float64

	// StartedAt is the clock time Start observed (after the clock reset).
	StartedAt float64

	Stats SessionStats

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// SessionStats counts what a session has done so far.
type SessionStats struct {
	Scheduled  int `json:"scheduled"`
	Fired      int `json:"fired"`
	Late       int `json:"late"`
	SinkErrors int `json:"sink_errors"`
	Polls      int `json:"polls"`
}

// SessionInfo is a read-only copy of the current session.
type SessionInfo struct {
	ID           string       `json:"id"`
	NextNoteTime float64      `json:"next_note_time"`
	StartedAt    float64      `json:"started_at"`
	Stats        SessionStats `json:"stats"`
}

func (s *Session) info() SessionInfo {
	return SessionInfo{
		ID:           s.ID,
		NextNoteTime: s.NextNoteTime,
		StartedAt:    s.StartedAt,
		Stats:        s.Stats,
	}
}
