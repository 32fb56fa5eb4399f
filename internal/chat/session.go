// Package chat maintains the advisory conversation: an append-only
// transcript per session with at most one outstanding backend request.
package chat

import (
	"fmt"
	"sync"
	"time"

	"autocare/internal/core"
)

// Session is one continuous conversation transcript plus its in-flight
// state. Turns are appended in strict chronological order and never
// removed for the session's lifetime. Sessions are not persisted.
type Session struct {
	mu       sync.Mutex
	turns    []core.ChatTurn
	awaiting bool
}

// NewSession starts a transcript pre-seeded with one assistant greeting.
// The greeting captures the vehicle profile and expense count at session
// start and is not recomputed afterwards.
func NewSession(vehicle core.VehicleProfile, expenseCount int, now time.Time) *Session {
	greeting := fmt.Sprintf(
		"Hi! I'm your personal AutoCare assistant. I know all about your %s %s and can analyze your %d expense records. How can I help?",
		vehicle.Brand, vehicle.Model, expenseCount)

	return &Session{
		turns: []core.ChatTurn{{
			Speaker:   core.SpeakerAssistant,
			Text:      greeting,
			Timestamp: now,
		}},
	}
}

// Turns returns a snapshot of the transcript in chronological order.
func (s *Session) Turns() []core.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.ChatTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Awaiting reports whether a backend request is outstanding.
func (s *Session) Awaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}

// begin appends the user turn and enters the awaiting state. It returns
// false without touching the transcript when a request is already
// outstanding.
func (s *Session) begin(text string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.awaiting {
		return false
	}
	s.awaiting = true
	s.turns = append(s.turns, core.ChatTurn{
		Speaker:   core.SpeakerUser,
		Text:      text,
		Timestamp: now,
	})
	return true
}

// finish appends the assistant turn and returns to idle.
func (s *Session) finish(text string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.awaiting = false
	s.turns = append(s.turns, core.ChatTurn{
		Speaker:   core.SpeakerAssistant,
		Text:      text,
		Timestamp: now,
	})
}

// priorTurns snapshots the transcript up to but excluding the newly
// appended user turn.
func (s *Session) priorTurns() []core.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.turns) - 1
	out := make([]core.ChatTurn, n)
	copy(out, s.turns[:n])
	return out
}
