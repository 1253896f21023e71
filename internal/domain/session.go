package domain

import "time"

// Session is one user's conversation over one recipe.
type Session struct {
	ID          string
	Owner       string // transport-specific user key, e.g. a Telegram user ID
	Recipe      *Recipe
	CurrentStep int      // 0-based, always within [0, len(Recipe.Steps))
	History     []string // raw utterances, append-only
	Status      SessionStatus
	StartedAt   time.Time
	UpdatedAt   time.Time
}

// Clone returns a copy that shares the read-only recipe but not the
// history slice.
func (s *Session) Clone() *Session {
	c := *s
	c.History = append([]string(nil), s.History...)
	return &c
}

// ActiveStep returns the step the session is currently on.
func (s *Session) ActiveStep() Step {
	return s.Recipe.Steps[s.CurrentStep]
}

// SessionStatus tracks the lifecycle of a session.
type SessionStatus int

const (
	SessionActive SessionStatus = iota
	SessionEnded
)

// String returns a human-readable session status.
func (s SessionStatus) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionEnded:
		return "ended"
	default:
		return "unknown"
	}
}
