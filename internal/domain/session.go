package domain

import (
	"fmt"
	"time"
)

// Session is a persisted therapy session record. The identifier is generated
// in memory before the row exists; see Phase.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionTitle derives the human-readable title from the creation time.
func SessionTitle(t time.Time) string {
	return "Session " + t.Format("2006-01-02 15:04")
}

// Validate checks the record before it crosses the store boundary.
func (s *Session) Validate() error {
	if s.SessionID == "" {
		return fmt.Errorf("session: missing session_id")
	}
	if s.UserID == "" {
		return fmt.Errorf("session: missing user_id")
	}
	return nil
}

// Phase tracks the lifecycle of the active session identifier for a user.
//
// PhaseNone means no identifier exists. PhasePrepared means an identifier
// was generated in memory but no row has been written. PhaseMaterialized
// means a row with that identifier exists in the store. The only legal
// transitions are None→Prepared (login or explicit new session),
// Prepared→Materialized (first successful turn) and Materialized→Prepared
// via explicit reset.
type Phase int

const (
	PhaseNone Phase = iota
	PhasePrepared
	PhaseMaterialized
)

// String implements fmt.Stringer for log fields.
func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhasePrepared:
		return "prepared"
	case PhaseMaterialized:
		return "materialized"
	default:
		return "unknown"
	}
}
