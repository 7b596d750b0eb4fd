package chat

import "errors"

var (
	// ErrEmptyInput is returned when a turn's user text is empty after
	// trimming whitespace.
	ErrEmptyInput = errors.New("empty user input")

	// ErrSessionNotFound is returned when a session does not exist or
	// does not belong to the requesting user.
	ErrSessionNotFound = errors.New("session not found")
)
