// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"pepper/internal/domain"
)

// ErrDuplicateEmail is returned by CreateUser when the email is taken.
var ErrDuplicateEmail = errors.New("email already registered")

// Repository defines the interface for persisting users, therapy sessions
// and chat messages.
type Repository interface {
	// CreateUser inserts a new user record.
	// Returns ErrDuplicateEmail if the email is already registered.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUser retrieves a user by their user ID. Returns nil if not found.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// GetUserByEmail retrieves a user by email. Returns nil if not found.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// ListChildren returns all child users sorted by name.
	ListChildren(ctx context.Context) ([]*domain.User, error)

	// CreateSession inserts a session record.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by ID. Returns nil if not found.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// ListUserSessions returns a user's sessions sorted by creation time,
	// most recent first, capped at limit.
	ListUserSessions(ctx context.Context, userID string, limit int) ([]*domain.Session, error)

	// DeleteSession removes a session row. The bool reports whether the
	// row existed.
	DeleteSession(ctx context.Context, sessionID string) (bool, error)

	// InsertMessage writes a single message row.
	InsertMessage(ctx context.Context, msg *domain.Message) error

	// InsertMessages writes a batch of message rows in one statement.
	InsertMessages(ctx context.Context, msgs []*domain.Message) error

	// ListSessionMessages returns the role/content projection of a
	// session's messages ordered by timestamp.
	ListSessionMessages(ctx context.Context, sessionID string) ([]*domain.StoredMessage, error)

	// DeleteSessionMessages removes all messages for a session and
	// returns the number deleted.
	DeleteSessionMessages(ctx context.Context, sessionID string) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
