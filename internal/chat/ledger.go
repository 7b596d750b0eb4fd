package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pepper/internal/domain"
	"pepper/internal/store"
)

// Ledger manages session records: materializing prepared sessions on first
// use, switching to past sessions, listing and deleting them.
type Ledger struct {
	repo      store.Repository
	logger    *slog.Logger
	listLimit int
	now       func() time.Time
	newID     func() string
}

// NewLedger constructs a ledger. listLimit caps session listings.
func NewLedger(repo store.Repository, listLimit int, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		repo:      repo,
		logger:    logger.With("module", "ledger"),
		listLimit: listLimit,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// NewID generates a session identifier.
func (l *Ledger) NewID() string { return l.newID() }

// materializeLocked ensures the user's active session exists in the store
// and returns its identifier. The caller must hold the session lock.
//
// A prepared identifier is written on first use. If the insert fails the
// identifier is regenerated and the insert retried once; the stale
// identifier is never reused.
func (l *Ledger) materializeLocked(ctx context.Context, us *UserSession) (string, error) {
	if us.phase == domain.PhaseMaterialized {
		return us.sessionID, nil
	}
	us.prepareFreshLocked(l.newID)

	if err := l.insertSession(ctx, us.sessionID, us.userID); err != nil {
		l.logger.Warn("session insert failed, regenerating identifier",
			"user_id", us.userID, "session_id", us.sessionID, "error", err)
		us.sessionID = l.newID()
		if err := l.insertSession(ctx, us.sessionID, us.userID); err != nil {
			return "", fmt.Errorf("materialize session: %w", err)
		}
	}

	us.phase = domain.PhaseMaterialized
	l.logger.Info("session materialized", "user_id", us.userID, "session_id", us.sessionID)
	return us.sessionID, nil
}

func (l *Ledger) insertSession(ctx context.Context, sessionID, userID string) error {
	createdAt := l.now()
	session := &domain.Session{
		SessionID: sessionID,
		UserID:    userID,
		Title:     domain.SessionTitle(createdAt),
		CreatedAt: createdAt,
	}
	if err := session.Validate(); err != nil {
		return err
	}
	return l.repo.CreateSession(ctx, session)
}

// StartFresh abandons the active session and prepares a new identifier.
// Nothing is written; the previous session's rows, if any, are untouched.
func (l *Ledger) StartFresh(us *UserSession) string {
	us.mu.Lock()
	defer us.mu.Unlock()
	us.resetLocked(l.newID)
	return us.sessionID
}

// SwitchTo makes a past session the active one and loads its transcript.
// Returns ErrSessionNotFound when the session does not exist or belongs to
// another user.
func (l *Ledger) SwitchTo(ctx context.Context, us *UserSession, sessionID string) error {
	session, err := l.repo.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil || session.UserID != us.UserID() {
		return ErrSessionNotFound
	}

	msgs, err := l.repo.ListSessionMessages(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session messages: %w", err)
	}

	us.mu.Lock()
	defer us.mu.Unlock()
	us.sessionID = sessionID
	us.phase = domain.PhaseMaterialized
	us.state.LoadFromStore(msgs)
	us.pendingAudio = nil
	return nil
}

// ListForUser returns the user's sessions, most recent first.
func (l *Ledger) ListForUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	return l.repo.ListUserSessions(ctx, userID, l.listLimit)
}

// Delete removes a session and its messages, returning the number of
// messages removed. Returns ErrSessionNotFound for an unknown session.
func (l *Ledger) Delete(ctx context.Context, sessionID string) (int64, error) {
	session, err := l.repo.GetSession(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return 0, ErrSessionNotFound
	}

	deleted, err := l.repo.DeleteSessionMessages(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete session messages: %w", err)
	}
	if _, err := l.repo.DeleteSession(ctx, sessionID); err != nil {
		return deleted, fmt.Errorf("delete session: %w", err)
	}

	l.logger.Info("session deleted", "session_id", sessionID, "messages_deleted", deleted)
	return deleted, nil
}
