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

// Persistence writes completed turns to the store. A turn is saved as a
// batch of two rows; when the batch fails each row is retried individually
// and rows that still fail are skipped. The in-memory transcript is never
// rolled back, so a save failure loses rows rather than conversation.
type Persistence struct {
	repo   store.Repository
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewPersistence constructs the persistence layer.
func NewPersistence(repo store.Repository, logger *slog.Logger) *Persistence {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persistence{
		repo:   repo,
		logger: logger.With("module", "persistence"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// SaveTurn persists one user/assistant exchange. The assistant row is
// stamped strictly after the user row so read-back ordering matches the
// conversation. The returned error reports partial or total loss; callers
// surface it without failing the turn.
func (p *Persistence) SaveTurn(ctx context.Context, sessionID, userText, assistantText string) error {
	userTS := p.now()
	assistantTS := p.now()
	if !assistantTS.After(userTS) {
		assistantTS = userTS.Add(time.Nanosecond)
	}

	msgs := []*domain.Message{
		{
			MessageID: p.newID(),
			SessionID: sessionID,
			Role:      domain.MessageRoleUser,
			Content:   userText,
			Timestamp: userTS,
		},
		{
			MessageID: p.newID(),
			SessionID: sessionID,
			Role:      domain.MessageRoleAssistant,
			Content:   assistantText,
			Timestamp: assistantTS,
		},
	}
	for _, m := range msgs {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("save turn: %w", err)
		}
	}

	err := p.repo.InsertMessages(ctx, msgs)
	if err == nil {
		return nil
	}
	p.logger.Warn("batch insert failed, retrying per message",
		"session_id", sessionID, "error", err)

	failed := 0
	for _, m := range msgs {
		if err := p.repo.InsertMessage(ctx, m); err != nil {
			failed++
			p.logger.Error("message insert failed, row skipped",
				"session_id", sessionID, "message_id", m.MessageID, "role", m.Role, "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("save turn: %d of %d messages lost", failed, len(msgs))
	}
	return nil
}
