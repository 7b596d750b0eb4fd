package domain

import (
	"fmt"
	"time"
)

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// ContentType tags transcript entries. Image entries exist only in the
// in-memory transcript; persisted message rows are always text.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
)

// Message is a persisted chat message. Messages are append-only and are
// deleted only in bulk when their session is deleted.
type Message struct {
	MessageID string      `json:"message_id"`
	SessionID string      `json:"session_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// Validate checks the record before it crosses the store boundary.
func (m *Message) Validate() error {
	if m.MessageID == "" {
		return fmt.Errorf("message: missing message_id")
	}
	if m.SessionID == "" {
		return fmt.Errorf("message: missing session_id")
	}
	if m.Role != MessageRoleUser && m.Role != MessageRoleAssistant {
		return fmt.Errorf("message: invalid role %q", m.Role)
	}
	return nil
}

// StoredMessage is the projection returned on transcript read-back:
// role and content only, ordered by timestamp.
type StoredMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}
