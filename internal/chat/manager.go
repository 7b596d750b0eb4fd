// Package chat implements the conversation core: per-user session context,
// conversation state, turn orchestration and message persistence.
package chat

import (
	"sync"

	"github.com/google/uuid"
)

// Manager tracks one UserSession per logged-in user. Sessions for different
// users are fully independent.
type Manager struct {
	mu           sync.Mutex
	sessions     map[string]*UserSession
	systemPrompt string
	newID        func() string
}

// NewManager constructs a manager whose sessions use the given system
// instruction.
func NewManager(systemPrompt string) *Manager {
	return &Manager{
		sessions:     make(map[string]*UserSession),
		systemPrompt: systemPrompt,
		newID:        uuid.NewString,
	}
}

// Get returns the user's session context, creating and preparing one on
// first access.
func (m *Manager) Get(userID string) *UserSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	us, ok := m.sessions[userID]
	if !ok {
		us = NewUserSession(userID, m.systemPrompt)
		us.PrepareFresh(m.newID)
		m.sessions[userID] = us
	}
	return us
}

// Drop discards the user's session context. The next Get starts fresh, so
// a returning user never sees another user's conversation.
func (m *Manager) Drop(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
