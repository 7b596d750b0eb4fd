package chat

import (
	"sync"

	"pepper/internal/domain"
)

// UserSession is the per-user conversation context: the active session
// identifier and its lifecycle phase, the conversation state, the TTS
// preference and any staged audio. All fields are guarded by mu; a whole
// chat turn runs under one acquisition so concurrent requests from the same
// user serialize.
type UserSession struct {
	mu sync.Mutex

	userID       string
	sessionID    string
	phase        domain.Phase
	state        *State
	ttsEnabled   bool
	pendingAudio []byte
}

// NewUserSession returns a context in PhaseNone. Callers prepare a session
// identifier before the first turn.
func NewUserSession(userID, systemPrompt string) *UserSession {
	return &UserSession{
		userID: userID,
		state:  NewState(systemPrompt),
	}
}

// UserID returns the owning user's identifier.
func (s *UserSession) UserID() string { return s.userID }

// PrepareFresh generates a session identifier without writing anything.
// No-op unless the phase is PhaseNone.
func (s *UserSession) PrepareFresh(newID func() string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prepareFreshLocked(newID)
}

func (s *UserSession) prepareFreshLocked(newID func() string) {
	if s.phase != domain.PhaseNone {
		return
	}
	s.sessionID = newID()
	s.phase = domain.PhasePrepared
}

// resetLocked starts a fresh prepared session and clears the conversation.
// Safe to call in any phase; calling it twice in a row yields the same
// observable state apart from the identifier.
func (s *UserSession) resetLocked(newID func() string) {
	s.sessionID = newID()
	s.phase = domain.PhasePrepared
	s.state.Clear()
	s.pendingAudio = nil
}

// SessionID returns the active session identifier, which may refer to a
// session that does not exist in the store yet.
func (s *UserSession) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Phase returns the current lifecycle phase.
func (s *UserSession) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Transcript returns a copy of the user-facing transcript.
func (s *UserSession) Transcript() []UIMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UI()
}

// TTSEnabled reports whether replies are synthesized to speech.
func (s *UserSession) TTSEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttsEnabled
}

// SetTTS toggles speech synthesis for subsequent turns.
func (s *UserSession) SetTTS(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttsEnabled = enabled
}

// ConsumeAudio returns staged audio and clears it. Audio is staged once per
// turn and delivered at most once.
func (s *UserSession) ConsumeAudio() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingAudio == nil {
		return nil, false
	}
	audio := s.pendingAudio
	s.pendingAudio = nil
	return audio, true
}
