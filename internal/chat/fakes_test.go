package chat

import (
	"context"
	"errors"
	"sync"

	"pepper/internal/domain"
	"pepper/internal/engine"
	"pepper/internal/store"
)

// fakeRepo implements store.Repository in memory with failure injection.
type fakeRepo struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	sessions map[string]*domain.Session
	messages []*domain.Message

	failCreateSession int // fail the next N session inserts
	failBatch         bool
	failRole          domain.MessageRole // individual inserts for this role fail
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    make(map[string]*domain.User),
		sessions: make(map[string]*domain.Session),
	}
}

var _ store.Repository = (*fakeRepo)(nil)

func (f *fakeRepo) CreateUser(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return store.ErrDuplicateEmail
		}
	}
	cp := *user
	f.users[user.UserID] = &cp
	return nil
}

func (f *fakeRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.users[userID]
	if user == nil {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListChildren(_ context.Context) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.User
	for _, u := range f.users {
		if u.IsChild() {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateSession(_ context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateSession > 0 {
		f.failCreateSession--
		return errors.New("injected session insert failure")
	}
	cp := *session
	f.sessions[session.SessionID] = &cp
	return nil
}

func (f *fakeRepo) GetSession(_ context.Context, sessionID string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session := f.sessions[sessionID]
	if session == nil {
		return nil, nil
	}
	cp := *session
	return &cp, nil
}

func (f *fakeRepo) ListUserSessions(_ context.Context, userID string, limit int) ([]*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) DeleteSession(_ context.Context, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(f.sessions, sessionID)
	return true, nil
}

func (f *fakeRepo) InsertMessage(_ context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRole != "" && msg.Role == f.failRole {
		return errors.New("injected message insert failure")
	}
	cp := *msg
	f.messages = append(f.messages, &cp)
	return nil
}

func (f *fakeRepo) InsertMessages(_ context.Context, msgs []*domain.Message) error {
	f.mu.Lock()
	if f.failBatch {
		f.mu.Unlock()
		return errors.New("injected batch insert failure")
	}
	f.mu.Unlock()
	for _, m := range msgs {
		if err := f.InsertMessage(context.Background(), m); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRepo) ListSessionMessages(_ context.Context, sessionID string) ([]*domain.StoredMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.StoredMessage
	for _, m := range f.sessionMessagesLocked(sessionID) {
		out = append(out, &domain.StoredMessage{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

// sessionMessagesLocked returns the session's messages in timestamp order.
func (f *fakeRepo) sessionMessagesLocked(sessionID string) []*domain.Message {
	var out []*domain.Message
	for _, m := range f.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Timestamp.Before(out[j-1].Timestamp); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (f *fakeRepo) DeleteSessionMessages(_ context.Context, sessionID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*domain.Message
	var deleted int64
	for _, m := range f.messages {
		if m.SessionID == sessionID {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	f.messages = kept
	return deleted, nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return nil }
func (f *fakeRepo) Close() error                 { return nil }

func (f *fakeRepo) messageCount(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessionMessagesLocked(sessionID))
}

// fakeEngine returns scripted replies and records the history it saw.
type fakeEngine struct {
	mu        sync.Mutex
	replies   []*engine.Reply
	err       error
	imageURL  string
	imageErr  error
	histories [][]engine.Turn
}

var _ engine.Engine = (*fakeEngine)(nil)

func (f *fakeEngine) Respond(_ context.Context, history []engine.Turn, _ string) (*engine.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]engine.Turn, len(history))
	copy(cp, history)
	f.histories = append(f.histories, cp)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return &engine.Reply{Text: "ok"}, nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeEngine) GenerateImage(_ context.Context, _ string) (string, error) {
	if f.imageErr != nil {
		return "", f.imageErr
	}
	return f.imageURL, nil
}

// fakeSpeech returns canned audio and transcripts.
type fakeSpeech struct {
	audio          []byte
	synthErr       error
	transcript     string
	transcribeErr  error
	synthesized    int
	transcriptions int
}

func (f *fakeSpeech) Synthesize(_ context.Context, _ string) ([]byte, error) {
	f.synthesized++
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	return f.audio, nil
}

func (f *fakeSpeech) Transcribe(_ context.Context, _ []byte) (string, error) {
	f.transcriptions++
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return f.transcript, nil
}
