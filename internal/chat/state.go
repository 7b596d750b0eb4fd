package chat

import (
	"pepper/internal/domain"
	"pepper/internal/engine"
)

// UIMessage is one entry of the transcript shown to the user. Image entries
// carry the image URL as content and never reach the model history.
type UIMessage struct {
	Role    domain.MessageRole `json:"role"`
	Content string             `json:"content"`
	Type    domain.ContentType `json:"type"`
}

// State holds the two views of an ongoing conversation: the transcript shown
// to the user and the model-facing history. The history always starts with
// the system instruction. Text appends go to both views; images go to the
// transcript only.
type State struct {
	systemPrompt string
	ui           []UIMessage
	history      []engine.Turn
}

// NewState returns a state whose history is seeded with the system
// instruction.
func NewState(systemPrompt string) *State {
	return &State{
		systemPrompt: systemPrompt,
		history:      []engine.Turn{{Role: engine.RoleSystem, Content: systemPrompt}},
	}
}

// AppendUser records a user text message in both views.
func (s *State) AppendUser(text string) {
	s.ui = append(s.ui, UIMessage{Role: domain.MessageRoleUser, Content: text, Type: domain.ContentTypeText})
	s.history = append(s.history, engine.Turn{Role: engine.RoleUser, Content: text})
}

// AppendAssistant records an assistant text message in both views.
func (s *State) AppendAssistant(text string) {
	s.ui = append(s.ui, UIMessage{Role: domain.MessageRoleAssistant, Content: text, Type: domain.ContentTypeText})
	s.history = append(s.history, engine.Turn{Role: engine.RoleAssistant, Content: text})
}

// AppendAssistantImage records a generated image in the transcript. The
// model history is left untouched.
func (s *State) AppendAssistantImage(url string) {
	s.ui = append(s.ui, UIMessage{Role: domain.MessageRoleAssistant, Content: url, Type: domain.ContentTypeImage})
}

// LoadFromStore replaces the transcript with persisted messages. The model
// history is reset to the system instruction only; past turns are shown to
// the user but not replayed to the model.
func (s *State) LoadFromStore(msgs []*domain.StoredMessage) {
	ui := make([]UIMessage, 0, len(msgs))
	for _, m := range msgs {
		ui = append(ui, UIMessage{Role: m.Role, Content: m.Content, Type: domain.ContentTypeText})
	}
	s.ui = ui
	s.history = []engine.Turn{{Role: engine.RoleSystem, Content: s.systemPrompt}}
}

// Clear drops both views, keeping only the system instruction.
func (s *State) Clear() {
	s.ui = nil
	s.history = []engine.Turn{{Role: engine.RoleSystem, Content: s.systemPrompt}}
}

// UI returns a copy of the transcript.
func (s *State) UI() []UIMessage {
	out := make([]UIMessage, len(s.ui))
	copy(out, s.ui)
	return out
}

// History returns a copy of the model-facing history.
func (s *State) History() []engine.Turn {
	out := make([]engine.Turn, len(s.history))
	copy(out, s.history)
	return out
}
