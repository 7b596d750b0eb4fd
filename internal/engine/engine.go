// Package engine provides the conversation engine collaborator: the
// language-model call that turns a child's message into an assistant reply,
// plus optional image generation.
package engine

import "context"

// Turn roles in the model-facing history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one entry of the model-facing history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the engine's answer to one user turn. ImagePrompt is non-empty
// when the trigger detection decided an image should be generated.
type Reply struct {
	Text        string
	ImagePrompt string
}

// Engine generates assistant replies and images.
type Engine interface {
	// Respond produces the assistant reply for the given history and
	// user input. The history already starts with the system instruction
	// and does not yet include input.
	Respond(ctx context.Context, history []Turn, input string) (*Reply, error)

	// GenerateImage renders the prompt and returns the image URL.
	GenerateImage(ctx context.Context, prompt string) (string, error)
}
