package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"pepper/internal/engine"
	"pepper/internal/speech"
)

// TurnResult is the outcome of one chat turn. Notices carry degraded-mode
// messages (image, save or speech failures) that did not abort the turn.
type TurnResult struct {
	AssistantText string   `json:"assistant_text"`
	ImageURL      string   `json:"image_url,omitempty"`
	AudioStaged   bool     `json:"audio_staged"`
	Notices       []string `json:"notices,omitempty"`
}

// Orchestrator runs chat turns: materialize the session, call the engine,
// update conversation state, persist the exchange and stage speech. The
// whole turn runs under the session lock.
type Orchestrator struct {
	ledger  *Ledger
	persist *Persistence
	engine  engine.Engine
	speech  speech.Service
	logger  *slog.Logger
}

// NewOrchestrator wires the turn pipeline.
func NewOrchestrator(ledger *Ledger, persist *Persistence, eng engine.Engine, spc speech.Service, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		ledger:  ledger,
		persist: persist,
		engine:  eng,
		speech:  spc,
		logger:  logger.With("module", "orchestrator"),
	}
}

// HandleTurn processes one user text message.
//
// An engine failure aborts the turn; the user message stays in the
// transcript and nothing is persisted. Image generation, persistence and
// speech synthesis failures degrade to notices.
func (o *Orchestrator) HandleTurn(ctx context.Context, us *UserSession, input string) (*TurnResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	us.mu.Lock()
	defer us.mu.Unlock()

	sessionID, err := o.ledger.materializeLocked(ctx, us)
	if err != nil {
		return nil, err
	}

	history := us.state.History()
	us.state.AppendUser(input)

	reply, err := o.engine.Respond(ctx, history, input)
	if err != nil {
		o.logger.Error("engine failed, turn abandoned",
			"user_id", us.userID, "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("generate reply: %w", err)
	}
	us.state.AppendAssistant(reply.Text)

	result := &TurnResult{AssistantText: reply.Text}

	if reply.ImagePrompt != "" {
		url, err := o.engine.GenerateImage(ctx, reply.ImagePrompt)
		if err != nil {
			o.logger.Warn("image generation failed",
				"user_id", us.userID, "session_id", sessionID, "error", err)
			result.Notices = append(result.Notices, "No pude crear el dibujo esta vez.")
		} else {
			us.state.AppendAssistantImage(url)
			result.ImageURL = url
		}
	}

	if err := o.persist.SaveTurn(ctx, sessionID, input, reply.Text); err != nil {
		o.logger.Error("turn not fully saved",
			"user_id", us.userID, "session_id", sessionID, "error", err)
		result.Notices = append(result.Notices, "No se pudo guardar parte de la conversación.")
	}

	if us.ttsEnabled {
		audio, err := o.speech.Synthesize(ctx, reply.Text)
		if err != nil {
			o.logger.Warn("speech synthesis failed",
				"user_id", us.userID, "session_id", sessionID, "error", err)
			result.Notices = append(result.Notices, "No pude leer la respuesta en voz alta.")
		} else {
			us.pendingAudio = audio
			result.AudioStaged = true
		}
	}

	return result, nil
}

// HandleAudioTurn transcribes a recording and runs the resulting text as a
// turn. The transcript is returned so clients can echo what was heard.
func (o *Orchestrator) HandleAudioTurn(ctx context.Context, us *UserSession, audio []byte) (string, *TurnResult, error) {
	text, err := o.speech.Transcribe(ctx, audio)
	if err != nil {
		return "", nil, fmt.Errorf("transcribe audio: %w", err)
	}
	result, err := o.HandleTurn(ctx, us, text)
	if err != nil {
		return text, nil, err
	}
	return text, result, nil
}
