package chat

import (
	"context"
	"errors"
	"testing"

	"pepper/internal/domain"
	"pepper/internal/engine"
)

func newTestOrchestrator(repo *fakeRepo, eng *fakeEngine, spc *fakeSpeech) (*Orchestrator, *Ledger) {
	ledger := NewLedger(repo, 50, nil)
	persist := NewPersistence(repo, nil)
	return NewOrchestrator(ledger, persist, eng, spc, nil), ledger
}

func preparedSession(ledger *Ledger, userID string) *UserSession {
	us := NewUserSession(userID, "prompt")
	us.PrepareFresh(ledger.NewID)
	return us
}

func TestHandleTurnMaterializesAndSaves(t *testing.T) {
	repo := newFakeRepo()
	eng := &fakeEngine{replies: []*engine.Reply{{Text: "¡hola!"}}}
	o, ledger := newTestOrchestrator(repo, eng, &fakeSpeech{})
	us := preparedSession(ledger, "child-1")

	result, err := o.HandleTurn(context.Background(), us, "hola")
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if result.AssistantText != "¡hola!" {
		t.Errorf("Unexpected reply %q", result.AssistantText)
	}
	if us.Phase() != domain.PhaseMaterialized {
		t.Errorf("First turn must materialize the session, phase is %v", us.Phase())
	}
	if repo.messageCount(us.SessionID()) != 2 {
		t.Errorf("Expected 2 persisted rows, got %d", repo.messageCount(us.SessionID()))
	}

	transcript := us.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("Expected 2 transcript entries, got %d", len(transcript))
	}

	// The engine must not have seen the current input inside the history.
	if len(eng.histories) != 1 {
		t.Fatalf("Expected 1 engine call, got %d", len(eng.histories))
	}
	history := eng.histories[0]
	if len(history) != 1 || history[0].Role != engine.RoleSystem {
		t.Errorf("First-turn history should hold only the system turn, got %+v", history)
	}
}

func TestHandleTurnRejectsEmptyInput(t *testing.T) {
	repo := newFakeRepo()
	o, ledger := newTestOrchestrator(repo, &fakeEngine{}, &fakeSpeech{})
	us := preparedSession(ledger, "child-1")

	if _, err := o.HandleTurn(context.Background(), us, "   \n\t"); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Expected ErrEmptyInput, got %v", err)
	}
	if us.Phase() != domain.PhasePrepared {
		t.Error("An empty turn must not materialize the session")
	}
	if len(us.Transcript()) != 0 {
		t.Error("An empty turn must not touch the transcript")
	}
}

func TestHandleTurnEngineFailureKeepsUserMessage(t *testing.T) {
	repo := newFakeRepo()
	eng := &fakeEngine{err: errors.New("model unavailable")}
	o, ledger := newTestOrchestrator(repo, eng, &fakeSpeech{})
	us := preparedSession(ledger, "child-1")

	if _, err := o.HandleTurn(context.Background(), us, "hola"); err == nil {
		t.Fatal("Expected an error when the engine fails")
	}

	transcript := us.Transcript()
	if len(transcript) != 1 || transcript[0].Role != domain.MessageRoleUser {
		t.Errorf("The user message must remain in the transcript, got %+v", transcript)
	}
	if repo.messageCount(us.SessionID()) != 0 {
		t.Error("An abandoned turn must not be persisted")
	}
}

func TestHandleTurnGeneratesImage(t *testing.T) {
	repo := newFakeRepo()
	eng := &fakeEngine{
		replies:  []*engine.Reply{{Text: "¡claro!", ImagePrompt: "un gato con sombrero"}},
		imageURL: "https://img.example/cat.png",
	}
	o, ledger := newTestOrchestrator(repo, eng, &fakeSpeech{})
	us := preparedSession(ledger, "child-1")

	result, err := o.HandleTurn(context.Background(), us, "dibuja un gato con sombrero")
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if result.ImageURL != "https://img.example/cat.png" {
		t.Errorf("Unexpected image URL %q", result.ImageURL)
	}

	transcript := us.Transcript()
	if len(transcript) != 3 || transcript[2].Type != domain.ContentTypeImage {
		t.Errorf("Transcript should end with an image entry, got %+v", transcript)
	}
	// Image entries are never persisted.
	if repo.messageCount(us.SessionID()) != 2 {
		t.Errorf("Expected only the text rows persisted, got %d", repo.messageCount(us.SessionID()))
	}
}

func TestHandleTurnImageFailureIsANotice(t *testing.T) {
	repo := newFakeRepo()
	eng := &fakeEngine{
		replies:  []*engine.Reply{{Text: "¡claro!", ImagePrompt: "un gato"}},
		imageErr: errors.New("image service down"),
	}
	o, ledger := newTestOrchestrator(repo, eng, &fakeSpeech{})
	us := preparedSession(ledger, "child-1")

	result, err := o.HandleTurn(context.Background(), us, "dibuja un gato por favor")
	if err != nil {
		t.Fatalf("turn must not fail on image errors: %v", err)
	}
	if result.ImageURL != "" {
		t.Error("No image URL expected on failure")
	}
	if len(result.Notices) == 0 {
		t.Error("Expected a degraded-mode notice")
	}
	if repo.messageCount(us.SessionID()) != 2 {
		t.Error("The text exchange must still be persisted")
	}
}

func TestHandleTurnSaveFailureIsANotice(t *testing.T) {
	repo := newFakeRepo()
	repo.failBatch = true
	repo.failRole = domain.MessageRoleUser
	eng := &fakeEngine{replies: []*engine.Reply{{Text: "hola!"}}}
	o, ledger := newTestOrchestrator(repo, eng, &fakeSpeech{})
	us := preparedSession(ledger, "child-1")

	result, err := o.HandleTurn(context.Background(), us, "hola")
	if err != nil {
		t.Fatalf("turn must not fail on save errors: %v", err)
	}
	if len(result.Notices) == 0 {
		t.Error("Expected a notice about the partial save")
	}
	if len(us.Transcript()) != 2 {
		t.Error("The transcript must not be rolled back")
	}
}

func TestHandleTurnStagesAudioWhenTTSEnabled(t *testing.T) {
	repo := newFakeRepo()
	eng := &fakeEngine{replies: []*engine.Reply{{Text: "hola!"}}}
	spc := &fakeSpeech{audio: []byte("mp3-bytes")}
	o, ledger := newTestOrchestrator(repo, eng, spc)
	us := preparedSession(ledger, "child-1")
	us.SetTTS(true)

	result, err := o.HandleTurn(context.Background(), us, "hola")
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if !result.AudioStaged {
		t.Fatal("Expected staged audio")
	}

	audio, ok := us.ConsumeAudio()
	if !ok || string(audio) != "mp3-bytes" {
		t.Errorf("Expected staged audio to be delivered, got %q/%v", audio, ok)
	}
	if _, ok := us.ConsumeAudio(); ok {
		t.Error("Audio must be delivered at most once")
	}
}

func TestHandleTurnNoAudioWhenTTSDisabled(t *testing.T) {
	repo := newFakeRepo()
	spc := &fakeSpeech{audio: []byte("mp3-bytes")}
	o, ledger := newTestOrchestrator(repo, &fakeEngine{}, spc)
	us := preparedSession(ledger, "child-1")

	result, err := o.HandleTurn(context.Background(), us, "hola")
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if result.AudioStaged || spc.synthesized != 0 {
		t.Error("Speech must not be synthesized when TTS is off")
	}
}

func TestHandleAudioTurn(t *testing.T) {
	repo := newFakeRepo()
	eng := &fakeEngine{replies: []*engine.Reply{{Text: "hola!"}}}
	spc := &fakeSpeech{transcript: "hola pepper"}
	o, ledger := newTestOrchestrator(repo, eng, spc)
	us := preparedSession(ledger, "child-1")

	transcript, result, err := o.HandleAudioTurn(context.Background(), us, []byte("wav"))
	if err != nil {
		t.Fatalf("audio turn failed: %v", err)
	}
	if transcript != "hola pepper" {
		t.Errorf("Unexpected transcript %q", transcript)
	}
	if result.AssistantText != "hola!" {
		t.Errorf("Unexpected reply %q", result.AssistantText)
	}
}

func TestHandleAudioTurnEmptyTranscript(t *testing.T) {
	repo := newFakeRepo()
	spc := &fakeSpeech{transcript: "  "}
	o, ledger := newTestOrchestrator(repo, &fakeEngine{}, spc)
	us := preparedSession(ledger, "child-1")

	if _, _, err := o.HandleAudioTurn(context.Background(), us, []byte("wav")); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Expected ErrEmptyInput for a silent recording, got %v", err)
	}
}

func TestFollowUpTurnCarriesHistory(t *testing.T) {
	repo := newFakeRepo()
	eng := &fakeEngine{replies: []*engine.Reply{{Text: "uno"}, {Text: "dos"}}}
	o, ledger := newTestOrchestrator(repo, eng, &fakeSpeech{})
	us := preparedSession(ledger, "child-1")

	if _, err := o.HandleTurn(context.Background(), us, "primera"); err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	if _, err := o.HandleTurn(context.Background(), us, "segunda"); err != nil {
		t.Fatalf("second turn failed: %v", err)
	}

	if len(eng.histories) != 2 {
		t.Fatalf("Expected 2 engine calls, got %d", len(eng.histories))
	}
	second := eng.histories[1]
	if len(second) != 3 {
		t.Fatalf("Second call should see system + first exchange, got %d turns", len(second))
	}
	if second[1].Content != "primera" || second[2].Content != "uno" {
		t.Errorf("History content wrong: %+v", second)
	}
	if repo.messageCount(us.SessionID()) != 4 {
		t.Errorf("Expected 4 persisted rows after two turns, got %d", repo.messageCount(us.SessionID()))
	}
}
