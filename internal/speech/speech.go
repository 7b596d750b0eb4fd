// Package speech provides the speech collaborator: text-to-speech for
// assistant replies and transcription of recorded audio.
package speech

import "context"

// Service synthesizes and transcribes speech.
type Service interface {
	// Synthesize renders the text as audio (MP3 bytes).
	Synthesize(ctx context.Context, text string) ([]byte, error)

	// Transcribe converts recorded audio (WAV bytes) into text.
	// An empty transcript is returned as "" with a nil error.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
