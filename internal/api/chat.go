package api

import (
	"errors"
	"io"
	"net/http"

	"pepper/internal/auth"
	"pepper/internal/chat"
)

const maxAudioUpload = 10 << 20 // 10 MiB

// SendMessage handles POST /api/chat: one text turn.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	us := h.manager.Get(auth.UserIDFromContext(r.Context()))
	result, err := h.orchestrator.HandleTurn(r.Context(), us, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyInput) {
			Error(w, http.StatusBadRequest, "message is empty")
			return
		}
		h.logger.Error("turn failed", "user_id", us.UserID(), "error", err)
		Error(w, http.StatusBadGateway, "could not generate a reply")
		return
	}

	JSON(w, http.StatusOK, result)
}

// SendAudio handles POST /api/chat/audio: a recorded turn. The body is raw
// audio bytes; the transcript is echoed back with the result.
func (h *Handler) SendAudio(w http.ResponseWriter, r *http.Request) {
	audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAudioUpload))
	if err != nil {
		Error(w, http.StatusBadRequest, "could not read audio")
		return
	}
	if len(audio) == 0 {
		Error(w, http.StatusBadRequest, "audio is empty")
		return
	}

	us := h.manager.Get(auth.UserIDFromContext(r.Context()))
	transcript, result, err := h.orchestrator.HandleAudioTurn(r.Context(), us, audio)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyInput) {
			Error(w, http.StatusBadRequest, "nothing was heard in the recording")
			return
		}
		h.logger.Error("audio turn failed", "user_id", us.UserID(), "error", err)
		Error(w, http.StatusBadGateway, "could not process the recording")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"transcript": transcript,
		"result":     result,
	})
}

// FetchAudio handles GET /api/chat/audio: delivers staged speech audio once.
// Responds 204 when no audio is staged.
func (h *Handler) FetchAudio(w http.ResponseWriter, r *http.Request) {
	us := h.manager.Get(auth.UserIDFromContext(r.Context()))
	audio, ok := us.ConsumeAudio()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		h.logger.Debug("failed to write audio response", "error", err)
	}
}

// Transcript handles GET /api/chat/transcript: the current conversation as
// shown to the user, images included.
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	us := h.manager.Get(auth.UserIDFromContext(r.Context()))
	JSON(w, http.StatusOK, map[string]any{
		"session_id": us.SessionID(),
		"phase":      us.Phase().String(),
		"messages":   us.Transcript(),
	})
}

// SetTTS handles PUT /api/settings/tts.
func (h *Handler) SetTTS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	us := h.manager.Get(auth.UserIDFromContext(r.Context()))
	us.SetTTS(req.Enabled)
	JSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}
