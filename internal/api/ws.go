package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"pepper/internal/auth"
	"pepper/internal/chat"
)

// wsRequest is one client frame: a text turn or a base64-encoded recording.
type wsRequest struct {
	Type    string `json:"type"` // "message" or "audio"
	Content string `json:"content"`
}

// wsResponse is one server frame. Audio is base64 MP3 when speech was
// staged for the turn.
type wsResponse struct {
	Type       string           `json:"type"` // "reply" or "error"
	Transcript string           `json:"transcript,omitempty"`
	Result     *chat.TurnResult `json:"result,omitempty"`
	Audio      string           `json:"audio,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// ChatSocket handles GET /ws/chat. Frames are processed one at a time, so a
// client cannot interleave turns on a single connection.
func (h *Handler) ChatSocket(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	h.logger.Info("websocket connection", "user_id", userID, "ip", r.RemoteAddr)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("failed to accept websocket", "user_id", userID, "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			h.logger.Debug("failed to close websocket", "user_id", userID, "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	us := h.manager.Get(userID)

	for {
		var req wsRequest
		if err := wsjson.Read(ctx, ws, &req); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				return
			}
			h.logger.Debug("websocket read failed", "user_id", userID, "error", err)
			return
		}

		resp := h.handleSocketTurn(ctx, us, req)
		if err := wsjson.Write(ctx, ws, resp); err != nil {
			h.logger.Debug("websocket write failed", "user_id", userID, "error", err)
			return
		}
	}
}

func (h *Handler) handleSocketTurn(ctx context.Context, us *chat.UserSession, req wsRequest) wsResponse {
	var (
		transcript string
		result     *chat.TurnResult
		err        error
	)

	switch req.Type {
	case "message":
		result, err = h.orchestrator.HandleTurn(ctx, us, req.Content)
	case "audio":
		var audio []byte
		audio, err = base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			return wsResponse{Type: "error", Error: "invalid audio encoding"}
		}
		transcript, result, err = h.orchestrator.HandleAudioTurn(ctx, us, audio)
	default:
		return wsResponse{Type: "error", Error: "unknown frame type"}
	}

	if err != nil {
		if errors.Is(err, chat.ErrEmptyInput) {
			return wsResponse{Type: "error", Error: "message is empty"}
		}
		h.logger.Error("websocket turn failed", "user_id", us.UserID(), "error", err)
		return wsResponse{Type: "error", Error: "could not generate a reply"}
	}

	resp := wsResponse{Type: "reply", Transcript: transcript, Result: result}
	if result.AudioStaged {
		if audio, ok := us.ConsumeAudio(); ok {
			resp.Audio = base64.StdEncoding.EncodeToString(audio)
		}
	}
	return resp
}
