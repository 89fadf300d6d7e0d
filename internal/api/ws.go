package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/aria-ai/aria/internal/orchestrator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The daemon binds to loopback; cross-origin browser clients are the
	// expected local frontend.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is an inbound client message.
type wsRequest struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// wsResponse is an outbound server message.
type wsResponse struct {
	Type   string `json:"type"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

// handleWebSocket upgrades the connection and serves a command loop for one
// user. The bearer token comes in the "token" query parameter since browser
// WebSocket clients cannot set headers.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	claims, err := s.auth.ParseToken(r.URL.Query().Get("token"))
	if err != nil || claims.UserID != userID {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	s.log.Info().Str("user", userID).Msg("websocket connected")

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Str("user", userID).Msg("websocket read failed")
			}
			return
		}

		resp := s.dispatchWS(r, userID, &req)
		if err := conn.WriteJSON(resp); err != nil {
			s.log.Warn().Err(err).Str("user", userID).Msg("websocket write failed")
			return
		}
	}
}

func (s *Server) dispatchWS(r *http.Request, userID string, req *wsRequest) *wsResponse {
	switch req.Type {
	case "ping":
		return &wsResponse{Type: "pong"}

	case "command":
		if req.Text == "" {
			return &wsResponse{Type: "error", Error: "text required"}
		}
		result, err := s.core.ProcessTextCommand(r.Context(), req.Text, userID, req.SessionID)
		if err != nil {
			if errors.Is(err, orchestrator.ErrNotConfigured) {
				return &wsResponse{Type: "error", Error: "no AI model configured"}
			}
			return &wsResponse{Type: "error", Error: "command failed"}
		}
		return &wsResponse{Type: "response", Result: result}

	default:
		return &wsResponse{Type: "error", Error: "unknown message type: " + req.Type}
	}
}
