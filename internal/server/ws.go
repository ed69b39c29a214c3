package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/raphaelgruber/converse-go/internal/chat"
	"github.com/raphaelgruber/converse-go/internal/models"
)

// wsEvent is one frame of the streaming protocol: token frames carry
// response chunks as they arrive, a single done frame carries the full
// response, and an error frame ends the exchange.
type wsEvent struct {
	Type    string `json:"type"` // "token" | "done" | "error"
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleMessageWS answers one message over a websocket, streaming model
// tokens as they are produced. The connection handles a single exchange;
// clients reconnect per message.
func (s *Server) handleMessageWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var req messageRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(wsEvent{Type: "error", Error: "invalid request payload"})
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Message) == "" {
		_ = conn.WriteJSON(wsEvent{Type: "error", Error: "username and message are required"})
		return
	}

	response, err := s.responder.RespondStream(r.Context(), req.Username, req.Message,
		models.ParseRole(req.Role),
		func(token string) error {
			return conn.WriteJSON(wsEvent{Type: "token", Content: token})
		},
	)
	if err != nil {
		if errors.Is(err, chat.ErrModelInvocation) {
			_ = conn.WriteJSON(wsEvent{Type: "error", Error: "model invocation failed"})
		} else {
			s.logger.Error("websocket request failed", "owner", req.Username, "error", err)
			_ = conn.WriteJSON(wsEvent{Type: "error", Error: "internal error"})
		}
		return
	}

	_ = conn.WriteJSON(wsEvent{Type: "done", Content: response})
}
