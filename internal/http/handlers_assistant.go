package http

import (
	"fmt"
	"net/http"
	"strings"

	"expenseai/internal/core"
)

const maxChatMessage = 4000

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	msg := sanitizeInput(req.Message)
	if msg == "" {
		writeError(w, r, fmt.Errorf("%w: message is required", core.ErrInvalidArgument))
		return
	}
	if len(msg) > maxChatMessage {
		writeError(w, r, fmt.Errorf("%w: message exceeds %d bytes", core.ErrInvalidArgument, maxChatMessage))
		return
	}

	reply, err := s.chat.Chat(r.Context(), msg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := strings.TrimSpace(q.Get("month"))
	if raw == "" {
		writeError(w, r, fmt.Errorf("%w: month is required (yyyy-MM)", core.ErrInvalidArgument))
		return
	}
	month, err := core.ParseMonth(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	insight, err := s.insights.Analyze(r.Context(), month, q.Get("lang"), q.Get("currency"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insight)
}
