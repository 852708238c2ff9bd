package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"expenseai/internal/assistant"
	"expenseai/internal/core"
)

// Error codes returned in the error field of a failed response.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeLLMUnavailable   = "LLM_UNAVAILABLE"
	CodeToolLoopExceeded = "LLM_TOOL_LOOP_EXCEEDED"
	CodeInternal         = "INTERNAL_ERROR"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type errorMapping struct {
	status  int
	code    string
	message string // empty means err.Error() is safe to show
}

// classify maps a service error onto the HTTP taxonomy. Unknown errors get a generic
// message so internal detail does not leak.
func classify(err error) errorMapping {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return errorMapping{status: http.StatusNotFound, code: CodeNotFound}
	case errors.Is(err, core.ErrInvalidArgument):
		return errorMapping{status: http.StatusBadRequest, code: CodeInvalidArgument}
	case errors.Is(err, core.ErrClassifierUnavailable):
		return errorMapping{status: http.StatusServiceUnavailable, code: CodeLLMUnavailable, message: "Embedding service is unreachable"}
	case errors.Is(err, core.ErrModelUnavailable):
		return errorMapping{status: http.StatusServiceUnavailable, code: CodeLLMUnavailable, message: "Chat model service is unreachable"}
	case errors.Is(err, assistant.ErrToolLoopExceeded):
		return errorMapping{status: http.StatusBadGateway, code: CodeToolLoopExceeded, message: "The assistant did not reach an answer"}
	default:
		return errorMapping{status: http.StatusInternalServerError, code: CodeInternal, message: "Unexpected server error"}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	m := classify(err)
	msg := m.message
	if msg == "" {
		msg = err.Error()
	}

	if m.status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"code", m.code,
			"error", err)
	} else {
		slog.DebugContext(r.Context(), "Request rejected",
			"path", r.URL.Path,
			"code", m.code,
			"error", err)
	}
	writeErrorCode(w, m.status, m.code, msg)
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
