package assistant

import (
	"context"
	"encoding/json"
	"sync"

	"expenseai/internal/llm"
)

// scriptedModel replays canned responses and records every request it receives.
type scriptedModel struct {
	mu        sync.Mutex
	responses []*llm.ChatResponse
	errs      []error
	requests  []llm.ChatRequest
}

func (m *scriptedModel) Model() string { return "scripted" }

func (m *scriptedModel) Complete(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	m.requests = append(m.requests, cp)

	i := len(m.requests) - 1
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.responses) {
		return m.responses[len(m.responses)-1], nil
	}
	return m.responses[i], nil
}

func text(s string) *llm.ChatResponse {
	return &llm.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, Content: s}, Model: "scripted"}
}

func toolCalls(calls ...llm.ToolCall) *llm.ChatResponse {
	return &llm.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, ToolCalls: calls}, Model: "scripted"}
}

func callOf(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}
