// Package ollama talks to a local Ollama server over its JSON HTTP API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"expenseai/internal/llm"
)

const backendName = "ollama"

type Client struct {
	baseURL    string
	chatModel  string
	embedModel string
	httpClient *http.Client
}

var (
	_ llm.ChatModel = (*Client)(nil)
	_ llm.Embedder  = (*Client)(nil)
)

func NewClient(baseURL, chatModel, embedModel string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		chatModel:  chatModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Model() string { return c.chatModel }

type (
	chatMessage struct {
		Role      string         `json:"role"`
		Content   string         `json:"content"`
		ToolCalls []toolCallWire `json:"tool_calls,omitempty"`
		ToolName  string         `json:"tool_name,omitempty"`
	}

	toolCallWire struct {
		Function struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		} `json:"function"`
	}

	toolWire struct {
		Type     string `json:"type"`
		Function struct {
			Name        string      `json:"name"`
			Description string      `json:"description"`
			Parameters  *llm.Schema `json:"parameters"`
		} `json:"function"`
	}

	chatRequest struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
		Tools    []toolWire    `json:"tools,omitempty"`
		Stream   bool          `json:"stream"`
	}

	chatResponse struct {
		Model           string      `json:"model"`
		Message         chatMessage `json:"message"`
		PromptEvalCount int         `json:"prompt_eval_count"`
		EvalCount       int         `json:"eval_count"`
	}

	embedRequest struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}

	embedResponse struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
)

// Complete sends the transcript to /api/chat without streaming.
func (c *Client) Complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	body := chatRequest{
		Model:    c.chatModel,
		Messages: toWireMessages(req.System, req.Messages),
		Tools:    toWireTools(req.Tools),
	}

	var resp chatResponse
	if err := c.post(ctx, "chat", "/api/chat", body, &resp); err != nil {
		return nil, err
	}

	msg := llm.Message{Role: llm.RoleAssistant, Content: resp.Message.Content}
	for i, tc := range resp.Message.ToolCalls {
		args := tc.Function.Arguments
		if len(args) == 0 || string(args) == "null" {
			args = json.RawMessage("{}")
		}
		msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
			// Ollama does not number tool calls; position is enough to pair results
			ID:        fmt.Sprintf("call_%d", i),
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	model := resp.Model
	if model == "" {
		model = c.chatModel
	}
	return &llm.ChatResponse{
		Message: msg,
		Model:   model,
		Usage:   llm.Usage{InputTokens: resp.PromptEvalCount, OutputTokens: resp.EvalCount},
	}, nil
}

// Embed batches every text into a single /api/embed call.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var resp embedResponse
	if err := c.post(ctx, "embed", "/api/embed", embedRequest{Model: c.embedModel, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &llm.Error{
			Op:      "embed",
			Backend: backendName,
			Cause:   fmt.Errorf("%w: got %d vectors for %d inputs", llm.ErrEmptyResponse, len(resp.Embeddings), len(texts)),
		}
	}
	return resp.Embeddings, nil
}

func (c *Client) post(ctx context.Context, op, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return llm.TransportError(backendName, op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.TransportError(backendName, op, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return llm.StatusError(backendName, op, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &llm.Error{Op: op, Backend: backendName, Cause: fmt.Errorf("parse response: %w", err)}
	}
	return nil
}

func toWireMessages(system string, msgs []llm.Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, chatMessage{Role: "system", Content: system})
	}
	for _, m := range msgs {
		wm := chatMessage{Role: string(m.Role), Content: m.Content, ToolName: m.ToolName}
		for _, tc := range m.ToolCalls {
			var w toolCallWire
			w.Function.Name = tc.Name
			w.Function.Arguments = tc.Arguments
			wm.ToolCalls = append(wm.ToolCalls, w)
		}
		out = append(out, wm)
	}
	return out
}

func toWireTools(specs []llm.ToolSpec) []toolWire {
	if len(specs) == 0 {
		return nil
	}
	out := make([]toolWire, 0, len(specs))
	for _, s := range specs {
		var w toolWire
		w.Type = "function"
		w.Function.Name = s.Name
		w.Function.Description = s.Description
		w.Function.Parameters = s.Parameters
		if w.Function.Parameters == nil {
			w.Function.Parameters = &llm.Schema{Type: "object"}
		}
		out = append(out, w)
	}
	return out
}
