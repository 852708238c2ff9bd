// Package llm defines the chat and embedding ports consumed by the classifier and the
// assistant, plus transport concerns shared by every backend: retries and tracing.
package llm

import (
	"context"
	"encoding/json"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type (
	// ToolCall is a function invocation requested by the model. Arguments hold a JSON object.
	ToolCall struct {
		ID        string
		Name      string
		Arguments json.RawMessage
	}

	// Message is one transcript entry. Tool results carry ToolName and ToolCallID of the
	// call they answer.
	Message struct {
		Role       Role
		Content    string
		ToolCalls  []ToolCall
		ToolName   string
		ToolCallID string
	}

	// Schema is the JSON-schema subset used to describe tool parameters.
	Schema struct {
		Type        string             `json:"type"`
		Description string             `json:"description,omitempty"`
		Properties  map[string]*Schema `json:"properties,omitempty"`
		Required    []string           `json:"required,omitempty"`
		Enum        []string           `json:"enum,omitempty"`
	}

	ToolSpec struct {
		Name        string
		Description string
		Parameters  *Schema
	}

	ChatRequest struct {
		System   string
		Messages []Message
		Tools    []ToolSpec
	}

	Usage struct {
		InputTokens  int
		OutputTokens int
	}

	ChatResponse struct {
		Message Message
		Model   string
		Usage   Usage
	}
)

// ChatModel completes a transcript, optionally requesting tool calls.
type ChatModel interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Model() string
}

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// UserMessage is a convenience constructor for a single user turn.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}
