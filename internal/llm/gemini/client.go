// Package gemini adapts the Google Generative AI SDK to the llm ports.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"expenseai/internal/llm"
)

const backendName = "gemini"

type Client struct {
	client     *genai.Client
	chatModel  string
	embedModel string
}

var (
	_ llm.ChatModel = (*Client)(nil)
	_ llm.Embedder  = (*Client)(nil)
)

func NewClient(ctx context.Context, apiKey, chatModel, embedModel string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client, chatModel: chatModel, embedModel: embedModel}, nil
}

func (c *Client) Model() string { return c.chatModel }

func (c *Client) Close() error {
	return c.client.Close()
}

// Complete replays the transcript as chat history and sends the final entry.
func (c *Client) Complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	contents, err := toContents(req.Messages)
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, &llm.Error{Op: "chat", Backend: backendName, Cause: errors.New("empty transcript")}
	}

	model := c.client.GenerativeModel(c.chatModel)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if len(req.Tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: toDeclarations(req.Tools)}}
	}

	cs := model.StartChat()
	cs.History = contents[:len(contents)-1]
	last := contents[len(contents)-1]

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, classify("chat", err)
	}
	return fromResponse(c.chatModel, resp)
}

// Embed sends every text in one batch request.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	em := c.client.EmbeddingModel(c.embedModel)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, classify("embed", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, &llm.Error{
			Op:      "embed",
			Backend: backendName,
			Cause:   fmt.Errorf("%w: got %d vectors for %d inputs", llm.ErrEmptyResponse, len(res.Embeddings), len(texts)),
		}
	}

	out := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

func classify(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return llm.StatusError(backendName, op, apiErr.Code, apiErr.Message)
	}
	return llm.TransportError(backendName, op, err)
}

// toContents maps the transcript to Gemini roles. Consecutive tool results are merged
// into one user turn, which is how the API expects parallel function responses.
func toContents(msgs []llm.Message) ([]*genai.Content, error) {
	var out []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleUser:
			out = append(out, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		case llm.RoleAssistant:
			content := &genai.Content{Role: "model"}
			if m.Content != "" {
				content.Parts = append(content.Parts, genai.Text(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &args); err != nil {
						return nil, fmt.Errorf("decode arguments of %s: %w", tc.Name, err)
					}
				}
				content.Parts = append(content.Parts, genai.FunctionCall{Name: tc.Name, Args: args})
			}
			out = append(out, content)
		case llm.RoleTool:
			part := genai.FunctionResponse{Name: m.ToolName, Response: toolResponse(m.Content)}
			if n := len(out); n > 0 && out[n-1].Role == "user" && isFunctionResponse(out[n-1]) {
				out[n-1].Parts = append(out[n-1].Parts, part)
				continue
			}
			out = append(out, &genai.Content{Role: "user", Parts: []genai.Part{part}})
		default:
			return nil, fmt.Errorf("unsupported role %q", m.Role)
		}
	}
	return out, nil
}

func isFunctionResponse(c *genai.Content) bool {
	if len(c.Parts) == 0 {
		return false
	}
	_, ok := c.Parts[0].(genai.FunctionResponse)
	return ok
}

// toolResponse turns a JSON tool result into the object Gemini requires.
func toolResponse(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
		return obj
	}
	var v any
	if err := json.Unmarshal([]byte(content), &v); err == nil {
		return map[string]any{"result": v}
	}
	return map[string]any{"result": content}
}

func toDeclarations(specs []llm.ToolSpec) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, s := range specs {
		out = append(out, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  toSchema(s.Parameters),
		})
	}
	return out
}

func toSchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        schemaType(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toSchema(p)
		}
	}
	return out
}

func schemaType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}

func fromResponse(model string, resp *genai.GenerateContentResponse) (*llm.ChatResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini chat: %w", llm.ErrEmptyResponse)
	}

	msg := llm.Message{Role: llm.RoleAssistant}
	for i, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			msg.Content += string(p)
		case genai.FunctionCall:
			args, err := json.Marshal(p.Args)
			if err != nil {
				return nil, fmt.Errorf("encode arguments of %s: %w", p.Name, err)
			}
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
				ID:        fmt.Sprintf("call_%d", i),
				Name:      p.Name,
				Arguments: args,
			})
		}
	}

	out := &llm.ChatResponse{Message: msg, Model: model}
	if resp.UsageMetadata != nil {
		out.Usage = llm.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}
