// Package assistant runs the tool-calling chat loop and the monthly insight prompt
// against a chat model.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expenseai/internal/core"
	"expenseai/internal/llm"
	"expenseai/internal/tools"
)

const DefaultMaxToolRounds = 8

// ErrToolLoopExceeded is returned when the model keeps requesting tools past the round limit.
var ErrToolLoopExceeded = errors.New("assistant exceeded tool round limit")

// Toolbox is the tool table offered to the model.
type Toolbox interface {
	Specs() []llm.ToolSpec
	Call(ctx context.Context, name string, args json.RawMessage) (any, error)
}

// Assistant answers one user message per call. No transcript is kept between calls.
type Assistant struct {
	model     llm.ChatModel
	tools     Toolbox
	prompts   *Prompts
	maxRounds int
	now       func() time.Time
}

type Option func(*Assistant)

func WithMaxToolRounds(n int) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

// WithClock overrides the time source used for the date in the system prompt.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) { a.now = now }
}

func New(model llm.ChatModel, toolbox Toolbox, prompts *Prompts, opts ...Option) *Assistant {
	a := &Assistant{
		model:     model,
		tools:     toolbox,
		prompts:   prompts,
		maxRounds: DefaultMaxToolRounds,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Chat sends message to the model and executes the tool calls it requests, in order,
// until it answers with plain text. A missing answer is returned as "".
func (a *Assistant) Chat(ctx context.Context, message string) (string, error) {
	system, err := a.systemPrompt()
	if err != nil {
		return "", err
	}

	req := llm.ChatRequest{
		System:   system,
		Messages: []llm.Message{llm.UserMessage(message)},
		Tools:    a.tools.Specs(),
	}

	for round := 0; ; round++ {
		resp, err := a.model.Complete(ctx, req)
		if err != nil {
			if errors.Is(err, llm.ErrEmptyResponse) {
				slog.WarnContext(ctx, "Chat model returned no content", "round", round)
				return "", nil
			}
			return "", modelError(err)
		}

		calls := resp.Message.ToolCalls
		if len(calls) == 0 {
			slog.InfoContext(ctx, "Chat completed",
				"rounds", round,
				"model", resp.Model,
				"input_tokens", resp.Usage.InputTokens,
				"output_tokens", resp.Usage.OutputTokens)
			return resp.Message.Content, nil
		}
		if round >= a.maxRounds {
			slog.WarnContext(ctx, "Chat aborted, tool round limit reached", "max_rounds", a.maxRounds)
			return "", fmt.Errorf("%w (%d)", ErrToolLoopExceeded, a.maxRounds)
		}

		assistantMsg := resp.Message
		assistantMsg.Role = llm.RoleAssistant
		req.Messages = append(req.Messages, assistantMsg)

		for _, call := range calls {
			content, err := a.runTool(ctx, call)
			if err != nil {
				return "", err
			}
			req.Messages = append(req.Messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    content,
				ToolName:   call.Name,
				ToolCallID: call.ID,
			})
		}
	}
}

// runTool executes one tool call and renders its result for the model. Errors the
// model can act on are returned to it as {"error": ...}; anything else aborts the turn.
func (a *Assistant) runTool(ctx context.Context, call llm.ToolCall) (string, error) {
	result, err := a.tools.Call(ctx, call.Name, call.Arguments)
	if err != nil {
		if !recoverable(err) {
			return "", err
		}
		return encodeToolResult(map[string]string{"error": err.Error()})
	}
	return encodeToolResult(result)
}

func recoverable(err error) bool {
	return errors.Is(err, core.ErrNotFound) ||
		errors.Is(err, core.ErrInvalidArgument) ||
		errors.Is(err, tools.ErrUnknownTool)
}

func encodeToolResult(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(b), nil
}

func (a *Assistant) systemPrompt() (string, error) {
	now := a.now().UTC()
	labels := core.Categories()
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = string(l)
	}
	return a.prompts.ChatSystem(chatPromptData{
		Today:      core.NewDate(now.Year(), int(now.Month()), now.Day()).String(),
		Categories: strings.Join(names, ", "),
	})
}

// modelError tags backend failures as core.ErrModelUnavailable. Cancellation is passed
// through untouched.
func modelError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrModelUnavailable, err)
}
