// Package tools exposes expense operations as named functions a chat model can call.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expenseai/internal/core"
	"expenseai/internal/llm"
)

// ErrUnknownTool is returned when the model asks for a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Handler executes a tool with raw JSON arguments and returns a JSON-encodable result.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

type entry struct {
	spec    llm.ToolSpec
	handler Handler
}

// Registry is a name-indexed table of tools. Specs are listed in registration order.
type Registry struct {
	tools map[string]entry
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

// Register adds or replaces a tool.
func (r *Registry) Register(spec llm.ToolSpec, h Handler) {
	if _, exists := r.tools[spec.Name]; !exists {
		r.order = append(r.order, spec.Name)
	}
	r.tools[spec.Name] = entry{spec: spec, handler: h}
}

func (r *Registry) Specs() []llm.ToolSpec {
	out := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].spec)
	}
	return out
}

func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Call runs the named tool.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	start := time.Now()
	result, err := t.handler(ctx, args)
	if err != nil {
		slog.WarnContext(ctx, "Tool call failed",
			"tool", name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return nil, err
	}

	slog.InfoContext(ctx, "Tool call completed",
		"tool", name,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// bind adapts a typed tool function to a Handler. Malformed arguments are reported as
// core.ErrInvalidArgument.
func bind[A any, R any](fn func(ctx context.Context, args A) (R, error)) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args A
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("%w: decode arguments: %v", core.ErrInvalidArgument, err)
			}
		}
		return fn(ctx, args)
	}
}
