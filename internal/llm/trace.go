package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "expenseai/internal/llm"

// Traced records an llm.chat or llm.embedding span around every backend call.
type Traced struct {
	chat     ChatModel
	embedder Embedder
	tracer   trace.Tracer
}

func NewTraced(chat ChatModel, embedder Embedder) *Traced {
	return &Traced{chat: chat, embedder: embedder, tracer: otel.Tracer(tracerName)}
}

func (t *Traced) Model() string { return t.chat.Model() }

func (t *Traced) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, span := t.tracer.Start(ctx, "llm.chat", trace.WithAttributes(
		attribute.String("llm.model", t.chat.Model()),
		attribute.Int("llm.messages", len(req.Messages)),
		attribute.Int("llm.tools", len(req.Tools)),
	))
	defer span.End()

	start := time.Now()
	resp, err := t.chat.Complete(ctx, req)
	span.SetAttributes(attribute.Int64("llm.latency", time.Since(start).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.input_tokens", resp.Usage.InputTokens),
		attribute.Int("llm.output_tokens", resp.Usage.OutputTokens),
		attribute.Int("llm.tool_calls", len(resp.Message.ToolCalls)),
	)
	return resp, nil
}

func (t *Traced) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := t.tracer.Start(ctx, "llm.embedding", trace.WithAttributes(
		attribute.Int("llm.inputs", len(texts)),
	))
	defer span.End()

	start := time.Now()
	vecs, err := t.embedder.Embed(ctx, texts)
	span.SetAttributes(attribute.Int64("llm.latency", time.Since(start).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(vecs) > 0 {
		span.SetAttributes(attribute.Int("llm.dimensions", len(vecs[0])))
	}
	return vecs, nil
}
