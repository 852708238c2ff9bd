package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"expenseai/internal/core"
	"expenseai/internal/llm"
)

const tracerName = "expenseai/internal/assistant"

// SummaryProvider builds the monthly summary an insight is written from.
type SummaryProvider interface {
	MonthlySummary(ctx context.Context, month core.Month) (core.MonthlySummary, error)
}

// InsightGenerator asks the chat model for a short narrative about one month.
// The model is not offered any tools.
type InsightGenerator struct {
	summaries SummaryProvider
	model     llm.ChatModel
	prompts   *Prompts
	tracer    trace.Tracer
}

func NewInsightGenerator(summaries SummaryProvider, model llm.ChatModel, prompts *Prompts) *InsightGenerator {
	return &InsightGenerator{
		summaries: summaries,
		model:     model,
		prompts:   prompts,
		tracer:    otel.Tracer(tracerName),
	}
}

// Analyze writes an insight for month in the requested language, quoting amounts in
// currency when one is given. An empty model reply yields empty content.
func (g *InsightGenerator) Analyze(ctx context.Context, month core.Month, lang, currency string) (insight core.Insight, err error) {
	targetLanguage := g.prompts.Language(lang)
	currencyHint := Currency(currency)

	ctx, span := g.tracer.Start(ctx, "insight.analyze", trace.WithAttributes(
		attribute.String("insight.month", month.String()),
		attribute.String("insight.language", targetLanguage),
		attribute.String("insight.currency", currencyHint),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	summary, err := g.summaries.MonthlySummary(ctx, month)
	if err != nil {
		return core.Insight{}, fmt.Errorf("build summary for %s: %w", month, err)
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return core.Insight{}, fmt.Errorf("encode summary: %w", err)
	}

	prompt, err := g.prompts.InsightUser(insightPromptData{
		Language: targetLanguage,
		Currency: currencyHint,
		Summary:  string(summaryJSON),
	})
	if err != nil {
		return core.Insight{}, err
	}

	resp, err := g.model.Complete(ctx, llm.ChatRequest{
		System:   g.prompts.InsightSystem(),
		Messages: []llm.Message{llm.UserMessage(prompt)},
	})
	if err != nil {
		if errors.Is(err, llm.ErrEmptyResponse) {
			slog.WarnContext(ctx, "Insight model returned no content", "month", month.String())
			return core.Insight{}, nil
		}
		return core.Insight{}, modelError(err)
	}

	content := strings.TrimSpace(resp.Message.Content)
	slog.InfoContext(ctx, "Insight generated",
		"month", month.String(),
		"language", targetLanguage,
		"chars", len(content))
	return core.Insight{Content: content}, nil
}
