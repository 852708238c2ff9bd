package llm

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior with exponential backoff.
type RetryConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
	JitterFraction float64 // 0.0 to 1.0, fraction of delay to randomize
}

// DefaultRetryConfig is tuned for hosted model APIs; MaxRetries comes from configuration.
func DefaultRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		BackoffFactor:  2.0,
		JitterFraction: 0.2,
	}
}

// WithRetry executes fn with exponential backoff + jitter.
// It stops on a non-retryable *Error, on context cancellation, or when retries run out.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var lastErr error
	var zero T

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var llmErr *Error
		if errors.As(err, &llmErr) && !llmErr.Retryable {
			return zero, err
		}
		if errors.Is(err, ErrEmptyResponse) {
			return zero, err
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff(cfg, attempt)):
		}
	}

	return zero, lastErr
}

func backoff(cfg RetryConfig, attempt int) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.JitterFraction > 0 {
		delay += delay * cfg.JitterFraction * (rand.Float64()*2 - 1)
		if delay < 0 {
			delay = float64(cfg.InitialDelay)
		}
	}
	return time.Duration(delay)
}

// Retrying wraps a chat model and an embedder so each call goes through WithRetry.
type Retrying struct {
	chat     ChatModel
	embedder Embedder
	cfg      RetryConfig
}

func NewRetrying(chat ChatModel, embedder Embedder, cfg RetryConfig) *Retrying {
	return &Retrying{chat: chat, embedder: embedder, cfg: cfg}
}

func (r *Retrying) Model() string { return r.chat.Model() }

func (r *Retrying) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return WithRetry(ctx, r.cfg, func(ctx context.Context) (*ChatResponse, error) {
		return r.chat.Complete(ctx, req)
	})
}

func (r *Retrying) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return WithRetry(ctx, r.cfg, func(ctx context.Context) ([][]float32, error) {
		return r.embedder.Embed(ctx, texts)
	})
}
