// Package classifier maps free text onto the expense category vocabulary by embedding
// similarity.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"expenseai/internal/cache"
	"expenseai/internal/core"
	"expenseai/internal/llm"
)

const labelsKey = "labels"

// Classifier embeds every vocabulary label once, lazily, and then picks the label
// closest to the input text.
type Classifier struct {
	embedder llm.Embedder
	labels   []core.Category

	group  singleflight.Group
	ready  atomic.Bool
	inits  atomic.Int64
	vecs   [][]float32 // written once before ready is set; read-only afterwards
	cached *cache.LRUCache[[]float32]
}

type Option func(*Classifier)

// WithQueryCache caches input embeddings, which are deterministic per model.
func WithQueryCache(c *cache.LRUCache[[]float32]) Option {
	return func(cl *Classifier) { cl.cached = c }
}

func New(embedder llm.Embedder, opts ...Option) *Classifier {
	c := &Classifier{embedder: embedder, labels: core.Categories()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the vocabulary label most similar to text. Poor similarity is never
// an error; only embedding backend failures are, as core.ErrClassifierUnavailable.
func (c *Classifier) Classify(ctx context.Context, text string) (core.Category, error) {
	if err := c.Warm(ctx); err != nil {
		return "", err
	}

	vec, err := c.embed(ctx, text)
	if err != nil {
		return "", err
	}

	best, bestScore := 0, math.Inf(-1)
	for i, lv := range c.vecs {
		// strict comparison keeps the first maximum
		if s := Cosine(vec, lv); s > bestScore {
			best, bestScore = i, s
		}
	}

	slog.DebugContext(ctx, "Classified text",
		"category", c.labels[best],
		"similarity", bestScore,
		"text_length", len(text))
	return c.labels[best], nil
}

// Warm embeds the vocabulary if that has not happened yet. Concurrent callers share a
// single in-flight request; a failure is not remembered so a later call retries.
func (c *Classifier) Warm(ctx context.Context) error {
	if c.ready.Load() {
		return nil
	}
	_, err, _ := c.group.Do(labelsKey, func() (any, error) {
		if c.ready.Load() {
			return nil, nil
		}

		texts := make([]string, len(c.labels))
		for i, l := range c.labels {
			texts[i] = string(l)
		}
		vecs, err := c.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: embed category labels: %w", core.ErrClassifierUnavailable, err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("%w: got %d label vectors, want %d", core.ErrClassifierUnavailable, len(vecs), len(texts))
		}

		c.vecs = vecs
		c.inits.Add(1)
		c.ready.Store(true)
		slog.InfoContext(ctx, "Category embeddings initialized", "labels", len(texts))
		return nil, nil
	})
	return err
}

// Ready reports whether the label embeddings are loaded.
func (c *Classifier) Ready() bool {
	return c.ready.Load()
}

// Initializations counts successful label warm-ups; it never exceeds one.
func (c *Classifier) Initializations() int64 {
	return c.inits.Load()
}

func (c *Classifier) embed(ctx context.Context, text string) ([]float32, error) {
	if c.cached != nil {
		if v, ok := c.cached.Get(text); ok {
			return v, nil
		}
	}

	vecs, err := c.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: embed text: %w", core.ErrClassifierUnavailable, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for one input", core.ErrClassifierUnavailable, len(vecs))
	}

	if c.cached != nil {
		c.cached.Set(text, vecs[0])
	}
	return vecs[0], nil
}

// Cosine returns the cosine similarity of a and b, or -1 when either has zero norm or
// their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return -1
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
