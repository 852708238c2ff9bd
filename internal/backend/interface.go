// Package backend builds the store and model stack selected by configuration.
package backend

import (
	"context"

	"expenseai/internal/cache"
	"expenseai/internal/classifier"
	"expenseai/internal/llm"
	"expenseai/internal/storage"
)

// StoreType selects the expense store implementation.
type StoreType string

const (
	MemoryStore StoreType = "memory"
	SQLiteStore StoreType = "sqlite"
)

// IsValid checks if the store type is supported
func (t StoreType) IsValid() bool {
	return t == MemoryStore || t == SQLiteStore
}

func (t StoreType) String() string { return string(t) }

// Provider selects the chat and embedding backend.
type Provider string

const (
	OllamaProvider Provider = "ollama"
	GeminiProvider Provider = "gemini"
)

func (p Provider) IsValid() bool {
	return p == OllamaProvider || p == GeminiProvider
}

func (p Provider) String() string { return string(p) }

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// StoreResult contains the store and an optional readiness probe.
type StoreResult struct {
	Repo    storage.Repository
	Ready   ReadinessCheck
	Cleanup CleanupFunc
}

// ModelResult contains the wrapped model stack and the classifier built on it.
type ModelResult struct {
	Chat       llm.ChatModel
	Embedder   llm.Embedder
	Classifier *classifier.Classifier
	QueryCache *cache.LRUCache[[]float32]
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	CreateModels(ctx context.Context, config Config) (*ModelResult, error)
}
