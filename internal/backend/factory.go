package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expenseai/internal/cache"
	"expenseai/internal/classifier"
	"expenseai/internal/llm"
	"expenseai/internal/llm/gemini"
	"expenseai/internal/llm/ollama"
	"expenseai/internal/storage"
	"expenseai/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	switch config.Store {
	case SQLiteStore:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return &StoreResult{Repo: repo, Ready: repo.Ping, Cleanup: repo.Close}, nil
	case MemoryStore:
		repo := memory.New()
		f.logger.InfoContext(ctx, "Initialized memory store")
		return &StoreResult{Repo: repo, Cleanup: repo.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Store)
	}
}

// CreateModels builds the provider client and wraps it for tracing and retries.
// The classifier shares the wrapped embedder.
func (f *DefaultFactory) CreateModels(ctx context.Context, config Config) (*ModelResult, error) {
	var (
		chat     llm.ChatModel
		embedder llm.Embedder
		cleanup  CleanupFunc
	)

	switch config.Provider {
	case OllamaProvider:
		client := ollama.NewClient(config.OllamaBaseURL, config.OllamaChatModel, config.OllamaEmbeddingModel, config.LLMTimeout)
		chat, embedder = client, client
	case GeminiProvider:
		client, err := gemini.NewClient(ctx, config.GeminiAPIKey, config.GeminiChatModel, config.GeminiEmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		chat, embedder, cleanup = client, client, client.Close
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}

	traced := llm.NewTraced(chat, embedder)
	wrapped := llm.NewRetrying(traced, traced, llm.DefaultRetryConfig(config.LLMMaxRetries))

	var opts []classifier.Option
	var queryCache *cache.LRUCache[[]float32]
	if config.EmbeddingCacheSize > 0 {
		queryCache = cache.NewLRUCache[[]float32](config.EmbeddingCacheSize, config.EmbeddingCacheTTL)
		opts = append(opts, classifier.WithQueryCache(queryCache))
	}

	f.logger.InfoContext(ctx, "Initialized model backend",
		"provider", config.Provider,
		"chat_model", chat.Model(),
		"max_retries", config.LLMMaxRetries,
		"embedding_cache", config.EmbeddingCacheSize)

	return &ModelResult{
		Chat:       wrapped,
		Embedder:   wrapped,
		Classifier: classifier.New(wrapped, opts...),
		QueryCache: queryCache,
		Cleanup:    cleanup,
	}, nil
}
