package backend

import (
	"fmt"
	"time"

	"expenseai/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Store        StoreType
	SQLiteDBPath string

	Provider             Provider
	OllamaBaseURL        string
	OllamaChatModel      string
	OllamaEmbeddingModel string
	GeminiAPIKey         string
	GeminiChatModel      string
	GeminiEmbeddingModel string
	LLMTimeout           time.Duration
	LLMMaxRetries        int

	EmbeddingCacheSize int
	EmbeddingCacheTTL  time.Duration
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Store:        StoreType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,

		Provider:             Provider(appConfig.LLMProvider),
		OllamaBaseURL:        appConfig.OllamaBaseURL,
		OllamaChatModel:      appConfig.OllamaChatModel,
		OllamaEmbeddingModel: appConfig.OllamaEmbeddingModel,
		GeminiAPIKey:         appConfig.GeminiAPIKey,
		GeminiChatModel:      appConfig.GeminiChatModel,
		GeminiEmbeddingModel: appConfig.GeminiEmbeddingModel,
		LLMTimeout:           appConfig.LLMTimeout,
		LLMMaxRetries:        appConfig.LLMMaxRetries,

		EmbeddingCacheSize: appConfig.EmbeddingCacheSize,
		EmbeddingCacheTTL:  appConfig.EmbeddingCacheTTL,
	}
	return cfg, cfg.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Store.IsValid() {
		return fmt.Errorf("invalid store type: %s", c.Store)
	}
	if c.Store == SQLiteStore && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite store")
	}

	switch c.Provider {
	case OllamaProvider:
		if c.OllamaBaseURL == "" {
			return fmt.Errorf("Ollama base URL is required for ollama provider")
		}
	case GeminiProvider:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("Gemini API key is required for gemini provider")
		}
	default:
		return fmt.Errorf("invalid LLM provider: %s", c.Provider)
	}
	return nil
}
