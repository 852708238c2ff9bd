// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backend and provider names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"

	ProviderOllama = "ollama"
	ProviderGemini = "gemini"

	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
	TraceExporterOTLP   = "otlp"
)

type Config struct {
	// HTTP Server
	Port               string
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration

	// Store
	DataBackend    string
	SQLiteDBPath   string
	SeedSampleData bool

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Model backends
	LLMProvider          string
	OllamaBaseURL        string
	OllamaChatModel      string
	OllamaEmbeddingModel string
	GeminiAPIKey         string
	GeminiChatModel      string
	GeminiEmbeddingModel string
	LLMTimeout           time.Duration
	LLMMaxRetries        int

	// Assistant
	ChatMaxToolRounds  int
	TopExpenses        int
	EmbeddingCacheSize int
	EmbeddingCacheTTL  time.Duration

	// Google Sheets ledger, used by the worker
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Logging
	LogLevel  string
	LogFormat string

	// Tracing. OTLP exporters read the remaining OTEL_EXPORTER_OTLP_* variables themselves.
	TraceExporter string
	OTLPEndpoint  string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DataBackend:    getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/expenseai.db"),
		SeedSampleData: getEnvBool("SEED_SAMPLE_DATA", true),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expenseai"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		LLMProvider:          getEnv("LLM_PROVIDER", ProviderOllama),
		OllamaBaseURL:        getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaChatModel:      getEnv("OLLAMA_CHAT_MODEL", "llama3.1"),
		OllamaEmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiChatModel:      getEnv("GEMINI_CHAT_MODEL", "gemini-1.5-flash"),
		GeminiEmbeddingModel: getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
		LLMTimeout:           getEnvDuration("LLM_TIMEOUT", 60*time.Second),
		LLMMaxRetries:        getEnvInt("LLM_MAX_RETRIES", 0),

		ChatMaxToolRounds:  getEnvInt("CHAT_MAX_TOOL_ROUNDS", 8),
		TopExpenses:        getEnvInt("TOP_EXPENSES", 5),
		EmbeddingCacheSize: getEnvInt("EMBEDDING_CACHE_SIZE", 1000),
		EmbeddingCacheTTL:  getEnvDuration("EMBEDDING_CACHE_TTL", 24*time.Hour),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	defaultExporter := TraceExporterNone
	if cfg.OTLPEndpoint != "" {
		defaultExporter = TraceExporterOTLP
	}
	cfg.TraceExporter = strings.ToLower(getEnv("TRACE_EXPORTER", defaultExporter))

	return cfg
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.LLMProvider {
	case ProviderOllama:
		if parsedURL, err := url.Parse(c.OllamaBaseURL); err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid Ollama base URL '%s': must be an http(s) URL", c.OllamaBaseURL))
		}
		if c.OllamaChatModel == "" || c.OllamaEmbeddingModel == "" {
			errors = append(errors, "Ollama chat and embedding models are required when using ollama provider")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errors = append(errors, "GEMINI_API_KEY is required when using gemini provider")
		}
		if c.GeminiChatModel == "" || c.GeminiEmbeddingModel == "" {
			errors = append(errors, "Gemini chat and embedding models are required when using gemini provider")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid LLM provider '%s': must be one of [%s %s]", c.LLMProvider, ProviderOllama, ProviderGemini))
	}

	if c.LLMTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid LLM timeout %v: must be at least 1 second", c.LLMTimeout))
	}
	if c.LLMMaxRetries < 0 || c.LLMMaxRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid LLM max retries %d: must be between 0 and 10", c.LLMMaxRetries))
	}
	if c.ChatMaxToolRounds < 1 || c.ChatMaxToolRounds > 50 {
		errors = append(errors, fmt.Sprintf("invalid chat max tool rounds %d: must be between 1 and 50", c.ChatMaxToolRounds))
	}
	if c.TopExpenses < 1 || c.TopExpenses > 100 {
		errors = append(errors, fmt.Sprintf("invalid top expenses %d: must be between 1 and 100", c.TopExpenses))
	}
	if c.EmbeddingCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid embedding cache size %d: must not be negative", c.EmbeddingCacheSize))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	validExporters := []string{TraceExporterNone, TraceExporterStdout, TraceExporterOTLP}
	if !slices.Contains(validExporters, c.TraceExporter) {
		errors = append(errors, fmt.Sprintf("invalid trace exporter '%s': must be one of %v", c.TraceExporter, validExporters))
	} else if c.TraceExporter == TraceExporterOTLP && c.OTLPEndpoint == "" {
		errors = append(errors, "OTEL_EXPORTER_OTLP_ENDPOINT is required when TRACE_EXPORTER is otlp")
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateLedger checks the settings the ledger worker needs on top of Validate.
func (c *Config) ValidateLedger() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the ledger worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the ledger worker")
	}
	if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for the ledger worker")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("ledger configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
