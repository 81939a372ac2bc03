// Package config loads application configuration from environment variables.
// All variables use the TUTOR_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	AI          AIConfig
	Session     SessionConfig
	Log         LogConfig
	CatalogPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. The database is
// optional: without a URL, analytics events are not persisted.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. The cache is optional:
// without a URL, sessions live in process memory.
type CacheConfig struct {
	URL string
}

// AIConfig holds configuration for all AI providers.
type AIConfig struct {
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	DeepSeek  DeepSeekConfig
	Ollama    OllamaConfig
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey string
}

// AnthropicConfig holds Anthropic provider settings.
type AnthropicConfig struct {
	APIKey string
}

// DeepSeekConfig holds DeepSeek provider settings (OpenAI-compatible).
type DeepSeekConfig struct {
	APIKey string
}

// OllamaConfig holds self-hosted Ollama settings.
type OllamaConfig struct {
	Enabled bool
	URL     string
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	TTLMinutes  int   // Redis session expiry; 0 keeps sessions forever
	TokenBudget int64 // AI tokens per session; 0 is unlimited
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with TUTOR_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("TUTOR_SERVER_PORT", 8080),
			Host: envStr("TUTOR_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("TUTOR_DATABASE_URL", ""),
			MaxConns: envInt("TUTOR_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("TUTOR_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL: envStr("TUTOR_CACHE_URL", ""),
		},
		AI: AIConfig{
			OpenAI: OpenAIConfig{
				APIKey: envStr("TUTOR_AI_OPENAI_API_KEY", ""),
			},
			Anthropic: AnthropicConfig{
				APIKey: envStr("TUTOR_AI_ANTHROPIC_API_KEY", ""),
			},
			DeepSeek: DeepSeekConfig{
				APIKey: envStr("TUTOR_AI_DEEPSEEK_API_KEY", ""),
			},
			Ollama: OllamaConfig{
				Enabled: envBool("TUTOR_AI_OLLAMA_ENABLED", false),
				URL:     envStr("TUTOR_AI_OLLAMA_URL", "http://localhost:11434"),
			},
		},
		Session: SessionConfig{
			TTLMinutes:  envInt("TUTOR_SESSION_TTL_MINUTES", 7*24*60),
			TokenBudget: int64(envInt("TUTOR_SESSION_TOKEN_BUDGET", 0)),
		},
		Log: LogConfig{
			Level:  envStr("TUTOR_LOG_LEVEL", "info"),
			Format: envStr("TUTOR_LOG_FORMAT", "json"),
		},
		CatalogPath: envStr("TUTOR_CATALOG_PATH", "./content"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.CatalogPath == "" {
		return fmt.Errorf("TUTOR_CATALOG_PATH is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("TUTOR_SERVER_PORT must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Session.TTLMinutes < 0 {
		return fmt.Errorf("TUTOR_SESSION_TTL_MINUTES must be non-negative, got %d", c.Session.TTLMinutes)
	}
	return nil
}

// HasAIProvider returns true if at least one AI provider is configured.
// Without one the server still runs, rendering template prose.
func (c *Config) HasAIProvider() bool {
	return c.AI.OpenAI.APIKey != "" ||
		c.AI.Anthropic.APIKey != "" ||
		c.AI.DeepSeek.APIKey != "" ||
		c.AI.Ollama.Enabled
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
