package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	AI       AIConfig
	Search   SearchConfig
	Extract  ExtractConfig
	Database DatabaseConfig
	Server   ServerConfig
	Pipeline PipelineConfig
}

// AIConfig holds LLM settings. Keys carries one entry per API key; the
// credential pool hands them to the concurrent branches.
type AIConfig struct {
	Keys        []string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// SearchConfig holds search provider settings
type SearchConfig struct {
	TavilyKey string
	BaseURL   string
}

// ExtractConfig holds content extraction settings
type ExtractConfig struct {
	ReaderKey string
	BaseURL   string
}

// DatabaseConfig holds optional persistence settings. An empty URL
// disables run persistence.
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// PipelineConfig holds orchestration tuning
type PipelineConfig struct {
	SearchRetries int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		AI:       loadAIConfig(),
		Search:   loadSearchConfig(),
		Extract:  loadExtractConfig(),
		Database: DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		Server:   ServerConfig{Port: getEnvOrDefault("PORT", "8080")},
		Pipeline: PipelineConfig{SearchRetries: getEnvIntOrDefault("SEARCH_RETRIES", 1)},
	}

	if len(config.AI.Keys) == 0 {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if config.Search.TavilyKey == "" {
		return nil, fmt.Errorf("TAVILY_API_KEY is required")
	}
	return config, nil
}

func loadAIConfig() AIConfig {
	var keys []string
	// OPENAI_API_KEYS takes a comma-separated list; the singular form
	// remains for single-key deployments.
	for _, k := range strings.Split(os.Getenv("OPENAI_API_KEYS"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		if k := os.Getenv("OPENAI_API_KEY"); k != "" {
			keys = append(keys, k)
		}
	}

	return AIConfig{
		Keys:        keys,
		Model:       getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		BaseURL:     getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Temperature: getEnvFloatOrDefault("TEMPERATURE", 0.2),
		MaxTokens:   getEnvIntOrDefault("MAX_TOKENS", 4000),
		Timeout:     time.Duration(getEnvIntOrDefault("LLM_TIMEOUT_SECONDS", 120)) * time.Second,
	}
}

func loadSearchConfig() SearchConfig {
	return SearchConfig{
		TavilyKey: os.Getenv("TAVILY_API_KEY"),
		BaseURL:   getEnvOrDefault("TAVILY_BASE_URL", "https://api.tavily.com"),
	}
}

func loadExtractConfig() ExtractConfig {
	return ExtractConfig{
		ReaderKey: os.Getenv("READER_API_KEY"),
		BaseURL:   getEnvOrDefault("READER_BASE_URL", "https://r.jina.ai"),
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
