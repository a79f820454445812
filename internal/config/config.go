package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Version is the release reported by the health endpoint and the CLI
var Version = "1.0.0"

// Config holds all configuration for the application
type Config struct {
	// Language model configuration
	LLMProvider     string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	ClaudeModel     string
	OpenAIModel     string

	// Evidence search configuration
	EvidenceProvider string
	SerperAPIKey     string
	ExaAPIKey        string
	EvidenceResults  int
	EvidenceMaxChars int
	FetchPageText    bool
	FetchUserAgent   string

	// Pipeline configuration
	MaxConcurrency  int
	ClaimsPerSecond float64
	MaxInputChars   int

	// Evidence cache configuration
	CacheDatabaseURL string
	CacheTTL         time.Duration

	// Kafka configuration
	KafkaBrokers       []string
	KafkaTopicRuns     string
	KafkaTopicProgress string
	KafkaGroupID       string

	// Server configuration
	ServerPort string
	LogLevel   string

	// CORS configuration
	CORSOrigins []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		LLMProvider:        strings.ToLower(getEnvWithDefault("LLM_PROVIDER", "anthropic")),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		ClaudeModel:        getEnvWithDefault("CLAUDE_MODEL", "claude-sonnet-4-20250514"),
		OpenAIModel:        getEnvWithDefault("OPENAI_MODEL", "gpt-4o"),
		EvidenceProvider:   strings.ToLower(getEnvWithDefault("EVIDENCE_PROVIDER", "exa")),
		SerperAPIKey:       os.Getenv("SERPER_API_KEY"),
		ExaAPIKey:          os.Getenv("EXA_API_KEY"),
		EvidenceResults:    getEnvInt("EVIDENCE_RESULTS", 10),
		EvidenceMaxChars:   getEnvInt("EVIDENCE_MAX_CHARS", 4000),
		FetchPageText:      getEnvBool("FETCH_PAGE_TEXT", false),
		FetchUserAgent:     getEnvWithDefault("FETCH_USER_AGENT", "claimcheck/1.0 (+evidence-fetcher)"),
		MaxConcurrency:     getEnvInt("MAX_CONCURRENCY", 3),
		ClaimsPerSecond:    getEnvFloat("CLAIMS_PER_SECOND", 2),
		MaxInputChars:      getEnvInt("MAX_INPUT_CHARS", 20000),
		CacheDatabaseURL:   os.Getenv("CACHE_DATABASE_URL"),
		CacheTTL:           time.Duration(getEnvInt("CACHE_TTL_MINUTES", 60)) * time.Minute,
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopicRuns:     getEnvWithDefault("KAFKA_TOPIC_RUNS", "claimcheck.runs"),
		KafkaTopicProgress: getEnvWithDefault("KAFKA_TOPIC_PROGRESS", "claimcheck.progress"),
		KafkaGroupID:       getEnvWithDefault("KAFKA_GROUP_ID", "claimcheck-workers"),
		ServerPort:         getEnvWithDefault("SERVER_PORT", "8000"),
		LogLevel:           getEnvWithDefault("LOG_LEVEL", "INFO"),
	}

	cfg.CORSOrigins = splitList(getEnvWithDefault("CORS_ORIGINS", "http://localhost:3000"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the keys required by the selected providers are present
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "anthropic", "claude":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER: %s (supported: anthropic, openai)", c.LLMProvider)
	}

	switch c.EvidenceProvider {
	case "exa":
		if c.ExaAPIKey == "" {
			return fmt.Errorf("EXA_API_KEY is required")
		}
	case "serper":
		if c.SerperAPIKey == "" {
			return fmt.Errorf("SERPER_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown EVIDENCE_PROVIDER: %s (supported: exa, serper)", c.EvidenceProvider)
	}

	if c.MaxConcurrency < 1 {
		c.MaxConcurrency = 1
	}
	return nil
}

// KafkaEnabled reports whether any Kafka brokers are configured
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
