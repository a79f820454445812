package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to set up environment variables for tests
func setTestEnv(envVars map[string]string) func() {
	originalEnv := make(map[string]string)

	// Store original values and set test values
	for key, value := range envVars {
		if original := os.Getenv(key); original != "" {
			originalEnv[key] = original
		}
		os.Setenv(key, value)
	}

	// Return cleanup function
	return func() {
		for key := range envVars {
			if original, exists := originalEnv[key]; exists {
				os.Setenv(key, original)
			} else {
				os.Unsetenv(key)
			}
		}
	}
}

// minimalEnv clears every optional key so defaults can be asserted
func minimalEnv(overrides map[string]string) map[string]string {
	env := map[string]string{
		"LLM_PROVIDER":       "",
		"ANTHROPIC_API_KEY":  "test-api-key",
		"OPENAI_API_KEY":     "",
		"CLAUDE_MODEL":       "",
		"OPENAI_MODEL":       "",
		"EVIDENCE_PROVIDER":  "",
		"SERPER_API_KEY":     "",
		"EXA_API_KEY":        "test-exa-key",
		"EVIDENCE_RESULTS":   "",
		"EVIDENCE_MAX_CHARS": "",
		"FETCH_PAGE_TEXT":    "",
		"MAX_CONCURRENCY":    "",
		"CLAIMS_PER_SECOND":  "",
		"MAX_INPUT_CHARS":    "",
		"CACHE_DATABASE_URL": "",
		"CACHE_TTL_MINUTES":  "",
		"KAFKA_BROKERS":      "",
		"SERVER_PORT":        "",
		"LOG_LEVEL":          "",
		"CORS_ORIGINS":       "",
	}
	for key, value := range overrides {
		env[key] = value
	}
	return env
}

func TestLoad_Success_WithDefaults(t *testing.T) {
	cleanup := setTestEnv(minimalEnv(nil))
	defer cleanup()

	cfg, err := Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, "test-api-key", cfg.AnthropicAPIKey)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.ClaudeModel)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, "exa", cfg.EvidenceProvider)
	assert.Equal(t, 10, cfg.EvidenceResults)
	assert.Equal(t, 4000, cfg.EvidenceMaxChars)
	assert.False(t, cfg.FetchPageText)
	assert.Equal(t, 3, cfg.MaxConcurrency)
	assert.Equal(t, 2.0, cfg.ClaimsPerSecond)
	assert.Equal(t, 20000, cfg.MaxInputChars)
	assert.Equal(t, "", cfg.CacheDatabaseURL)
	assert.Equal(t, 60*time.Minute, cfg.CacheTTL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "claimcheck.runs", cfg.KafkaTopicRuns)
	assert.Equal(t, "claimcheck.progress", cfg.KafkaTopicProgress)
	assert.Equal(t, "8000", cfg.ServerPort)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoad_Success_WithCustomValues(t *testing.T) {
	cleanup := setTestEnv(minimalEnv(map[string]string{
		"LLM_PROVIDER":       "OpenAI",
		"OPENAI_API_KEY":     "openai-key",
		"OPENAI_MODEL":       "gpt-4o-mini",
		"EVIDENCE_PROVIDER":  "serper",
		"SERPER_API_KEY":     "serper-key",
		"EVIDENCE_RESULTS":   "5",
		"FETCH_PAGE_TEXT":    "true",
		"MAX_CONCURRENCY":    "1",
		"CLAIMS_PER_SECOND":  "0.5",
		"CACHE_DATABASE_URL": "file::memory:",
		"CACHE_TTL_MINUTES":  "15",
		"KAFKA_BROKERS":      "kafka-1:9092, kafka-2:9092",
		"SERVER_PORT":        "9000",
		"LOG_LEVEL":          "DEBUG",
		"CORS_ORIGINS":       "http://localhost:3000,http://example.com",
	}))
	defer cleanup()

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "openai-key", cfg.OpenAIAPIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, "serper", cfg.EvidenceProvider)
	assert.Equal(t, "serper-key", cfg.SerperAPIKey)
	assert.Equal(t, 5, cfg.EvidenceResults)
	assert.True(t, cfg.FetchPageText)
	assert.Equal(t, 1, cfg.MaxConcurrency)
	assert.Equal(t, 0.5, cfg.ClaimsPerSecond)
	assert.Equal(t, "file::memory:", cfg.CacheDatabaseURL)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, []string{"http://localhost:3000", "http://example.com"}, cfg.CORSOrigins)
}

func TestLoad_Failure_MissingAnthropicAPIKey(t *testing.T) {
	cleanup := setTestEnv(minimalEnv(map[string]string{"ANTHROPIC_API_KEY": ""}))
	defer cleanup()

	cfg, err := Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY is required")
}

func TestLoad_Failure_MissingOpenAIAPIKey(t *testing.T) {
	cleanup := setTestEnv(minimalEnv(map[string]string{"LLM_PROVIDER": "openai"}))
	defer cleanup()

	cfg, err := Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY is required")
}

func TestLoad_Failure_MissingEvidenceKey(t *testing.T) {
	testCases := []struct {
		name     string
		provider string
		expected string
	}{
		{"exa", "exa", "EXA_API_KEY is required"},
		{"serper", "serper", "SERPER_API_KEY is required"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cleanup := setTestEnv(minimalEnv(map[string]string{
				"EVIDENCE_PROVIDER": tc.provider,
				"EXA_API_KEY":       "",
				"SERPER_API_KEY":    "",
			}))
			defer cleanup()

			cfg, err := Load()

			assert.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.expected)
		})
	}
}

func TestLoad_Failure_UnknownProviders(t *testing.T) {
	cleanup := setTestEnv(minimalEnv(map[string]string{"LLM_PROVIDER": "llama"}))
	_, err := Load()
	cleanup()
	assert.ErrorContains(t, err, "unknown LLM_PROVIDER")

	cleanup = setTestEnv(minimalEnv(map[string]string{"EVIDENCE_PROVIDER": "bing"}))
	_, err = Load()
	cleanup()
	assert.ErrorContains(t, err, "unknown EVIDENCE_PROVIDER")
}

func TestLoad_ConcurrencyFloor(t *testing.T) {
	cleanup := setTestEnv(minimalEnv(map[string]string{"MAX_CONCURRENCY": "0"}))
	defer cleanup()

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MaxConcurrency)
}

func TestGetEnvWithDefault(t *testing.T) {
	cleanup := setTestEnv(map[string]string{"TEST_VAR": "test-value"})
	defer cleanup()

	assert.Equal(t, "test-value", getEnvWithDefault("TEST_VAR", "default-value"))
	assert.Equal(t, "default-value", getEnvWithDefault("NON_EXISTENT_VAR", "default-value"))
}

func TestGetEnvInt_InvalidFallsBackToDefault(t *testing.T) {
	cleanup := setTestEnv(map[string]string{"TEST_INT": "not-a-number"})
	defer cleanup()

	assert.Equal(t, 7, getEnvInt("TEST_INT", 7))
}

func TestGetEnvBool(t *testing.T) {
	cleanup := setTestEnv(map[string]string{"TEST_BOOL": "1", "TEST_BAD_BOOL": "maybe"})
	defer cleanup()

	assert.True(t, getEnvBool("TEST_BOOL", false))
	assert.True(t, getEnvBool("TEST_BAD_BOOL", true))
	assert.False(t, getEnvBool("NON_EXISTENT_BOOL", false))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a , ,b "))
	assert.Nil(t, splitList(""))
}
