package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "BUILDER6_"

// Load builds a Config starting from Defaults and overlaying any
// BUILDER6_<KEY> environment variable that is set. It does not
// validate; call Validate separately once any file overlay has also
// been applied.
func Load() Config {
	cfg := Defaults()

	if v, ok := lookupEnv("LLM_PROVIDER"); ok {
		cfg.LLMProvider = v
	}
	if v, ok := lookupEnv("GEMINI_API_KEY"); ok {
		cfg.GeminiAPIKey = v
	}
	if v, ok := lookupEnv("OPENAI_API_KEY"); ok {
		cfg.OpenAIAPIKey = v
	}
	if v, ok := lookupEnv("ANTHROPIC_API_KEY"); ok {
		cfg.AnthropicAPIKey = v
	}
	if v, ok := lookupEnvInt("LLM_MAX_RETRIES"); ok {
		cfg.LLMMaxRetries = v
	}
	if v, ok := lookupEnvDuration("LLM_INITIAL_RETRY_DELAY"); ok {
		cfg.LLMInitialRetryDelay = v
	}
	if v, ok := lookupEnvDuration("LLM_MAX_RETRY_DELAY"); ok {
		cfg.LLMMaxRetryDelay = v
	}
	if v, ok := lookupEnvFloat("LLM_RETRY_BACKOFF_FACTOR"); ok {
		cfg.LLMRetryBackoffFactor = v
	}
	if v, ok := lookupEnv("GITHUB_TOKEN"); ok {
		cfg.GitHubToken = v
	}
	if v, ok := lookupEnv("DOCKER_CONTAINER_PREFIX"); ok {
		cfg.DockerContainerPrefix = v
	}
	if v, ok := lookupEnvInt("DOCKER_CONTAINER_LIMIT"); ok {
		cfg.DockerContainerLimit = v
	}
	if v, ok := lookupEnvDuration("DOCKER_IDLE_TIMEOUT"); ok {
		cfg.DockerIdleTimeout = v
	}
	if v, ok := lookupEnv("DOCKER_DEFAULT_IMAGE"); ok {
		cfg.DockerDefaultImage = v
	}
	if v, ok := lookupEnv("DOCKER_SOCKET_PATH"); ok {
		cfg.DockerSocketPath = v
	}
	if v, ok := lookupEnv("DATABASE_URL"); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := lookupEnvBool("DEBUG_ENABLED"); ok {
		cfg.DebugEnabled = v
	}

	return cfg
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func lookupEnvInt(key string) (int, bool) {
	v, ok := lookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func lookupEnvFloat(key string) (float64, bool) {
	v, ok := lookupEnv(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func lookupEnvBool(key string) (bool, bool) {
	v, ok := lookupEnv(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func lookupEnvDuration(key string) (time.Duration, bool) {
	v, ok := lookupEnv(key)
	if !ok {
		return 0, false
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// Validate enforces the ranges and cross-field rules from §6:
// llmMaxRetries in [0,20], retry delays and backoff factor in range,
// dockerContainerLimit positive, the credential matching llmProvider
// non-empty, a non-empty githubToken, and (when set) a
// postgresql://-or-parseable databaseUrl; an unset databaseUrl is
// valid and falls back to the in-memory store.
func (c Config) Validate() error {
	if c.LLMMaxRetries < 0 || c.LLMMaxRetries > 20 {
		return fmt.Errorf("config: llmMaxRetries %d out of range [0,20]", c.LLMMaxRetries)
	}
	if ms := c.LLMInitialRetryDelay.Milliseconds(); ms < 100 || ms > 10000 {
		return fmt.Errorf("config: llmInitialRetryDelay %dms out of range [100,10000]", ms)
	}
	if ms := c.LLMMaxRetryDelay.Milliseconds(); ms < 1000 || ms > 60000 {
		return fmt.Errorf("config: llmMaxRetryDelay %dms out of range [1000,60000]", ms)
	}
	if c.LLMRetryBackoffFactor < 1 || c.LLMRetryBackoffFactor > 5 {
		return fmt.Errorf("config: llmRetryBackoffFactor %v out of range [1,5]", c.LLMRetryBackoffFactor)
	}
	if c.DockerContainerLimit <= 0 {
		return fmt.Errorf("config: dockerContainerLimit must be positive, got %d", c.DockerContainerLimit)
	}

	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("config: llmProvider is gemini but geminiApiKey is empty")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("config: llmProvider is openai but openaiApiKey is empty")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("config: llmProvider is anthropic but anthropicApiKey is empty")
		}
	default:
		return fmt.Errorf("config: llmProvider %q is not one of gemini|openai|anthropic", c.LLMProvider)
	}

	if c.GitHubToken == "" {
		return fmt.Errorf("config: githubToken is required")
	}

	// DatabaseURL is optional: an empty value means newStore falls back
	// to the in-memory store (used by tests and local runs without a
	// database). Only validate the URL shape when one is actually set.
	if c.DatabaseURL != "" && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		if _, err := url.Parse(c.DatabaseURL); err != nil {
			return fmt.Errorf("config: databaseUrl must begin with postgresql:// or be a valid URL")
		}
	}

	return nil
}
