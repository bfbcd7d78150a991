// Package config provides the validated configuration struct
// consumed by every other component: model provider selection and
// retry policy (C3), container pool sizing (C4), GitHub credentials
// (C5), and the store connection string (C2). Values load from
// environment variables under the BUILDER6_ prefix, mirroring
// internal/config's typed-struct layout, with an optional YAML file
// overlay for local development.
package config

import "time"

// Config is the full set of recognised keys from §6, with defaults
// applied by Load and ranges enforced by Validate.
type Config struct {
	LLMProvider           string        `yaml:"llm_provider"`
	GeminiAPIKey          string        `yaml:"gemini_api_key"`
	OpenAIAPIKey          string        `yaml:"openai_api_key"`
	AnthropicAPIKey       string        `yaml:"anthropic_api_key"`
	LLMMaxRetries         int           `yaml:"llm_max_retries"`
	LLMInitialRetryDelay  time.Duration `yaml:"llm_initial_retry_delay"`
	LLMMaxRetryDelay      time.Duration `yaml:"llm_max_retry_delay"`
	LLMRetryBackoffFactor float64       `yaml:"llm_retry_backoff_factor"`

	GitHubToken string `yaml:"github_token"`

	DockerContainerPrefix string        `yaml:"docker_container_prefix"`
	DockerContainerLimit  int           `yaml:"docker_container_limit"`
	DockerIdleTimeout     time.Duration `yaml:"docker_idle_timeout"`
	DockerDefaultImage    string        `yaml:"docker_default_image"`
	DockerSocketPath      string        `yaml:"docker_socket_path"`

	DatabaseURL string `yaml:"database_url"`

	DebugEnabled bool `yaml:"debug_enabled"`
}

// Defaults returns the §6-mandated defaults before any environment
// or file overlay is applied.
func Defaults() Config {
	return Config{
		LLMProvider:           "anthropic",
		LLMMaxRetries:         10,
		LLMInitialRetryDelay:  1000 * time.Millisecond,
		LLMMaxRetryDelay:      10000 * time.Millisecond,
		LLMRetryBackoffFactor: 2,
		DockerContainerPrefix: "builder6-container-",
		DockerContainerLimit:  5,
		DockerIdleTimeout:     600000 * time.Millisecond,
		DockerDefaultImage:    "debian:stable-slim",
	}
}
