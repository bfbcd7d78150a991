package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFileOverlay reads a YAML file at path and overlays any key it
// sets onto cfg, leaving fields the file omits untouched. Grounded on
// internal/config's file-then-env layering, simplified to a single
// file with no $include resolution since this spec has no nested
// config surface to merge.
func LoadFileOverlay(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read overlay file %s: %w", path, err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return cfg, fmt.Errorf("config: parse overlay file %s: %w", path, err)
	}

	merged := cfg
	mergeString(&merged.LLMProvider, overlay.LLMProvider)
	mergeString(&merged.GeminiAPIKey, overlay.GeminiAPIKey)
	mergeString(&merged.OpenAIAPIKey, overlay.OpenAIAPIKey)
	mergeString(&merged.AnthropicAPIKey, overlay.AnthropicAPIKey)
	mergeString(&merged.GitHubToken, overlay.GitHubToken)
	mergeString(&merged.DockerContainerPrefix, overlay.DockerContainerPrefix)
	mergeString(&merged.DockerDefaultImage, overlay.DockerDefaultImage)
	mergeString(&merged.DockerSocketPath, overlay.DockerSocketPath)
	mergeString(&merged.DatabaseURL, overlay.DatabaseURL)

	if overlay.LLMMaxRetries != 0 {
		merged.LLMMaxRetries = overlay.LLMMaxRetries
	}
	if overlay.LLMInitialRetryDelay != 0 {
		merged.LLMInitialRetryDelay = overlay.LLMInitialRetryDelay
	}
	if overlay.LLMMaxRetryDelay != 0 {
		merged.LLMMaxRetryDelay = overlay.LLMMaxRetryDelay
	}
	if overlay.LLMRetryBackoffFactor != 0 {
		merged.LLMRetryBackoffFactor = overlay.LLMRetryBackoffFactor
	}
	if overlay.DockerContainerLimit != 0 {
		merged.DockerContainerLimit = overlay.DockerContainerLimit
	}
	if overlay.DockerIdleTimeout != 0 {
		merged.DockerIdleTimeout = overlay.DockerIdleTimeout
	}
	if overlay.DebugEnabled {
		merged.DebugEnabled = true
	}

	return merged, nil
}

func mergeString(dst *string, overlay string) {
	if overlay != "" {
		*dst = overlay
	}
}
