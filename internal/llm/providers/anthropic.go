// Package providers adapts the three provider families the runner
// recognises (gemini-like, openai-like, claude-like) onto the
// llm.Provider surface: default model selection, tool-declaration
// construction from the universal tools.Declaration shape, and
// mapping provider-native tool calls back into {id,name,arguments}.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/andytango/builder-6/internal/llm"
	"github.com/andytango/builder-6/internal/tools"
)

// AnthropicProvider adapts the claude-like family.
type AnthropicProvider struct {
	client       anthropic.Client
	defaultModel string
	maxTokens    int
}

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxTokens    int
}

// NewAnthropicProvider constructs a claude-like provider.
func NewAnthropicProvider(config AnthropicConfig) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if config.DefaultModel == "" {
		config.DefaultModel = "claude-3-5-sonnet-20241022"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if strings.TrimSpace(config.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicProvider{
		client:       anthropic.NewClient(opts...),
		defaultModel: config.DefaultModel,
		maxTokens:    config.MaxTokens,
	}, nil
}

// Name implements llm.Provider.
func (p *AnthropicProvider) Name() string { return "claude" }

// DefaultModel implements llm.Provider.
func (p *AnthropicProvider) DefaultModel() string { return p.defaultModel }

func (p *AnthropicProvider) convertTools(decls []tools.Declaration) ([]anthropic.ToolUnionParam, error) {
	var out []anthropic.ToolUnionParam
	for _, d := range decls {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(d.Parameters, &schema); err != nil {
			return nil, fmt.Errorf("invalid schema for tool %s: %w", d.Name, err)
		}
		param := anthropic.ToolUnionParamOfTool(schema, d.Name)
		if param.OfTool != nil {
			param.OfTool.Description = anthropic.String(d.Description)
		}
		out = append(out, param)
	}
	return out, nil
}

// GenerateText implements llm.Provider with a single synchronous
// completion call (no streaming — the runner consumes accumulated
// responses, not incremental chunks).
func (p *AnthropicProvider) GenerateText(ctx context.Context, model, prompt string, toolDecls []tools.Declaration) (llm.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	if len(toolDecls) > 0 {
		toolParams, err := p.convertTools(toolDecls)
		if err != nil {
			return llm.Response{}, err
		}
		params.Tools = toolParams
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{}, fmt.Errorf("anthropic: %w", err)
	}

	resp := llm.Response{
		Usage: &llm.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}

	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "tool_use":
			use := block.AsToolUse()
			input, _ := json.Marshal(use.Input)
			resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{ID: use.ID, Name: use.Name, Arguments: input})
		}
	}
	resp.Content = text.String()
	return resp, nil
}

// GenerateJSONPrefilled implements the Claude JSON-prefill technique:
// the assistant turn is forced to start with "{" and the returned
// text is re-prepended with it, guaranteeing a parseable JSON object
// for schemas whose top level is an object.
func (p *AnthropicProvider) GenerateJSONPrefilled(ctx context.Context, model, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock("{")),
		},
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	return "{" + text.String(), nil
}
