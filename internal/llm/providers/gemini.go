package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/andytango/builder-6/internal/llm"
	"github.com/andytango/builder-6/internal/tools"
)

// GeminiProvider adapts the gemini-like family.
type GeminiProvider struct {
	client       *genai.Client
	defaultModel string
}

// GeminiConfig configures a GeminiProvider.
type GeminiConfig struct {
	APIKey       string
	DefaultModel string
}

// NewGeminiProvider constructs a gemini-like provider.
func NewGeminiProvider(ctx context.Context, config GeminiConfig) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if config.DefaultModel == "" {
		config.DefaultModel = "gemini-1.5-pro"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	return &GeminiProvider{client: client, defaultModel: config.DefaultModel}, nil
}

// Name implements llm.Provider.
func (p *GeminiProvider) Name() string { return "gemini" }

// DefaultModel implements llm.Provider.
func (p *GeminiProvider) DefaultModel() string { return p.defaultModel }

func convertGeminiTools(decls []tools.Declaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}
	funcs := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		var schema genai.Schema
		if err := json.Unmarshal(d.Parameters, &schema); err != nil {
			continue
		}
		funcs = append(funcs, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  &schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: funcs}}
}

// GenerateText implements llm.Provider with a single synchronous
// content-generation call.
func (p *GeminiProvider) GenerateText(ctx context.Context, model, prompt string, toolDecls []tools.Declaration) (llm.Response, error) {
	config := &genai.GenerateContentConfig{}
	if toolList := convertGeminiTools(toolDecls); len(toolList) > 0 {
		config.Tools = toolList
	}

	result, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return llm.Response{}, fmt.Errorf("gemini: %w", err)
	}

	resp := llm.Response{}
	if result.UsageMetadata != nil {
		resp.Usage = &llm.Usage{
			InputTokens:  int(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int(result.UsageMetadata.CandidatesTokenCount),
		}
	}

	if len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		for _, part := range result.Candidates[0].Content.Parts {
			if part.Text != "" {
				resp.Content += part.Text
			}
			if part.FunctionCall != nil {
				args, _ := json.Marshal(part.FunctionCall.Args)
				resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
					Name:      part.FunctionCall.Name,
					Arguments: args,
				})
			}
		}
	}
	return resp, nil
}
