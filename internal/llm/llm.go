// Package llm provides a provider-agnostic model runner: prompt-size
// validation, retry-with-backoff for transient upstream failures, and
// unified text/JSON/tool-call generation across Gemini-like,
// OpenAI-like, and Claude-like backends.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/andytango/builder-6/internal/observability"
	"github.com/andytango/builder-6/internal/result"
	"github.com/andytango/builder-6/internal/tools"
)

func promptTooLargeErr(tokens int, model string, limit int) error {
	return result.New(result.KindPromptTooLarge,
		fmt.Sprintf("Prompt too large: %d tokens exceeds %s limit of %d tokens", tokens, model, limit))
}

// ToolCall is the universal shape a provider maps its native
// tool-call representation into and out of.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Usage reports token accounting for a single generation call, when
// the provider exposes it.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the result of generateResponse / generateWithTools.
type Response struct {
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Provider  string     `json:"provider"`
	Model     string     `json:"model"`
	Usage     *Usage     `json:"usage,omitempty"`
}

// ToolCallResult pairs a dispatched tool call with its result, the
// return shape of executeToolCalls.
type ToolCallResult struct {
	ToolCallID string `json:"tool_call_id"`
	Result     string `json:"result"`
}

// Config reports the runner's active provider and retry policy, the
// return value of getConfig.
type Config struct {
	Provider           string `json:"provider"`
	Model              string `json:"model"`
	MaxRetries         int    `json:"max_retries"`
	InitialRetryDelay  int    `json:"initial_retry_delay_ms"`
	MaxRetryDelay      int    `json:"max_retry_delay_ms"`
	RetryBackoffFactor int    `json:"retry_backoff_factor"`
}

// Provider is implemented once per backend family (gemini-like,
// openai-like, claude-like). Runner adapts every call through it.
type Provider interface {
	// Name identifies the provider for Config and error messages.
	Name() string

	// DefaultModel returns the model used when a call does not
	// specify one.
	DefaultModel() string

	// GenerateText sends prompt (with an optional set of tool
	// declarations, which may be nil for plain text generation) and
	// returns the raw response.
	GenerateText(ctx context.Context, model, prompt string, toolDecls []tools.Declaration) (Response, error)
}

// Runner is the model-runner surface described in the agent
// orchestrator's dependency graph: provider-agnostic text/JSON/tool
// generation with token accounting, retry, and tool dispatch.
type Runner struct {
	provider Provider
	retry    RetryPolicy
	registry *tools.Registry
	metrics  *observability.Metrics
}

// NewRunner constructs a Runner bound to provider, a retry policy,
// and the tool registry executeToolCalls dispatches through.
func NewRunner(provider Provider, retry RetryPolicy, registry *tools.Registry) *Runner {
	return &Runner{provider: provider, retry: retry, registry: registry}
}

// SetMetrics wires m into the runner's retry schedule, so every
// retried attempt against the active provider is recorded. Safe to
// call with nil to disable.
func (r *Runner) SetMetrics(m *observability.Metrics) {
	r.metrics = m
	providerName := r.provider.Name()
	r.retry.OnRetry = func(attempt int) {
		m.RecordLLMRetry(providerName)
	}
}

func (r *Runner) model() string {
	return r.provider.DefaultModel()
}

func (r *Runner) validate(prompt string) (PromptSizeCheck, error) {
	check, err := CheckPromptSize(prompt, r.model())
	if err != nil {
		r.metrics.RecordLLMRequestFinal(r.provider.Name(), "prompt_too_large")
	}
	return check, err
}

// GenerateContent returns the plain text of a completion.
func (r *Runner) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := r.GenerateResponse(ctx, prompt)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// GenerateResponse performs prompt-size validation, then a
// retried generation call, returning content plus provider metadata.
func (r *Runner) GenerateResponse(ctx context.Context, prompt string) (Response, error) {
	if _, err := r.validate(prompt); err != nil {
		return Response{}, err
	}

	var resp Response
	err := r.retry.Do(ctx, func() error {
		var genErr error
		resp, genErr = r.provider.GenerateText(ctx, r.model(), prompt, nil)
		return genErr
	})
	if err != nil {
		r.metrics.RecordLLMRequestFinal(r.provider.Name(), "fatal")
		return Response{}, err
	}
	r.metrics.RecordLLMRequestFinal(r.provider.Name(), "success")
	resp.Provider = r.provider.Name()
	resp.Model = r.model()
	return resp, nil
}

// jsonPrefiller is implemented by providers (claude-like) that can
// force a leading "{" in the assistant turn to guarantee a
// parseable JSON object response.
type jsonPrefiller interface {
	GenerateJSONPrefilled(ctx context.Context, model, prompt string) (string, error)
}

// GenerateJSON generates a response and parses it as JSON, stripping
// a surrounding markdown code fence first if present. Providers that
// support a JSON-prefill technique use it instead of plain text
// generation.
func (r *Runner) GenerateJSON(ctx context.Context, prompt string) (any, error) {
	if _, err := r.validate(prompt); err != nil {
		return nil, err
	}

	var content string
	if prefiller, ok := r.provider.(jsonPrefiller); ok {
		err := r.retry.Do(ctx, func() error {
			var genErr error
			content, genErr = prefiller.GenerateJSONPrefilled(ctx, r.model(), prompt)
			return genErr
		})
		if err != nil {
			return nil, err
		}
	} else {
		text, err := r.GenerateContent(ctx, prompt)
		if err != nil {
			return nil, err
		}
		content = text
	}

	stripped := stripCodeFence(content)

	var value any
	if err := json.Unmarshal([]byte(stripped), &value); err != nil {
		return nil, result.Wrap(result.KindPlanParseFailed, "failed to parse model output as JSON", err)
	}
	return value, nil
}

// GenerateWithTools performs a tool-enabled generation call, mapping
// the provider's native tool-call representation into the universal
// {id,name,arguments} shape.
func (r *Runner) GenerateWithTools(ctx context.Context, prompt string) (Response, error) {
	if _, err := r.validate(prompt); err != nil {
		return Response{}, err
	}

	decls := r.registry.Declarations()
	var resp Response
	err := r.retry.Do(ctx, func() error {
		var genErr error
		resp, genErr = r.provider.GenerateText(ctx, r.model(), prompt, decls)
		return genErr
	})
	if err != nil {
		r.metrics.RecordLLMRequestFinal(r.provider.Name(), "fatal")
		return Response{}, err
	}
	r.metrics.RecordLLMRequestFinal(r.provider.Name(), "success")
	resp.Provider = r.provider.Name()
	resp.Model = r.model()
	return resp, nil
}

// ExecuteToolCalls dispatches each call through the tool registry,
// converting dispatch failures into a structured error result rather
// than propagating them, so callers can feed them back to the model.
func (r *Runner) ExecuteToolCalls(ctx context.Context, calls []ToolCall) []ToolCallResult {
	out := make([]ToolCallResult, 0, len(calls))
	for _, call := range calls {
		content, err := r.registry.Execute(ctx, call.Name, call.Arguments)
		if err != nil {
			payload, _ := json.Marshal(map[string]string{"error": err.Error()})
			out = append(out, ToolCallResult{ToolCallID: call.ID, Result: string(payload)})
			continue
		}
		out = append(out, ToolCallResult{ToolCallID: call.ID, Result: content})
	}
	return out
}

// GetConfig reports the runner's active provider and retry policy.
func (r *Runner) GetConfig() Config {
	return Config{
		Provider:           r.provider.Name(),
		Model:              r.model(),
		MaxRetries:         r.retry.MaxRetries,
		InitialRetryDelay:  int(r.retry.InitialDelay.Milliseconds()),
		MaxRetryDelay:      int(r.retry.MaxDelay.Milliseconds()),
		RetryBackoffFactor: int(r.retry.BackoffFactor),
	}
}
