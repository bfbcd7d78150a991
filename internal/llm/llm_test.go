package llm_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/andytango/builder-6/internal/llm"
	"github.com/andytango/builder-6/internal/llm/fake"
	"github.com/andytango/builder-6/internal/result"
	"github.com/andytango/builder-6/internal/tools"
)

func TestRunner_GenerateContent(t *testing.T) {
	provider := fake.New("claude-like", "claude-3-opus")
	provider.QueueResponse("hello there")

	runner := llm.NewRunner(provider, llm.DefaultRetryPolicy(), tools.NewRegistry())
	content, err := runner.GenerateContent(context.Background(), "say hi")
	if err != nil {
		t.Fatalf("GenerateContent() error = %v", err)
	}
	if content != "hello there" {
		t.Fatalf("expected %q, got %q", "hello there", content)
	}
}

func TestRunner_GenerateContent_PromptTooLarge(t *testing.T) {
	provider := fake.New("gemini-like", "gemini-pro")
	runner := llm.NewRunner(provider, llm.DefaultRetryPolicy(), tools.NewRegistry())

	huge := make([]byte, 135000)
	for i := range huge {
		huge[i] = 'x'
	}
	_, err := runner.GenerateContent(context.Background(), string(huge))
	if err == nil {
		t.Fatalf("expected PromptTooLarge error")
	}
	if !result.HasKind(err, result.KindPromptTooLarge) {
		t.Fatalf("expected KindPromptTooLarge, got %v", result.KindOf(err))
	}
	if len(provider.Calls()) != 0 {
		t.Fatalf("expected no upstream call when prompt exceeds limit")
	}
}

func TestRunner_GenerateJSON_StripsMarkdownFence(t *testing.T) {
	provider := fake.New("openai-like", "gpt-4o")
	provider.QueueResponse("```json\n{\"answer\":42}\n```")

	runner := llm.NewRunner(provider, llm.DefaultRetryPolicy(), tools.NewRegistry())
	value, err := runner.GenerateJSON(context.Background(), "what is the answer")
	if err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}
	obj, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", value)
	}
	if obj["answer"] != float64(42) {
		t.Fatalf("expected answer=42, got %v", obj["answer"])
	}
}

func TestRunner_GenerateWithTools_MapsToolCalls(t *testing.T) {
	provider := fake.New("claude-like", "claude-3-opus")
	provider.QueueToolCalls([]llm.ToolCall{{ID: "call-1", Name: "echo", Arguments: json.RawMessage(`{"message":"hi"}`)}})

	registry := tools.NewRegistry()
	registry.Register(tools.Tool{
		Declaration: tools.Declaration{
			Name:       "echo",
			Parameters: tools.ObjectSchema(map[string]any{"message": map[string]any{"type": "string"}}, []string{"message"}),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Message string `json:"message"`
			}
			json.Unmarshal(args, &in)
			return in.Message, nil
		},
	})

	runner := llm.NewRunner(provider, llm.DefaultRetryPolicy(), registry)
	resp, err := runner.GenerateWithTools(context.Background(), "use the echo tool")
	if err != nil {
		t.Fatalf("GenerateWithTools() error = %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "echo" {
		t.Fatalf("expected one echo tool call, got %+v", resp.ToolCalls)
	}

	results := runner.ExecuteToolCalls(context.Background(), resp.ToolCalls)
	if len(results) != 1 || results[0].Result != "hi" {
		t.Fatalf("expected tool result %q, got %+v", "hi", results)
	}
}

func TestRunner_ExecuteToolCalls_CapturesDispatchFailureAsResult(t *testing.T) {
	provider := fake.New("claude-like", "claude-3-opus")
	runner := llm.NewRunner(provider, llm.DefaultRetryPolicy(), tools.NewRegistry())

	results := runner.ExecuteToolCalls(context.Background(), []llm.ToolCall{{ID: "call-1", Name: "missing"}})
	if len(results) != 1 {
		t.Fatalf("expected one result")
	}
	if results[0].Result == "" {
		t.Fatalf("expected a non-empty error message captured as the result")
	}
}

func TestRunner_GetConfig(t *testing.T) {
	provider := fake.New("openai-like", "gpt-4o")
	runner := llm.NewRunner(provider, llm.DefaultRetryPolicy(), tools.NewRegistry())

	config := runner.GetConfig()
	if config.Provider != "openai-like" || config.Model != "gpt-4o" {
		t.Fatalf("unexpected config: %+v", config)
	}
	if config.MaxRetries != 10 {
		t.Fatalf("expected default max retries 10, got %d", config.MaxRetries)
	}
}
