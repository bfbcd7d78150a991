package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/andytango/builder-6/internal/config"
	"github.com/andytango/builder-6/internal/llm"
	"github.com/andytango/builder-6/internal/llm/providers"
	"github.com/andytango/builder-6/internal/observability"
	"github.com/andytango/builder-6/internal/orchestrator"
	"github.com/andytango/builder-6/internal/sandbox"
	"github.com/andytango/builder-6/internal/store"
	"github.com/andytango/builder-6/internal/tools"
	"github.com/andytango/builder-6/internal/vcs"
)

// app bundles the wired collaborators a command handler needs. Built
// fresh per invocation from config.Load(), mirroring the teacher's
// per-command config-then-wire pattern rather than a long-lived
// global.
type app struct {
	cfg          config.Config
	store        store.Store
	runner       *llm.Runner
	supervisor   *sandbox.Supervisor
	githubClient *vcs.Client
	orchestrator *orchestrator.Orchestrator
	metrics      *observability.Metrics

	// evaluationRunner is left nil: the evaluation harness itself is
	// out of scope, so run-evaluation fails clearly rather than
	// silently doing nothing.
	evaluationRunner orchestrator.EvaluationRunner
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()

	st, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	registry := tools.NewRegistry()
	registry.Register(tools.NewShellTool())
	registry.Register(tools.NewWebFetchTool(http.DefaultClient))

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	retry := llm.RetryPolicy{
		MaxRetries:    cfg.LLMMaxRetries,
		InitialDelay:  cfg.LLMInitialRetryDelay,
		MaxDelay:      cfg.LLMMaxRetryDelay,
		BackoffFactor: cfg.LLMRetryBackoffFactor,
	}
	runner := llm.NewRunner(provider, retry, registry)
	runner.SetMetrics(metrics)

	runtime := sandbox.NewFirecrackerRuntime(sandbox.MachineConfig{
		RootFSPath: cfg.DockerDefaultImage,
	})
	supervisor := sandbox.New(sandbox.Config{
		GroupLimit:  cfg.DockerContainerLimit,
		IdleTimeout: cfg.DockerIdleTimeout,
	}, runtime, sandbox.NewVsockScriptExecutor(runtime))
	supervisor.SetMetrics(metrics)

	githubClient := vcs.New(cfg.GitHubToken)

	tools.RegisterDockerTools(registry, supervisor)
	tools.RegisterGitHubTools(registry, githubClient)

	orch := orchestrator.New(st, runner)
	orch.SetMetrics(metrics)

	return &app{
		cfg:          cfg,
		store:        st,
		runner:       runner,
		supervisor:   supervisor,
		githubClient: githubClient,
		orchestrator: orch,
		metrics:      metrics,
	}, nil
}

func newStore(cfg config.Config) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		return store.NewMemoryStore(), nil
	}
	return store.NewPostgresStore(cfg.DatabaseURL, store.DefaultPostgresConfig())
}

func newProvider(ctx context.Context, cfg config.Config) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case "gemini":
		return providers.NewGeminiProvider(ctx, providers.GeminiConfig{APIKey: cfg.GeminiAPIKey})
	case "openai":
		return providers.NewOpenAIProvider(providers.OpenAIConfig{APIKey: cfg.OpenAIAPIKey})
	case "anthropic":
		return providers.NewAnthropicProvider(providers.AnthropicConfig{APIKey: cfg.AnthropicAPIKey})
	default:
		return nil, fmt.Errorf("unknown llmProvider %q", cfg.LLMProvider)
	}
}
