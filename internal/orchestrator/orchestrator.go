// Package orchestrator implements the agent orchestrator: planning,
// refinement, and sequential plan execution, each task driven through
// a per-task ReAct loop. The phases mirror the teacher's agentic loop
// (stream / execute-tools / continue, each a named method) collapsed
// from a streaming-channel design to this spec's synchronous
// accumulate-and-return ReactEntry list.
package orchestrator

import (
	"context"

	"github.com/andytango/builder-6/internal/llm"
	"github.com/andytango/builder-6/internal/observability"
	"github.com/andytango/builder-6/internal/store"
)

// ModelRunner is the narrow surface of C3's Runner the orchestrator
// drives.
type ModelRunner interface {
	GenerateJSON(ctx context.Context, prompt string) (any, error)
	GenerateContent(ctx context.Context, prompt string) (string, error)
	GenerateWithTools(ctx context.Context, prompt string) (llm.Response, error)
	ExecuteToolCalls(ctx context.Context, calls []llm.ToolCall) []llm.ToolCallResult
}

// Orchestrator implements startPlanning / refinePlan / executePlan
// against a persistence store and a model runner.
type Orchestrator struct {
	store   store.Store
	runner  ModelRunner
	metrics *observability.Metrics
}

// New constructs an Orchestrator bound to s (C2) and runner (C3).
func New(s store.Store, runner ModelRunner) *Orchestrator {
	return &Orchestrator{store: s, runner: runner}
}

// SetMetrics wires m into session/task lifecycle recording. Safe to
// call with nil to disable.
func (o *Orchestrator) SetMetrics(m *observability.Metrics) {
	o.metrics = m
}

// ReactEntry is one iteration of the per-task ReAct loop, persisted as
// part of a task's opaque history and returned in executePlan's log.
type ReactEntry struct {
	Content     string               `json:"content"`
	ToolCalls   []llm.ToolCall       `json:"tool_calls,omitempty"`
	ToolResults []llm.ToolCallResult `json:"tool_results,omitempty"`
	Observation []string             `json:"observation,omitempty"`
}

// ExecutionResult is executePlan's return value.
type ExecutionResult struct {
	Status store.SessionStatus `json:"status"`
	Log    []ReactEntry        `json:"log"`
}

const (
	maxHistoryItems      = 5
	maxLoopSteps         = 50
	taskCompleteSentinel = "TASK_COMPLETE"
)
