// Package tools implements the universal tool registry and
// dispatcher: JSON-schema-declared tools, looked up by exact name and
// invoked with schema-validated arguments before dispatch.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/andytango/builder-6/internal/result"
)

// Declaration is the static record every tool publishes: a name,
// description, and JSON-schema-shaped parameters. The same
// declarations are adapted by C3 into provider-native tool
// descriptions.
type Declaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Executor is the native shape a registered tool implements: it
// receives JSON-schema-validated arguments and returns its output as
// a single string, or an error.
type Executor func(ctx context.Context, args json.RawMessage) (string, error)

// Tool pairs a Declaration with its Executor.
type Tool struct {
	Declaration Declaration
	Run         Executor
}

// Registry holds every tool the agent orchestrator can dispatch to,
// keyed by exact name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds tool to the registry, replacing any existing tool of
// the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Declaration.Name] = tool
}

// Declarations returns every registered tool's Declaration, the
// shape C3 adapts into provider-native tool descriptions.
func (r *Registry) Declarations() []Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Declaration, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Declaration)
	}
	return out
}

// Execute looks up name and invokes it with args, after validating
// args against the tool's schema. An unknown tool fails with
// ToolUnknown; invalid arguments fail with ToolArgumentInvalid.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (string, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", result.New(result.KindToolUnknown, "tool not found: "+name)
	}

	if len(tool.Declaration.Parameters) > 0 {
		if err := ValidateArgs(tool.Declaration.Parameters, args); err != nil {
			return "", result.Wrap(result.KindToolArgumentInvalid, fmt.Sprintf("invalid arguments for tool %s", name), err)
		}
	}

	return tool.Run(ctx, args)
}
