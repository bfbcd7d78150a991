package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

type shellArgs struct {
	Command string `json:"command"`
	Cwd     string `json:"cwd,omitempty"`
	Timeout int    `json:"timeout_seconds,omitempty"`
}

// NewShellTool builds the run_shell_command tool: a synchronous
// subprocess invocation with buffered stdout+stderr capture.
func NewShellTool() Tool {
	schema := ObjectSchema(map[string]any{
		"command":         map[string]any{"type": "string", "description": "shell command to run"},
		"cwd":             map[string]any{"type": "string", "description": "working directory"},
		"timeout_seconds": map[string]any{"type": "integer", "description": "kill the command after this many seconds"},
	}, []string{"command"})

	return Tool{
		Declaration: Declaration{
			Name:        "run_shell_command",
			Description: "Runs a shell command and returns its combined stdout and stderr.",
			Parameters:  schema,
		},
		Run: runShellCommand,
	}
}

func runShellCommand(ctx context.Context, raw json.RawMessage) (string, error) {
	var args shellArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("decode arguments: %w", err)
	}
	if args.Command == "" {
		return "", fmt.Errorf("command is required")
	}

	runCtx := ctx
	if args.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(args.Timeout)*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", args.Command)
	if args.Cwd != "" {
		cmd.Dir = args.Cwd
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("command exited with error: %w", err)
	}
	return out.String(), nil
}
