// Package main provides the CLI entry point for builder-6: an
// autonomous coding agent that plans a task breakdown from a prompt,
// executes each task through a sandboxed ReAct loop, and drives a
// repository host for the resulting changes.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "builder6",
		Short: "builder-6 — autonomous coding agent orchestrator",
		Long: `builder-6 plans a task breakdown from a prompt, executes each task
through a sandboxed ReAct loop, and drives a repository host for the
resulting changes.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		buildPlanCmd(),
		buildExecuteCmd(),
		buildCleanupContainersCmd(),
		buildListSessionsCmd(),
		buildRunEvaluationCmd(),
	)
	return root
}
