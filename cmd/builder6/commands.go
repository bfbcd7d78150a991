// commands.go contains all cobra command definitions and their flag
// configurations. Each command builder function creates a command and
// wires it to a handler that assembles an app from config.Load() and
// drives the orchestrator/supervisor.
package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// =============================================================================
// Plan Command
// =============================================================================

func buildPlanCmd() *cobra.Command {
	var (
		prompt      string
		repoURL     string
		deadlineStr string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a task breakdown for a prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}

			var deadline *time.Time
			if deadlineStr != "" {
				d, err := time.Parse(time.RFC3339, deadlineStr)
				if err != nil {
					return fmt.Errorf("invalid --deadline: %w", err)
				}
				deadline = &d
			}

			tasks, err := app.orchestrator.StartPlanning(cmd.Context(), prompt, repoURL, deadline)
			if err != nil {
				return err
			}
			return printJSON(cmd, tasks)
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "Goal to break down into tasks (required)")
	cmd.Flags().StringVar(&repoURL, "repo-url", "", "Repository the plan operates against (required)")
	cmd.Flags().StringVar(&deadlineStr, "deadline", "", "RFC3339 deadline for the session (optional)")
	_ = cmd.MarkFlagRequired("prompt")
	_ = cmd.MarkFlagRequired("repo-url")

	return cmd
}

// =============================================================================
// Execute Command
// =============================================================================

func buildExecuteCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Execute a planned session's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}

			result, err := app.orchestrator.ExecutePlan(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session to execute (required)")
	_ = cmd.MarkFlagRequired("session-id")

	return cmd
}

// =============================================================================
// Cleanup Containers Command
// =============================================================================

func buildCleanupContainersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-containers",
		Short: "Destroy containers that have been idle past the configured timeout",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}

			count := app.supervisor.CleanupIdleContainers(cmd.Context())
			cmd.Printf("destroyed %d idle container(s)\n", count)
			return nil
		},
	}
}

// =============================================================================
// List Sessions Command
// =============================================================================

func buildListSessionsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list-sessions",
		Short: "List recent sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}

			sessions, err := app.store.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, sessions)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of sessions to list (0 for unbounded)")

	return cmd
}

// =============================================================================
// Run Evaluation Command
// =============================================================================

func buildRunEvaluationCmd() *cobra.Command {
	var html bool

	cmd := &cobra.Command{
		Use:   "run-evaluation",
		Short: "Run the configured evaluation harness against the orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			if app.evaluationRunner == nil {
				return fmt.Errorf("run-evaluation: no evaluation runner configured")
			}

			report, err := app.evaluationRunner.RunEvaluation(cmd.Context(), html)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}

	cmd.Flags().BoolVar(&html, "html", false, "Render an HTML evaluation report alongside the JSON summary")

	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(encoded))
	return nil
}
