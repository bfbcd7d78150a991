package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/andytango/builder-6/internal/store"
)

// runReactLoop drives task through the per-task ReAct loop: build a
// compact prompt from the task description and recent history, call
// generateWithTools, dispatch any tool calls, append the resulting
// entry to history, and check for termination. History starts from
// the task's persisted payload (or empty) and is persisted back to
// C2 after every iteration.
func (o *Orchestrator) runReactLoop(ctx context.Context, task *store.Task) (store.TaskStatus, []ReactEntry, error) {
	history := decodeHistory(task.History)

	for {
		prompt := buildReactPrompt(task.Description, history)

		resp, err := o.runner.GenerateWithTools(ctx, prompt)
		if err != nil {
			return store.TaskFailed, history, err
		}

		entry := ReactEntry{Content: resp.Content, ToolCalls: resp.ToolCalls}
		if len(resp.ToolCalls) > 0 {
			results := o.runner.ExecuteToolCalls(ctx, resp.ToolCalls)
			entry.ToolResults = results
			for _, r := range results {
				entry.Observation = append(entry.Observation, r.Result)
			}
		}

		history = append(history, entry)
		if err := o.persistHistory(ctx, task.ID, history); err != nil {
			return store.TaskFailed, history, err
		}

		if strings.Contains(resp.Content, taskCompleteSentinel) {
			return store.TaskCompleted, history, nil
		}
		if len(history) > maxLoopSteps {
			return store.TaskFailed, history, nil
		}
	}
}

func (o *Orchestrator) persistHistory(ctx context.Context, taskID string, history []ReactEntry) error {
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("orchestrator: serialize task history: %w", err)
	}
	_, err = o.store.UpdateTask(ctx, taskID, store.TaskPartial{History: &raw})
	return err
}

func decodeHistory(raw []byte) []ReactEntry {
	if len(raw) == 0 {
		return nil
	}
	var history []ReactEntry
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil
	}
	return history
}

// buildReactPrompt builds the compact prompt described by §4.7.5: the
// task description, a summary line when history exceeds the
// most-recent window, the window itself flattened to content (or a
// placeholder), and the TASK_COMPLETE instruction.
func buildReactPrompt(description string, history []ReactEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", description)

	if len(history) > maxHistoryItems {
		fmt.Fprintf(&b, "(%d earlier actions omitted)\n", len(history)-maxHistoryItems)
	}

	window := history
	if len(window) > maxHistoryItems {
		window = window[len(window)-maxHistoryItems:]
	}
	for i, entry := range window {
		content := entry.Content
		if content == "" {
			content = "(no content)"
		}
		fmt.Fprintf(&b, "Action %d: %s\n", i+1, content)
	}

	b.WriteString(fmt.Sprintf("Use tools as needed to make progress on the task. When the task is finished, include the exact text %s in your response.\n", taskCompleteSentinel))
	return b.String()
}
