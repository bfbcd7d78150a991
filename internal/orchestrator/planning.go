package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andytango/builder-6/internal/result"
	"github.com/andytango/builder-6/internal/store"
)

type planTaskSpec struct {
	Description string `json:"description"`
}

// StartPlanning creates a session in status PLANNING, asks the model
// for an ordered task breakdown, inserts each as a task via C2, and
// advances the session to AWAITING_CONFIRMATION.
func (o *Orchestrator) StartPlanning(ctx context.Context, prompt, repoURL string, deadline *time.Time) ([]*store.Task, error) {
	session, err := o.store.CreateSession(ctx, &store.Session{Status: store.SessionPlanning, Deadline: deadline})
	if err != nil {
		return nil, err
	}
	o.metrics.RecordSessionCreated(string(store.SessionPlanning))

	specs, err := o.requestPlan(ctx, planningPrompt(prompt, repoURL))
	if err != nil {
		return nil, err
	}

	return o.persistPlan(ctx, session.ID, specs)
}

// RefinePlan requires an existing session, composes a revision prompt
// from the prior plan's descriptions plus refinementPrompt, and
// replaces the plan wholesale with the model's revised breakdown.
func (o *Orchestrator) RefinePlan(ctx context.Context, sessionID, refinementPrompt string) ([]*store.Task, error) {
	session, err := o.store.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, result.New(result.KindSessionNotFound, fmt.Sprintf("session %s not found", sessionID))
	}

	priorTasks, err := o.store.ListTasks(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	descriptions := make([]string, 0, len(priorTasks))
	for _, t := range priorTasks {
		descriptions = append(descriptions, t.Description)
	}

	specs, err := o.requestPlan(ctx, refinementPromptText(descriptions, refinementPrompt))
	if err != nil {
		return nil, err
	}

	// Refinement replaces the plan wholesale: any task from the prior
	// plan that has not already reached a terminal status is
	// superseded rather than left PENDING to run alongside the
	// revised tasks.
	cancelled := store.TaskCancelled
	for _, t := range priorTasks {
		if t.Status == store.TaskPending || t.Status == store.TaskInProgress {
			if _, err := o.store.UpdateTask(ctx, t.ID, store.TaskPartial{Status: &cancelled}); err != nil {
				return nil, err
			}
		}
	}

	return o.persistPlan(ctx, sessionID, specs)
}

// requestPlan issues a single JSON-mode generation, falling back to
// generateContent with fenced/raw JSON parsing if GenerateJSON returns
// any error.
func (o *Orchestrator) requestPlan(ctx context.Context, prompt string) ([]planTaskSpec, error) {
	value, err := o.runner.GenerateJSON(ctx, prompt)
	if err == nil {
		return decodePlanValue(value)
	}

	text, fallbackErr := o.runner.GenerateContent(ctx, prompt)
	if fallbackErr != nil {
		return nil, fallbackErr
	}
	return parsePlanText(text)
}

func decodePlanValue(value any) ([]planTaskSpec, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, result.Wrap(result.KindPlanParseFailed, "failed to re-marshal generated plan", err)
	}
	var specs []planTaskSpec
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil, result.Wrap(result.KindPlanParseFailed, "generated plan is not an array of task descriptions", err)
	}
	return specs, nil
}

func parsePlanText(text string) ([]planTaskSpec, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		lines := strings.Split(trimmed, "\n")
		if len(lines) >= 2 {
			trimmed = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	var specs []planTaskSpec
	if err := json.Unmarshal([]byte(trimmed), &specs); err != nil {
		return nil, result.Wrap(result.KindPlanParseFailed, "failed to parse plan from model output", err)
	}
	return specs, nil
}

// persistPlan inserts each task description in order via C2,
// persists the ordered list as the session's rawPlan, and advances
// the session to AWAITING_CONFIRMATION.
func (o *Orchestrator) persistPlan(ctx context.Context, sessionID string, specs []planTaskSpec) ([]*store.Task, error) {
	tasks := make([]*store.Task, 0, len(specs))
	for _, spec := range specs {
		task, err := o.store.InsertTask(ctx, sessionID, spec.Description, nil)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	rawPlan, err := json.Marshal(tasks)
	if err != nil {
		return nil, result.Wrap(result.KindPlanParseFailed, "failed to serialize plan", err)
	}

	status := store.SessionAwaitingConfirmation
	if _, err := o.store.UpdateSession(ctx, sessionID, store.SessionPartial{Status: &status, RawPlan: &rawPlan}); err != nil {
		return nil, err
	}

	return tasks, nil
}

func planningPrompt(prompt, repoURL string) string {
	return fmt.Sprintf(
		"Break the following goal into an ordered JSON array of objects, each with a single \"description\" field describing one concrete task. "+
			"Goal: %s\nRepository: %s\nRespond with only the JSON array.",
		prompt, repoURL)
}

func refinementPromptText(existingDescriptions []string, refinement string) string {
	return fmt.Sprintf(
		"The current plan consists of these tasks: %s. Revise the plan given this instruction: %s. "+
			"Respond with only a JSON array of objects, each with a single \"description\" field, representing the complete revised plan.",
		strings.Join(existingDescriptions, ", "), refinement)
}
