package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/andytango/builder-6/internal/result"
	"github.com/andytango/builder-6/internal/store"
)

// ExecutePlan requires the session to be AWAITING_CONFIRMATION,
// advances it to EXECUTING, and sequentially drives every pending
// task through the ReAct loop until the plan is exhausted, the
// deadline passes, or a task's own error propagates.
func (o *Orchestrator) ExecutePlan(ctx context.Context, sessionID string) (ExecutionResult, error) {
	session, err := o.store.RetrieveSession(ctx, sessionID)
	if err != nil {
		return ExecutionResult{}, err
	}
	if session == nil {
		return ExecutionResult{}, result.New(result.KindSessionNotFound, fmt.Sprintf("session %s not found", sessionID))
	}
	if session.Status != store.SessionAwaitingConfirmation {
		return ExecutionResult{}, result.New(result.KindSessionStateInvalid,
			fmt.Sprintf("session %s is %s, not AWAITING_CONFIRMATION", sessionID, session.Status))
	}

	executing := store.SessionExecuting
	if _, err := o.store.UpdateSession(ctx, sessionID, store.SessionPartial{Status: &executing}); err != nil {
		return ExecutionResult{}, err
	}

	var log []ReactEntry
	for {
		if session.Deadline != nil && time.Now().After(*session.Deadline) {
			return o.finishSession(ctx, sessionID, store.SessionDeadlineExceeded, log)
		}

		tasks, err := o.store.ListTasks(ctx, sessionID)
		if err != nil {
			return ExecutionResult{}, err
		}

		next := firstPending(tasks)
		if next == nil {
			return o.finishSession(ctx, sessionID, store.SessionCompleted, log)
		}

		inProgress := store.TaskInProgress
		if _, err := o.store.UpdateTask(ctx, next.ID, store.TaskPartial{Status: &inProgress}); err != nil {
			return ExecutionResult{}, err
		}

		finalStatus, entries, loopErr := o.runReactLoop(ctx, next)
		log = append(log, entries...)
		if _, updateErr := o.store.UpdateTask(ctx, next.ID, store.TaskPartial{Status: &finalStatus}); updateErr != nil {
			return ExecutionResult{}, updateErr
		}
		o.metrics.RecordTaskFinished(string(finalStatus), len(entries))
		if loopErr != nil {
			return ExecutionResult{Status: session.Status, Log: log}, loopErr
		}
	}
}

func (o *Orchestrator) finishSession(ctx context.Context, sessionID string, status store.SessionStatus, log []ReactEntry) (ExecutionResult, error) {
	if _, err := o.store.UpdateSession(ctx, sessionID, store.SessionPartial{Status: &status}); err != nil {
		return ExecutionResult{}, err
	}
	o.metrics.RecordSessionFinished(string(status))
	return ExecutionResult{Status: status, Log: log}, nil
}

func firstPending(tasks []*store.Task) *store.Task {
	for _, t := range tasks {
		if t.Status == store.TaskPending {
			return t
		}
	}
	return nil
}
