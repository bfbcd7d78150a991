package orchestrator_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/andytango/builder-6/internal/llm"
	"github.com/andytango/builder-6/internal/orchestrator"
	"github.com/andytango/builder-6/internal/result"
	"github.com/andytango/builder-6/internal/store"
)

type fakeRunner struct {
	jsonQueue    []any
	jsonErr      error
	contentQueue []string
	toolsQueue   []llm.Response
	toolsErr     error
	toolResults  []llm.ToolCallResult
}

func (f *fakeRunner) GenerateJSON(ctx context.Context, prompt string) (any, error) {
	if f.jsonErr != nil {
		return nil, f.jsonErr
	}
	if len(f.jsonQueue) == 0 {
		return nil, errors.New("no queued json response")
	}
	v := f.jsonQueue[0]
	f.jsonQueue = f.jsonQueue[1:]
	return v, nil
}

func (f *fakeRunner) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if len(f.contentQueue) == 0 {
		return "", errors.New("no queued content response")
	}
	v := f.contentQueue[0]
	f.contentQueue = f.contentQueue[1:]
	return v, nil
}

func (f *fakeRunner) GenerateWithTools(ctx context.Context, prompt string) (llm.Response, error) {
	if f.toolsErr != nil {
		return llm.Response{}, f.toolsErr
	}
	if len(f.toolsQueue) == 0 {
		return llm.Response{Content: "done " + orchestratorSentinel()}, nil
	}
	v := f.toolsQueue[0]
	f.toolsQueue = f.toolsQueue[1:]
	return v, nil
}

func (f *fakeRunner) ExecuteToolCalls(ctx context.Context, calls []llm.ToolCall) []llm.ToolCallResult {
	return f.toolResults
}

func orchestratorSentinel() string { return "TASK_COMPLETE" }

func planValue(descriptions ...string) []map[string]string {
	out := make([]map[string]string, 0, len(descriptions))
	for _, d := range descriptions {
		out = append(out, map[string]string{"description": d})
	}
	return out
}

func TestStartPlanning_InsertsTasksAndAdvancesStatus(t *testing.T) {
	s := store.NewMemoryStore()
	runner := &fakeRunner{jsonQueue: []any{anyOf(planValue("write tests", "implement feature"))}}
	orch := orchestrator.New(s, runner)

	tasks, err := orch.StartPlanning(context.Background(), "build a widget", "https://example.com/repo.git", nil)
	if err != nil {
		t.Fatalf("StartPlanning() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].Order != 0 || tasks[1].Order != 1 {
		t.Fatalf("expected insertion order 0,1, got %d,%d", tasks[0].Order, tasks[1].Order)
	}

	session, err := s.RetrieveSession(context.Background(), tasks[0].SessionID)
	if err != nil || session == nil {
		t.Fatalf("expected to retrieve session, err=%v", err)
	}
	if session.Status != store.SessionAwaitingConfirmation {
		t.Fatalf("expected AWAITING_CONFIRMATION, got %s", session.Status)
	}
	if len(session.RawPlan) == 0 {
		t.Fatalf("expected rawPlan to be persisted")
	}
}

func TestStartPlanning_FallsBackToGenerateContentOnJSONFailure(t *testing.T) {
	s := store.NewMemoryStore()
	runner := &fakeRunner{
		jsonErr:      errors.New("json mode unavailable"),
		contentQueue: []string{"```json\n[{\"description\":\"set up repo\"}]\n```"},
	}
	orch := orchestrator.New(s, runner)

	tasks, err := orch.StartPlanning(context.Background(), "goal", "repo", nil)
	if err != nil {
		t.Fatalf("StartPlanning() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].Description != "set up repo" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestRefinePlan_SessionNotFound(t *testing.T) {
	s := store.NewMemoryStore()
	orch := orchestrator.New(s, &fakeRunner{})
	_, err := orch.RefinePlan(context.Background(), "missing", "add more tests")
	if !result.HasKind(err, result.KindSessionNotFound) {
		t.Fatalf("expected KindSessionNotFound, got %v", result.KindOf(err))
	}
}

func TestRefinePlan_ReplacesPriorPlan(t *testing.T) {
	s := store.NewMemoryStore()
	runner := &fakeRunner{jsonQueue: []any{anyOf(planValue("original task"))}}
	orch := orchestrator.New(s, runner)

	tasks, err := orch.StartPlanning(context.Background(), "goal", "repo", nil)
	if err != nil {
		t.Fatalf("StartPlanning() error = %v", err)
	}
	sessionID := tasks[0].SessionID

	runner.jsonQueue = []any{anyOf(planValue("revised task one", "revised task two"))}
	revised, err := orch.RefinePlan(context.Background(), sessionID, "split it up")
	if err != nil {
		t.Fatalf("RefinePlan() error = %v", err)
	}
	if len(revised) != 2 {
		t.Fatalf("expected 2 revised tasks, got %d", len(revised))
	}

	allTasks, err := s.ListTasks(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(allTasks) != 3 {
		t.Fatalf("expected the prior task plus 2 revised ones, got %d", len(allTasks))
	}
	if allTasks[0].Status != store.TaskCancelled {
		t.Fatalf("expected the superseded task to be CANCELLED, got %s", allTasks[0].Status)
	}
	for _, tk := range allTasks[1:] {
		if tk.Status != store.TaskPending {
			t.Fatalf("expected revised tasks to start PENDING, got %s", tk.Status)
		}
	}
}

func TestExecutePlan_RequiresAwaitingConfirmation(t *testing.T) {
	s := store.NewMemoryStore()
	session, err := s.CreateSession(context.Background(), &store.Session{Status: store.SessionPlanning})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	orch := orchestrator.New(s, &fakeRunner{})

	_, err = orch.ExecutePlan(context.Background(), session.ID)
	if !result.HasKind(err, result.KindSessionStateInvalid) {
		t.Fatalf("expected KindSessionStateInvalid, got %v", result.KindOf(err))
	}
}

func TestExecutePlan_CompletesAllTasks(t *testing.T) {
	s := store.NewMemoryStore()
	runner := &fakeRunner{jsonQueue: []any{anyOf(planValue("task one", "task two"))}}
	orch := orchestrator.New(s, runner)

	tasks, err := orch.StartPlanning(context.Background(), "goal", "repo", nil)
	if err != nil {
		t.Fatalf("StartPlanning() error = %v", err)
	}

	result, err := orch.ExecutePlan(context.Background(), tasks[0].SessionID)
	if err != nil {
		t.Fatalf("ExecutePlan() error = %v", err)
	}
	if result.Status != store.SessionCompleted {
		t.Fatalf("expected COMPLETED, got %s", result.Status)
	}
	if len(result.Log) != 2 {
		t.Fatalf("expected one react entry per task, got %d", len(result.Log))
	}

	allTasks, err := s.ListTasks(context.Background(), tasks[0].SessionID)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	for _, tk := range allTasks {
		if tk.Status != store.TaskCompleted {
			t.Fatalf("expected task %s to be COMPLETED, got %s", tk.ID, tk.Status)
		}
	}
}

func TestExecutePlan_DispatchesToolCallThenCompletes(t *testing.T) {
	s := store.NewMemoryStore()
	planRunner := &fakeRunner{jsonQueue: []any{anyOf(planValue("task one"))}}
	orch := orchestrator.New(s, planRunner)

	tasks, err := orch.StartPlanning(context.Background(), "goal", "repo", nil)
	if err != nil {
		t.Fatalf("StartPlanning() error = %v", err)
	}

	toolCall := llm.ToolCall{ID: "call_1", Name: "run_shell_command", Arguments: json.RawMessage(`{"command":"ls -l"}`)}
	execRunner := &fakeRunner{
		toolsQueue: []llm.Response{
			{Content: "", ToolCalls: []llm.ToolCall{toolCall}},
			{Content: "done TASK_COMPLETE"},
		},
		toolResults: []llm.ToolCallResult{{ToolCallID: "call_1", Result: "total 0"}},
	}
	orch = orchestrator.New(s, execRunner)

	res, err := orch.ExecutePlan(context.Background(), tasks[0].SessionID)
	if err != nil {
		t.Fatalf("ExecutePlan() error = %v", err)
	}
	if res.Status != store.SessionCompleted {
		t.Fatalf("expected COMPLETED, got %s", res.Status)
	}
	if len(res.Log) != 2 {
		t.Fatalf("expected log length 2, got %d", len(res.Log))
	}
	if len(res.Log[0].ToolCalls) != 1 || len(res.Log[0].ToolResults) != 1 {
		t.Fatalf("expected the first entry to carry one toolCall and one toolResult, got %+v", res.Log[0])
	}
	if res.Log[0].ToolResults[0].ToolCallID != "call_1" || res.Log[0].ToolResults[0].Result != "total 0" {
		t.Fatalf("unexpected tool result: %+v", res.Log[0].ToolResults[0])
	}
}

func TestExecutePlan_FailsBySafetyBoundAtFiftyOneEntries(t *testing.T) {
	s := store.NewMemoryStore()
	planRunner := &fakeRunner{jsonQueue: []any{anyOf(planValue("task one"))}}
	orch := orchestrator.New(s, planRunner)

	tasks, err := orch.StartPlanning(context.Background(), "goal", "repo", nil)
	if err != nil {
		t.Fatalf("StartPlanning() error = %v", err)
	}

	responses := make([]llm.Response, 51)
	for i := range responses {
		responses[i] = llm.Response{Content: "still working"}
	}
	orch = orchestrator.New(s, &fakeRunner{toolsQueue: responses})

	res, err := orch.ExecutePlan(context.Background(), tasks[0].SessionID)
	if err != nil {
		t.Fatalf("ExecutePlan() error = %v", err)
	}
	if len(res.Log) != 51 {
		t.Fatalf("expected the safety bound to fire at 51 history entries, got %d", len(res.Log))
	}

	task, err := s.RetrieveTask(context.Background(), tasks[0].ID)
	if err != nil {
		t.Fatalf("RetrieveTask() error = %v", err)
	}
	if task.Status != store.TaskFailed {
		t.Fatalf("expected task to be recorded FAILED by the safety bound, got %s", task.Status)
	}
}

func TestExecutePlan_DeadlineExceeded(t *testing.T) {
	s := store.NewMemoryStore()
	runner := &fakeRunner{jsonQueue: []any{anyOf(planValue("task one"))}}
	orch := orchestrator.New(s, runner)

	past := time.Now().Add(-time.Hour)
	tasks, err := orch.StartPlanning(context.Background(), "goal", "repo", &past)
	if err != nil {
		t.Fatalf("StartPlanning() error = %v", err)
	}

	result, err := orch.ExecutePlan(context.Background(), tasks[0].SessionID)
	if err != nil {
		t.Fatalf("ExecutePlan() error = %v", err)
	}
	if result.Status != store.SessionDeadlineExceeded {
		t.Fatalf("expected DEADLINE_EXCEEDED, got %s", result.Status)
	}
}

func TestExecutePlan_TaskLoopErrorPropagates(t *testing.T) {
	s := store.NewMemoryStore()
	planRunner := &fakeRunner{jsonQueue: []any{anyOf(planValue("task one"))}}
	orch := orchestrator.New(s, planRunner)

	tasks, err := orch.StartPlanning(context.Background(), "goal", "repo", nil)
	if err != nil {
		t.Fatalf("StartPlanning() error = %v", err)
	}

	failingRunner := &fakeRunner{toolsErr: errors.New("model upstream unavailable")}
	orch = orchestrator.New(s, failingRunner)

	_, err = orch.ExecutePlan(context.Background(), tasks[0].SessionID)
	if err == nil {
		t.Fatalf("expected the model error to propagate out of execution")
	}

	task, err := s.RetrieveTask(context.Background(), tasks[0].ID)
	if err != nil {
		t.Fatalf("RetrieveTask() error = %v", err)
	}
	if task.Status != store.TaskFailed {
		t.Fatalf("expected task to be recorded FAILED, got %s", task.Status)
	}
}

func anyOf(v []map[string]string) any {
	raw, _ := json.Marshal(v)
	var out any
	_ = json.Unmarshal(raw, &out)
	return out
}
