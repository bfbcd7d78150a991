package store

import (
	"context"
	"testing"
	"time"

	"github.com/andytango/builder-6/internal/result"
)

func TestMemoryStoreSessionLifecycle(t *testing.T) {
	m := NewMemoryStore()

	sess, err := m.CreateSession(context.Background(), &Session{})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if sess.ID == "" {
		t.Fatalf("expected session id to be assigned")
	}
	if sess.Status != SessionOpen {
		t.Fatalf("expected default status OPEN, got %s", sess.Status)
	}

	loaded, err := m.RetrieveSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("RetrieveSession() error = %v", err)
	}
	if loaded.ID != sess.ID {
		t.Fatalf("expected matching id")
	}

	newStatus := SessionExecuting
	updated, err := m.UpdateSession(context.Background(), sess.ID, SessionPartial{Status: &newStatus})
	if err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}
	if updated.Status != SessionExecuting {
		t.Fatalf("expected status EXECUTING, got %s", updated.Status)
	}
}

func TestMemoryStoreUpdateSession_NotFound(t *testing.T) {
	m := NewMemoryStore()
	status := SessionCompleted
	_, err := m.UpdateSession(context.Background(), "missing", SessionPartial{Status: &status})
	if err == nil {
		t.Fatalf("expected error for missing session")
	}
	if !result.HasKind(err, result.KindSessionNotFound) {
		t.Fatalf("expected KindSessionNotFound, got %v", result.KindOf(err))
	}
}

// TestMemoryStoreTaskOrderMonotonic asserts the spec's task-order
// invariant: inserting N tasks without an explicit order yields
// Order values 0..N-1 in insertion sequence, and ListTasks returns
// them in that same strictly ascending order.
func TestMemoryStoreTaskOrderMonotonic(t *testing.T) {
	m := NewMemoryStore()
	sess, _ := m.CreateSession(context.Background(), &Session{})

	const n = 5
	for i := 0; i < n; i++ {
		task, err := m.InsertTask(context.Background(), sess.ID, "step", nil)
		if err != nil {
			t.Fatalf("InsertTask() error = %v", err)
		}
		if task.Order != i {
			t.Fatalf("expected order %d, got %d", i, task.Order)
		}
	}

	tasks, err := m.ListTasks(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != n {
		t.Fatalf("expected %d tasks, got %d", n, len(tasks))
	}
	for i, task := range tasks {
		if task.Order != i {
			t.Fatalf("tasks out of order at position %d: order=%d", i, task.Order)
		}
	}
}

func TestMemoryStoreUpdateTaskStatus_AbsentReturnsNilNotError(t *testing.T) {
	m := NewMemoryStore()
	task, err := m.UpdateTaskStatus(context.Background(), "missing", TaskCompleted)
	if err != nil {
		t.Fatalf("expected nil error for absent task, got %v", err)
	}
	if task != nil {
		t.Fatalf("expected nil task")
	}
}

func TestMemoryStoreUpdateTask_NotFound(t *testing.T) {
	m := NewMemoryStore()
	status := TaskFailed
	_, err := m.UpdateTask(context.Background(), "missing", TaskPartial{Status: &status})
	if err == nil {
		t.Fatalf("expected error for missing task")
	}
	if !result.HasKind(err, result.KindTaskNotFound) {
		t.Fatalf("expected KindTaskNotFound, got %v", result.KindOf(err))
	}
}

func TestMemoryStoreUpdateTask_BumpsUpdatedAt(t *testing.T) {
	m := NewMemoryStore()
	sess, _ := m.CreateSession(context.Background(), &Session{})
	task, _ := m.InsertTask(context.Background(), sess.ID, "step", nil)

	before := task.UpdatedAt
	time.Sleep(time.Millisecond)
	status := TaskInProgress
	updated, err := m.UpdateTask(context.Background(), task.ID, TaskPartial{Status: &status})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if !updated.UpdatedAt.After(before) {
		t.Fatalf("expected UpdatedAt to advance, got before=%v after=%v", before, updated.UpdatedAt)
	}
	if updated.Status != TaskInProgress {
		t.Fatalf("expected status IN_PROGRESS, got %s", updated.Status)
	}
}

// TestMemoryStoreCloneIsolation asserts that mutating the RawPlan of a
// Session returned by RetrieveSession never mutates the store's
// internal state — the accessor hands back an independent copy.
func TestMemoryStoreCloneIsolation(t *testing.T) {
	m := NewMemoryStore()
	sess, _ := m.CreateSession(context.Background(), &Session{RawPlan: []byte("original")})

	loaded, _ := m.RetrieveSession(context.Background(), sess.ID)
	loaded.RawPlan[0] = 'X'

	reloaded, _ := m.RetrieveSession(context.Background(), sess.ID)
	if string(reloaded.RawPlan) != "original" {
		t.Fatalf("expected store state unaffected by caller mutation, got %q", reloaded.RawPlan)
	}
}

func TestMemoryStoreInsertTask_ExplicitOrderRespected(t *testing.T) {
	m := NewMemoryStore()
	sess, _ := m.CreateSession(context.Background(), &Session{})

	explicit := 7
	task, err := m.InsertTask(context.Background(), sess.ID, "step", &explicit)
	if err != nil {
		t.Fatalf("InsertTask() error = %v", err)
	}
	if task.Order != 7 {
		t.Fatalf("expected explicit order 7, got %d", task.Order)
	}
}

func TestMemoryStoreRetrieveTask_Absent(t *testing.T) {
	m := NewMemoryStore()
	task, err := m.RetrieveTask(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task != nil {
		t.Fatalf("expected nil task")
	}
}
