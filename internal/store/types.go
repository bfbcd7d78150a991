// Package store provides durable persistence for sessions and tasks
// with relational semantics: insertion-ordered task listing scoped to
// a session, and status-driven lifecycle transitions for both.
package store

import "time"

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionOpen                 SessionStatus = "OPEN"
	SessionPlanning              SessionStatus = "PLANNING"
	SessionAwaitingConfirmation  SessionStatus = "AWAITING_CONFIRMATION"
	SessionExecuting             SessionStatus = "EXECUTING"
	SessionCompleted             SessionStatus = "COMPLETED"
	SessionFailed                SessionStatus = "FAILED"
	SessionDeadlineExceeded      SessionStatus = "DEADLINE_EXCEEDED"
)

// IsTerminal reports whether the session status accepts no further
// mutation.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionCompleted, SessionFailed, SessionDeadlineExceeded:
		return true
	default:
		return false
	}
}

// Session is a unit of work bounded by a user prompt and an optional
// deadline.
type Session struct {
	ID        string        `json:"id"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	Deadline  *time.Time    `json:"deadline,omitempty"`
	// RawPlan is the opaque, caller-defined serialization of the
	// ordered task snapshots that make up the plan. It round-trips
	// exactly; the store never interprets its contents.
	RawPlan []byte `json:"raw_plan,omitempty"`
}

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
	// TaskCancelled marks a task superseded by a plan refinement
	// before it reached a terminal status of its own.
	TaskCancelled TaskStatus = "CANCELLED"
)

// Task is an ordered atomic step within a session's plan.
type Task struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	Order       int        `json:"order"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	// History is the opaque serialization of the task's ordered
	// ReactEntry list. Round-trips exactly; never interpreted by the
	// store.
	History []byte `json:"history,omitempty"`
}

// SessionPartial carries the fields an UpdateSession call may mutate.
// Nil fields are left unchanged.
type SessionPartial struct {
	Status  *SessionStatus
	RawPlan *[]byte
}

// TaskPartial carries the fields an UpdateTask call may mutate. Nil
// fields are left unchanged.
type TaskPartial struct {
	Status  *TaskStatus
	History *[]byte
}
