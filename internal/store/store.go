package store

import "context"

// Store is the persistence surface consumed by the orchestrator (C7)
// and exercised by both an in-memory and a Postgres-backed
// implementation. Every operation is individually atomic with respect
// to concurrent readers and writers on the same session.
type Store interface {
	// CreateSession inserts a new session, assigning an ID and
	// CreatedAt if not already set on initial.
	CreateSession(ctx context.Context, initial *Session) (*Session, error)

	// RetrieveSession returns the session, or (nil, nil) if absent.
	RetrieveSession(ctx context.Context, id string) (*Session, error)

	// UpdateSession applies partial to the session identified by id.
	// Fails with a result.KindSessionNotFound-classified error if the
	// session does not exist.
	UpdateSession(ctx context.Context, id string, partial SessionPartial) (*Session, error)

	// ListTasks returns every task owned by sessionID in strictly
	// ascending Order.
	ListTasks(ctx context.Context, sessionID string) ([]*Task, error)

	// InsertTask appends a task to sessionID's plan. If order is nil,
	// the store computes max(order)+1 for the session (or 0 if none
	// exist) atomically with respect to concurrent inserts.
	InsertTask(ctx context.Context, sessionID string, description string, order *int) (*Task, error)

	// UpdateTask applies partial to the task identified by id. Bumps
	// UpdatedAt whenever Status changes. Fails with a
	// result.KindTaskNotFound-classified error if the task does not
	// exist.
	UpdateTask(ctx context.Context, id string, partial TaskPartial) (*Task, error)

	// UpdateTaskStatus sets status on the task identified by id,
	// returning (nil, nil) rather than an error if the task is
	// absent.
	UpdateTaskStatus(ctx context.Context, id string, status TaskStatus) (*Task, error)

	// RetrieveTask returns the task, or (nil, nil) if absent.
	RetrieveTask(ctx context.Context, id string) (*Task, error)

	// ListSessions returns up to limit sessions ordered by most
	// recently created first. A limit of 0 or less returns every
	// session.
	ListSessions(ctx context.Context, limit int) ([]*Session, error)
}
