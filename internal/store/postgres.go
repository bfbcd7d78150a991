package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/andytango/builder-6/internal/result"
)

// Schema is the DDL builder6 expects against the configured Postgres
// database. Migrations are out of scope (spec.md §1); callers apply
// this however their deployment tooling prefers.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	deadline    TIMESTAMPTZ,
	raw_plan    BYTEA
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES sessions(id),
	task_order  INTEGER NOT NULL,
	description TEXT NOT NULL,
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	history     BYTEA
);

CREATE INDEX IF NOT EXISTS tasks_session_order_idx ON tasks (session_id, task_order);
`

// PostgresStore implements Store against a Postgres-compatible
// database using prepared statements for the hot-path operations.
type PostgresStore struct {
	db *sql.DB

	stmtCreateSession *sql.Stmt
	stmtGetSession    *sql.Stmt
	stmtUpdateSession *sql.Stmt
	stmtInsertTask    *sql.Stmt
	stmtGetTask       *sql.Stmt
	stmtUpdateTask    *sql.Stmt
	stmtListTasks     *sql.Stmt
	stmtMaxOrder      *sql.Stmt
	stmtListSessions  *sql.Stmt
}

// PostgresConfig holds connection-pool tuning for PostgresStore.
type PostgresConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPostgresConfig returns sane connection-pool defaults.
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// NewPostgresStore opens a connection to dsn (a postgresql:// or
// postgres:// URL per spec.md §6's databaseUrl key), verifies
// connectivity, and prepares the statements used by every Store
// operation.
func NewPostgresStore(dsn string, config *PostgresConfig) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if config == nil {
		config = DefaultPostgresConfig()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) prepareStatements() error {
	var err error

	s.stmtCreateSession, err = s.db.Prepare(`
		INSERT INTO sessions (id, status, created_at, deadline, raw_plan)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return err
	}

	s.stmtGetSession, err = s.db.Prepare(`
		SELECT id, status, created_at, deadline, raw_plan FROM sessions WHERE id = $1
	`)
	if err != nil {
		return err
	}

	s.stmtUpdateSession, err = s.db.Prepare(`
		UPDATE sessions SET status = $1, raw_plan = $2 WHERE id = $3
	`)
	if err != nil {
		return err
	}

	s.stmtInsertTask, err = s.db.Prepare(`
		INSERT INTO tasks (id, session_id, task_order, description, status, created_at, updated_at, history)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return err
	}

	s.stmtGetTask, err = s.db.Prepare(`
		SELECT id, session_id, task_order, description, status, created_at, updated_at, history
		FROM tasks WHERE id = $1
	`)
	if err != nil {
		return err
	}

	s.stmtUpdateTask, err = s.db.Prepare(`
		UPDATE tasks SET status = $1, history = $2, updated_at = $3 WHERE id = $4
	`)
	if err != nil {
		return err
	}

	s.stmtListTasks, err = s.db.Prepare(`
		SELECT id, session_id, task_order, description, status, created_at, updated_at, history
		FROM tasks WHERE session_id = $1
		ORDER BY task_order ASC
	`)
	if err != nil {
		return err
	}

	s.stmtMaxOrder, err = s.db.Prepare(`
		SELECT COALESCE(MAX(task_order), -1) FROM tasks WHERE session_id = $1
	`)
	if err != nil {
		return err
	}

	s.stmtListSessions, err = s.db.Prepare(`
		SELECT id, status, created_at, deadline, raw_plan
		FROM sessions ORDER BY created_at DESC LIMIT $1
	`)
	if err != nil {
		return err
	}

	return nil
}

// Close releases the prepared statements and the underlying
// connection pool.
func (s *PostgresStore) Close() error {
	stmts := []*sql.Stmt{
		s.stmtCreateSession, s.stmtGetSession, s.stmtUpdateSession,
		s.stmtInsertTask, s.stmtGetTask, s.stmtUpdateTask,
		s.stmtListTasks, s.stmtMaxOrder, s.stmtListSessions,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	return s.db.Close()
}

func (s *PostgresStore) CreateSession(ctx context.Context, initial *Session) (*Session, error) {
	var sess Session
	if initial != nil {
		sess = *initial
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	if sess.Status == "" {
		sess.Status = SessionOpen
	}

	var deadline sql.NullTime
	if sess.Deadline != nil {
		deadline = sql.NullTime{Time: *sess.Deadline, Valid: true}
	}
	if _, err := s.stmtCreateSession.ExecContext(ctx, sess.ID, string(sess.Status), sess.CreatedAt, deadline, sess.RawPlan); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return &sess, nil
}

func (s *PostgresStore) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	row := s.stmtGetSession.QueryRowContext(ctx, id)
	var sess Session
	var status string
	var deadline sql.NullTime
	var rawPlan []byte
	if err := row.Scan(&sess.ID, &status, &sess.CreatedAt, &deadline, &rawPlan); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.Status = SessionStatus(status)
	if deadline.Valid {
		sess.Deadline = &deadline.Time
	}
	sess.RawPlan = rawPlan
	return &sess, nil
}

func (s *PostgresStore) UpdateSession(ctx context.Context, id string, partial SessionPartial) (*Session, error) {
	existing, err := s.RetrieveSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, result.New(result.KindSessionNotFound, "session not found: "+id)
	}
	if partial.Status != nil {
		existing.Status = *partial.Status
	}
	if partial.RawPlan != nil {
		existing.RawPlan = *partial.RawPlan
	}
	if _, err := s.stmtUpdateSession.ExecContext(ctx, string(existing.Status), existing.RawPlan, id); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return existing, nil
}

// ListSessions returns up to limit sessions, most recently created
// first. limit <= 0 means unbounded.
func (s *PostgresStore) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = math.MaxInt32
	}
	rows, err := s.stmtListSessions.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var sess Session
		var status string
		var deadline sql.NullTime
		var rawPlan []byte
		if err := rows.Scan(&sess.ID, &status, &sess.CreatedAt, &deadline, &rawPlan); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.Status = SessionStatus(status)
		if deadline.Valid {
			sess.Deadline = &deadline.Time
		}
		sess.RawPlan = rawPlan
		out = append(out, &sess)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListTasks(ctx context.Context, sessionID string) ([]*Task, error) {
	rows, err := s.stmtListTasks.QueryContext(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var status string
	if err := row.Scan(&t.ID, &t.SessionID, &t.Order, &t.Description, &status, &t.CreatedAt, &t.UpdatedAt, &t.History); err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.Status = TaskStatus(status)
	return &t, nil
}

func (s *PostgresStore) InsertTask(ctx context.Context, sessionID string, description string, order *int) (*Task, error) {
	next := 0
	if order != nil {
		next = *order
	} else {
		row := s.stmtMaxOrder.QueryRowContext(ctx, sessionID)
		var maxOrder int
		if err := row.Scan(&maxOrder); err != nil {
			return nil, fmt.Errorf("max order: %w", err)
		}
		next = maxOrder + 1
	}

	now := time.Now()
	t := &Task{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Order:       next,
		Description: description,
		Status:      TaskPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.stmtInsertTask.ExecContext(ctx, t.ID, t.SessionID, t.Order, t.Description, string(t.Status), t.CreatedAt, t.UpdatedAt, t.History); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) RetrieveTask(ctx context.Context, id string) (*Task, error) {
	row := s.stmtGetTask.QueryRowContext(ctx, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (s *PostgresStore) UpdateTask(ctx context.Context, id string, partial TaskPartial) (*Task, error) {
	existing, err := s.RetrieveTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, result.New(result.KindTaskNotFound, "task not found: "+id)
	}
	if partial.Status != nil {
		existing.Status = *partial.Status
	}
	if partial.History != nil {
		existing.History = *partial.History
	}
	existing.UpdatedAt = time.Now()
	if _, err := s.stmtUpdateTask.ExecContext(ctx, string(existing.Status), existing.History, existing.UpdatedAt, id); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return existing, nil
}

func (s *PostgresStore) UpdateTaskStatus(ctx context.Context, id string, status TaskStatus) (*Task, error) {
	existing, err := s.RetrieveTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	existing.Status = status
	existing.UpdatedAt = time.Now()
	if _, err := s.stmtUpdateTask.ExecContext(ctx, string(existing.Status), existing.History, existing.UpdatedAt, id); err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	return existing, nil
}
