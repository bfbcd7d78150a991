package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andytango/builder-6/internal/result"
)

// MemoryStore is an in-memory Store implementation used by default and
// in tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	tasks    map[string]*Task
	// order tracks task ids per session in ascending Order, so
	// ListTasks never needs to sort on the hot path.
	order map[string][]string
	// sessionOrder tracks session ids in creation order, so
	// ListSessions can return most-recent-first without a sort.
	sessionOrder []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[string]*Session{},
		tasks:    map[string]*Task{},
		order:    map[string][]string{},
	}
}

func cloneSession(s *Session) *Session {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Deadline != nil {
		d := *s.Deadline
		clone.Deadline = &d
	}
	if s.RawPlan != nil {
		clone.RawPlan = append([]byte(nil), s.RawPlan...)
	}
	return &clone
}

func cloneTask(t *Task) *Task {
	if t == nil {
		return nil
	}
	clone := *t
	if t.History != nil {
		clone.History = append([]byte(nil), t.History...)
	}
	return &clone
}

func (m *MemoryStore) CreateSession(ctx context.Context, initial *Session) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s Session
	if initial != nil {
		s = *cloneSession(initial)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.Status == "" {
		s.Status = SessionOpen
	}
	m.sessions[s.ID] = cloneSession(&s)
	m.sessionOrder = append(m.sessionOrder, s.ID)
	return cloneSession(&s), nil
}

// ListSessions returns up to limit sessions, most recently created
// first. limit <= 0 means unbounded.
func (m *MemoryStore) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, len(m.sessionOrder))
	for i := len(m.sessionOrder) - 1; i >= 0; i-- {
		if s, ok := m.sessions[m.sessionOrder[i]]; ok {
			out = append(out, cloneSession(s))
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return cloneSession(s), nil
}

func (m *MemoryStore) UpdateSession(ctx context.Context, id string, partial SessionPartial) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, result.New(result.KindSessionNotFound, "session not found: "+id)
	}
	if partial.Status != nil {
		s.Status = *partial.Status
	}
	if partial.RawPlan != nil {
		s.RawPlan = append([]byte(nil), (*partial.RawPlan)...)
	}
	m.sessions[id] = s
	return cloneSession(s), nil
}

func (m *MemoryStore) ListTasks(ctx context.Context, sessionID string) ([]*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.order[sessionID]
	out := make([]*Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := m.tasks[id]; ok {
			out = append(out, cloneTask(t))
		}
	}
	return out, nil
}

func (m *MemoryStore) InsertTask(ctx context.Context, sessionID string, description string, order *int) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.order[sessionID]
	next := 0
	if order != nil {
		next = *order
	} else {
		for _, id := range ids {
			if o := m.tasks[id].Order + 1; o > next {
				next = o
			}
		}
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
	m.tasks[t.ID] = cloneTask(t)
	pos := len(ids)
	for pos > 0 && m.tasks[ids[pos-1]].Order > next {
		pos--
	}
	ids = append(ids, "")
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = t.ID
	m.order[sessionID] = ids
	return cloneTask(t), nil
}

func (m *MemoryStore) UpdateTask(ctx context.Context, id string, partial TaskPartial) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, result.New(result.KindTaskNotFound, "task not found: "+id)
	}
	if partial.Status != nil {
		t.Status = *partial.Status
		t.UpdatedAt = time.Now()
	}
	if partial.History != nil {
		t.History = append([]byte(nil), (*partial.History)...)
		t.UpdatedAt = time.Now()
	}
	m.tasks[id] = t
	return cloneTask(t), nil
}

func (m *MemoryStore) UpdateTaskStatus(ctx context.Context, id string, status TaskStatus) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	m.tasks[id] = t
	return cloneTask(t), nil
}

func (m *MemoryStore) RetrieveTask(ctx context.Context, id string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	return cloneTask(t), nil
}
