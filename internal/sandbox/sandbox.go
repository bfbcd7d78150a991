// Package sandbox implements the container supervisor: a group-quota
// enforced registry of isolated execution environments, script
// execution streamed from a subprocess, and idle reaping. The
// registry is authoritative — operations against an id it does not
// hold fail fast rather than querying the underlying runtime.
package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andytango/builder-6/internal/observability"
	"github.com/andytango/builder-6/internal/result"
)

// Status is a container's lifecycle state.
type Status string

const (
	StatusCreating Status = "creating"
	StatusRunning  Status = "running"
	StatusExited   Status = "exited"
	StatusDead     Status = "dead"
)

// Container is a registry entry for one isolated execution
// environment.
type Container struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	Image     string    `json:"image"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
}

func (c *Container) clone() *Container {
	cp := *c
	return &cp
}

// Config controls quota and reaping behaviour.
type Config struct {
	GroupLimit  int
	IdleTimeout time.Duration
}

// DefaultConfig mirrors the spec's default group limit (5) and idle
// timeout (600s).
func DefaultConfig() Config {
	return Config{GroupLimit: 5, IdleTimeout: 600 * time.Second}
}

// Runtime is the narrow surface the supervisor drives to actually
// start and stop an execution environment. A production build backs
// this with a real isolation layer (a microVM pool, a container
// engine); tests substitute a fake.
type Runtime interface {
	Start(ctx context.Context, id, image string) error
	Stop(ctx context.Context, id string) error
}

// Supervisor is the registry-backed container supervisor described by
// the container-supervisor module: createContainer, listContainers,
// destroyContainer, executeScript, cleanupIdleContainers,
// ingestDirectory.
type Supervisor struct {
	mu      sync.RWMutex
	config  Config
	runtime Runtime
	exec    ScriptExecutor
	entries map[string]*Container
	metrics *observability.Metrics
}

// ScriptExecutor streams a script's stdout+stderr to an accumulated
// buffer, the seam executeScript drives.
type ScriptExecutor interface {
	Run(ctx context.Context, containerID, script string, timeout time.Duration) (string, error)
}

// New constructs a Supervisor bound to runtime (for container
// lifecycle) and exec (for script execution).
func New(config Config, runtime Runtime, exec ScriptExecutor) *Supervisor {
	if config.GroupLimit <= 0 {
		config.GroupLimit = DefaultConfig().GroupLimit
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultConfig().IdleTimeout
	}
	return &Supervisor{
		config:  config,
		runtime: runtime,
		exec:    exec,
		entries: make(map[string]*Container),
	}
}

// SetMetrics wires m into the supervisor's container-count and
// destruction recorders. Safe to call with nil to disable.
func (s *Supervisor) SetMetrics(m *observability.Metrics) {
	s.mu.Lock()
	s.metrics = m
	s.mu.Unlock()
}

func containerNotFoundErr(id string) error {
	return result.New(result.KindContainerNotFound, fmt.Sprintf("container %s is not registered", id))
}

func (s *Supervisor) countGroup(groupID string) int {
	count := 0
	for _, c := range s.entries {
		if c.GroupID == groupID {
			count++
		}
	}
	return count
}

// CreateContainer enforces the per-group quota, starts the container
// via the runtime, and records it running in the registry.
func (s *Supervisor) CreateContainer(ctx context.Context, groupID, image string) (*Container, error) {
	s.mu.Lock()
	if s.countGroup(groupID) >= s.config.GroupLimit {
		s.mu.Unlock()
		return nil, result.New(result.KindContainerLimitReached,
			fmt.Sprintf("group %s already holds %d containers", groupID, s.config.GroupLimit))
	}

	id := uuid.NewString()
	now := time.Now()
	entry := &Container{
		ID:        id,
		GroupID:   groupID,
		Image:     image,
		Status:    StatusCreating,
		CreatedAt: now,
		LastUsed:  now,
	}
	s.entries[id] = entry
	s.mu.Unlock()

	if err := s.runtime.Start(ctx, id, image); err != nil {
		s.mu.Lock()
		delete(s.entries, id)
		s.mu.Unlock()
		return nil, result.Wrap(result.KindContainerCreationFailed,
			fmt.Sprintf("failed to start container for group %s", groupID), err)
	}

	s.mu.Lock()
	entry.Status = StatusRunning
	out := entry.clone()
	count := s.countGroup(groupID)
	metrics := s.metrics
	s.mu.Unlock()
	metrics.SetContainersActive(groupID, count)
	return out, nil
}

// ListContainers returns the registered containers, filtered to
// groupID when non-empty.
func (s *Supervisor) ListContainers(groupID string) []*Container {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Container, 0, len(s.entries))
	for _, c := range s.entries {
		if groupID != "" && c.GroupID != groupID {
			continue
		}
		out = append(out, c.clone())
	}
	return out
}

// DestroyContainer stops the container (ignoring stop errors) and
// removes it from the registry. Fails ContainerNotFound if the id is
// unknown.
func (s *Supervisor) DestroyContainer(ctx context.Context, id string) error {
	return s.destroyContainer(ctx, id, "explicit")
}

func (s *Supervisor) destroyContainer(ctx context.Context, id, reason string) error {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return containerNotFoundErr(id)
	}
	groupID := entry.GroupID
	s.mu.Unlock()

	_ = s.runtime.Stop(ctx, id)

	s.mu.Lock()
	delete(s.entries, id)
	count := s.countGroup(groupID)
	metrics := s.metrics
	s.mu.Unlock()

	metrics.RecordContainerDestroyed(reason)
	metrics.SetContainersActive(groupID, count)
	return nil
}

// ExecuteScript inspects the container's state, starting it if it is
// not running, then streams the script to an accumulated buffer.
// last-used advances only when the stream completes without error.
func (s *Supervisor) ExecuteScript(ctx context.Context, containerID, script string, timeout time.Duration) (string, error) {
	s.mu.RLock()
	entry, ok := s.entries[containerID]
	s.mu.RUnlock()
	if !ok {
		return "", containerNotFoundErr(containerID)
	}

	if entry.Status != StatusRunning {
		if err := s.runtime.Start(ctx, containerID, entry.Image); err != nil {
			return "", result.Wrap(result.KindContainerExecutionFailed,
				fmt.Sprintf("failed to start container %s before exec", containerID), err)
		}
		s.mu.Lock()
		entry.Status = StatusRunning
		s.mu.Unlock()
	}

	output, err := s.exec.Run(ctx, containerID, script, timeout)
	if err != nil {
		return "", result.Wrap(result.KindContainerExecutionFailed,
			fmt.Sprintf("script execution failed in container %s", containerID), err)
	}

	s.mu.Lock()
	entry.LastUsed = time.Now()
	s.mu.Unlock()
	return output, nil
}

// CleanupIdleContainers destroys every registered container whose
// last-used timestamp is older than the configured idle timeout,
// returning the count cleaned.
func (s *Supervisor) CleanupIdleContainers(ctx context.Context) int {
	cutoff := time.Now().Add(-s.config.IdleTimeout)

	s.mu.RLock()
	var stale []string
	for id, c := range s.entries {
		if c.LastUsed.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	cleaned := 0
	for _, id := range stale {
		if err := s.destroyContainer(ctx, id, "idle_reap"); err == nil {
			cleaned++
		}
	}
	return cleaned
}

// IngestDirectory recursively enumerates files under path inside the
// container and returns their manifest as a single output string. The
// recursive content read itself is an open question the supervisor
// deliberately leaves unspecified: this returns names and sizes only.
func (s *Supervisor) IngestDirectory(ctx context.Context, containerID, path string) (string, error) {
	script := fmt.Sprintf("find %q -type f -printf '%%p\\t%%s\\n'", path)
	return s.ExecuteScript(ctx, containerID, script, 0)
}
