package sandbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andytango/builder-6/internal/result"
	"github.com/andytango/builder-6/internal/sandbox"
)

type fakeRuntime struct {
	mu       sync.Mutex
	started  []string
	stopped  []string
	startErr error
}

func (f *fakeRuntime) Start(ctx context.Context, id, image string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, id)
	return nil
}

func (f *fakeRuntime) Stop(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, id)
	return errors.New("stop always fails in this fake")
}

type fakeExecutor struct {
	mu      sync.Mutex
	output  string
	err     error
	scripts []string
}

func (f *fakeExecutor) Run(ctx context.Context, containerID, script string, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, script)
	return f.output, f.err
}

func newSupervisor(config sandbox.Config) (*sandbox.Supervisor, *fakeRuntime, *fakeExecutor) {
	rt := &fakeRuntime{}
	ex := &fakeExecutor{output: "ok"}
	return sandbox.New(config, rt, ex), rt, ex
}

func TestSupervisor_CreateContainer_EnforcesGroupLimit(t *testing.T) {
	sup, _, _ := newSupervisor(sandbox.Config{GroupLimit: 2, IdleTimeout: time.Minute})
	ctx := context.Background()

	if _, err := sup.CreateContainer(ctx, "group-a", "img"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := sup.CreateContainer(ctx, "group-a", "img"); err != nil {
		t.Fatalf("second create: %v", err)
	}
	_, err := sup.CreateContainer(ctx, "group-a", "img")
	if err == nil {
		t.Fatalf("expected ContainerLimitReached on third create")
	}
	if !result.HasKind(err, result.KindContainerLimitReached) {
		t.Fatalf("expected KindContainerLimitReached, got %v", result.KindOf(err))
	}

	if _, err := sup.CreateContainer(ctx, "group-b", "img"); err != nil {
		t.Fatalf("other group should not be limited: %v", err)
	}
}

func TestSupervisor_CreateContainer_StartFailure(t *testing.T) {
	sup := sandbox.New(sandbox.DefaultConfig(), &fakeRuntime{startErr: errors.New("boom")}, &fakeExecutor{})
	_, err := sup.CreateContainer(context.Background(), "group-a", "img")
	if !result.HasKind(err, result.KindContainerCreationFailed) {
		t.Fatalf("expected KindContainerCreationFailed, got %v", result.KindOf(err))
	}
	if len(sup.ListContainers("group-a")) != 0 {
		t.Fatalf("failed create should not remain registered")
	}
}

func TestSupervisor_DestroyContainer_NotFound(t *testing.T) {
	sup, _, _ := newSupervisor(sandbox.DefaultConfig())
	err := sup.DestroyContainer(context.Background(), "missing")
	if !result.HasKind(err, result.KindContainerNotFound) {
		t.Fatalf("expected KindContainerNotFound, got %v", result.KindOf(err))
	}
}

func TestSupervisor_DestroyContainer_IgnoresStopError(t *testing.T) {
	sup, _, _ := newSupervisor(sandbox.DefaultConfig())
	ctx := context.Background()
	c, err := sup.CreateContainer(ctx, "group-a", "img")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := sup.DestroyContainer(ctx, c.ID); err != nil {
		t.Fatalf("destroy should succeed despite the runtime's stop error: %v", err)
	}
	if len(sup.ListContainers("")) != 0 {
		t.Fatalf("container should be removed from the registry")
	}
}

func TestSupervisor_ExecuteScript_NotFound(t *testing.T) {
	sup, _, _ := newSupervisor(sandbox.DefaultConfig())
	_, err := sup.ExecuteScript(context.Background(), "missing", "echo hi", 0)
	if !result.HasKind(err, result.KindContainerNotFound) {
		t.Fatalf("expected KindContainerNotFound, got %v", result.KindOf(err))
	}
}

func TestSupervisor_ExecuteScript_UpdatesLastUsedOnlyOnSuccess(t *testing.T) {
	sup, _, ex := newSupervisor(sandbox.DefaultConfig())
	ctx := context.Background()
	c, err := sup.CreateContainer(ctx, "group-a", "img")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before := sup.ListContainers("group-a")[0].LastUsed

	time.Sleep(time.Millisecond)
	output, err := sup.ExecuteScript(ctx, c.ID, "echo hi", 0)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if output != "ok" {
		t.Fatalf("expected %q, got %q", "ok", output)
	}
	after := sup.ListContainers("group-a")[0].LastUsed
	if !after.After(before) {
		t.Fatalf("expected last-used to advance after a successful exec")
	}

	ex.err = errors.New("script failed")
	_, err = sup.ExecuteScript(ctx, c.ID, "false", 0)
	if !result.HasKind(err, result.KindContainerExecutionFailed) {
		t.Fatalf("expected KindContainerExecutionFailed, got %v", result.KindOf(err))
	}
	stillAfter := sup.ListContainers("group-a")[0].LastUsed
	if !stillAfter.Equal(after) {
		t.Fatalf("last-used must not advance on a failed exec")
	}
}

func TestSupervisor_CleanupIdleContainers(t *testing.T) {
	sup, _, _ := newSupervisor(sandbox.Config{GroupLimit: 5, IdleTimeout: time.Millisecond})
	ctx := context.Background()
	if _, err := sup.CreateContainer(ctx, "group-a", "img"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := sup.CreateContainer(ctx, "group-a", "img"); err != nil {
		t.Fatalf("create: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	cleaned := sup.CleanupIdleContainers(ctx)
	if cleaned != 2 {
		t.Fatalf("expected 2 cleaned, got %d", cleaned)
	}
	if len(sup.ListContainers("")) != 0 {
		t.Fatalf("expected registry empty after cleanup")
	}
}

func TestSupervisor_IngestDirectory_RunsManifestScript(t *testing.T) {
	sup, _, ex := newSupervisor(sandbox.DefaultConfig())
	ctx := context.Background()
	c, err := sup.CreateContainer(ctx, "group-a", "img")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := sup.IngestDirectory(ctx, c.ID, "/workspace"); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(ex.scripts) != 1 {
		t.Fatalf("expected one script executed, got %d", len(ex.scripts))
	}
}

func TestSupervisor_ListContainers_FiltersByGroup(t *testing.T) {
	sup, _, _ := newSupervisor(sandbox.DefaultConfig())
	ctx := context.Background()
	if _, err := sup.CreateContainer(ctx, "group-a", "img"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := sup.CreateContainer(ctx, "group-b", "img"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if got := sup.ListContainers("group-a"); len(got) != 1 {
		t.Fatalf("expected 1 container in group-a, got %d", len(got))
	}
	if got := sup.ListContainers(""); len(got) != 2 {
		t.Fatalf("expected 2 containers unfiltered, got %d", len(got))
	}
}
