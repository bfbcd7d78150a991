package tools_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/andytango/builder-6/internal/sandbox"
	"github.com/andytango/builder-6/internal/tools"
)

type fakeDockerManager struct {
	created *sandbox.Container
	execOut string
}

func (f *fakeDockerManager) CreateContainer(ctx context.Context, groupID, image string) (*sandbox.Container, error) {
	f.created = &sandbox.Container{ID: "c1", GroupID: groupID, Image: image, Status: sandbox.StatusRunning}
	return f.created, nil
}

func (f *fakeDockerManager) ListContainers(groupID string) []*sandbox.Container {
	if f.created == nil {
		return nil
	}
	return []*sandbox.Container{f.created}
}

func (f *fakeDockerManager) DestroyContainer(ctx context.Context, id string) error {
	f.created = nil
	return nil
}

func (f *fakeDockerManager) ExecuteScript(ctx context.Context, containerID, script string, timeout time.Duration) (string, error) {
	return f.execOut, nil
}

func (f *fakeDockerManager) CleanupIdleContainers(ctx context.Context) int {
	return 3
}

func TestRegisterDockerTools_CreateAndExecute(t *testing.T) {
	registry := tools.NewRegistry()
	manager := &fakeDockerManager{execOut: "hello"}
	tools.RegisterDockerTools(registry, manager)

	out, err := registry.Execute(context.Background(), "dockerManager.createContainer", json.RawMessage(`{"groupId":"g1","image":"alpine"}`))
	if err != nil {
		t.Fatalf("createContainer: %v", err)
	}
	var created sandbox.Container
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("unmarshal created container: %v", err)
	}
	if created.GroupID != "g1" {
		t.Fatalf("expected groupId g1, got %s", created.GroupID)
	}

	out, err = registry.Execute(context.Background(), "dockerManager.executeScript", json.RawMessage(`{"containerId":"c1","script":"echo hi"}`))
	if err != nil {
		t.Fatalf("executeScript: %v", err)
	}
	if out != "hello" {
		t.Fatalf("expected %q, got %q", "hello", out)
	}

	out, err = registry.Execute(context.Background(), "dockerManager.cleanupIdleContainers", nil)
	if err != nil {
		t.Fatalf("cleanupIdleContainers: %v", err)
	}
	if out != `{"cleaned":3}` {
		t.Fatalf("unexpected cleanup output: %q", out)
	}
}
