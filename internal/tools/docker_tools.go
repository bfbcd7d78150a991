package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/andytango/builder-6/internal/sandbox"
)

// DockerManager is the narrow surface of C4's Supervisor the
// dockerManager.* tool family dispatches to.
type DockerManager interface {
	CreateContainer(ctx context.Context, groupID, image string) (*sandbox.Container, error)
	ListContainers(groupID string) []*sandbox.Container
	DestroyContainer(ctx context.Context, id string) error
	ExecuteScript(ctx context.Context, containerID, script string, timeout time.Duration) (string, error)
	CleanupIdleContainers(ctx context.Context) int
}

// RegisterDockerTools registers every C4 operation as a
// "dockerManager.<operationName>" tool per spec.md §4.6.
func RegisterDockerTools(registry *Registry, manager DockerManager) {
	registry.Register(dockerCreateTool(manager))
	registry.Register(dockerListTool(manager))
	registry.Register(dockerDestroyTool(manager))
	registry.Register(dockerExecTool(manager))
	registry.Register(dockerCleanupTool(manager))
}

func dockerCreateTool(manager DockerManager) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "dockerManager.createContainer",
			Description: "Create a new isolated execution container in a resource group.",
			Parameters: ObjectSchema(map[string]any{
				"groupId": map[string]any{"type": "string"},
				"image":   map[string]any{"type": "string"},
			}, []string{"groupId"}),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				GroupID string `json:"groupId"`
				Image   string `json:"image"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			container, err := manager.CreateContainer(ctx, in.GroupID, in.Image)
			if err != nil {
				return "", err
			}
			return marshalJSON(container)
		},
	}
}

func dockerListTool(manager DockerManager) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "dockerManager.listContainers",
			Description: "List containers, optionally filtered by group.",
			Parameters: ObjectSchema(map[string]any{
				"groupId": map[string]any{"type": "string"},
			}, nil),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				GroupID string `json:"groupId"`
			}
			if len(args) > 0 {
				if err := json.Unmarshal(args, &in); err != nil {
					return "", err
				}
			}
			return marshalJSON(manager.ListContainers(in.GroupID))
		},
	}
}

func dockerDestroyTool(manager DockerManager) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "dockerManager.destroyContainer",
			Description: "Stop and remove a container by id.",
			Parameters: ObjectSchema(map[string]any{
				"containerId": map[string]any{"type": "string"},
			}, []string{"containerId"}),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				ContainerID string `json:"containerId"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			if err := manager.DestroyContainer(ctx, in.ContainerID); err != nil {
				return "", err
			}
			return "{}", nil
		},
	}
}

func dockerExecTool(manager DockerManager) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "dockerManager.executeScript",
			Description: "Run a shell script inside a container and return its combined output.",
			Parameters: ObjectSchema(map[string]any{
				"containerId":    map[string]any{"type": "string"},
				"script":         map[string]any{"type": "string"},
				"timeoutSeconds": map[string]any{"type": "integer"},
			}, []string{"containerId", "script"}),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				ContainerID    string `json:"containerId"`
				Script         string `json:"script"`
				TimeoutSeconds int    `json:"timeoutSeconds"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			timeout := time.Duration(in.TimeoutSeconds) * time.Second
			return manager.ExecuteScript(ctx, in.ContainerID, in.Script, timeout)
		},
	}
}

func dockerCleanupTool(manager DockerManager) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "dockerManager.cleanupIdleContainers",
			Description: "Destroy every container idle past the configured timeout; returns the count cleaned.",
			Parameters:  ObjectSchema(map[string]any{}, nil),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			return marshalJSON(map[string]int{"cleaned": manager.CleanupIdleContainers(ctx)})
		},
	}
}

func marshalJSON(v any) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
