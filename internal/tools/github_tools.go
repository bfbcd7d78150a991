package tools

import (
	"context"
	"encoding/json"

	"github.com/andytango/builder-6/internal/vcs"
)

// GitHubService is the narrow surface of C5 the githubService.* tool
// family dispatches to.
type GitHubService interface {
	CreateRepository(ctx context.Context, name, description string, private bool) (*vcs.Repository, error)
	ListRepositories(ctx context.Context) ([]*vcs.Repository, error)
	RetrieveRepository(ctx context.Context, owner, name string) (*vcs.Repository, error)
	CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) (*vcs.PullRequest, error)
	RetrievePullRequest(ctx context.Context, owner, repo string, number int) (*vcs.PullRequest, error)
	UpdatePullRequest(ctx context.Context, owner, repo string, number int, title, body string) (*vcs.PullRequest, error)
	ClosePullRequest(ctx context.Context, owner, repo string, number int) (*vcs.PullRequest, error)
	CreateIssue(ctx context.Context, owner, repo, title, body string) (*vcs.Issue, error)
	RetrieveIssue(ctx context.Context, owner, repo string, number int) (*vcs.Issue, error)
	UpdateIssue(ctx context.Context, owner, repo string, number int, title, body string) (*vcs.Issue, error)
	CloseIssue(ctx context.Context, owner, repo string, number int) (*vcs.Issue, error)
}

// RegisterGitHubTools registers every §4.5 operation as a
// "githubService.<operationName>" tool per spec.md §4.6.
func RegisterGitHubTools(registry *Registry, service GitHubService) {
	registry.Register(githubCreateRepositoryTool(service))
	registry.Register(githubListRepositoriesTool(service))
	registry.Register(githubRetrieveRepositoryTool(service))
	registry.Register(githubCreatePullRequestTool(service))
	registry.Register(githubRetrievePullRequestTool(service))
	registry.Register(githubUpdatePullRequestTool(service))
	registry.Register(githubClosePullRequestTool(service))
	registry.Register(githubCreateIssueTool(service))
	registry.Register(githubRetrieveIssueTool(service))
	registry.Register(githubUpdateIssueTool(service))
	registry.Register(githubCloseIssueTool(service))
}

func githubCreateRepositoryTool(service GitHubService) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "githubService.createRepository",
			Description: "Create a new repository under the authenticated account.",
			Parameters: ObjectSchema(map[string]any{
				"name":        map[string]any{"type": "string"},
				"description": map[string]any{"type": "string"},
				"private":     map[string]any{"type": "boolean"},
			}, []string{"name"}),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Name        string `json:"name"`
				Description string `json:"description"`
				Private     bool   `json:"private"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			repo, err := service.CreateRepository(ctx, in.Name, in.Description, in.Private)
			if err != nil {
				return "", err
			}
			return marshalJSON(repo)
		},
	}
}

func githubListRepositoriesTool(service GitHubService) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "githubService.listRepositories",
			Description: "List the authenticated account's repositories.",
			Parameters:  ObjectSchema(map[string]any{}, nil),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			repos, err := service.ListRepositories(ctx)
			if err != nil {
				return "", err
			}
			return marshalJSON(repos)
		},
	}
}

func githubRetrieveRepositoryTool(service GitHubService) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "githubService.retrieveRepository",
			Description: "Retrieve a repository; returns null if it does not exist.",
			Parameters: ObjectSchema(map[string]any{
				"owner": map[string]any{"type": "string"},
				"name":  map[string]any{"type": "string"},
			}, []string{"owner", "name"}),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Owner string `json:"owner"`
				Name  string `json:"name"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			repo, err := service.RetrieveRepository(ctx, in.Owner, in.Name)
			if err != nil {
				return "", err
			}
			return marshalJSON(repo)
		},
	}
}

func githubCreatePullRequestTool(service GitHubService) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "githubService.createPullRequest",
			Description: "Open a pull request from head into base.",
			Parameters: ObjectSchema(map[string]any{
				"owner": map[string]any{"type": "string"},
				"repo":  map[string]any{"type": "string"},
				"title": map[string]any{"type": "string"},
				"body":  map[string]any{"type": "string"},
				"head":  map[string]any{"type": "string"},
				"base":  map[string]any{"type": "string"},
			}, []string{"owner", "repo", "title", "head", "base"}),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Owner, Repo, Title, Body, Head, Base string
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			pr, err := service.CreatePullRequest(ctx, in.Owner, in.Repo, in.Title, in.Body, in.Head, in.Base)
			if err != nil {
				return "", err
			}
			return marshalJSON(pr)
		},
	}
}

func githubRetrievePullRequestTool(service GitHubService) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "githubService.retrievePullRequest",
			Description: "Retrieve a pull request; returns null if it does not exist.",
			Parameters: ObjectSchema(map[string]any{
				"owner":  map[string]any{"type": "string"},
				"repo":   map[string]any{"type": "string"},
				"number": map[string]any{"type": "integer"},
			}, []string{"owner", "repo", "number"}),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Owner  string `json:"owner"`
				Repo   string `json:"repo"`
				Number int    `json:"number"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			pr, err := service.RetrievePullRequest(ctx, in.Owner, in.Repo, in.Number)
			if err != nil {
				return "", err
			}
			return marshalJSON(pr)
		},
	}
}

func githubUpdatePullRequestTool(service GitHubService) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "githubService.updatePullRequest",
			Description: "Edit a pull request's title and/or body.",
			Parameters: ObjectSchema(map[string]any{
				"owner":  map[string]any{"type": "string"},
				"repo":   map[string]any{"type": "string"},
				"number": map[string]any{"type": "integer"},
				"title":  map[string]any{"type": "string"},
				"body":   map[string]any{"type": "string"},
			}, []string{"owner", "repo", "number"}),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Owner  string `json:"owner"`
				Repo   string `json:"repo"`
				Number int    `json:"number"`
				Title  string `json:"title"`
				Body   string `json:"body"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			pr, err := service.UpdatePullRequest(ctx, in.Owner, in.Repo, in.Number, in.Title, in.Body)
			if err != nil {
				return "", err
			}
			return marshalJSON(pr)
		},
	}
}

func githubClosePullRequestTool(service GitHubService) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "githubService.closePullRequest",
			Description: "Close a pull request without merging it.",
			Parameters: ObjectSchema(map[string]any{
				"owner":  map[string]any{"type": "string"},
				"repo":   map[string]any{"type": "string"},
				"number": map[string]any{"type": "integer"},
			}, []string{"owner", "repo", "number"}),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Owner  string `json:"owner"`
				Repo   string `json:"repo"`
				Number int    `json:"number"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			pr, err := service.ClosePullRequest(ctx, in.Owner, in.Repo, in.Number)
			if err != nil {
				return "", err
			}
			return marshalJSON(pr)
		},
	}
}

func githubCreateIssueTool(service GitHubService) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "githubService.createIssue",
			Description: "Open a new issue.",
			Parameters: ObjectSchema(map[string]any{
				"owner": map[string]any{"type": "string"},
				"repo":  map[string]any{"type": "string"},
				"title": map[string]any{"type": "string"},
				"body":  map[string]any{"type": "string"},
			}, []string{"owner", "repo", "title"}),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Owner, Repo, Title, Body string
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			issue, err := service.CreateIssue(ctx, in.Owner, in.Repo, in.Title, in.Body)
			if err != nil {
				return "", err
			}
			return marshalJSON(issue)
		},
	}
}

func githubRetrieveIssueTool(service GitHubService) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "githubService.retrieveIssue",
			Description: "Retrieve an issue; returns null if it does not exist.",
			Parameters: ObjectSchema(map[string]any{
				"owner":  map[string]any{"type": "string"},
				"repo":   map[string]any{"type": "string"},
				"number": map[string]any{"type": "integer"},
			}, []string{"owner", "repo", "number"}),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Owner  string `json:"owner"`
				Repo   string `json:"repo"`
				Number int    `json:"number"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			issue, err := service.RetrieveIssue(ctx, in.Owner, in.Repo, in.Number)
			if err != nil {
				return "", err
			}
			return marshalJSON(issue)
		},
	}
}

func githubUpdateIssueTool(service GitHubService) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "githubService.updateIssue",
			Description: "Edit an issue's title and/or body.",
			Parameters: ObjectSchema(map[string]any{
				"owner":  map[string]any{"type": "string"},
				"repo":   map[string]any{"type": "string"},
				"number": map[string]any{"type": "integer"},
				"title":  map[string]any{"type": "string"},
				"body":   map[string]any{"type": "string"},
			}, []string{"owner", "repo", "number"}),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Owner  string `json:"owner"`
				Repo   string `json:"repo"`
				Number int    `json:"number"`
				Title  string `json:"title"`
				Body   string `json:"body"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			issue, err := service.UpdateIssue(ctx, in.Owner, in.Repo, in.Number, in.Title, in.Body)
			if err != nil {
				return "", err
			}
			return marshalJSON(issue)
		},
	}
}

func githubCloseIssueTool(service GitHubService) Tool {
	return Tool{
		Declaration: Declaration{
			Name:        "githubService.closeIssue",
			Description: "Close an issue.",
			Parameters: ObjectSchema(map[string]any{
				"owner":  map[string]any{"type": "string"},
				"repo":   map[string]any{"type": "string"},
				"number": map[string]any{"type": "integer"},
			}, []string{"owner", "repo", "number"}),
		},
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Owner  string `json:"owner"`
				Repo   string `json:"repo"`
				Number int    `json:"number"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			issue, err := service.CloseIssue(ctx, in.Owner, in.Repo, in.Number)
			if err != nil {
				return "", err
			}
			return marshalJSON(issue)
		},
	}
}
