// Package vcs adapts a repository host (GitHub) to the operations the
// agent orchestrator and its tools need: repository CRUD, pull
// request and issue lifecycle, and git credential setup inside a
// sandbox container. Every operation here is throw-based — it
// returns a plain (T, error) wrapping the underlying SDK's own HTTP
// and API errors, not a kind-tagged internal/result error, because
// those failures are outside this module's own error taxonomy.
package vcs

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v66/github"
)

// Client wraps the GitHub REST API for the subset of operations C7
// and the tool dispatcher drive.
type Client struct {
	gh *github.Client
}

// New constructs a Client authenticated with token. An empty token
// yields an unauthenticated client, useful against public
// repositories in tests.
func New(token string) *Client {
	gh := github.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	return &Client{gh: gh}
}

// Repository is the subset of a GitHub repository this module
// exposes to callers.
type Repository struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	CloneURL    string `json:"clone_url"`
}

func toRepository(r *github.Repository) *Repository {
	if r == nil {
		return nil
	}
	return &Repository{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.GetDescription(),
		Private:       r.GetPrivate(),
		DefaultBranch: r.GetDefaultBranch(),
		CloneURL:      r.GetCloneURL(),
	}
}

// CreateRepository creates a new repository under the authenticated
// account.
func (c *Client) CreateRepository(ctx context.Context, name, description string, private bool) (*Repository, error) {
	repo, _, err := c.gh.Repositories.Create(ctx, "", &github.Repository{
		Name:        github.String(name),
		Description: github.String(description),
		Private:     github.Bool(private),
	})
	if err != nil {
		return nil, fmt.Errorf("vcs: create repository %s: %w", name, err)
	}
	return toRepository(repo), nil
}

// ListRepositories lists the authenticated account's repositories.
func (c *Client) ListRepositories(ctx context.Context) ([]*Repository, error) {
	repos, _, err := c.gh.Repositories.List(ctx, "", nil)
	if err != nil {
		return nil, fmt.Errorf("vcs: list repositories: %w", err)
	}
	out := make([]*Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, toRepository(r))
	}
	return out, nil
}

// RetrieveRepository returns the named repository, or nil if the host
// reports a 404.
func (c *Client) RetrieveRepository(ctx context.Context, owner, name string) (*Repository, error) {
	repo, resp, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("vcs: retrieve repository %s/%s: %w", owner, name, err)
	}
	return toRepository(repo), nil
}

// PullRequest is the subset of a GitHub pull request this module
// exposes.
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
	Head   string `json:"head"`
	Base   string `json:"base"`
}

func toPullRequest(pr *github.PullRequest) *PullRequest {
	if pr == nil {
		return nil
	}
	return &PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		Body:   pr.GetBody(),
		State:  pr.GetState(),
		Head:   pr.GetHead().GetRef(),
		Base:   pr.GetBase().GetRef(),
	}
}

// CreatePullRequest opens a pull request from head into base.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) (*PullRequest, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Body:  github.String(body),
		Head:  github.String(head),
		Base:  github.String(base),
	})
	if err != nil {
		return nil, fmt.Errorf("vcs: create pull request on %s/%s: %w", owner, repo, err)
	}
	return toPullRequest(pr), nil
}

// RetrievePullRequest returns the numbered pull request, or nil on a
// 404.
func (c *Client) RetrievePullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("vcs: retrieve pull request %s/%s#%d: %w", owner, repo, number, err)
	}
	return toPullRequest(pr), nil
}

// UpdatePullRequest edits a pull request's title and/or body.
func (c *Client) UpdatePullRequest(ctx context.Context, owner, repo string, number int, title, body string) (*PullRequest, error) {
	edit := &github.PullRequest{}
	if title != "" {
		edit.Title = github.String(title)
	}
	if body != "" {
		edit.Body = github.String(body)
	}
	pr, _, err := c.gh.PullRequests.Edit(ctx, owner, repo, number, edit)
	if err != nil {
		return nil, fmt.Errorf("vcs: update pull request %s/%s#%d: %w", owner, repo, number, err)
	}
	return toPullRequest(pr), nil
}

// ClosePullRequest closes a pull request without merging it.
func (c *Client) ClosePullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	pr, _, err := c.gh.PullRequests.Edit(ctx, owner, repo, number, &github.PullRequest{
		State: github.String("closed"),
	})
	if err != nil {
		return nil, fmt.Errorf("vcs: close pull request %s/%s#%d: %w", owner, repo, number, err)
	}
	return toPullRequest(pr), nil
}

// Issue is the subset of a GitHub issue this module exposes.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
}

func toIssue(i *github.Issue) *Issue {
	if i == nil {
		return nil
	}
	return &Issue{Number: i.GetNumber(), Title: i.GetTitle(), Body: i.GetBody(), State: i.GetState()}
}

// CreateIssue opens a new issue.
func (c *Client) CreateIssue(ctx context.Context, owner, repo, title, body string) (*Issue, error) {
	issue, _, err := c.gh.Issues.Create(ctx, owner, repo, &github.IssueRequest{
		Title: github.String(title),
		Body:  github.String(body),
	})
	if err != nil {
		return nil, fmt.Errorf("vcs: create issue on %s/%s: %w", owner, repo, err)
	}
	return toIssue(issue), nil
}

// RetrieveIssue returns the numbered issue, or nil on a 404.
func (c *Client) RetrieveIssue(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	issue, resp, err := c.gh.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("vcs: retrieve issue %s/%s#%d: %w", owner, repo, number, err)
	}
	return toIssue(issue), nil
}

// UpdateIssue edits an issue's title and/or body.
func (c *Client) UpdateIssue(ctx context.Context, owner, repo string, number int, title, body string) (*Issue, error) {
	edit := &github.IssueRequest{}
	if title != "" {
		edit.Title = github.String(title)
	}
	if body != "" {
		edit.Body = github.String(body)
	}
	issue, _, err := c.gh.Issues.Edit(ctx, owner, repo, number, edit)
	if err != nil {
		return nil, fmt.Errorf("vcs: update issue %s/%s#%d: %w", owner, repo, number, err)
	}
	return toIssue(issue), nil
}

// CloseIssue closes an issue.
func (c *Client) CloseIssue(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	issue, _, err := c.gh.Issues.Edit(ctx, owner, repo, number, &github.IssueRequest{
		State: github.String("closed"),
	})
	if err != nil {
		return nil, fmt.Errorf("vcs: close issue %s/%s#%d: %w", owner, repo, number, err)
	}
	return toIssue(issue), nil
}
