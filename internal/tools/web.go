package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type fetchArgs struct {
	URL string `json:"url"`
}

// NewWebFetchTool builds the web_fetch tool: a bounded GET against an
// arbitrary URL, returning the response body as text.
func NewWebFetchTool(client *http.Client) Tool {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	schema := ObjectSchema(map[string]any{
		"url": map[string]any{"type": "string", "description": "the URL to fetch"},
	}, []string{"url"})

	return Tool{
		Declaration: Declaration{
			Name:        "web_fetch",
			Description: "Fetches the content at a URL and returns it as text.",
			Parameters:  schema,
		},
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args fetchArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, args.URL, nil)
			if err != nil {
				return "", fmt.Errorf("build request: %w", err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("fetch %s: %w", args.URL, err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return "", fmt.Errorf("read response: %w", err)
			}
			return string(body), nil
		},
	}
}

type searchArgs struct {
	Query string `json:"query"`
}

// SearchEndpoint is the Custom Search JSON API endpoint NewGoogleSearchTool
// queries against.
const SearchEndpoint = "https://www.googleapis.com/customsearch/v1"

// NewGoogleSearchTool builds the google_web_search tool, querying the
// Custom Search JSON API with apiKey and searchEngineID.
func NewGoogleSearchTool(client *http.Client, apiKey, searchEngineID string) Tool {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	schema := ObjectSchema(map[string]any{
		"query": map[string]any{"type": "string", "description": "search query"},
	}, []string{"query"})

	return Tool{
		Declaration: Declaration{
			Name:        "google_web_search",
			Description: "Searches the web and returns a list of matching result snippets.",
			Parameters:  schema,
		},
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args searchArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}

			q := url.Values{}
			q.Set("key", apiKey)
			q.Set("cx", searchEngineID)
			q.Set("q", args.Query)

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, SearchEndpoint+"?"+q.Encode(), nil)
			if err != nil {
				return "", fmt.Errorf("build request: %w", err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("search %q: %w", args.Query, err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return "", fmt.Errorf("read response: %w", err)
			}
			return string(body), nil
		},
	}
}
