// Package fake provides a programmable test-substitute for the llm
// Runner's Provider surface: canned responses, substring-pattern
// responses, canned tool calls, optional simulated latency, and an
// observable prompt call-history. It is the sole provider substitute
// used across the test suite.
package fake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/andytango/builder-6/internal/llm"
	"github.com/andytango/builder-6/internal/tools"
)

// Provider is a programmable fake for llm.Provider.
type Provider struct {
	mu sync.Mutex

	name  string
	model string

	// queue is a FIFO of canned text responses, dequeued in order by
	// GenerateText when no pattern matches.
	queue []string

	// patterns maps a substring to match in the prompt to the
	// response returned when it matches. Checked before the queue.
	patterns []patternResponse

	// toolCalls is a FIFO of canned tool-call responses.
	toolCalls [][]llm.ToolCall

	// latency, when set, is slept before every GenerateText call.
	latency time.Duration

	// calls records every prompt passed to GenerateText, in order.
	calls []string
}

type patternResponse struct {
	substring string
	response  string
}

// New creates a fake provider reporting name/model via Name/DefaultModel.
func New(name, model string) *Provider {
	return &Provider{name: name, model: model}
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return p.name }

// DefaultModel implements llm.Provider.
func (p *Provider) DefaultModel() string { return p.model }

// QueueResponse appends text to the FIFO of canned responses.
func (p *Provider) QueueResponse(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, text)
}

// OnPromptContaining registers a pattern-matched response: any prompt
// containing substring returns response, checked in registration
// order before the FIFO queue.
func (p *Provider) OnPromptContaining(substring, response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.patterns = append(p.patterns, patternResponse{substring: substring, response: response})
}

// QueueToolCalls appends a set of tool calls to the FIFO of canned
// tool-call responses, returned in order by GenerateText when
// toolDecls is non-empty.
func (p *Provider) QueueToolCalls(calls []llm.ToolCall) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toolCalls = append(p.toolCalls, calls)
}

// SetLatency configures a simulated delay before every GenerateText call.
func (p *Provider) SetLatency(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latency = d
}

// Calls returns every prompt observed by GenerateText, in call order.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}

// GenerateText implements llm.Provider.
func (p *Provider) GenerateText(ctx context.Context, model, prompt string, toolDecls []tools.Declaration) (llm.Response, error) {
	p.mu.Lock()
	p.calls = append(p.calls, prompt)
	latency := p.latency
	p.mu.Unlock()

	if latency > 0 {
		select {
		case <-ctx.Done():
			return llm.Response{}, ctx.Err()
		case <-time.After(latency):
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(toolDecls) > 0 && len(p.toolCalls) > 0 {
		calls := p.toolCalls[0]
		p.toolCalls = p.toolCalls[1:]
		return llm.Response{ToolCalls: calls}, nil
	}

	for _, pr := range p.patterns {
		if strings.Contains(prompt, pr.substring) {
			return llm.Response{Content: pr.response}, nil
		}
	}

	if len(p.queue) > 0 {
		text := p.queue[0]
		p.queue = p.queue[1:]
		return llm.Response{Content: text}, nil
	}

	return llm.Response{Content: ""}, nil
}
