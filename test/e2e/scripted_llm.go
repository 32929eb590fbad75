// Package e2e provides end-to-end test infrastructure for the pipeline:
// a scripted LLM Gateway provider, an in-memory search/scrape fake, and a
// TestApp builder that wires a full Orchestrator the way a deployment would.
package e2e

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nellia/prospectord/pkg/llmgateway"
)

// StageRoute maps a substring that appears verbatim in a stage's rendered
// prompt (the quoted JSON field name it asks the model to return, e.g.
// `"primary_pain_category"`) to the canned response that stage should
// receive. Matching on the requested-schema text rather than a passed-in
// stage name is necessary because llmgateway.ProviderClient.Generate only
// ever sees the rendered prompt string, never the calling stage's identity.
type StageRoute struct {
	Match    string
	Content  string
	Err      error
	Blocking <-chan struct{} // if set, Generate blocks on this (or ctx.Done()) before responding
	OnBlock  chan<- struct{} // if set, notified once Generate enters the blocking wait
}

// ScriptedLLMClient implements llmgateway.ProviderClient with a routing
// table consulted in order, falling back to a single default response.
// Grounded on test/e2e/mock_llm.go's ScriptedLLMClient (sequential +
// per-agent routed entries over a single mock transport), adapted here
// because this domain's stages are distinguished by prompt content rather
// than by an agent name argument the interface doesn't carry.
type ScriptedLLMClient struct {
	mu      sync.Mutex
	routes  []StageRoute
	Default string
	// DefaultErr, when set, is returned for every call that no route
	// matches — used to exercise the "LLM hard-fails every call" boundary
	// (spec.md §8) without registering one route per catalog stage.
	DefaultErr error

	calls       []string
	inFlight    int64
	peakInFlight int64
}

// PeakInFlight returns the highest number of concurrently in-progress
// Generate calls observed, for asserting the lead-worker concurrency cap
// (spec.md §8 testable property 8).
func (c *ScriptedLLMClient) PeakInFlight() int {
	return int(atomic.LoadInt64(&c.peakInFlight))
}

// NewScriptedLLMClient builds a client that returns Default for every call
// unless a route matches first.
func NewScriptedLLMClient(defaultContent string) *ScriptedLLMClient {
	return &ScriptedLLMClient{Default: defaultContent}
}

// AddRoute registers a routing rule, consulted in registration order.
func (c *ScriptedLLMClient) AddRoute(route StageRoute) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes = append(c.routes, route)
}

// Calls returns every prompt this client has received, for assertions about
// call count and ordering.
func (c *ScriptedLLMClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

// Generate implements llmgateway.ProviderClient.
func (c *ScriptedLLMClient) Generate(ctx context.Context, prompt string, opts llmgateway.Options) (*llmgateway.ProviderResponse, error) {
	inFlight := atomic.AddInt64(&c.inFlight, 1)
	defer atomic.AddInt64(&c.inFlight, -1)
	for {
		peak := atomic.LoadInt64(&c.peakInFlight)
		if inFlight <= peak || atomic.CompareAndSwapInt64(&c.peakInFlight, peak, inFlight) {
			break
		}
	}

	c.mu.Lock()
	c.calls = append(c.calls, prompt)
	var matched *StageRoute
	for i := range c.routes {
		if strings.Contains(prompt, c.routes[i].Match) {
			matched = &c.routes[i]
			break
		}
	}
	defaultContent := c.Default
	defaultErr := c.DefaultErr
	c.mu.Unlock()

	if matched != nil {
		if matched.Blocking != nil {
			if matched.OnBlock != nil {
				matched.OnBlock <- struct{}{}
			}
			select {
			case <-matched.Blocking:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if matched.Err != nil {
			return nil, matched.Err
		}
		return &llmgateway.ProviderResponse{Content: matched.Content, HaveTokenCounts: true, PromptTokens: 10, CompletionTokens: 10}, nil
	}

	if defaultErr != nil {
		return nil, defaultErr
	}
	return &llmgateway.ProviderResponse{Content: defaultContent, HaveTokenCounts: true, PromptTokens: 10, CompletionTokens: 10}, nil
}
