// Package llmgateway provides the uniform text-generation call used by every
// stage agent: retry on transport error, multiplicative backoff on
// rate-limit, no retry on safety-block, token accounting, and JSON salvage
// for stage outputs. Grounded on the retry/classify/backoff shape of
// pkg/mcp/client.go's CallTool and pkg/mcp/recovery.go's ClassifyError,
// generalized from "one extra attempt" to a max_retries-bounded loop with
// the exact backoff formula the pipeline specifies.
package llmgateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

// Sentinel error kinds. Callers classify with errors.Is.
var (
	ErrBlocked        = errors.New("llm: blocked by safety filter")
	ErrRateLimit      = errors.New("llm: rate limited")
	ErrTransport      = errors.New("llm: transport error")
	ErrInvalidResponse = errors.New("llm: invalid response")
)

// ParseError is returned by ParseJSON on salvage failure. It carries the
// original text so callers can build a stage-default error_message from it.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("llm: parse json: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Options configures one Generate call.
type Options struct {
	// MaxRetries bounds retry attempts after the initial call (spec default 3).
	MaxRetries int
	// RetryDelay is the base transport-error backoff (spec default 5s).
	RetryDelay time.Duration
	// Model, Temperature, MaxOutputTokens are passed through to the provider.
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// Response is the gateway's uniform result shape.
type Response struct {
	Content      string
	TokensIn     int
	TokensOut    int
	FinishReason string
}

// ProviderClient is the small interface the gateway depends on, mirroring
// the teacher's pkg/agent.LLMClient shape. A single non-streaming call,
// because the pipeline's C2 contract (spec.md §4.C2) has no streaming
// surface — callers get one Response, not a channel of chunks.
type ProviderClient interface {
	Generate(ctx context.Context, prompt string, opts Options) (*ProviderResponse, error)
}

// ProviderResponse is what the concrete client (pkg/llmclient) returns before
// gateway-level retry/classification is applied.
type ProviderResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	FinishReason     string
	// HaveTokenCounts is false when the provider did not report usage; the
	// gateway then estimates via word-count heuristic.
	HaveTokenCounts bool
}

// ProviderError lets the concrete client tell the gateway how to classify a
// failure without the gateway depending on transport-specific error types.
type ProviderError struct {
	Kind      ProviderErrorKind
	Message   string
	Retryable bool
}

func (e *ProviderError) Error() string { return e.Message }

// ProviderErrorKind classifies a provider-side failure.
type ProviderErrorKind int

const (
	ProviderErrorTransport ProviderErrorKind = iota
	ProviderErrorRateLimit
	ProviderErrorBlocked
	ProviderErrorInvalidResponse
)

// Gateway is the shared, concurrency-safe LLM Gateway. Safe to call from many
// lead workers in parallel (spec.md §4.C2); counters are atomic.
type Gateway struct {
	client ProviderClient

	totalPromptTokens     atomic.Int64
	totalCompletionTokens atomic.Int64
	totalCalls            atomic.Int64
}

// New wraps a ProviderClient with retry/backoff/accounting policy.
func New(client ProviderClient) *Gateway {
	return &Gateway{client: client}
}

// Generate implements the retry policy of spec.md §4.C2:
//   - up to MaxRetries retries after the initial attempt.
//   - transport error: wait RetryDelay.
//   - rate-limit: wait RetryDelay × (attempt+2).
//   - content-blocked: no retry, fail immediately.
func (g *Gateway) Generate(ctx context.Context, prompt string, opts Options) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		resp, err := g.client.Generate(ctx, prompt, opts)
		if err == nil {
			tokensIn, tokensOut := g.accountTokens(resp, prompt)
			return &Response{
				Content:      resp.Content,
				TokensIn:     tokensIn,
				TokensOut:    tokensOut,
				FinishReason: resp.FinishReason,
			}, nil
		}

		var perr *ProviderError
		if !errors.As(err, &perr) {
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}

		switch perr.Kind {
		case ProviderErrorBlocked:
			return nil, fmt.Errorf("%w: %s", ErrBlocked, perr.Message)
		case ProviderErrorInvalidResponse:
			// A malformed payload from this call will still be malformed on
			// retry; fail immediately, same as a safety block.
			return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, perr.Message)
		case ProviderErrorRateLimit:
			lastErr = fmt.Errorf("%w: %s", ErrRateLimit, perr.Message)
			if attempt == opts.MaxRetries {
				break
			}
			delay := time.Duration(float64(opts.RetryDelay) * float64(attempt+2))
			if err := g.sleep(ctx, delay); err != nil {
				return nil, err
			}
		default:
			lastErr = fmt.Errorf("%w: %s", ErrTransport, perr.Message)
			if attempt == opts.MaxRetries {
				break
			}
			if err := g.sleep(ctx, opts.RetryDelay); err != nil {
				return nil, err
			}
		}
	}

	return nil, lastErr
}

func (g *Gateway) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// accountTokens uses provider-reported counts when present, otherwise
// estimates ⌈word_count × 1.3⌉ per side (spec.md §4.C2).
func (g *Gateway) accountTokens(resp *ProviderResponse, prompt string) (int, int) {
	var tokensIn, tokensOut int
	if resp.HaveTokenCounts {
		tokensIn, tokensOut = resp.PromptTokens, resp.CompletionTokens
	} else {
		tokensIn = estimateTokens(prompt)
		tokensOut = estimateTokens(resp.Content)
	}
	g.totalPromptTokens.Add(int64(tokensIn))
	g.totalCompletionTokens.Add(int64(tokensOut))
	g.totalCalls.Add(1)
	return tokensIn, tokensOut
}

func estimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) * 1.3))
}

// Stats returns cumulative token accounting across all calls made through
// this Gateway instance.
type Stats struct {
	TotalPromptTokens     int64
	TotalCompletionTokens int64
	TotalCalls            int64
}

// Stats returns the gateway's cumulative token-usage counters.
func (g *Gateway) Stats() Stats {
	return Stats{
		TotalPromptTokens:     g.totalPromptTokens.Load(),
		TotalCompletionTokens: g.totalCompletionTokens.Load(),
		TotalCalls:            g.totalCalls.Load(),
	}
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// ExtractJSON strips an outermost fenced code block if present, and trims
// leading/trailing prose around a JSON object or array. It does not parse;
// ParseJSON (in json.go) does that and returns ParseError on failure.
func ExtractJSON(text string) string {
	trimmed := strings.TrimSpace(text)

	if m := fencedBlockRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(trimmed, "{[")
	if start < 0 {
		return trimmed
	}
	open := trimmed[start]
	close := byte('}')
	if open == '[' {
		close = ']'
	}
	end := strings.LastIndexByte(trimmed, close)
	if end < 0 || end < start {
		return trimmed
	}
	return trimmed[start : end+1]
}
