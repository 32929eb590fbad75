package llmgateway_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nellia/prospectord/pkg/llmgateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	calls    atomic.Int32
	attempts []func(ctx context.Context, prompt string, opts llmgateway.Options) (*llmgateway.ProviderResponse, error)
}

func (c *scriptedClient) Generate(ctx context.Context, prompt string, opts llmgateway.Options) (*llmgateway.ProviderResponse, error) {
	i := c.calls.Add(1) - 1
	return c.attempts[i](ctx, prompt, opts)
}

func ok(content string) func(context.Context, string, llmgateway.Options) (*llmgateway.ProviderResponse, error) {
	return func(context.Context, string, llmgateway.Options) (*llmgateway.ProviderResponse, error) {
		return &llmgateway.ProviderResponse{Content: content, FinishReason: "stop"}, nil
	}
}

func fail(kind llmgateway.ProviderErrorKind, msg string) func(context.Context, string, llmgateway.Options) (*llmgateway.ProviderResponse, error) {
	return func(context.Context, string, llmgateway.Options) (*llmgateway.ProviderResponse, error) {
		return nil, &llmgateway.ProviderError{Kind: kind, Message: msg, Retryable: kind != llmgateway.ProviderErrorBlocked}
	}
}

func TestGenerateSucceedsFirstTry(t *testing.T) {
	client := &scriptedClient{attempts: []func(context.Context, string, llmgateway.Options) (*llmgateway.ProviderResponse, error){ok("hello")}}
	gw := llmgateway.New(client)

	resp, err := gw.Generate(context.Background(), "prompt", llmgateway.Options{MaxRetries: 3, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestGenerateRetriesTransportThenSucceeds(t *testing.T) {
	client := &scriptedClient{attempts: []func(context.Context, string, llmgateway.Options) (*llmgateway.ProviderResponse, error){
		fail(llmgateway.ProviderErrorTransport, "connection reset"),
		fail(llmgateway.ProviderErrorTransport, "connection reset"),
		ok("recovered"),
	}}
	gw := llmgateway.New(client)

	resp, err := gw.Generate(context.Background(), "prompt", llmgateway.Options{MaxRetries: 3, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, int32(3), client.calls.Load())
}

func TestGenerateDoesNotRetryOnBlocked(t *testing.T) {
	client := &scriptedClient{attempts: []func(context.Context, string, llmgateway.Options) (*llmgateway.ProviderResponse, error){
		fail(llmgateway.ProviderErrorBlocked, "safety refusal"),
		ok("should never be reached"),
	}}
	gw := llmgateway.New(client)

	_, err := gw.Generate(context.Background(), "prompt", llmgateway.Options{MaxRetries: 3, RetryDelay: time.Millisecond})
	require.Error(t, err)
	assert.True(t, errors.Is(err, llmgateway.ErrBlocked))
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestGenerateDoesNotRetryOnInvalidResponse(t *testing.T) {
	client := &scriptedClient{attempts: []func(context.Context, string, llmgateway.Options) (*llmgateway.ProviderResponse, error){
		fail(llmgateway.ProviderErrorInvalidResponse, "malformed payload"),
		ok("should never be reached"),
	}}
	gw := llmgateway.New(client)

	_, err := gw.Generate(context.Background(), "prompt", llmgateway.Options{MaxRetries: 3, RetryDelay: time.Millisecond})
	require.Error(t, err)
	assert.True(t, errors.Is(err, llmgateway.ErrInvalidResponse))
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestGenerateExhaustsRetriesOnRateLimit(t *testing.T) {
	attempts := make([]func(context.Context, string, llmgateway.Options) (*llmgateway.ProviderResponse, error), 0, 4)
	for i := 0; i < 4; i++ {
		attempts = append(attempts, fail(llmgateway.ProviderErrorRateLimit, "rate limited"))
	}
	client := &scriptedClient{attempts: attempts}
	gw := llmgateway.New(client)

	_, err := gw.Generate(context.Background(), "prompt", llmgateway.Options{MaxRetries: 3, RetryDelay: time.Millisecond})
	require.Error(t, err)
	assert.True(t, errors.Is(err, llmgateway.ErrRateLimit))
	assert.Equal(t, int32(4), client.calls.Load())
}

func TestGenerateRespectsContextCancellation(t *testing.T) {
	client := &scriptedClient{attempts: []func(context.Context, string, llmgateway.Options) (*llmgateway.ProviderResponse, error){
		fail(llmgateway.ProviderErrorTransport, "down"),
		ok("unreachable"),
	}}
	gw := llmgateway.New(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.Generate(ctx, "prompt", llmgateway.Options{MaxRetries: 3, RetryDelay: time.Hour})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGenerateAccountsEstimatedTokensWhenProviderOmitsCounts(t *testing.T) {
	client := &scriptedClient{attempts: []func(context.Context, string, llmgateway.Options) (*llmgateway.ProviderResponse, error){ok("one two three four")}}
	gw := llmgateway.New(client)

	resp, err := gw.Generate(context.Background(), "one two", llmgateway.Options{MaxRetries: 0})
	require.NoError(t, err)
	// ceil(2 words * 1.3) = 3, ceil(4 words * 1.3) = 6
	assert.Equal(t, 3, resp.TokensIn)
	assert.Equal(t, 6, resp.TokensOut)

	stats := gw.Stats()
	assert.Equal(t, int64(1), stats.TotalCalls)
}

func TestExtractJSONHandlesFencedAndProseWrapped(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                          `{"a":1}`,
		"```json\n{\"a\":1}\n```":          `{"a":1}`,
		"```\n{\"a\":1}\n```":              `{"a":1}`,
		"Sure, here you go:\n{\"a\":1}\nThanks!": `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, llmgateway.ExtractJSON(in))
	}
}

func TestParseJSONReturnsParseErrorWithRawText(t *testing.T) {
	var out map[string]int
	err := llmgateway.ParseJSON("not json at all", &out)
	require.Error(t, err)
	var perr *llmgateway.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "not json at all", perr.Raw)
}
