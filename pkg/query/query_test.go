package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/nellia/prospectord/pkg/llmgateway"
	"github.com/nellia/prospectord/pkg/query"
	"github.com/stretchr/testify/assert"
)

type fakeClient struct {
	content string
	err     error
}

func (f *fakeClient) Generate(ctx context.Context, prompt string, opts llmgateway.Options) (*llmgateway.ProviderResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llmgateway.ProviderResponse{Content: f.content}, nil
}

func TestSynthesizeUsesLLMResponseWhenNonEmpty(t *testing.T) {
	gw := llmgateway.New(&fakeClient{content: "industrial widget manufacturers in Texas\n"})
	q := query.Synthesize(context.Background(), gw, llmgateway.Options{MaxRetries: 0}, query.BusinessContext{})
	assert.Equal(t, "industrial widget manufacturers in Texas", q)
}

func TestSynthesizeFallsBackOnEmptyLLMResponse(t *testing.T) {
	gw := llmgateway.New(&fakeClient{content: "   \n"})
	bc := query.BusinessContext{IndustryFocus: []string{"manufacturing"}, IdealCustomer: "regional distributors"}
	q := query.Synthesize(context.Background(), gw, llmgateway.Options{MaxRetries: 0}, bc)
	assert.Equal(t, query.Fallback(bc), q)
}

func TestSynthesizeFallsBackOnTransportError(t *testing.T) {
	gw := llmgateway.New(&fakeClient{err: &llmgateway.ProviderError{Kind: llmgateway.ProviderErrorTransport, Message: "down"}})
	bc := query.BusinessContext{ProductServiceDescription: "industrial widgets"}
	q := query.Synthesize(context.Background(), gw, llmgateway.Options{MaxRetries: 0, RetryDelay: time.Millisecond}, bc)
	assert.Equal(t, query.Fallback(bc), q)
}

func TestUserOverrideTakesPrecedence(t *testing.T) {
	gw := llmgateway.New(&fakeClient{content: "ignored"})
	bc := query.BusinessContext{UserSearchQueryOverride: "custom query here"}
	q := query.Synthesize(context.Background(), gw, llmgateway.Options{}, bc)
	assert.Equal(t, "custom query here", q)
}

func TestFallbackDropsShortTokensAndStopwords(t *testing.T) {
	bc := query.BusinessContext{
		IndustryFocus: []string{"the B2B SaaS industry"},
	}
	q := query.Fallback(bc)
	assert.Contains(t, q, "saas")
	assert.Contains(t, q, "industry")
	assert.NotContains(t, q, "the")
}

func TestFallbackDedupesPreservingOrder(t *testing.T) {
	bc := query.BusinessContext{
		IndustryFocus:              []string{"widgets manufacturing"},
		ProductServiceDescription: "widgets for manufacturing companies",
	}
	q := query.Fallback(bc)
	assert.Equal(t, 1, countOccurrences(q, "widgets"))
}

func TestFallbackCapsAtTenTokens(t *testing.T) {
	bc := query.BusinessContext{
		IndustryFocus: []string{"alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima"},
	}
	q := query.Fallback(bc)
	assert.LessOrEqual(t, len(splitWords(q)), 10)
}

func TestFallbackReturnsStaticStringWhenNothingSurvives(t *testing.T) {
	bc := query.BusinessContext{IndustryFocus: []string{"a of to"}}
	q := query.Fallback(bc)
	assert.Equal(t, "businesses", q)
}

func splitWords(s string) []string {
	out := []string{}
	cur := ""
	for _, r := range s {
		if r == ' ' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
			i += len(substr) - 1
		}
	}
	return count
}
