package stage_test

import (
	"context"
	"testing"
	"time"

	"github.com/nellia/prospectord/pkg/event"
	"github.com/nellia/prospectord/pkg/llmgateway"
	"github.com/nellia/prospectord/pkg/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	content string
	err     error
}

func (f *fakeClient) Generate(ctx context.Context, prompt string, opts llmgateway.Options) (*llmgateway.ProviderResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llmgateway.ProviderResponse{Content: f.content, FinishReason: "stop"}, nil
}

func testSpec() *stage.Spec {
	return &stage.Spec{
		Name:           "test_stage",
		Category:       stage.CategorySpecialized,
		ExecutionOrder: 1,
		Budgets:        stage.Budgets{"notes": 10},
		Render: func(in stage.Input) string {
			return "notes=" + in["notes"].(string)
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{"summary": "", "error_message": errMsg}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			var parsed struct {
				Summary string `json:"summary"`
			}
			if err := llmgateway.ParseJSON(raw, &parsed); err != nil {
				return nil, err
			}
			return stage.Output{"summary": parsed.Summary, "error_message": ""}, nil
		},
	}
}

func TestRunnerSuccessPath(t *testing.T) {
	gw := llmgateway.New(&fakeClient{content: `{"summary":"looks good"}`})
	runner := stage.NewRunner(gw, llmgateway.Options{MaxRetries: 1, RetryDelay: time.Millisecond})

	var emitted []event.Event
	out, err := runner.Run(context.Background(), "job-1", "user-1", "lead-1", testSpec(),
		stage.Input{"notes": "hello world this is long"}, func(e event.Event) { emitted = append(emitted, e) })

	require.NoError(t, err)
	assert.Equal(t, "looks good", out["summary"])
	require.Len(t, emitted, 2)
	assert.Equal(t, event.TagAgentStart, tagOf(emitted[0]))
	assert.Equal(t, event.TagAgentEnd, tagOf(emitted[1]))

	endMap := emitted[1].ToMap()
	assert.Equal(t, true, endMap["success"])
}

func TestRunnerDefaultsOnLLMFailure(t *testing.T) {
	gw := llmgateway.New(&fakeClient{err: &llmgateway.ProviderError{Kind: llmgateway.ProviderErrorBlocked, Message: "nope"}})
	runner := stage.NewRunner(gw, llmgateway.Options{MaxRetries: 0})

	var emitted []event.Event
	out, err := runner.Run(context.Background(), "job-1", "user-1", "lead-1", testSpec(),
		stage.Input{"notes": "hi"}, func(e event.Event) { emitted = append(emitted, e) })

	require.NoError(t, err)
	assert.Equal(t, "", out["summary"])
	assert.NotEmpty(t, out["error_message"])
	endMap := emitted[1].ToMap()
	assert.Equal(t, false, endMap["success"])
}

func TestRunnerDefaultsOnParseFailure(t *testing.T) {
	gw := llmgateway.New(&fakeClient{content: "not json"})
	runner := stage.NewRunner(gw, llmgateway.Options{MaxRetries: 0})

	out, err := runner.Run(context.Background(), "job-1", "user-1", "lead-1", testSpec(),
		stage.Input{"notes": "hi"}, func(event.Event) {})

	require.NoError(t, err)
	assert.Contains(t, out["error_message"], "parse error")
}

func TestRunnerPropagatesContextCancellation(t *testing.T) {
	gw := llmgateway.New(&fakeClient{err: &llmgateway.ProviderError{Kind: llmgateway.ProviderErrorTransport, Message: "down", Retryable: true}})
	runner := stage.NewRunner(gw, llmgateway.Options{MaxRetries: 0})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, "job-1", "user-1", "lead-1", testSpec(), stage.Input{"notes": "hi"}, func(event.Event) {})
	require.Error(t, err)
}

func tagOf(e event.Event) event.Tag {
	return event.Tag(e.ToMap()["event_type"].(string))
}
