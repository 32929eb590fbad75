package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nellia/prospectord/pkg/dag"
	"github.com/nellia/prospectord/pkg/event"
	"github.com/nellia/prospectord/pkg/llmgateway"
	"github.com/nellia/prospectord/pkg/orchestrator"
	"github.com/nellia/prospectord/pkg/persistence/memstore"
	"github.com/nellia/prospectord/pkg/query"
	"github.com/nellia/prospectord/pkg/stage"
	_ "github.com/nellia/prospectord/pkg/stage/stages"
	"github.com/nellia/prospectord/pkg/webclient"
)

// TestApp boots a full prospectord pipeline instance for e2e testing.
// Grounded on test/e2e/harness.go's TestApp-plus-functional-options
// pattern, narrowed here to the collaborators this pipeline actually has:
// an LLM Gateway over a scripted provider, a Search & Scrape Adapter over
// an httptest fake, an in-memory Persistence Sidecar, and the real
// Orchestrator wiring the real DAG executor and stage catalog.
type TestApp struct {
	LLM          *ScriptedLLMClient
	SearchServer *httptest.Server
	Orchestrator *orchestrator.Orchestrator

	t *testing.T
}

type testAppConfig struct {
	defaultLLMContent string
	searchResults      []searchResult
	searchUnavailable  bool
	orchestratorConfig orchestrator.Config
	withWeb            bool
	withRAG            bool
}

// TestAppOption configures the test app.
type TestAppOption func(*testAppConfig)

type searchResult struct {
	URL     string
	Title   string
	Snippet string
}

// WithSearchResults seeds the fake search API's response.
func WithSearchResults(results ...searchResult) TestAppOption {
	return func(c *testAppConfig) {
		c.withWeb = true
		c.searchResults = results
	}
}

// WithSearchUnavailable makes the fake search API return HTTP 503.
func WithSearchUnavailable() TestAppOption {
	return func(c *testAppConfig) {
		c.withWeb = true
		c.searchUnavailable = true
	}
}

// WithNoWebClient omits the Search & Scrape Adapter entirely, exercising
// the orchestrator's nil-Web fallback-lead path.
func WithNoWebClient() TestAppOption {
	return func(c *testAppConfig) { c.withWeb = false }
}

// WithOrchestratorConfig overrides the orchestrator's operator-tunable knobs.
func WithOrchestratorConfig(cfg orchestrator.Config) TestAppOption {
	return func(c *testAppConfig) { c.orchestratorConfig = cfg }
}

// NewTestApp builds a TestApp wired the way cmd/prospectord/main.go wires a
// real deployment, substituting a ScriptedLLMClient for the gRPC LLM
// service and an httptest server for the Search & Scrape Adapter's HTTP
// backend.
func NewTestApp(t *testing.T, defaultLLMContent string, opts ...TestAppOption) *TestApp {
	t.Helper()

	cfg := testAppConfig{
		defaultLLMContent: defaultLLMContent,
		withWeb:           true,
		orchestratorConfig: orchestrator.Config{
			Concurrency:          4,
			EventChannelCapacity: 256,
			MaxLeadsToGenerate:   5,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	llm := NewScriptedLLMClient(cfg.defaultLLMContent)
	gw := llmgateway.New(llm)
	gwOpts := llmgateway.Options{MaxRetries: 0}

	var web *webclient.Client
	var server *httptest.Server
	if cfg.withWeb {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.searchUnavailable {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			writeSearchResponse(w, cfg.searchResults)
		}))
		web = webclient.New(webclient.Options{
			SearchAPIAddr: server.URL,
			SearchTimeout: 5 * time.Second,
			ScrapeTimeout: 5 * time.Second,
			MaxCharacters: 10000,
		})
	}

	store := memstore.New()
	runner := stage.NewRunner(gw, gwOpts)
	dagWorker := dag.NewExecutor(runner, nil)
	legacyWorker := orchestrator.NewLegacyWorker(runner)

	orch := orchestrator.New(orchestrator.Deps{
		Gateway:      gw,
		GatewayOpts:  gwOpts,
		Web:          web,
		RAG:          nil,
		Store:        store,
		DAGWorker:    dagWorker,
		LegacyWorker: legacyWorker,
	}, cfg.orchestratorConfig)

	app := &TestApp{LLM: llm, SearchServer: server, Orchestrator: orch, t: t}
	t.Cleanup(func() {
		if server != nil {
			server.Close()
		}
	})
	return app
}

// Run starts one job and drains its full event stream, blocking until the
// channel closes (i.e. until pipeline_end has been emitted).
func (a *TestApp) Run(ctx context.Context, bc query.BusinessContext) []event.Event {
	events, _ := a.Orchestrator.Run(ctx, "job-1", "user-1", bc)
	var out []event.Event
	for e := range events {
		out = append(out, e)
	}
	return out
}

// RunWithHandle starts one job without draining it, returning the event
// channel and run handle so the caller can interleave reads with
// CancelLead calls.
func (a *TestApp) RunWithHandle(ctx context.Context, bc query.BusinessContext) (<-chan event.Event, interface{ CancelLead(string) bool }) {
	return a.Orchestrator.Run(ctx, "job-1", "user-1", bc)
}

// tagOf recovers an event's tag from its own JSON projection, since
// event.Event's tag accessor is intentionally unexported (only the
// producing package may discriminate by concrete type; everyone else reads
// the wire-shaped "event_type" field instead).
func tagOf(e event.Event) event.Tag {
	return event.Tag(e.ToMap()["event_type"].(string))
}

func writeSearchResponse(w http.ResponseWriter, results []searchResult) {
	type wireResult struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	}
	type wireResponse struct {
		Results []wireResult `json:"results"`
	}
	resp := wireResponse{}
	for _, r := range results {
		resp.Results = append(resp.Results, wireResult{URL: r.URL, Title: r.Title, Snippet: r.Snippet})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
