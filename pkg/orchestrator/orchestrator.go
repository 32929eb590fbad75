// Package orchestrator implements the Pipeline Orchestrator (spec.md
// §4.C9): the top-level driver from a BusinessContext to a finite,
// non-restartable sequence of Events. Grounded on pkg/queue/pool.go's
// WorkerPool (activeSessions cancellation registry, graceful Start/Stop)
// for the lead-worker concurrency cap and per-lead cancellation, and on
// pkg/queue/worker.go's dispatch-loop shape, generalized from "poll a
// DB-backed queue" to "range over harvested leads, dispatch each to a
// bounded goroutine pool."
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nellia/prospectord/pkg/dag"
	"github.com/nellia/prospectord/pkg/event"
	"github.com/nellia/prospectord/pkg/llmgateway"
	"github.com/nellia/prospectord/pkg/persistence"
	"github.com/nellia/prospectord/pkg/query"
	"github.com/nellia/prospectord/pkg/ragstore"
	"github.com/nellia/prospectord/pkg/webclient"
)

// Config holds the orchestrator's operator-tunable knobs (spec.md §6).
type Config struct {
	Concurrency          int
	EventChannelCapacity int
	MaxLeadsToGenerate   int
	Strategy             Strategy
}

// Deps are the collaborators one orchestrator run is wired against. Web,
// RAG, and Store may all be nil — each degrades gracefully (a nil Web
// always yields the fallback lead; a nil RAG skips enrichment; a nil Store
// skips persistence).
type Deps struct {
	Gateway     *llmgateway.Gateway
	GatewayOpts llmgateway.Options
	Web         *webclient.Client
	RAG         *ragstore.Store
	Store       persistence.Store
	DAGWorker   LeadWorker
	LegacyWorker LeadWorker
}

// Orchestrator runs jobs. One Orchestrator can drive many concurrent jobs;
// per-lead cancellation is tracked per job-run, not globally.
type Orchestrator struct {
	deps Deps
	cfg  Config
}

// New builds an Orchestrator.
func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.EventChannelCapacity <= 0 {
		cfg.EventChannelCapacity = 64
	}
	// Zero is a valid, explicit "generate nothing" request (spec.md §8
	// boundary behavior); only a negative value means "unset, use the
	// default."
	if cfg.MaxLeadsToGenerate < 0 {
		cfg.MaxLeadsToGenerate = 10
	}
	return &Orchestrator{deps: deps, cfg: cfg}
}

// run is one job's mutable state: the lead-cancellation registry and the
// bounded event channel every lead worker and the orchestrator itself
// write to (spec.md §4.C9: "lead workers block on event emission rather
// than buffering without bound").
type run struct {
	mu           sync.Mutex
	activeLeads  map[string]context.CancelFunc
	events       chan event.Event
}

// CancelLead cancels one in-flight lead's DAG run, mirroring
// pkg/queue/pool.go's CancelSession. Returns true if leadID was found.
func (r *run) CancelLead(leadID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.activeLeads[leadID]; ok {
		cancel()
		return true
	}
	return false
}

// Run starts one job and returns the merged event stream. The channel is
// closed once pipeline_end has been emitted (or the caller cancels ctx).
// The returned *run lets a caller cancel an individual lead mid-flight.
func (o *Orchestrator) Run(ctx context.Context, jobID, userID string, bc query.BusinessContext) (<-chan event.Event, *run) {
	r := &run{
		activeLeads: make(map[string]context.CancelFunc),
		events:      make(chan event.Event, o.cfg.EventChannelCapacity),
	}
	go o.drive(ctx, jobID, userID, bc, r)
	return r.events, r
}

func (o *Orchestrator) drive(ctx context.Context, jobID, userID string, bc query.BusinessContext, r *run) {
	started := time.Now()
	defer close(r.events)

	emit := func(e event.Event) {
		select {
		case r.events <- e:
		case <-ctx.Done():
		}
	}

	searchQuery := query.Synthesize(ctx, o.deps.Gateway, o.deps.GatewayOpts, bc)
	emit(event.NewPipelineStart(jobID, userID, time.Now(), searchQuery, o.cfg.MaxLeadsToGenerate))

	o.persistEnrichedContext(ctx, jobID, bc, searchQuery)

	ragDone := make(chan struct{})
	if o.deps.RAG != nil {
		go func() {
			defer close(ragDone)
			_ = o.deps.RAG.Build(ctx, jobID, seedTexts(bc, searchQuery))
		}()
	} else {
		close(ragDone)
	}

	leads := o.searchLeads(ctx, searchQuery)

	worker := SelectWorker(o.cfg.Strategy, o.deps.DAGWorker, o.deps.LegacyWorker)
	sem := make(chan struct{}, o.cfg.Concurrency)
	var wg sync.WaitGroup
	var enriched, failures, cancelled int64

	for _, lead := range leads {
		emit(event.NewLeadGenerated(jobID, userID, time.Now(), lead.ID, lead.CompanyName, lead.WebsiteURL, lead.WebsiteURL, lead.InitialDescription))

		wg.Add(1)
		sem <- struct{}{}
		go func(l dag.Lead) {
			defer wg.Done()
			defer func() { <-sem }()

			leadCtx, cancel := context.WithCancel(ctx)
			r.mu.Lock()
			r.activeLeads[l.ID] = cancel
			r.mu.Unlock()
			defer func() {
				r.mu.Lock()
				delete(r.activeLeads, l.ID)
				r.mu.Unlock()
				cancel()
			}()

			select {
			case <-ragDone:
			case <-leadCtx.Done():
			}

			pkg := worker.Run(leadCtx, jobID, userID, l, bc, emit)
			switch {
			case leadCtx.Err() != nil:
				// Cancelled mid-run (spec.md §7: cancellation propagates
				// upward and is never mistaken for a recovered stage
				// failure, even if some stages completed before the cancel
				// landed).
				atomic.AddInt64(&cancelled, 1)
			case len(pkg.StageOutputs) == 0:
				atomic.AddInt64(&failures, 1)
			default:
				atomic.AddInt64(&enriched, 1)
			}
		}(lead)
	}
	wg.Wait()

	jobSucceeded := atomic.LoadInt64(&cancelled) == 0
	emit(event.NewPipelineEnd(jobID, userID, time.Now(), jobSucceeded, len(leads), int(enriched), int(failures+cancelled), time.Since(started).Seconds(), ""))
}

func (o *Orchestrator) persistEnrichedContext(ctx context.Context, jobID string, bc query.BusinessContext, searchQuery string) {
	if o.deps.Store == nil {
		return
	}
	blob, err := json.Marshal(map[string]any{"business_context": bc, "search_query": searchQuery})
	if err != nil {
		return
	}
	_ = o.deps.Store.Put(ctx, jobID, blob)
}

// searchLeads calls the Search & Scrape Adapter and falls back to a single
// deterministic "fallback lead" when search fails or yields nothing
// (spec.md §4.C9 step 4), so downstream is always exercised. The fallback
// lead's description always carries the substring "fallback".
func (o *Orchestrator) searchLeads(ctx context.Context, searchQuery string) []dag.Lead {
	// max_leads_to_generate=0 is an explicit "generate nothing" request
	// (spec.md §8 boundary behavior), not a search failure — it must not
	// trigger the fallback-lead path.
	if o.cfg.MaxLeadsToGenerate == 0 {
		return nil
	}

	if o.deps.Web == nil {
		return []dag.Lead{fallbackLead(searchQuery)}
	}

	results, err := o.deps.Web.Search(ctx, searchQuery, o.cfg.MaxLeadsToGenerate)
	if err != nil || len(results) == 0 {
		return []dag.Lead{fallbackLead(searchQuery)}
	}

	leads := make([]dag.Lead, len(results))
	for i, res := range results {
		leads[i] = dag.Lead{
			ID:                  uuid.NewString(),
			CompanyName:         res.Title,
			WebsiteURL:          res.URL,
			InitialDescription: res.Snippet,
		}
	}
	return leads
}

func fallbackLead(searchQuery string) dag.Lead {
	return dag.Lead{
		ID:                  uuid.NewString(),
		CompanyName:         "prospect (fallback)",
		WebsiteURL:          "https://example.invalid/fallback-lead",
		InitialDescription: fmt.Sprintf("fallback lead synthesized: search for %q returned no candidates", searchQuery),
	}
}

func seedTexts(bc query.BusinessContext, searchQuery string) []string {
	texts := []string{searchQuery}
	texts = append(texts, bc.IndustryFocus...)
	if bc.ProductServiceDescription != "" {
		texts = append(texts, bc.ProductServiceDescription)
	}
	if bc.IdealCustomer != "" {
		texts = append(texts, bc.IdealCustomer)
	}
	return texts
}
