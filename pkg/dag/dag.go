// Package dag implements the Lead Enrichment DAG executor (spec.md §4.C7):
// walk the Stage Catalog in topological order over one lead's evolving
// state, never aborting on a per-stage failure, enriching the RAG store
// between stages, and packaging the terminal ComprehensiveProspectPackage.
// Grounded on the teacher's pkg/queue/executor.go Execute()/executeStage()
// chain-walking loop (resolve ordered stages → check cancellation between
// stages → execute → fold result into shared state → continue
// unconditionally on per-stage failure) and buildStageContext() (folding
// prior stage output into the next stage's input), generalized here to
// also conditionally call ragstore.Add.
package dag

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/nellia/prospectord/pkg/event"
	"github.com/nellia/prospectord/pkg/query"
	"github.com/nellia/prospectord/pkg/ragstore"
	"github.com/nellia/prospectord/pkg/scoring"
	"github.com/nellia/prospectord/pkg/stage"
	_ "github.com/nellia/prospectord/pkg/stage/stages" // registers the 17 catalog stages via init()
)

// Lead is a candidate company (spec.md §3's Lead). It never mutates after
// creation; LeadState-equivalent accumulation happens in this package's
// executor, not on the Lead itself.
type Lead struct {
	ID                  string
	CompanyName         string
	WebsiteURL          string
	InitialDescription string
}

// StageMetrics is one stage's execution record, aggregated into a
// ComprehensiveProspectPackage's processing metadata (spec.md §3).
type StageMetrics struct {
	Name         string
	Start        time.Time
	End          time.Time
	Duration     time.Duration
	Success      bool
	ErrorMessage string
	TokensIn     int
	TokensOut    int
}

// ComprehensiveProspectPackage is the terminal per-lead artifact (spec.md
// §3): the Lead, every StageOutput by name, the computed scores, and
// processing metadata.
type ComprehensiveProspectPackage struct {
	Lead                Lead
	StageOutputs        map[string]stage.Output
	Confidence          float64
	ROIPotential        float64
	EngagementReadiness float64
	Metrics             []StageMetrics
	SuccessRate         float64
	FailedStages        []string
}

// Executor runs one lead's DAG against the registered Stage Catalog.
type Executor struct {
	Runner *stage.Runner
	RAG    *ragstore.Store // may be nil; Run then skips RAG enrichment entirely
}

// NewExecutor builds an Executor bound to a stage Runner and an optional
// RAG store.
func NewExecutor(runner *stage.Runner, rag *ragstore.Store) *Executor {
	return &Executor{Runner: runner, RAG: rag}
}

// orderedStages returns the catalog's stages sorted by ExecutionOrder,
// ties broken by name for a stable, reproducible walk (spec.md §4.C7 step
// 2: "stable; the catalog's execution_order serves as the total order").
func orderedStages() []*stage.Spec {
	specs := stage.All()
	sort.Slice(specs, func(i, j int) bool {
		if specs[i].ExecutionOrder != specs[j].ExecutionOrder {
			return specs[i].ExecutionOrder < specs[j].ExecutionOrder
		}
		return specs[i].Name < specs[j].Name
	})
	return specs
}

// Run executes the full stage catalog for lead, emitting
// lead_enrichment_start/end and each stage's agent_start/agent_end via
// emit. It never returns an error for ordinary stage failure — the
// default-output-with-error-message substitution is the only failure
// mechanism (spec.md §4.C7). The one early-exit path is ctx cancellation,
// which still emits a terminating lead_enrichment_end(success=false).
func (x *Executor) Run(ctx context.Context, jobID, userID string, lead Lead, bc query.BusinessContext, emit func(event.Event)) ComprehensiveProspectPackage {
	started := time.Now()
	emit(event.NewLeadEnrichmentStart(jobID, userID, started, lead.ID))

	state := map[string]any{
		"lead_id":              lead.ID,
		"company_name":         lead.CompanyName,
		"website_url":          lead.WebsiteURL,
		"initial_description": lead.InitialDescription,
		"raw_text":             lead.InitialDescription,
	}
	for k, v := range query.SeedState(bc) {
		state[k] = v
	}
	outputs := make(map[string]stage.Output)
	var metrics []StageMetrics
	var failedStages []string

	for _, spec := range orderedStages() {
		if ctx.Err() != nil {
			pkg := x.buildPackage(lead, outputs, metrics, failedStages, false)
			emit(event.NewLeadEnrichmentEnd(jobID, userID, time.Now(), lead.ID, false, "cancelled", packageToMap(pkg)))
			return pkg
		}

		if spec.Name == "internal_briefing" {
			x.briefFromRAG(ctx, jobID, userID, lead, state, emit)
		}

		stageStart := time.Now()
		out, err := x.Runner.Run(ctx, jobID, userID, lead.ID, spec, stage.Input(state), emit)
		if err != nil {
			// Only ctx cancellation reaches here (stage.Runner.Run's contract).
			pkg := x.buildPackage(lead, outputs, metrics, failedStages, false)
			emit(event.NewLeadEnrichmentEnd(jobID, userID, time.Now(), lead.ID, false, "cancelled", packageToMap(pkg)))
			return pkg
		}

		errMsg, _ := out["error_message"].(string)
		success := errMsg == ""
		metrics = append(metrics, StageMetrics{
			Name:         spec.Name,
			Start:        stageStart,
			End:          time.Now(),
			Duration:     time.Since(stageStart),
			Success:      success,
			ErrorMessage: errMsg,
		})
		if !success {
			failedStages = append(failedStages, spec.Name)
		}

		outputs[spec.Name] = out
		for k, v := range out {
			state[k] = v
		}

		x.enrichRAG(ctx, jobID, spec.Name, out)
	}

	pkg := x.buildPackage(lead, outputs, metrics, failedStages, true)
	emit(event.NewLeadEnrichmentEnd(jobID, userID, time.Now(), lead.ID, true, "", packageToMap(pkg)))
	return pkg
}

// enrichRAG appends a stage's externally-sourced text to the job's RAG
// store (spec.md §4.C7 step 3). Only tavily_enrichment produces text worth
// indexing; every other stage's output is LLM-synthesized, not new
// external intelligence.
func (x *Executor) enrichRAG(ctx context.Context, jobID, stageName string, out stage.Output) {
	if x.RAG == nil || stageName != "tavily_enrichment" {
		return
	}
	summary, _ := out["enrichment_summary"].(string)
	if summary == "" {
		return
	}
	_ = x.RAG.Add(ctx, jobID, []string{summary})
}

// briefFromRAG is C4's read path: internal_briefing is the DAG's natural
// consumer of accumulated RAG context (spec.md §4.C4), so immediately
// before it runs this queries the job's store for chunks related to the
// lead and folds the top matches into "all_prior_summary" — the field
// internal_briefing's Render already declares as its sole input. A
// degraded (keyword-overlap) result still surfaces a StatusUpdate so the
// fallback is visible in the event stream rather than silently absorbed.
func (x *Executor) briefFromRAG(ctx context.Context, jobID, userID string, lead Lead, state map[string]any, emit func(event.Event)) {
	if x.RAG == nil {
		return
	}
	queryText := lead.CompanyName + " " + lead.InitialDescription
	matches, degraded := x.RAG.Query(ctx, jobID, queryText, 5)
	if len(matches) == 0 {
		return
	}

	var b strings.Builder
	for _, m := range matches {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Text)
	}
	state["all_prior_summary"] = b.String()

	if degraded {
		emit(event.NewStatusUpdate(jobID, userID, time.Now(), "RAG index degraded to keyword fallback for internal_briefing", "internal_briefing", 0))
	}
}

func (x *Executor) buildPackage(lead Lead, outputs map[string]stage.Output, metrics []StageMetrics, failedStages []string, ranToCompletion bool) ComprehensiveProspectPackage {
	pkg := ComprehensiveProspectPackage{
		Lead:         lead,
		StageOutputs: outputs,
		Metrics:      metrics,
		FailedStages: failedStages,
	}
	if len(metrics) > 0 {
		succeeded := len(metrics) - len(failedStages)
		pkg.SuccessRate = float64(succeeded) / float64(len(metrics))
	}
	if ranToCompletion {
		pkg.Confidence = scoring.Confidence(confidenceInputs(outputs))
		pkg.ROIPotential = scoring.ROIPotential(roiInputs(outputs))
		pkg.EngagementReadiness = scoring.EngagementReadiness(engagementInputs(outputs))
	}
	return pkg
}

// confidenceInputs maps the completed lead's stage outputs onto
// scoring.ConfidenceInputs (spec.md §4.C10). contact_extraction and
// tavily_enrichment have no direct confidence field in the catalog (spec.md
// §4.C6); this package derives a stand-in confidence for each from whether
// the stage actually surfaced anything — a deliberate Open Question
// resolution, logged in DESIGN.md.
func confidenceInputs(outputs map[string]stage.Output) scoring.ConfidenceInputs {
	qualification := outputs["lead_qualification"]
	painPoints := outputs["pain_point_deepening"]
	contacts := outputs["contact_extraction"]
	enrichment := outputs["tavily_enrichment"]
	synth := outputs["tot_synthesize"]

	return scoring.ConfidenceInputs{
		QualificationConfidence:     floatField(qualification, "confidence"),
		DetailedPainPointCount:      sliceLen(painPoints, "detailed_pain_points"),
		ContactExtractionConfidence: contactExtractionConfidence(contacts),
		EnrichmentConfidence:        enrichmentConfidence(enrichment),
		SynthesizedPlanSucceeded:    stageSucceeded(synth),
	}
}

func roiInputs(outputs map[string]stage.Output) scoring.ROIInputs {
	qualification := outputs["lead_qualification"]
	painPoints := outputs["pain_point_deepening"]
	valueProps := outputs["value_propositions"]
	triggers := outputs["buying_triggers"]

	urgency, _ := painPoints["urgency"].(string)
	return scoring.ROIInputs{
		QualificationConfidence: floatField(qualification, "confidence"),
		Urgency:                 urgency,
		ValidValuePropCount:     sliceLen(valueProps, "value_propositions"),
		IdentifiedTriggerCount:  sliceLen(triggers, "triggers"),
	}
}

// engagementInputs substitutes 0.5 for every sub-score not sourced from the
// RAG profile (spec.md §4.C10), since this executor has no standalone
// "RAG profile" scorer — only the two failure-flag penalties are wired to
// concrete stage outputs.
func engagementInputs(outputs map[string]stage.Output) scoring.EngagementInputs {
	return scoring.EngagementInputs{
		ProspectScore:             0.5,
		UrgencyScore:              0.5,
		PainAlignmentScore:        0.5,
		BuyingIntentScore:         0.5,
		PersonalizedMessageFailed: !stageSucceeded(outputs["personalized_message"]),
		DetailedPlanFailed:        !stageSucceeded(outputs["detailed_plan"]),
	}
}

func contactExtractionConfidence(out stage.Output) float64 {
	if sliceLen(out, "emails") > 0 || sliceLen(out, "phones") > 0 {
		return 1.0
	}
	return 0.3
}

func enrichmentConfidence(out stage.Output) float64 {
	if called, _ := out["api_called"].(bool); called {
		if summary, _ := out["enrichment_summary"].(string); summary != "" {
			return 1.0
		}
	}
	return 0.3
}

func stageSucceeded(out stage.Output) bool {
	if out == nil {
		return false
	}
	errMsg, _ := out["error_message"].(string)
	return errMsg == ""
}

func floatField(out stage.Output, key string) float64 {
	if out == nil {
		return 0
	}
	switch v := out[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func sliceLen(out stage.Output, key string) int {
	if out == nil {
		return 0
	}
	switch v := out[key].(type) {
	case []any:
		return len(v)
	case []string:
		return len(v)
	}
	return 0
}

// packageToMap flattens a ComprehensiveProspectPackage into the opaque
// payload shape event.LeadEnrichmentEnd carries (spec.md §3: "Emitted as
// the payload of the final per-lead event").
func packageToMap(pkg ComprehensiveProspectPackage) map[string]any {
	stageOutputs := make(map[string]any, len(pkg.StageOutputs))
	for name, out := range pkg.StageOutputs {
		stageOutputs[name] = map[string]any(out)
	}
	return map[string]any{
		"lead": map[string]any{
			"lead_id":              pkg.Lead.ID,
			"company_name":         pkg.Lead.CompanyName,
			"website_url":          pkg.Lead.WebsiteURL,
			"initial_description": pkg.Lead.InitialDescription,
		},
		"stage_outputs":        stageOutputs,
		"confidence":           pkg.Confidence,
		"roi_potential":        pkg.ROIPotential,
		"engagement_readiness": pkg.EngagementReadiness,
		"success_rate":         pkg.SuccessRate,
		"failed_stages":        pkg.FailedStages,
	}
}
