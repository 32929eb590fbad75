// Hybrid Strategy Selector (SPEC_FULL.md C12, grounded on
// original_source/prospect/hybrid_pipeline_orchestrator.py's A/B wrapper
// concept): a pluggable choice of lead-worker implementation, kept outside
// the DAG executor so it never changes the event contract. The default is
// the full 17-stage DAG (pkg/dag.Executor, which already satisfies
// LeadWorker); the alternative is a shorter "legacy" persona-driven worker
// that exercises the core qualify→message path without the full catalog.
package orchestrator

import (
	"context"
	"time"

	"github.com/nellia/prospectord/pkg/dag"
	"github.com/nellia/prospectord/pkg/event"
	"github.com/nellia/prospectord/pkg/query"
	"github.com/nellia/prospectord/pkg/scoring"
	"github.com/nellia/prospectord/pkg/stage"
)

// LeadWorker runs one lead to completion, emitting lead_enrichment_start/end
// and every agent_start/agent_end along the way. bc is the job's immutable
// BusinessContext, seeded into the lead's initial state so stages that
// declare persona_profile/product_context/known_competitors as direct
// inputs (spec.md §4.C6) actually receive them. dag.Executor satisfies
// this directly; LegacyWorker is the alternative strategy.
type LeadWorker interface {
	Run(ctx context.Context, jobID, userID string, lead dag.Lead, bc query.BusinessContext, emit func(event.Event)) dag.ComprehensiveProspectPackage
}

// Strategy selects which LeadWorker implementation a job's lead workers use.
type Strategy string

const (
	StrategyDAG    Strategy = "dag"
	StrategyLegacy Strategy = "legacy"
)

// SelectWorker resolves strategy to a concrete LeadWorker. Unknown or empty
// strategies fall back to StrategyDAG, the core-spec behavior.
func SelectWorker(strategy Strategy, dagWorker, legacyWorker LeadWorker) LeadWorker {
	if strategy == StrategyLegacy {
		return legacyWorker
	}
	return dagWorker
}

// legacyStageOrder is the reduced sequence of catalog stages the legacy
// worker runs: intake and analysis to ground the lead, pain-point
// deepening and qualification to score it, and a direct message attempt —
// skipping the Tree-of-Thought branch, competitor/trigger research, and the
// internal briefing that the full DAG produces.
var legacyStageOrder = []string{"intake", "analysis", "pain_point_deepening", "lead_qualification", "personalized_message"}

// LegacyWorker is the C12 alternative lead-worker strategy.
type LegacyWorker struct {
	Runner *stage.Runner
}

// NewLegacyWorker builds a LegacyWorker bound to a stage Runner.
func NewLegacyWorker(runner *stage.Runner) *LegacyWorker {
	return &LegacyWorker{Runner: runner}
}

// Run walks legacyStageOrder sequentially, never aborting on a per-stage
// failure (same failure policy as the DAG executor), and packages a
// ComprehensiveProspectPackage with a confidence score derived from
// whatever stages ran.
func (w *LegacyWorker) Run(ctx context.Context, jobID, userID string, lead dag.Lead, bc query.BusinessContext, emit func(event.Event)) dag.ComprehensiveProspectPackage {
	emit(event.NewLeadEnrichmentStart(jobID, userID, time.Now(), lead.ID))

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
	var failed []string

	for _, name := range legacyStageOrder {
		if ctx.Err() != nil {
			pkg := dag.ComprehensiveProspectPackage{Lead: lead, StageOutputs: outputs, FailedStages: failed}
			emit(event.NewLeadEnrichmentEnd(jobID, userID, time.Now(), lead.ID, false, "cancelled", map[string]any{}))
			return pkg
		}

		spec, ok := stage.Get(name)
		if !ok {
			continue
		}
		out, err := w.Runner.Run(ctx, jobID, userID, lead.ID, spec, stage.Input(state), emit)
		if err != nil {
			pkg := dag.ComprehensiveProspectPackage{Lead: lead, StageOutputs: outputs, FailedStages: failed}
			emit(event.NewLeadEnrichmentEnd(jobID, userID, time.Now(), lead.ID, false, "cancelled", map[string]any{}))
			return pkg
		}

		if errMsg, _ := out["error_message"].(string); errMsg != "" {
			failed = append(failed, name)
		}
		outputs[name] = out
		for k, v := range out {
			state[k] = v
		}
	}

	pkg := dag.ComprehensiveProspectPackage{Lead: lead, StageOutputs: outputs, FailedStages: failed}
	if len(outputs) > 0 {
		pkg.SuccessRate = float64(len(outputs)-len(failed)) / float64(len(outputs))
	}
	pkg.Confidence = scoring.Confidence(scoring.ConfidenceInputs{
		QualificationConfidence: floatField(outputs["lead_qualification"], "confidence"),
		DetailedPainPointCount:  sliceLen(outputs["pain_point_deepening"], "detailed_pain_points"),
	})

	emit(event.NewLeadEnrichmentEnd(jobID, userID, time.Now(), lead.ID, true, "", map[string]any{"confidence": pkg.Confidence}))
	return pkg
}

func floatField(out stage.Output, key string) float64 {
	if out == nil {
		return 0
	}
	if v, ok := out[key].(float64); ok {
		return v
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
