// Package stage implements the abstract Stage Agent contract (spec.md
// §4.C5): render prompt → call LLM Gateway → parse JSON → default-on-failure
// → emit events. Grounded on pkg/agent/base_agent.go's BaseAgent/Controller
// split — BaseAgent's fixed pre/post-amble (mark active, delegate, classify
// result, nil-guard) becomes Runner.Run's fixed execution contract, and the
// Controller strategy interface becomes the per-stage Spec.Render/Parse
// pair supplied at registration time instead of one interface implementation
// per agent type.
package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/nellia/prospectord/pkg/event"
	"github.com/nellia/prospectord/pkg/llmgateway"
)

// Category classifies a stage's role in the DAG (spec.md §4.C5).
type Category string

const (
	CategoryInitial      Category = "initial"
	CategoryOrchestrator Category = "orchestrator"
	CategorySpecialized  Category = "specialized"
	CategoryAlternative  Category = "alternative"
)

// Input is the evolving per-lead state a stage reads fields from. It is
// never mutated by a stage (spec.md §4.C5: "a stage never mutates its
// inputs") — Runner.Run only reads it, and returns the stage's result as a
// separate Output.
type Input map[string]any

// Output is what a stage produces. dag.Executor stores it under the stage's
// name and also merges its keys directly into the evolving state that the
// next stage receives as Input.
type Output map[string]any

// Budgets maps an input field name to its per-stage character truncation
// budget (spec.md §4.C5 step 2). Declared by the stage at registration,
// overridable via config.Config.StagePromptVariableBudgets.
type Budgets map[string]int

// Spec is everything the registry needs to run one stage. Prompt rendering
// and default-output construction are supplied as plain functions rather
// than an interface implementation per stage, since every stage's
// difference from the next is "what prompt, what schema, what default" —
// not a different control flow.
type Spec struct {
	Name            string
	Category        Category
	Dependencies    []string
	ExecutionOrder  int
	Budgets         Budgets
	// Render builds the LLM prompt from (already-truncated) input fields.
	Render func(in Input) string
	// Default builds the stage's failure-path output, embedding errMsg.
	Default func(in Input, errMsg string) Output
	// ParseInto unmarshals the LLM's salvaged JSON into a fresh Output map,
	// or returns an error if the shape doesn't match the stage's schema.
	ParseInto func(raw string) (Output, error)
}

var registry = map[string]*Spec{}

// Register adds a stage to the static catalog. Called from each concrete
// stage file's init() (spec.md §9: the stage catalog is fixed at compile
// time, not a runtime-reloadable registry like pkg/config/chain.go's
// ChainRegistry).
func Register(spec *Spec) {
	if spec.Name == "" {
		panic("stage: Register called with empty name")
	}
	if _, exists := registry[spec.Name]; exists {
		panic(fmt.Sprintf("stage: %q already registered", spec.Name))
	}
	registry[spec.Name] = spec
}

// Get returns the registered spec for name, or false if unknown.
func Get(name string) (*Spec, bool) {
	s, ok := registry[name]
	return s, ok
}

// All returns every registered spec, for DAG construction and the C13
// introspection endpoint.
func All() []*Spec {
	out := make([]*Spec, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	return out
}

// Runner executes one stage call against the LLM Gateway, implementing the
// fixed pre/post-amble of spec.md §4.C5's execution contract.
type Runner struct {
	Gateway *llmgateway.Gateway
	Opts    llmgateway.Options
}

// NewRunner builds a Runner bound to a Gateway and default call options.
func NewRunner(gw *llmgateway.Gateway, opts llmgateway.Options) *Runner {
	return &Runner{Gateway: gw, Opts: opts}
}

// Run executes spec against in, emitting agent_start/agent_end on emit.
// It never returns an error for stage-level failures — those produce a
// default Output with error_message set, per spec.md §4.C5 step 5. The
// only returned error is ctx cancellation, which callers propagate as a
// lead-worker-level failure, not a stage failure.
func (r *Runner) Run(ctx context.Context, jobID, userID, leadID string, spec *Spec, in Input, emit func(event.Event)) (Output, error) {
	start := time.Now()
	emit(event.NewAgentStart(jobID, userID, start, leadID, spec.Name, summarizeInput(in)))

	truncated := truncate(in, spec.Budgets)
	prompt := spec.Render(truncated)

	resp, err := r.Gateway.Generate(ctx, prompt, r.Opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		out := spec.Default(in, err.Error())
		r.emitEnd(jobID, userID, leadID, spec.Name, start, false, 0, 0, err.Error(), emit)
		return out, nil
	}

	out, parseErr := spec.ParseInto(resp.Content)
	if parseErr != nil {
		errMsg := fmt.Sprintf("parse error: %v (raw head: %s)", parseErr, llmgateway.Head(resp.Content, 200))
		out = spec.Default(in, errMsg)
		r.emitEnd(jobID, userID, leadID, spec.Name, start, false, resp.TokensIn, resp.TokensOut, errMsg, emit)
		return out, nil
	}

	r.emitEnd(jobID, userID, leadID, spec.Name, start, true, resp.TokensIn, resp.TokensOut, "", emit)
	return out, nil
}

func (r *Runner) emitEnd(jobID, userID, leadID, stageName string, start time.Time, success bool, tokensIn, tokensOut int, errMsg string, emit func(event.Event)) {
	emit(event.NewAgentEnd(jobID, userID, time.Now(), leadID, stageName, success, time.Since(start).Seconds(), tokensIn, tokensOut, errMsg))
}

// truncate caps each top-level input field's string value to its declared
// budget. Strings nested inside slices or maps are not truncated, and fields
// with no declared budget pass through unchanged.
func truncate(in Input, budgets Budgets) Input {
	if len(budgets) == 0 {
		return in
	}
	out := make(Input, len(in))
	for k, v := range in {
		if budget, ok := budgets[k]; ok {
			if s, ok := v.(string); ok && len(s) > budget {
				out[k] = s[:budget] + "\n[... truncated ...]"
				continue
			}
		}
		out[k] = v
	}
	return out
}

func summarizeInput(in Input) string {
	if v, ok := in["company_name"].(string); ok && v != "" {
		return v
	}
	return fmt.Sprintf("%d input fields", len(in))
}
