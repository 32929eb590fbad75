// Package stages holds the concrete Stage Catalog (spec.md §4.C6): one file
// per stage, each registering itself with pkg/stage at init() time. Field
// names are cross-checked against original_source/prospect/data_models
// /lead_structures.py and the matching original_source/prospect/agents/*.py
// prompts, translated into idiomatic Go (map-shaped I/O, not a struct per
// message, since the DAG passes a single evolving LeadState map between
// 17 stages and a struct-per-stage would mean 17 near-duplicate conversion
// layers for no behavioral benefit).
package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/llmgateway"
	"github.com/nellia/prospectord/pkg/stage"
)

// parseJSONObject salvages and parses raw into a plain map, enforcing that
// required top-level keys are present — the stage's output schema check
// (spec.md §4.C5 step 4).
func parseJSONObject(raw string, required ...string) (stage.Output, error) {
	var parsed map[string]any
	if err := llmgateway.ParseJSON(raw, &parsed); err != nil {
		return nil, err
	}
	for _, f := range required {
		if _, ok := parsed[f]; !ok {
			return nil, fmt.Errorf("missing required field %q", f)
		}
	}
	return stage.Output(parsed), nil
}

// str reads a string field from an Input, defaulting to "".
func str(in stage.Input, key string) string {
	if v, ok := in[key].(string); ok {
		return v
	}
	return ""
}
