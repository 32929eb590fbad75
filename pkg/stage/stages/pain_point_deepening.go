package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

// Urgency is the urgency enum of pain_point_deepening's output (spec.md §9
// Open Question, resolved in SPEC_FULL.md). lead_qualification outputs a
// tier and a confidence, not an urgency.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "pain_point_deepening",
		Category:       stage.CategorySpecialized,
		Dependencies:   []string{"analysis"},
		ExecutionOrder: 2,
		Budgets:        stage.Budgets{"persona_profile": 4000, "potential_challenges": 4000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Deepen the pain-point analysis for this persona. Return strict JSON "+
					"{\"primary_pain_category\": string, \"detailed_pain_points\": "+
					"[{\"description\":string,\"impact\":string,\"solution_fit\":string}], "+
					"\"urgency\": \"low\"|\"medium\"|\"high\"|\"critical\", \"investigative_questions\": [string]}.\n\n"+
					"Persona: %s\nKnown challenges: %s", str(in, "persona_profile"), str(in, "potential_challenges"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{
				"primary_pain_category": "unknown",
				"detailed_pain_points":  []any{},
				"urgency":               string(UrgencyLow),
				"investigative_questions": []string{},
				"error_message":         errMsg,
			}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "primary_pain_category", "detailed_pain_points", "urgency")
		},
	})
}
