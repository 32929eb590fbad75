package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "lead_qualification",
		Category:       stage.CategorySpecialized,
		Dependencies:   []string{"analysis", "pain_point_deepening"},
		ExecutionOrder: 3,
		Budgets:        stage.Budgets{"persona_profile": 4000, "pain_points_summary": 6000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Qualify this lead. Return strict JSON {\"tier\": \"high\"|\"medium\"|\"low\"|\"not-qualified\", "+
					"\"confidence\": 0..1, \"justification\": string, \"positive_signals\": [string], "+
					"\"risks\": [string], \"next_steps\": [string]}.\n\nPersona: %s\nPain points: %s",
				str(in, "persona_profile"), str(in, "pain_points_summary"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{
				"tier":              "not-qualified",
				"confidence":        0.0,
				"justification":     errMsg,
				"positive_signals":  []string{},
				"risks":             []string{},
				"next_steps":        []string{},
				"error_message":     errMsg,
			}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "tier", "confidence")
		},
	})
}
