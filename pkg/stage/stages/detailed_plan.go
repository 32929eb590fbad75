package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "detailed_plan",
		Category:       stage.CategorySpecialized,
		Dependencies:   []string{"tot_synthesize", "analysis", "pain_point_deepening"},
		ExecutionOrder: 7,
		Budgets:        stage.Budgets{"synthesized_plan": 4000, "persona_profile": 4000, "pain_points_summary": 6000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Expand the chosen plan into a concrete contact sequence. Return strict JSON "+
					"{\"main_objective\":string,\"elevator_pitch\":string,\"contact_sequence\":"+
					"[{\"channel\":string,\"objective\":string,\"key_topics\":[string],\"key_questions\":[string],"+
					"\"cta\":string,\"supporting_material\":string}],\"engagement_indicators\":[string],"+
					"\"obstacles\":[string],\"success_next_steps\":[string]}.\n\n"+
					"Plan: %s\nPersona: %s\nPain points: %s",
				str(in, "synthesized_plan"), str(in, "persona_profile"), str(in, "pain_points_summary"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{
				"main_objective":        "",
				"elevator_pitch":        "",
				"contact_sequence":      []any{},
				"engagement_indicators": []string{},
				"obstacles":             []string{},
				"success_next_steps":    []string{},
				"error_message":         errMsg,
			}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "main_objective", "contact_sequence")
		},
	})
}
