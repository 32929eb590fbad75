package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "value_propositions",
		Category:       stage.CategorySpecialized,
		Dependencies:   []string{"analysis", "pain_point_deepening", "buying_triggers"},
		ExecutionOrder: 4,
		Budgets:        stage.Budgets{"persona_profile": 4000, "pain_points_summary": 6000, "triggers_summary": 4000, "product_context": 3000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Craft 2-3 customized value propositions. Return strict JSON "+
					"{\"value_propositions\": [{\"title\":string,\"proposition\":string,\"key_benefits\":[string],"+
					"\"target\":string,\"evidence_suggestion\":string}]}.\n\n"+
					"Persona: %s\nPain points: %s\nTriggers: %s\nProduct: %s\nCompany: %s",
				str(in, "persona_profile"), str(in, "pain_points_summary"), str(in, "triggers_summary"),
				str(in, "product_context"), str(in, "company_name"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{
				"value_propositions": []any{},
				"error_message":       errMsg,
			}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "value_propositions")
		},
	})
}
