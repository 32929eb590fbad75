package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "objection_handling",
		Category:       stage.CategorySpecialized,
		Dependencies:   []string{"detailed_plan"},
		ExecutionOrder: 8,
		Budgets:        stage.Budgets{"detailed_plan_summary": 6000, "persona_profile": 4000, "product_context": 3000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Anticipate 3-5 objections and build responses. Return strict JSON "+
					"{\"objections\": [{\"category\":string,\"statement\":string,\"response_strategy\":string,"+
					"\"talking_points\":[string]}], \"general_advice\": string}.\n\n"+
					"Plan: %s\nPersona: %s\nProduct: %s\nCompany: %s",
				str(in, "detailed_plan_summary"), str(in, "persona_profile"), str(in, "product_context"), str(in, "company_name"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{
				"objections":     []any{},
				"general_advice": "",
				"error_message":  errMsg,
			}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "objections")
		},
	})
}
