package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "tot_synthesize",
		Category:       stage.CategoryOrchestrator,
		Dependencies:   []string{"tot_evaluate", "tot_generate"},
		ExecutionOrder: 6,
		Budgets:        stage.Budgets{"evaluations_summary": 6000, "strategies_summary": 6000, "prior_summary": 6000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Synthesize a single chosen action plan from the evaluated strategies. Return strict JSON "+
					"{\"name\":string,\"summary\":string,\"key_steps\":[string],\"primary_channel\":string,"+
					"\"tone\":string,\"main_value_prop\":string,\"confidence\":0..1,\"impact\":string,\"justification\":string}.\n\n"+
					"Evaluations: %s\nStrategies: %s", str(in, "evaluations_summary"), str(in, "strategies_summary"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{
				"name":            "minimal viable plan",
				"summary":         "",
				"key_steps":       []string{},
				"primary_channel": "email",
				"tone":            "neutral",
				"main_value_prop": "",
				"confidence":      0.0,
				"impact":          "low",
				"justification":  errMsg,
				"error_message":  errMsg,
			}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "name", "key_steps", "confidence")
		},
	})
}
