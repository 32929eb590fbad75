package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "tot_generate",
		Category:       stage.CategoryOrchestrator,
		Dependencies:   []string{"lead_qualification", "competitor_identification", "strategic_questions", "buying_triggers"},
		ExecutionOrder: 4,
		Budgets:        stage.Budgets{"prior_summary": 8000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Generate 3-4 distinct outreach strategy options (Tree-of-Thought branch). Return strict JSON "+
					"{\"strategies\": [{\"name\":string,\"description\":string,\"hook\":string,"+
					"\"talking_points\":[string],\"channel\":string,\"tone\":string,\"opening_question\":string}]}.\n\n"+
					"Summary of prior findings:\n%s", str(in, "prior_summary"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{"strategies": []any{}, "error_message": errMsg}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "strategies")
		},
	})
}
