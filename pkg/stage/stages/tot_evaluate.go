package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "tot_evaluate",
		Category:       stage.CategoryOrchestrator,
		Dependencies:   []string{"tot_generate"},
		ExecutionOrder: 5,
		Budgets:        stage.Budgets{"strategies_summary": 6000, "prior_summary": 6000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Evaluate each generated strategy. Return strict JSON "+
					"{\"evaluations\": [{\"strategy_name\":string,\"suitability\":string,\"strengths\":[string],"+
					"\"weaknesses\":[string],\"improvements\":[string],\"confidence_label\":string,\"justification\":string}]}.\n\n"+
					"Strategies: %s\nContext: %s", str(in, "strategies_summary"), str(in, "prior_summary"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{"evaluations": []any{}, "error_message": errMsg}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "evaluations")
		},
	})
}
