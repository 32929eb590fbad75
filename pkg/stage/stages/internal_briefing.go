package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "internal_briefing",
		Category:       stage.CategoryOrchestrator,
		Dependencies:   []string{"personalized_message", "objection_handling"},
		ExecutionOrder: 10,
		Budgets:        stage.Budgets{"all_prior_summary": 12000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Write an internal sales briefing from all prior analysis. Return strict JSON "+
					"{\"executive_summary\":string,\"profile_highlights\":[string],\"approach_summary\":string,"+
					"\"engagement_overview\":string,\"objections\":[string],\"talking_points\":[string],"+
					"\"next_steps\":[string],\"final_notes\":string}.\n\nAll prior outputs:\n%s",
				str(in, "all_prior_summary"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{
				"executive_summary":  "briefing unavailable",
				"profile_highlights": []string{},
				"approach_summary":   "",
				"engagement_overview": "",
				"objections":         []string{},
				"talking_points":     []string{},
				"next_steps":         []string{},
				"final_notes":        errMsg,
				"error_message":      errMsg,
			}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "executive_summary")
		},
	})
}
