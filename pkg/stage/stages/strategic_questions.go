package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "strategic_questions",
		Category:       stage.CategorySpecialized,
		Dependencies:   []string{"analysis", "pain_point_deepening"},
		ExecutionOrder: 3,
		Budgets:        stage.Budgets{"persona_profile": 4000, "pain_points_summary": 6000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Write 3-5 open-ended discovery questions with a category map. Return strict JSON "+
					"{\"questions\": [string], \"categories\": {string: string}}.\n\nPersona: %s\nPain points: %s",
				str(in, "persona_profile"), str(in, "pain_points_summary"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{
				"questions":     []string{},
				"categories":    map[string]any{},
				"error_message": errMsg,
			}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "questions")
		},
	})
}
