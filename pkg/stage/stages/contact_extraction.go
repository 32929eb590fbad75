package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "contact_extraction",
		Category:       stage.CategorySpecialized,
		Dependencies:   []string{"analysis"},
		ExecutionOrder: 2,
		Budgets:        stage.Budgets{"cleaned_text": 15000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Extract contact details from this text. Return strict JSON "+
					"{\"emails\": [string], \"phones\": [string], \"social_profiles\": [string], \"search_suggestions\": [string]}.\n\n%s",
				str(in, "cleaned_text"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{
				"emails":             []string{},
				"phones":             []string{},
				"social_profiles":    []string{},
				"search_suggestions": []string{},
				"error_message":      errMsg,
			}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "emails", "phones")
		},
	})
}
