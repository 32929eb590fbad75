package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "competitor_identification",
		Category:       stage.CategorySpecialized,
		Dependencies:   []string{"analysis"},
		ExecutionOrder: 2,
		Budgets:        stage.Budgets{"cleaned_text": 15000, "product_context": 3000, "known_competitors": 2000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Identify competitors mentioned or implied. Return strict JSON "+
					"{\"competitors\": [{\"name\":string,\"description\":string,\"strengths\":[string],\"weaknesses\":[string]}], "+
					"\"other_notes\": string}.\n\nText: %s\nProduct context: %s\nKnown competitors: %s",
				str(in, "cleaned_text"), str(in, "product_context"), str(in, "known_competitors"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{
				"competitors":   []any{},
				"other_notes":   "",
				"error_message": errMsg,
			}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "competitors")
		},
	})
}
