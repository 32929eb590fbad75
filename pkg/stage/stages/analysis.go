package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "analysis",
		Category:       stage.CategorySpecialized,
		Dependencies:   []string{"intake"},
		ExecutionOrder: 1,
		Budgets:        stage.Budgets{"cleaned_text": 15000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Analyze this company from its cleaned website text. Return strict JSON with keys "+
					"company_sector, main_services ([string]), recent_activities ([string]), potential_challenges ([string]), "+
					"company_size_estimate, company_culture_values, relevance_score (0..1), general_diagnosis, opportunity_fit.\n\n"+
					"Cleaned text:\n%s", str(in, "cleaned_text"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{
				"company_sector":       "unidentified",
				"main_services":        []string{},
				"recent_activities":    []string{},
				"potential_challenges": []string{},
				"relevance_score":      0.0,
				"general_diagnosis":    "unidentified",
				"opportunity_fit":      "unidentified",
				"error_message":        errMsg,
			}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "company_sector", "relevance_score")
		},
	})
}
