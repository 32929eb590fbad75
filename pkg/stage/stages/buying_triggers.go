package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "buying_triggers",
		Category:       stage.CategorySpecialized,
		Dependencies:   []string{"tavily_enrichment"},
		ExecutionOrder: 3,
		Budgets:        stage.Budgets{"enrichment_summary": 4000, "product_context": 3000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Identify buying triggers. Return strict JSON "+
					"{\"triggers\": [{\"description\":string,\"relevance\":string}]}.\n\n"+
					"Lead data: %s\nEnrichment summary: %s\nProduct context: %s",
				str(in, "company_name"), str(in, "enrichment_summary"), str(in, "product_context"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{
				"triggers":      []any{},
				"error_message": errMsg,
			}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "triggers")
		},
	})
}
