package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "tavily_enrichment",
		Category:       stage.CategorySpecialized,
		Dependencies:   []string{"analysis"},
		ExecutionOrder: 2,
		Budgets:        stage.Budgets{"search_context": 8000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Summarize external web findings for %q (sector: %s). Return strict JSON "+
					"{\"enrichment_summary\": string, \"key_findings\": [string], \"api_called\": bool}.\n\nSearch context:\n%s",
				str(in, "company_name"), str(in, "company_sector"), str(in, "search_context"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{
				"enrichment_summary": "",
				"key_findings":       []string{},
				"api_called":         false,
				"error_message":      errMsg,
			}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "enrichment_summary", "key_findings")
		},
	})
}
