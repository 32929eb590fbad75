package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "intake",
		Category:       stage.CategoryInitial,
		Dependencies:   nil,
		ExecutionOrder: 0,
		Budgets:        stage.Budgets{"raw_text": 12000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Validate and clean the following raw scraped lead text. "+
					"Return strict JSON {\"cleaned_text\": string, \"extraction_successful\": bool, \"validation_errors\": [string]}.\n\nURL: %s\nTitle: %s\nRaw text:\n%s",
				str(in, "url"), str(in, "title"), str(in, "raw_text"))
		},
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{
				"cleaned_text":          "",
				"extraction_successful": false,
				"validation_errors":     []string{errMsg},
				"error_message":         errMsg,
			}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "cleaned_text", "extraction_successful")
		},
	})
}
