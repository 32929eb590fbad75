package stages

import (
	"fmt"

	"github.com/nellia/prospectord/pkg/stage"
)

func init() {
	stage.Register(&stage.Spec{
		Name:           "personalized_message",
		Category:       stage.CategorySpecialized,
		Dependencies:   []string{"detailed_plan", "value_propositions"},
		ExecutionOrder: 9,
		Budgets:        stage.Budgets{"plan_summary": 6000, "value_props_summary": 4000, "contact_details": 2000, "product_context": 3000},
		Render: func(in stage.Input) string {
			return fmt.Sprintf(
				"Write a ready-to-send outreach message on the recommended channel. If no contact "+
					"channel can be determined, set channel to \"none\" and explain why in error_message. "+
					"Return strict JSON {\"channel\":string,\"subject\":string,\"body\":string,\"cta\":string,"+
					"\"personalization_elements\":[string],\"error_message\":string}.\n\n"+
					"Plan: %s\nValue props: %s\nContacts: %s\nProduct: %s\nCompany: %s\nPersona name: %s",
				str(in, "plan_summary"), str(in, "value_props_summary"), str(in, "contact_details"),
				str(in, "product_context"), str(in, "company_name"), str(in, "persona_name"))
		},
		// Unlike every other stage, there is no suitable default message to
		// synthesize — channel="none" with the failure reason IS the default,
		// not a shortened stand-in for one. This stage always runs and always
		// emits agent_end; it never short-circuits.
		Default: func(in stage.Input, errMsg string) stage.Output {
			return stage.Output{
				"channel":                  "none",
				"subject":                  "",
				"body":                     "",
				"cta":                      "",
				"personalization_elements": []string{},
				"error_message":            errMsg,
			}
		},
		ParseInto: func(raw string) (stage.Output, error) {
			return parseJSONObject(raw, "channel", "body")
		},
	})
}
