// Package query implements the Query Synthesizer (spec.md §4.C8): an
// LLM-backed primary path with a deterministic keyword-extraction fallback.
// Grounded on pkg/llmgateway for the LLM call and authored fresh for the
// fallback — no teacher file builds a search query from structured fields,
// but the tokenize/dedupe/cap shape mirrors the kind of small deterministic
// text utility the teacher keeps alongside its agents (e.g.
// pkg/masking's pattern-matching helpers) rather than reaching for a
// tokenizer dependency for a 10-token budget.
package query

import (
	"context"
	"strings"

	"github.com/nellia/prospectord/pkg/llmgateway"
)

// BusinessContext mirrors the recognized keys of spec.md §3's BusinessContext.
type BusinessContext struct {
	IndustryFocus            []string
	ProductServiceDescription string
	IdealCustomer            string
	Location                 string
	PainPoints                []string
	CompetitorsList          []string
	UserSearchQueryOverride  string
}

// SeedState derives the persona_profile/product_context/known_competitors
// strings several Stage Catalog stages declare as direct inputs (spec.md
// §4.C6: pain_point_deepening, lead_qualification, strategic_questions,
// detailed_plan, objection_handling, value_propositions read
// "persona_profile"; competitor_identification, buying_triggers,
// objection_handling, value_propositions, personalized_message read
// "product_context"; competitor_identification reads "known_competitors").
// Computed once per job from the immutable BusinessContext and folded into
// every lead's initial state so those reads are never silently blank.
func SeedState(bc BusinessContext) map[string]any {
	var persona strings.Builder
	persona.WriteString(bc.IdealCustomer)
	if bc.Location != "" {
		writeSep(&persona, "; ")
		persona.WriteString("location: " + bc.Location)
	}
	if len(bc.PainPoints) > 0 {
		writeSep(&persona, "; ")
		persona.WriteString("known pain points: " + strings.Join(bc.PainPoints, ", "))
	}

	var product strings.Builder
	product.WriteString(bc.ProductServiceDescription)
	if len(bc.IndustryFocus) > 0 {
		writeSep(&product, "; ")
		product.WriteString("industry focus: " + strings.Join(bc.IndustryFocus, ", "))
	}

	return map[string]any{
		"persona_profile":   persona.String(),
		"product_context":   product.String(),
		"known_competitors": strings.Join(bc.CompetitorsList, ", "),
	}
}

func writeSep(b *strings.Builder, sep string) {
	if b.Len() > 0 {
		b.WriteString(sep)
	}
}

var stopwords = map[string]bool{
	"the": true, "a": true, "and": true, "or": true, "of": true,
	"for": true, "to": true, "with": true, "in": true, "on": true, "at": true,
}

const maxFallbackTokens = 10

const staticFallbackQuery = "businesses"

// Synthesize produces a search query string. It first tries the LLM
// Gateway's "context → query" stage; on empty/whitespace response or
// transport failure it falls through to the deterministic Fallback.
func Synthesize(ctx context.Context, gw *llmgateway.Gateway, opts llmgateway.Options, bc BusinessContext) string {
	if bc.UserSearchQueryOverride != "" {
		return bc.UserSearchQueryOverride
	}

	prompt := renderQueryPrompt(bc)
	resp, err := gw.Generate(ctx, prompt, opts)
	if err == nil {
		line := strings.TrimSpace(firstLine(resp.Content))
		if line != "" {
			return line
		}
	}

	return Fallback(bc)
}

func renderQueryPrompt(bc BusinessContext) string {
	var b strings.Builder
	b.WriteString("Write a single short web search query (one line, no punctuation commentary) to find companies matching:\n")
	if len(bc.IndustryFocus) > 0 {
		b.WriteString("Industry focus: " + strings.Join(bc.IndustryFocus, ", ") + "\n")
	}
	if bc.ProductServiceDescription != "" {
		b.WriteString("Product/service: " + bc.ProductServiceDescription + "\n")
	}
	if bc.IdealCustomer != "" {
		b.WriteString("Ideal customer: " + bc.IdealCustomer + "\n")
	}
	if bc.Location != "" {
		b.WriteString("Location: " + bc.Location + "\n")
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Fallback deterministically extracts a search query from bc's fields, in
// priority order: industry_focus, product_service_description,
// ideal_customer, location, first pain_points entry, user override (spec.md
// §4.C8). Tokens of length ≤3 and stopwords are dropped; duplicates removed
// preserving first-seen order; capped at 10 tokens. If nothing survives,
// returns a final static fallback string.
func Fallback(bc BusinessContext) string {
	var sources []string
	sources = append(sources, bc.IndustryFocus...)
	sources = append(sources, bc.ProductServiceDescription, bc.IdealCustomer, bc.Location)
	if len(bc.PainPoints) > 0 {
		sources = append(sources, bc.PainPoints[0])
	}
	sources = append(sources, bc.UserSearchQueryOverride)

	seen := make(map[string]bool)
	var tokens []string
	for _, src := range sources {
		for _, tok := range tokenize(src) {
			if len(tok) <= 3 || stopwords[tok] || seen[tok] {
				continue
			}
			seen[tok] = true
			tokens = append(tokens, tok)
			if len(tokens) == maxFallbackTokens {
				return strings.Join(tokens, " ")
			}
		}
	}

	if len(tokens) == 0 {
		return staticFallbackQuery
	}
	return strings.Join(tokens, " ")
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}
