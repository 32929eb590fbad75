package llmgateway

import "encoding/json"

// ParseJSON accepts a raw LLM response that may be fenced, prose-wrapped, or
// raw JSON, salvages the JSON body via ExtractJSON, and unmarshals it into
// out. On failure it returns a *ParseError carrying the original raw text —
// it never guesses values (spec.md §4.C2).
func ParseJSON(raw string, out any) error {
	candidate := ExtractJSON(raw)
	if err := json.Unmarshal([]byte(candidate), out); err != nil {
		return &ParseError{Raw: raw, Err: err}
	}
	return nil
}

// Head returns the first n characters of s, for building error_message
// previews (spec.md §7: "the raw response head (first ~200 chars)").
func Head(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
