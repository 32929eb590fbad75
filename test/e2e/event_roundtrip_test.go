package e2e

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nellia/prospectord/pkg/event"
)

// TestEventJSONProjectionRoundTrips covers spec.md §8 testable property 4
// and end-to-end scenario 6: every event tag, serialized and re-parsed,
// must be structurally stable. Re-marshaling the decoded map and comparing
// bytes sidesteps Go's int/float64 JSON-decode asymmetry, which would
// otherwise make a naive struct/map equality check fail for reasons that
// have nothing to do with information loss.
func TestEventJSONProjectionRoundTrips(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

	events := []event.Event{
		event.NewPipelineStart("job-1", "user-1", now, "AI sales automation SaaS", 5),
		event.NewPipelineEnd("job-1", "user-1", now, true, 3, 2, 1, 12.5, ""),
		event.NewPipelineError("job-1", "user-1", now, "persistence unavailable", "persistence_error"),
		event.NewLeadGenerated("job-1", "user-1", now, "lead-1", "Acme Inc", "https://acme.example", "https://acme.example", "Acme sells widgets"),
		event.NewLeadEnrichmentStart("job-1", "user-1", now, "lead-1"),
		event.NewLeadEnrichmentEnd("job-1", "user-1", now, "lead-1", true, "", map[string]any{
			"stage_outputs": map[string]any{"intake": map[string]any{"cleaned_text": "x"}},
			"confidence":    0.85,
		}),
		event.NewAgentStart("job-1", "user-1", now, "lead-1", "intake", "Acme sells widgets"),
		event.NewAgentEnd("job-1", "user-1", now, "lead-1", "intake", true, 1.2, 100, 50, ""),
		event.NewToolCallStart("job-1", "user-1", now, "lead-1", "tavily_enrichment", "search", map[string]any{"query": "Acme Inc funding"}),
		event.NewToolCallOutput("job-1", "user-1", now, "lead-1", "tavily_enrichment", "search", "Acme raised a Series B...", false),
		event.NewToolCallEnd("job-1", "user-1", now, "lead-1", "tavily_enrichment", "search", true, 0.4, ""),
		event.NewStatusUpdate("job-1", "user-1", now, "enriching leads", "pain_point_deepening", 0.4),
	}

	seenTags := map[event.Tag]bool{}
	for _, e := range events {
		tag := tagOf(e)
		seenTags[tag] = true

		first, err := json.Marshal(e.ToMap())
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(first, &decoded))

		second, err := json.Marshal(decoded)
		require.NoError(t, err)

		assert.JSONEq(t, string(first), string(second), "event %s did not round-trip", tag)
	}

	for _, tag := range []event.Tag{
		event.TagPipelineStart, event.TagPipelineEnd, event.TagPipelineError,
		event.TagLeadGenerated, event.TagLeadEnrichmentStart, event.TagLeadEnrichmentEnd,
		event.TagAgentStart, event.TagAgentEnd,
		event.TagToolCallStart, event.TagToolCallOutput, event.TagToolCallEnd,
		event.TagStatusUpdate,
	} {
		assert.True(t, seenTags[tag], "tag %s missing from round-trip coverage", tag)
	}
}
