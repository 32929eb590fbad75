// Package event defines the pipeline's discriminated event record and its
// JSON projection. Events are values, not objects: tag dispatch is the only
// behavior beyond field access.
package event

import "time"

// Tag identifies the kind of a pipeline event.
type Tag string

// Event tags, per the pipeline's event contract.
const (
	TagPipelineStart       Tag = "pipeline_start"
	TagPipelineEnd         Tag = "pipeline_end"
	TagPipelineError       Tag = "pipeline_error"
	TagLeadGenerated       Tag = "lead_generated"
	TagLeadEnrichmentStart Tag = "lead_enrichment_start"
	TagLeadEnrichmentEnd   Tag = "lead_enrichment_end"
	TagAgentStart          Tag = "agent_start"
	TagAgentEnd            Tag = "agent_end"
	TagToolCallStart       Tag = "tool_call_start"
	TagToolCallOutput      Tag = "tool_call_output"
	TagToolCallEnd         Tag = "tool_call_end"
	TagStatusUpdate        Tag = "status_update"
)

// Event is the sealed interface implemented by every concrete event type.
// The unexported method prevents external packages from defining new tags.
type Event interface {
	eventTag() Tag
	// ToMap projects the event to its canonical JSON-shaped map. Pure: no I/O.
	ToMap() map[string]any
}

// base carries the fields every event shares.
type base struct {
	Timestamp time.Time `json:"timestamp"`
	JobID     string    `json:"job_id"`
	UserID    string    `json:"user_id"`
}

func (b base) toMap(tag Tag) map[string]any {
	return map[string]any{
		"event_type": string(tag),
		"timestamp":  b.Timestamp.UTC().Format(time.RFC3339Nano),
		"job_id":     b.JobID,
		"user_id":    b.UserID,
	}
}

// newBase builds the shared fields for a new event.
func newBase(jobID, userID string, now time.Time) base {
	return base{Timestamp: now, JobID: jobID, UserID: userID}
}

// PipelineStart is emitted once, first, per job.
type PipelineStart struct {
	base
	InitialQuery      string `json:"initial_query"`
	MaxLeadsToGenerate int   `json:"max_leads_to_generate"`
}

func NewPipelineStart(jobID, userID string, now time.Time, initialQuery string, maxLeads int) PipelineStart {
	return PipelineStart{base: newBase(jobID, userID, now), InitialQuery: initialQuery, MaxLeadsToGenerate: maxLeads}
}

func (e PipelineStart) eventTag() Tag { return TagPipelineStart }

func (e PipelineStart) ToMap() map[string]any {
	m := e.base.toMap(TagPipelineStart)
	m["initial_query"] = e.InitialQuery
	m["max_leads_to_generate"] = e.MaxLeadsToGenerate
	return m
}

// PipelineEnd is emitted once, last, per job.
type PipelineEnd struct {
	base
	Success              bool    `json:"success"`
	TotalLeadsGenerated  int     `json:"total_leads_generated"`
	TotalLeadsEnriched   int     `json:"total_leads_enriched"`
	TotalFailures        int     `json:"total_failures"`
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	ErrorMessage         string  `json:"error_message,omitempty"`
}

func NewPipelineEnd(jobID, userID string, now time.Time, success bool, generated, enriched, failures int, execSeconds float64, errMsg string) PipelineEnd {
	return PipelineEnd{
		base:                 newBase(jobID, userID, now),
		Success:              success,
		TotalLeadsGenerated:  generated,
		TotalLeadsEnriched:   enriched,
		TotalFailures:        failures,
		ExecutionTimeSeconds: execSeconds,
		ErrorMessage:         errMsg,
	}
}

func (e PipelineEnd) eventTag() Tag { return TagPipelineEnd }

func (e PipelineEnd) ToMap() map[string]any {
	m := e.base.toMap(TagPipelineEnd)
	m["success"] = e.Success
	m["total_leads_generated"] = e.TotalLeadsGenerated
	m["total_leads_enriched"] = e.TotalLeadsEnriched
	m["total_failures"] = e.TotalFailures
	m["execution_time_seconds"] = e.ExecutionTimeSeconds
	if e.ErrorMessage != "" {
		m["error_message"] = e.ErrorMessage
	}
	return m
}

// PipelineError signals an unrecoverable, job-terminating error.
type PipelineError struct {
	base
	ErrorMessage string `json:"error_message"`
	ErrorType    string `json:"error_type"`
}

func NewPipelineError(jobID, userID string, now time.Time, errMsg, errType string) PipelineError {
	return PipelineError{base: newBase(jobID, userID, now), ErrorMessage: errMsg, ErrorType: errType}
}

func (e PipelineError) eventTag() Tag { return TagPipelineError }

func (e PipelineError) ToMap() map[string]any {
	m := e.base.toMap(TagPipelineError)
	m["error_message"] = e.ErrorMessage
	m["error_type"] = e.ErrorType
	return m
}

// LeadGenerated is emitted once per harvested (or fallback) lead, strictly
// before the matching LeadEnrichmentStart.
type LeadGenerated struct {
	base
	LeadID      string `json:"lead_id"`
	CompanyName string `json:"company_name"`
	WebsiteURL  string `json:"website_url"`
	SourceURL   string `json:"source_url"`
	Description string `json:"description"`
}

func NewLeadGenerated(jobID, userID string, now time.Time, leadID, companyName, websiteURL, sourceURL, description string) LeadGenerated {
	return LeadGenerated{
		base:        newBase(jobID, userID, now),
		LeadID:      leadID,
		CompanyName: companyName,
		WebsiteURL:  websiteURL,
		SourceURL:   sourceURL,
		Description: description,
	}
}

func (e LeadGenerated) eventTag() Tag { return TagLeadGenerated }

func (e LeadGenerated) ToMap() map[string]any {
	m := e.base.toMap(TagLeadGenerated)
	m["lead_id"] = e.LeadID
	m["company_name"] = e.CompanyName
	m["website_url"] = e.WebsiteURL
	m["source_url"] = e.SourceURL
	m["description"] = e.Description
	return m
}

// LeadEnrichmentStart opens a lead's DAG run.
type LeadEnrichmentStart struct {
	base
	LeadID string `json:"lead_id"`
}

func NewLeadEnrichmentStart(jobID, userID string, now time.Time, leadID string) LeadEnrichmentStart {
	return LeadEnrichmentStart{base: newBase(jobID, userID, now), LeadID: leadID}
}

func (e LeadEnrichmentStart) eventTag() Tag { return TagLeadEnrichmentStart }

func (e LeadEnrichmentStart) ToMap() map[string]any {
	m := e.base.toMap(TagLeadEnrichmentStart)
	m["lead_id"] = e.LeadID
	return m
}

// LeadEnrichmentEnd closes a lead's DAG run. Package is an opaque JSON-ready
// map (the ComprehensiveProspectPackage projection) so this package does not
// need to import the dag package.
type LeadEnrichmentEnd struct {
	base
	LeadID       string         `json:"lead_id"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Package      map[string]any `json:"package,omitempty"`
}

func NewLeadEnrichmentEnd(jobID, userID string, now time.Time, leadID string, success bool, errMsg string, pkg map[string]any) LeadEnrichmentEnd {
	return LeadEnrichmentEnd{
		base:         newBase(jobID, userID, now),
		LeadID:       leadID,
		Success:      success,
		ErrorMessage: errMsg,
		Package:      pkg,
	}
}

func (e LeadEnrichmentEnd) eventTag() Tag { return TagLeadEnrichmentEnd }

func (e LeadEnrichmentEnd) ToMap() map[string]any {
	m := e.base.toMap(TagLeadEnrichmentEnd)
	m["lead_id"] = e.LeadID
	m["success"] = e.Success
	if e.ErrorMessage != "" {
		m["error_message"] = e.ErrorMessage
	}
	if e.Package != nil {
		m["package"] = e.Package
	}
	return m
}

// AgentStart opens one stage execution within a lead.
type AgentStart struct {
	base
	LeadID      string `json:"lead_id"`
	AgentName   string `json:"agent_name"`
	InputQuery  string `json:"input_query"`
}

func NewAgentStart(jobID, userID string, now time.Time, leadID, agentName, inputQuery string) AgentStart {
	return AgentStart{base: newBase(jobID, userID, now), LeadID: leadID, AgentName: agentName, InputQuery: inputQuery}
}

func (e AgentStart) eventTag() Tag { return TagAgentStart }

func (e AgentStart) ToMap() map[string]any {
	m := e.base.toMap(TagAgentStart)
	m["lead_id"] = e.LeadID
	m["agent_name"] = e.AgentName
	m["input_query"] = e.InputQuery
	return m
}

// AgentEnd closes one stage execution within a lead.
type AgentEnd struct {
	base
	LeadID               string  `json:"lead_id"`
	AgentName            string  `json:"agent_name"`
	Success              bool    `json:"success"`
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	TokensIn             int     `json:"tokens_in"`
	TokensOut            int     `json:"tokens_out"`
	ErrorMessage         string  `json:"error_message,omitempty"`
}

func NewAgentEnd(jobID, userID string, now time.Time, leadID, agentName string, success bool, execSeconds float64, tokensIn, tokensOut int, errMsg string) AgentEnd {
	return AgentEnd{
		base:                 newBase(jobID, userID, now),
		LeadID:               leadID,
		AgentName:            agentName,
		Success:              success,
		ExecutionTimeSeconds: execSeconds,
		TokensIn:             tokensIn,
		TokensOut:            tokensOut,
		ErrorMessage:         errMsg,
	}
}

func (e AgentEnd) eventTag() Tag { return TagAgentEnd }

func (e AgentEnd) ToMap() map[string]any {
	m := e.base.toMap(TagAgentEnd)
	m["lead_id"] = e.LeadID
	m["agent_name"] = e.AgentName
	m["success"] = e.Success
	m["execution_time_seconds"] = e.ExecutionTimeSeconds
	m["tokens_in"] = e.TokensIn
	m["tokens_out"] = e.TokensOut
	if e.ErrorMessage != "" {
		m["error_message"] = e.ErrorMessage
	}
	return m
}

// ToolCallStart opens an external-tool invocation within an agent scope.
type ToolCallStart struct {
	base
	LeadID    string         `json:"lead_id"`
	AgentName string         `json:"agent_name"`
	ToolName  string         `json:"tool_name"`
	ToolArgs  map[string]any `json:"tool_args,omitempty"`
}

func NewToolCallStart(jobID, userID string, now time.Time, leadID, agentName, toolName string, toolArgs map[string]any) ToolCallStart {
	return ToolCallStart{base: newBase(jobID, userID, now), LeadID: leadID, AgentName: agentName, ToolName: toolName, ToolArgs: toolArgs}
}

func (e ToolCallStart) eventTag() Tag { return TagToolCallStart }

func (e ToolCallStart) ToMap() map[string]any {
	m := e.base.toMap(TagToolCallStart)
	m["lead_id"] = e.LeadID
	m["agent_name"] = e.AgentName
	m["tool_name"] = e.ToolName
	m["tool_args"] = e.ToolArgs
	return m
}

// ToolCallOutput carries (possibly chunked) tool output.
type ToolCallOutput struct {
	base
	LeadID         string `json:"lead_id"`
	AgentName      string `json:"agent_name"`
	ToolName       string `json:"tool_name"`
	OutputSnippet  string `json:"output_snippet"`
	IsFinal        bool   `json:"is_final"`
}

func NewToolCallOutput(jobID, userID string, now time.Time, leadID, agentName, toolName, snippet string, isFinal bool) ToolCallOutput {
	return ToolCallOutput{base: newBase(jobID, userID, now), LeadID: leadID, AgentName: agentName, ToolName: toolName, OutputSnippet: snippet, IsFinal: isFinal}
}

func (e ToolCallOutput) eventTag() Tag { return TagToolCallOutput }

func (e ToolCallOutput) ToMap() map[string]any {
	m := e.base.toMap(TagToolCallOutput)
	m["lead_id"] = e.LeadID
	m["agent_name"] = e.AgentName
	m["tool_name"] = e.ToolName
	m["output_snippet"] = e.OutputSnippet
	m["is_final"] = e.IsFinal
	return m
}

// ToolCallEnd closes a tool invocation.
type ToolCallEnd struct {
	base
	LeadID               string  `json:"lead_id"`
	AgentName            string  `json:"agent_name"`
	ToolName             string  `json:"tool_name"`
	Success              bool    `json:"success"`
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	ErrorMessage         string  `json:"error_message,omitempty"`
}

func NewToolCallEnd(jobID, userID string, now time.Time, leadID, agentName, toolName string, success bool, execSeconds float64, errMsg string) ToolCallEnd {
	return ToolCallEnd{
		base:                 newBase(jobID, userID, now),
		LeadID:               leadID,
		AgentName:            agentName,
		ToolName:             toolName,
		Success:              success,
		ExecutionTimeSeconds: execSeconds,
		ErrorMessage:         errMsg,
	}
}

func (e ToolCallEnd) eventTag() Tag { return TagToolCallEnd }

func (e ToolCallEnd) ToMap() map[string]any {
	m := e.base.toMap(TagToolCallEnd)
	m["lead_id"] = e.LeadID
	m["agent_name"] = e.AgentName
	m["tool_name"] = e.ToolName
	m["success"] = e.Success
	m["execution_time_seconds"] = e.ExecutionTimeSeconds
	if e.ErrorMessage != "" {
		m["error_message"] = e.ErrorMessage
	}
	return m
}

// StatusUpdate carries a free-form progress note, including RAG degradation
// notices (spec §4.C4: degradation is recorded, never silently hidden).
type StatusUpdate struct {
	base
	StatusMessage      string  `json:"status_message"`
	AgentName          string  `json:"agent_name,omitempty"`
	ProgressPercentage float64 `json:"progress_percentage,omitempty"`
}

func NewStatusUpdate(jobID, userID string, now time.Time, statusMessage, agentName string, progress float64) StatusUpdate {
	return StatusUpdate{base: newBase(jobID, userID, now), StatusMessage: statusMessage, AgentName: agentName, ProgressPercentage: progress}
}

func (e StatusUpdate) eventTag() Tag { return TagStatusUpdate }

func (e StatusUpdate) ToMap() map[string]any {
	m := e.base.toMap(TagStatusUpdate)
	m["status_message"] = e.StatusMessage
	if e.AgentName != "" {
		m["agent_name"] = e.AgentName
	}
	if e.ProgressPercentage != 0 {
		m["progress_percentage"] = e.ProgressPercentage
	}
	return m
}
