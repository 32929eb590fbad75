// Package config loads and validates pipeline-wide configuration: retry and
// rate-limit policy, worker concurrency, prompt budgets, and external-service
// addresses. Follows the teacher's defaults-struct-plus-validator-tag
// pattern (originally pkg/config/queue.go, pkg/config/llm.go) collapsed into
// a single flat struct, since the pipeline's knobs (spec.md §6) are a flat
// set, not a multi-entity registry like the teacher's chain/agent/MCP config.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level, validated configuration for one prospectord process.
type Config struct {
	// MaxRetries is the number of LLM Gateway retry attempts (spec default 3).
	MaxRetries int `yaml:"max_retries" validate:"min=0"`

	// RetryDelaySeconds is the base transport-error backoff (spec default 5).
	RetryDelaySeconds float64 `yaml:"retry_delay_seconds" validate:"min=0"`

	// LeadWorkerConcurrency bounds the lead-worker pool (spec default 8).
	LeadWorkerConcurrency int `yaml:"lead_worker_concurrency" validate:"min=1"`

	// LLMMaxPromptCharacters is the global prompt-size ceiling (spec default 180000).
	LLMMaxPromptCharacters int `yaml:"llm_max_prompt_characters" validate:"min=1"`

	// ScrapeMaxCharacters is the scrape soft cap (spec default 10000).
	ScrapeMaxCharacters int `yaml:"scrape_max_characters" validate:"min=1"`

	// EventChannelCapacity bounds the merged event stream (spec default 64).
	EventChannelCapacity int `yaml:"event_channel_capacity" validate:"min=1"`

	// SearchMaxResultsPerQuery is the harvester's search fan-out (spec default
	// equals max_leads_to_generate; enrichment sub-queries default to 3).
	SearchMaxResultsPerQuery int `yaml:"search_max_results_per_query" validate:"min=1"`

	// TavilyTotalQueriesPerLead bounds per-lead enrichment search calls (spec default 3).
	TavilyTotalQueriesPerLead int `yaml:"tavily_total_queries_per_lead" validate:"min=1"`

	// LLMCallTimeout is loaded and defaulted, but nothing reads it: the LLM
	// Gateway and pkg/llmclient apply no per-call timeout of their own, so an
	// LLM call is bounded only by the caller's context.
	LLMCallTimeout time.Duration `yaml:"llm_call_timeout"`

	// SearchCallTimeout bounds one search API call.
	SearchCallTimeout time.Duration `yaml:"search_call_timeout"`

	// ScrapeCallTimeout bounds one scrape call.
	ScrapeCallTimeout time.Duration `yaml:"scrape_call_timeout"`

	// LLMServiceAddr is the LLM gRPC service address (pkg/llmclient).
	LLMServiceAddr string `yaml:"llm_service_addr" validate:"required"`

	// VectorIndexAddr is the Qdrant gRPC address (pkg/vectorindex); empty
	// disables the vector index (RAG store falls back to keyword overlap).
	VectorIndexAddr string `yaml:"vector_index_addr"`

	// SearchAPIAddr is the external web-search API base URL (pkg/webclient).
	SearchAPIAddr string `yaml:"search_api_addr"`

	// PersistenceDSN is the Postgres DSN for pkg/jobstore; empty uses the
	// in-memory pkg/persistence/memstore.
	PersistenceDSN string `yaml:"persistence_dsn"`

	// StagePromptVariableBudgets maps stage name -> field name -> max characters.
	// Stages declare their own budgets at registration time (stage.Register);
	// entries here override those defaults.
	StagePromptVariableBudgets map[string]map[string]int `yaml:"stage_prompt_variable_budgets"`

	// JobRetention always carries defaults, but main.go only starts the
	// retention service when the store is pkg/jobstore (PersistenceDSN set);
	// the in-memory store is never purged.
	JobRetention RetentionConfig `yaml:"job_retention"`
}

// RetentionConfig controls pkg/cleanup's background purge of completed job
// blobs from pkg/jobstore. Mirrors the teacher's RetentionConfig shape
// (session retention days + cleanup interval), narrowed to this pipeline's
// one retained entity (a job blob) instead of sessions and events.
type RetentionConfig struct {
	// JobTTL is how long a job blob is kept after its last write before
	// pkg/cleanup purges it.
	JobTTL time.Duration `yaml:"job_ttl"`

	// Interval is how often the purge sweep runs.
	Interval time.Duration `yaml:"interval"`
}

// Default returns the built-in configuration defaults, mirroring the
// teacher's DefaultQueueConfig() shape.
func Default() *Config {
	return &Config{
		MaxRetries:                 3,
		RetryDelaySeconds:          5,
		LeadWorkerConcurrency:      8,
		LLMMaxPromptCharacters:     180000,
		ScrapeMaxCharacters:        10000,
		EventChannelCapacity:       64,
		SearchMaxResultsPerQuery:   3,
		TavilyTotalQueriesPerLead:  3,
		LLMCallTimeout:             60 * time.Second,
		SearchCallTimeout:          20 * time.Second,
		ScrapeCallTimeout:          15 * time.Second,
		LLMServiceAddr:             "localhost:50061",
		StagePromptVariableBudgets: map[string]map[string]int{},
		JobRetention: RetentionConfig{
			JobTTL:   30 * 24 * time.Hour,
			Interval: time.Hour,
		},
	}
}

var validate = validator.New()

// Load reads YAML configuration from path, merges it over Default(), expands
// ${VAR}-style environment references, and validates the result. An empty
// path returns the defaults unvalidated against a file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		if err := validate.Struct(cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, NewLoadError(path, err)
	}

	expanded := ExpandEnv(raw)
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrValidationFailed, err))
	}
	return cfg, nil
}
