package config

import "os"

// ExpandEnv expands environment variables in YAML content using Go's standard library.
// Supports both ${VAR} and $VAR syntax (standard shell-style).
//
// Examples:
//   - llm_service_addr: ${LLM_SERVICE_ADDR} → the LLM Gateway's backing address
//   - search_api_addr: $SEARCH_API_ADDR → the Search & Scrape Adapter's upstream
//   - persistence_dsn: ${PERSISTENCE_DSN} → the job store connection string
//
// Missing variables expand to empty string. Validation should catch required fields that are empty.
func ExpandEnv(data []byte) []byte {
	expanded := os.ExpandEnv(string(data))
	return []byte(expanded)
}
