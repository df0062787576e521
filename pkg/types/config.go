// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds a single provider call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" validate:"gt=0"`

	// UserAgent is the User-Agent header sent with provider requests
	// (e.g. "health-search/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ProviderConfig holds settings for one chat-completions provider.
type ProviderConfig struct {
	HTTPConfig `yaml:",inline"`

	// URL is the full chat-completions endpoint.
	URL string `json:"url" yaml:"url" validate:"required,url"`

	// Model is the provider's model identifier (e.g. "google/gemini-2.5-pro").
	Model string `json:"model" yaml:"model" validate:"required"`

	// APIKey is the bearer token. Never serialized.
	APIKey string `json:"-" yaml:"-"`

	// Temperature is the decoding temperature; lower is more deterministic.
	Temperature float64 `json:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`

	// MaxTokens caps the completion length. Zero leaves it to the provider.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" validate:"gte=0"`
}

// BreakerConfig controls the circuit breaker in front of the enhancement stage.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker. Zero disables it.
	ConsecutiveFailures uint32 `json:"consecutive_failures" yaml:"consecutive_failures"`

	// Cooldown is how long the breaker stays open before probing again.
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown" validate:"gte=0"`
}

// EnhancementConfig holds settings for the optional wording stage.
type EnhancementConfig struct {
	ProviderConfig `yaml:",inline"`

	Breaker BreakerConfig `json:"breaker" yaml:"breaker"`
}

// ExtractionStrategy selects how a JSON object is located in model output.
type ExtractionStrategy string

const (
	// ExtractGreedy takes the first '{' through the last '}'.
	ExtractGreedy ExtractionStrategy = "greedy"

	// ExtractBalanced takes the first structurally balanced object.
	ExtractBalanced ExtractionStrategy = "balanced"
)

// OrchestratorConfig groups the settings of the two-stage pipeline.
type OrchestratorConfig struct {
	Research    ProviderConfig     `json:"research" yaml:"research"`
	Enhancement EnhancementConfig  `json:"enhancement" yaml:"enhancement"`
	Extraction  ExtractionStrategy `json:"extraction" yaml:"extraction" validate:"oneof=greedy balanced"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address (e.g. ":8080").
	Addr string `json:"addr" yaml:"addr" validate:"required"`

	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" validate:"gte=0"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" validate:"gt=0"`
}

// HistoryBackend selects where processed queries are recorded.
type HistoryBackend string

const (
	HistoryNone     HistoryBackend = "none"
	HistorySQLite   HistoryBackend = "sqlite"
	HistorySupabase HistoryBackend = "supabase"
)

// HistoryConfig holds settings for the search history recorder.
type HistoryConfig struct {
	Backend HistoryBackend `json:"backend" yaml:"backend" validate:"oneof=none sqlite supabase"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path" validate:"required_if=Backend sqlite"`

	// SupabaseURL and SupabaseKey address the project for the supabase backend.
	SupabaseURL string `json:"supabase_url" yaml:"supabase_url" validate:"required_if=Backend supabase"`
	SupabaseKey string `json:"-" yaml:"-" validate:"required_if=Backend supabase"`

	// Table is the Supabase table rows are inserted into.
	Table string `json:"table" yaml:"table"`
}

// Config is the complete service configuration.
type Config struct {
	Server       ServerConfig       `json:"server" yaml:"server"`
	Orchestrator OrchestratorConfig `json:"orchestrator" yaml:"orchestrator"`
	History      HistoryConfig      `json:"history" yaml:"history"`
}
