// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchProviderKind selects the web search backend.
type SearchProviderKind string

const (
	ProviderSearxNG    SearchProviderKind = "searxng"
	ProviderDuckDuckGo SearchProviderKind = "duckduckgo"
)

// DiscoveryConfig holds settings for the source discovery stage.
type DiscoveryConfig struct {
	HTTPConfig `yaml:",inline"`

	// Provider selects the search backend (default duckduckgo).
	Provider SearchProviderKind `json:"provider" yaml:"provider"`

	// ResultsPerQuery is the number of results requested per query (default 8).
	ResultsPerQuery int `json:"results_per_query" yaml:"results_per_query"`

	// QueryDelay is the minimum spacing between provider calls (default 2s).
	QueryDelay time.Duration `json:"query_delay" yaml:"query_delay"`

	// SearxURL is the base URL of a SearxNG instance.
	SearxURL string `json:"searx_url,omitempty" yaml:"searx_url,omitempty"`

	// SearxAPIKey is an optional key sent to SearxNG.
	SearxAPIKey string `json:"searx_api_key,omitempty" yaml:"searx_api_key,omitempty"`
}

// ExtractorKind selects how the main content of a page is located.
type ExtractorKind string

const (
	ExtractorSelectors   ExtractorKind = "selectors"
	ExtractorReadability ExtractorKind = "readability"
)

// FetchConfig holds settings for the content fetch and cleaning stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxAttempts is the number of GET attempts per URL (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BackoffBase is the delay before the second attempt; it doubles for
	// each later attempt (default 1s).
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base"`

	// PolitenessDelay is the pause after each accepted document (default 1.5s).
	PolitenessDelay time.Duration `json:"politeness_delay" yaml:"politeness_delay"`

	// MinWords is the quality floor for cleaned text (default 100).
	MinWords int `json:"min_words" yaml:"min_words"`

	// MinFragmentChars drops text fragments of this length or shorter (default 40).
	MinFragmentChars int `json:"min_fragment_chars" yaml:"min_fragment_chars"`

	// MaxBodyBytes caps the response body read per page (default 5 MiB).
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes"`

	// Extractor selects the main-content strategy (default selectors).
	Extractor ExtractorKind `json:"extractor" yaml:"extractor"`
}

// AIProviderKind selects the text generation backend.
type AIProviderKind string

const (
	AIProviderOpenAI AIProviderKind = "openai"
	AIProviderClaude AIProviderKind = "claude"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Provider selects the generation backend (default openai).
	Provider AIProviderKind `json:"provider" yaml:"provider"`

	// Model is the AI model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// BaseURL overrides the API endpoint for OpenAI-compatible providers.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of extra attempts for failed API calls (default 1).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SummaryStrategy selects how per-source content becomes one narrative.
type SummaryStrategy string

const (
	// StrategyMapReduce summarizes each source, then synthesizes the summaries.
	StrategyMapReduce SummaryStrategy = "map_reduce"

	// StrategyWeighted feeds credibility-weighted excerpts to one synthesis call.
	StrategyWeighted SummaryStrategy = "weighted"
)

// SummarizeConfig holds settings for the summarization stage.
type SummarizeConfig struct {
	AIConfig `yaml:",inline"`

	// Strategy selects map_reduce (default) or weighted.
	Strategy SummaryStrategy `json:"strategy" yaml:"strategy"`

	// SummaryTemperature is the sampling temperature for per-source summaries.
	SummaryTemperature float64 `json:"summary_temperature" yaml:"summary_temperature"`

	// SummaryMaxTokens caps the length of each per-source summary.
	SummaryMaxTokens int `json:"summary_max_tokens" yaml:"summary_max_tokens"`

	// SynthesisMaxTokens caps the length of the synthesized narrative.
	SynthesisMaxTokens int `json:"synthesis_max_tokens" yaml:"synthesis_max_tokens"`

	// MaxWeightedWords caps the words taken from one document by the
	// weighted strategy (default 2000).
	MaxWeightedWords int `json:"max_weighted_words" yaml:"max_weighted_words"`

	// MaxSourceWords truncates each document before per-source summarization
	// (0 means no limit).
	MaxSourceWords int `json:"max_source_words" yaml:"max_source_words"`
}

// CacheConfig holds settings for the optional Redis page cache.
type CacheConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Addr     string        `json:"addr" yaml:"addr"`
	Password string        `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int           `json:"db" yaml:"db"`
	TTL      time.Duration `json:"ttl" yaml:"ttl"`
}

// ArchiveConfig holds settings for the SQLite run archive.
type ArchiveConfig struct {
	// Enabled controls whether the CLI and server record completed runs.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// DataDir holds market-research.db.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxResults is the default number of runs listed (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `json:"level" yaml:"level"`

	// Format is console or json.
	Format string `json:"format" yaml:"format"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`
	Fetch     FetchConfig     `json:"fetch" yaml:"fetch"`
	Summarize SummarizeConfig `json:"summarize" yaml:"summarize"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Archive   ArchiveConfig   `json:"archive" yaml:"archive"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
}
