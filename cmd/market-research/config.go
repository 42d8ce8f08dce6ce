// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/viper"

	"github.com/pdiddy/market-research/internal/fetch"
	"github.com/pdiddy/market-research/internal/secrets"
	"github.com/pdiddy/market-research/pkg/types"
)

// setDefaults registers the default value of every configuration key so
// env vars resolve even when no config file exists.
func setDefaults() {
	viper.SetDefault("discovery.provider", string(types.ProviderDuckDuckGo))
	viper.SetDefault("discovery.results_per_query", 8)
	viper.SetDefault("discovery.query_delay", "2s")
	viper.SetDefault("discovery.timeout", "15s")
	viper.SetDefault("discovery.user_agent", fetch.DefaultUserAgent)
	viper.SetDefault("discovery.searx_url", "")
	viper.SetDefault("discovery.searx_api_key", "")

	viper.SetDefault("fetch.timeout", "15s")
	viper.SetDefault("fetch.user_agent", "")
	viper.SetDefault("fetch.max_attempts", 3)
	viper.SetDefault("fetch.backoff_base", "1s")
	viper.SetDefault("fetch.politeness_delay", "1500ms")
	viper.SetDefault("fetch.min_words", 100)
	viper.SetDefault("fetch.min_fragment_chars", 40)
	viper.SetDefault("fetch.max_body_bytes", 5<<20)
	viper.SetDefault("fetch.extractor", string(types.ExtractorSelectors))

	viper.SetDefault("summarize.provider", string(types.AIProviderOpenAI))
	viper.SetDefault("summarize.model", "")
	viper.SetDefault("summarize.base_url", "")
	viper.SetDefault("summarize.api_key", "")
	viper.SetDefault("summarize.max_retries", 1)
	viper.SetDefault("summarize.strategy", string(types.StrategyMapReduce))
	viper.SetDefault("summarize.summary_temperature", 0.5)
	viper.SetDefault("summarize.summary_max_tokens", 1024)
	viper.SetDefault("summarize.synthesis_max_tokens", 4096)
	viper.SetDefault("summarize.max_weighted_words", 2000)
	viper.SetDefault("summarize.max_source_words", 0)

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.addr", "localhost:6379")
	viper.SetDefault("cache.password", "")
	viper.SetDefault("cache.db", 0)
	viper.SetDefault("cache.ttl", "24h")

	viper.SetDefault("archive.enabled", true)
	viper.SetDefault("archive.data_dir", "data")
	viper.SetDefault("archive.max_results", 20)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
}

// loadConfig reads the pipeline configuration and fills API keys that
// config and env left empty from the loaded secrets.
func loadConfig() types.PipelineConfig {
	cfg := readConfig()
	secrets.Apply(&cfg, loadedSecrets)
	return cfg
}

// readConfig reads the pipeline configuration from viper.
func readConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Discovery: types.DiscoveryConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("discovery.timeout"),
				UserAgent: viper.GetString("discovery.user_agent"),
			},
			Provider:        types.SearchProviderKind(viper.GetString("discovery.provider")),
			ResultsPerQuery: viper.GetInt("discovery.results_per_query"),
			QueryDelay:      viper.GetDuration("discovery.query_delay"),
			SearxURL:        viper.GetString("discovery.searx_url"),
			SearxAPIKey:     viper.GetString("discovery.searx_api_key"),
		},
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("fetch.timeout"),
				UserAgent: viper.GetString("fetch.user_agent"),
			},
			MaxAttempts:      viper.GetInt("fetch.max_attempts"),
			BackoffBase:      viper.GetDuration("fetch.backoff_base"),
			PolitenessDelay:  viper.GetDuration("fetch.politeness_delay"),
			MinWords:         viper.GetInt("fetch.min_words"),
			MinFragmentChars: viper.GetInt("fetch.min_fragment_chars"),
			MaxBodyBytes:     viper.GetInt64("fetch.max_body_bytes"),
			Extractor:        types.ExtractorKind(viper.GetString("fetch.extractor")),
		},
		Summarize: types.SummarizeConfig{
			AIConfig: types.AIConfig{
				Provider:   types.AIProviderKind(viper.GetString("summarize.provider")),
				Model:      viper.GetString("summarize.model"),
				BaseURL:    viper.GetString("summarize.base_url"),
				APIKey:     viper.GetString("summarize.api_key"),
				MaxRetries: viper.GetInt("summarize.max_retries"),
			},
			Strategy:           types.SummaryStrategy(viper.GetString("summarize.strategy")),
			SummaryTemperature: viper.GetFloat64("summarize.summary_temperature"),
			SummaryMaxTokens:   viper.GetInt("summarize.summary_max_tokens"),
			SynthesisMaxTokens: viper.GetInt("summarize.synthesis_max_tokens"),
			MaxWeightedWords:   viper.GetInt("summarize.max_weighted_words"),
			MaxSourceWords:     viper.GetInt("summarize.max_source_words"),
		},
		Cache: types.CacheConfig{
			Enabled:  viper.GetBool("cache.enabled"),
			Addr:     viper.GetString("cache.addr"),
			Password: viper.GetString("cache.password"),
			DB:       viper.GetInt("cache.db"),
			TTL:      viper.GetDuration("cache.ttl"),
		},
		Archive: types.ArchiveConfig{
			Enabled:    viper.GetBool("archive.enabled"),
			DataDir:    viper.GetString("archive.data_dir"),
			MaxResults: viper.GetInt("archive.max_results"),
		},
		Logging: types.LoggingConfig{
			Level:  viper.GetString("logging.level"),
			Format: viper.GetString("logging.format"),
		},
	}
}
