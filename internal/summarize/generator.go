// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"fmt"
	"net/http"

	"github.com/pdiddy/market-research/pkg/types"
)

// NewGenerator builds the backend selected by cfg.Provider.
func NewGenerator(cfg types.AIConfig, client *http.Client) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for %s provider", providerName(cfg.Provider))
	}
	switch cfg.Provider {
	case types.AIProviderOpenAI, "":
		return NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case types.AIProviderClaude:
		return &ClaudeGenerator{APIKey: cfg.APIKey, Model: cfg.Model, Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

func providerName(p types.AIProviderKind) string {
	if p == "" {
		return string(types.AIProviderOpenAI)
	}
	return string(p)
}
