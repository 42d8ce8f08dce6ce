// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover issues planned queries against a web search provider and
// aggregates the result URLs into one deduplicated, discovery-ordered list.
package discover

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/market-research/internal/logging"
	"github.com/pdiddy/market-research/internal/metrics"
	"github.com/pdiddy/market-research/pkg/types"
)

// ErrNoResults is returned by providers when a query yields no URLs.
var ErrNoResults = errors.New("no search results")

// Provider searches the web for one query. Each backend (SearxNG,
// DuckDuckGo) implements this interface.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, n int) ([]string, error)
}

// QueryFailure records a query whose provider call failed.
type QueryFailure struct {
	Query string `json:"query" yaml:"query"`
	Err   string `json:"error" yaml:"error"`
}

// Result holds the aggregated URLs and per-query failures.
type Result struct {
	// URLs holds unique source URLs in order of first appearance.
	URLs []string

	// Failures lists queries whose provider call failed.
	Failures []QueryFailure

	// DupsRemoved counts URLs dropped because an earlier query returned them.
	DupsRemoved int
}

// AllFailed reports whether every query failed.
func (r Result) AllFailed(queries int) bool {
	return queries > 0 && len(r.Failures) == queries
}

const defaultResultsPerQuery = 8

// Discover runs each query through the provider, one at a time, spacing
// calls by cfg.QueryDelay. A failed query is recorded and skipped; the
// batch continues. If ctx is done the URLs gathered so far are returned
// together with ctx.Err().
func Discover(ctx context.Context, p Provider, queries []string, cfg types.DiscoveryConfig, logger *zap.Logger) (Result, error) {
	logger = logging.OrNop(logger)

	n := cfg.ResultsPerQuery
	if n <= 0 {
		n = defaultResultsPerQuery
	}

	limit := rate.Inf
	if cfg.QueryDelay > 0 {
		limit = rate.Every(cfg.QueryDelay)
	}
	pacer := rate.NewLimiter(limit, 1)

	var res Result
	seen := make(map[string]bool)

	for _, q := range queries {
		if err := pacer.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			// The deadline falls before the next allowed call.
			return res, fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}

		urls, err := p.Search(ctx, q, n)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logger.Warn("search query failed",
				zap.String("provider", p.Name()),
				zap.String("query", q),
				zap.Error(err))
			metrics.QueriesTotal.WithLabelValues(p.Name(), "error").Inc()
			res.Failures = append(res.Failures, QueryFailure{Query: q, Err: err.Error()})
			continue
		}
		metrics.QueriesTotal.WithLabelValues(p.Name(), "success").Inc()

		if len(urls) > n {
			urls = urls[:n]
		}

		added := 0
		for _, u := range urls {
			u = strings.TrimSpace(u)
			if !IsWebURL(u) {
				continue
			}
			if seen[u] {
				res.DupsRemoved++
				continue
			}
			seen[u] = true
			res.URLs = append(res.URLs, u)
			added++
		}
		logger.Debug("search query done",
			zap.String("query", q),
			zap.Int("returned", len(urls)),
			zap.Int("new", added))
	}

	return res, nil
}

// IsWebURL reports whether s is an absolute http or https URL with a host.
func IsWebURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// NewProvider builds the provider selected by cfg.
func NewProvider(cfg types.DiscoveryConfig, client *http.Client) (Provider, error) {
	switch cfg.Provider {
	case types.ProviderSearxNG:
		if cfg.SearxURL == "" {
			return nil, fmt.Errorf("searxng provider requires discovery.searx_url")
		}
		return &SearxNG{BaseURL: cfg.SearxURL, APIKey: cfg.SearxAPIKey, Client: client, UserAgent: cfg.UserAgent}, nil
	case types.ProviderDuckDuckGo, "":
		return &DuckDuckGo{Client: client, UserAgent: cfg.UserAgent}, nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Provider)
	}
}
