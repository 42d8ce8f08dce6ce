// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/market-research/pkg/types"
)

// --- fake provider ---

type fakeProvider struct {
	results map[string][]string
	errs    map[string]error
	calls   []string
	ns      []int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(_ context.Context, query string, n int) ([]string, error) {
	f.calls = append(f.calls, query)
	f.ns = append(f.ns, n)
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.results[query], nil
}

func testCfg() types.DiscoveryConfig {
	return types.DiscoveryConfig{ResultsPerQuery: 5}
}

func urls(prefix string, ids ...int) []string {
	var out []string
	for _, id := range ids {
		out = append(out, fmt.Sprintf("https://%s.example.com/article/%d", prefix, id))
	}
	return out
}

func TestDiscover_OverlappingResultsDeduplicated(t *testing.T) {
	shared := urls("shared", 1, 2)
	p := &fakeProvider{results: map[string][]string{
		"q1": append(urls("a", 1, 2, 3), shared...),
		"q2": append(shared, urls("b", 1, 2, 3)...),
	}}

	res, err := Discover(context.Background(), p, []string{"q1", "q2"}, testCfg(), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Len(t, res.URLs, 8)
	assert.Equal(t, 2, res.DupsRemoved)
	assert.Empty(t, res.Failures)

	seen := map[string]bool{}
	for _, u := range res.URLs {
		assert.False(t, seen[u], "duplicate URL %s", u)
		seen[u] = true
	}
}

func TestDiscover_PreservesDiscoveryOrder(t *testing.T) {
	p := &fakeProvider{results: map[string][]string{
		"q1": {"https://a.com/1", "https://b.com/1"},
		"q2": {"https://b.com/1", "https://c.com/1"},
	}}

	res, err := Discover(context.Background(), p, []string{"q1", "q2"}, testCfg(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.com/1", "https://b.com/1", "https://c.com/1"}, res.URLs)
}

func TestDiscover_SingleQueryFailureIsNotFatal(t *testing.T) {
	p := &fakeProvider{
		results: map[string][]string{"q2": {"https://ok.example.com/x"}},
		errs:    map[string]error{"q1": errors.New("blocked")},
	}

	res, err := Discover(context.Background(), p, []string{"q1", "q2"}, testCfg(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://ok.example.com/x"}, res.URLs)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "q1", res.Failures[0].Query)
	assert.False(t, res.AllFailed(2))
	assert.Equal(t, []string{"q1", "q2"}, p.calls)
}

func TestDiscover_AllQueriesFail(t *testing.T) {
	boom := errors.New("network unreachable")
	p := &fakeProvider{errs: map[string]error{"q1": boom, "q2": boom}}

	res, err := Discover(context.Background(), p, []string{"q1", "q2"}, testCfg(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.URLs)
	assert.True(t, res.AllFailed(2))
}

func TestDiscover_FiltersInvalidAndTruncates(t *testing.T) {
	p := &fakeProvider{results: map[string][]string{
		"q": {"", "ftp://files.example.com/a", "not a url", " https://ok.com/a ", "https://ok.com/b", "https://ok.com/c"},
	}}
	cfg := types.DiscoveryConfig{ResultsPerQuery: 5}

	res, err := Discover(context.Background(), p, []string{"q"}, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://ok.com/a", "https://ok.com/b"}, res.URLs)
	assert.Equal(t, []int{5}, p.ns)
}

func TestDiscover_DefaultResultsPerQuery(t *testing.T) {
	p := &fakeProvider{}
	_, err := Discover(context.Background(), p, []string{"q"}, types.DiscoveryConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{defaultResultsPerQuery}, p.ns)
}

func TestDiscover_PacesQueries(t *testing.T) {
	p := &fakeProvider{}
	cfg := types.DiscoveryConfig{ResultsPerQuery: 5, QueryDelay: 30 * time.Millisecond}

	start := time.Now()
	_, err := Discover(context.Background(), p, []string{"q1", "q2", "q3"}, cfg, nil)
	require.NoError(t, err)
	// First query is immediate; two spaced waits follow.
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestDiscover_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakeProvider{}
	_, err := Discover(ctx, p, []string{"q1"}, testCfg(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.calls)
}

func TestIsWebURL(t *testing.T) {
	assert.True(t, IsWebURL("https://example.com/a"))
	assert.True(t, IsWebURL("http://example.com"))
	assert.False(t, IsWebURL("mailto:a@example.com"))
	assert.False(t, IsWebURL("/relative/path"))
	assert.False(t, IsWebURL(""))
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(types.DiscoveryConfig{}, http.DefaultClient)
	require.NoError(t, err)
	assert.Equal(t, "duckduckgo", p.Name())

	_, err = NewProvider(types.DiscoveryConfig{Provider: types.ProviderSearxNG}, nil)
	assert.Error(t, err)

	p, err = NewProvider(types.DiscoveryConfig{Provider: types.ProviderSearxNG, SearxURL: "http://searx.local"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "searxng", p.Name())

	_, err = NewProvider(types.DiscoveryConfig{Provider: "bing"}, nil)
	assert.Error(t, err)
}

// --- SearxNG ---

func TestSearxNG_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "fintech market trends", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[{"url":"https://a.com/1"},{"url":""},{"url":"https://b.com/2"},{"url":"https://c.com/3"}]}`)
	}))
	defer ts.Close()

	s := &SearxNG{BaseURL: ts.URL + "/", APIKey: "k", Client: ts.Client()}
	got, err := s.Search(context.Background(), "fintech market trends", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.com/1", "https://b.com/2"}, got)
}

func TestSearxNG_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	s := &SearxNG{BaseURL: ts.URL, Client: ts.Client()}
	_, err := s.Search(context.Background(), "q", 5)
	assert.Error(t, err)
}

func TestSearxNG_NoResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer ts.Close()

	s := &SearxNG{BaseURL: ts.URL, Client: ts.Client()}
	_, err := s.Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, ErrNoResults)
}

// --- DuckDuckGo ---

const ddgPage = `<html><body>
<div class="result result--ad"><a class="result__a" href="https://ads.example.com/buy">Ad</a></div>
<div class="result"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.reuters.com%2Fmarkets%2Ffintech&amp;rut=abc">Reuters</a></div>
<div class="result"><a class="result__a" href="https://example.org/report">Direct</a></div>
<div class="result"><a class="result__a" href="//duckduckgo.com/y.js?ad_provider=x">Tracking</a></div>
<div class="result"><a class="result__a" href="https://third.example.com/">Third</a></div>
</body></html>`

func TestDuckDuckGo_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fintech", r.URL.Query().Get("q"))
		assert.Equal(t, "ua/1", r.Header.Get("User-Agent"))
		fmt.Fprint(w, ddgPage)
	}))
	defer ts.Close()

	d := &DuckDuckGo{BaseURL: ts.URL + "/html/", UserAgent: "ua/1", Client: ts.Client()}
	got, err := d.Search(context.Background(), "fintech", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.reuters.com/markets/fintech", "https://example.org/report"}, got)
}

func TestDuckDuckGo_EmptyPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>No results.</body></html>`)
	}))
	defer ts.Close()

	d := &DuckDuckGo{BaseURL: ts.URL, Client: ts.Client()}
	_, err := d.Search(context.Background(), "fintech", 5)
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestResolveRedirect(t *testing.T) {
	assert.Equal(t, "https://a.com/x?y=1", resolveRedirect("//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.com%2Fx%3Fy%3D1"))
	assert.Equal(t, "https://b.com/", resolveRedirect("https://b.com/"))
	assert.Equal(t, "", resolveRedirect("//duckduckgo.com/y.js?x=1"))
	assert.Equal(t, "", resolveRedirect("javascript:void(0)"))
}
