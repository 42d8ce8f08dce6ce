// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/market-research/internal/httputil"
)

// duckDuckGoBase is the DuckDuckGo HTML endpoint.
const duckDuckGoBase = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the DuckDuckGo HTML results page. It needs no API key.
type DuckDuckGo struct {
	// BaseURL overrides the endpoint; tests point it at an httptest server.
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

// Name returns the provider identifier.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search requests the results page for query and returns up to n organic
// result URLs. Sponsored results are skipped.
func (d *DuckDuckGo) Search(ctx context.Context, query string, n int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty DuckDuckGo query")
	}

	base := d.BaseURL
	if base == "" {
		base = duckDuckGoBase
	}
	reqURL := base + "?" + url.Values{"q": {query}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, clientOrDefault(d.Client), req, 0)
	if err != nil {
		return nil, fmt.Errorf("DuckDuckGo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DuckDuckGo returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing DuckDuckGo results: %w", err)
	}

	var urls []string
	doc.Find(".result").EachWithBreak(func(_ int, res *goquery.Selection) bool {
		if res.HasClass("result--ad") {
			return true
		}
		href, ok := res.Find("a.result__a").First().Attr("href")
		if !ok {
			return true
		}
		if u := resolveRedirect(href); u != "" {
			urls = append(urls, u)
		}
		return len(urls) < n
	})

	if len(urls) == 0 {
		return nil, ErrNoResults
	}
	return urls, nil
}

// resolveRedirect unwraps DuckDuckGo's "/l/?uddg=<target>" redirect links.
// Direct links are returned unchanged; anything else yields "".
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
		return ""
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return u.String()
	}
	return ""
}
