// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package credibility scores source URLs by domain and path heuristics and
// orders them into citations. Scores never depend on page content.
package credibility

import (
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/pdiddy/market-research/pkg/types"
)

// Multipliers applied to the base score of 1.0.
const (
	InstitutionalBoost = 1.2
	PublisherBoost     = 1.3
	BlogPenalty        = 0.9
	DeepPathPenalty    = 0.95

	// DeepPathSeparators is the slash count in a URL path above which the
	// deep-link penalty applies.
	DeepPathSeparators = 4

	// MaxStars caps the star rating of a citation.
	MaxStars = 5
)

// institutionalLabels are host labels associated with educational,
// governmental, and nonprofit sites. Each matching label stacks.
var institutionalLabels = []string{"edu", "gov", "org"}

// Publishers is the curated list of recognized business and financial news
// domains. A host matches when it equals an entry or is a subdomain of one.
var Publishers = []string{
	"bloomberg.com",
	"reuters.com",
	"forbes.com",
	"businesswire.com",
	"wsj.com",
	"ft.com",
	"cnbc.com",
	"economist.com",
	"marketwatch.com",
}

// Score returns the credibility score of rawURL. It is a pure function of
// its input. Unparseable URLs keep the base score adjusted only by the
// substring rules.
func Score(rawURL string) float64 {
	score := 1.0

	var host, path string
	if u, err := url.Parse(rawURL); err == nil {
		host = strings.ToLower(u.Hostname())
		path = u.EscapedPath()
	}

	labels := strings.Split(host, ".")
	for _, want := range institutionalLabels {
		for _, l := range labels {
			if l == want {
				score *= InstitutionalBoost
				break
			}
		}
	}

	if isPublisher(host) {
		score *= PublisherBoost
	}

	if strings.Contains(strings.ToLower(rawURL), "blog") {
		score *= BlogPenalty
	}

	if strings.Count(path, "/") > DeepPathSeparators {
		score *= DeepPathPenalty
	}

	return score
}

func isPublisher(host string) bool {
	host = strings.TrimPrefix(host, "www.")
	for _, p := range Publishers {
		if host == p || strings.HasSuffix(host, "."+p) {
			return true
		}
	}
	return false
}

// Stars maps a score to a 0..MaxStars rating: floor(score * 2.5), capped.
func Stars(score float64) int {
	s := int(math.Floor(score * 2.5))
	if s > MaxStars {
		return MaxStars
	}
	if s < 0 {
		return 0
	}
	return s
}

// Rank scores each URL and returns citations sorted by descending score.
// URLs with equal scores keep their input order. Ranks start at 1.
func Rank(urls []string) []types.Citation {
	return Order(urls, Scores(urls))
}

// Order builds citations for urls from precomputed scores, sorted like Rank.
// A URL missing from scores is scored on the spot.
func Order(urls []string, scores map[string]float64) []types.Citation {
	cites := make([]types.Citation, len(urls))
	for i, u := range urls {
		s, ok := scores[u]
		if !ok {
			s = Score(u)
		}
		cites[i] = types.Citation{URL: u, Score: s, Stars: Stars(s)}
	}
	sort.SliceStable(cites, func(i, j int) bool {
		return cites[i].Score > cites[j].Score
	})
	for i := range cites {
		cites[i].Rank = i + 1
	}
	return cites
}

// Scores returns a URL to score mapping for urls.
func Scores(urls []string) map[string]float64 {
	m := make(map[string]float64, len(urls))
	for _, u := range urls {
		m[u] = Score(u)
	}
	return m
}

// Weights normalizes scores so they sum to 1. An empty or all-zero input
// yields equal weights.
func Weights(scores []float64) []float64 {
	w := make([]float64, len(scores))
	if len(scores) == 0 {
		return w
	}
	var total float64
	for _, s := range scores {
		total += s
	}
	for i, s := range scores {
		if total <= 0 {
			w[i] = 1 / float64(len(scores))
			continue
		}
		w[i] = s / total
	}
	return w
}
