// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/market-research/pkg/types"
)

// removedTags are stripped before any text is read.
var removedTags = []string{
	"script", "style", "noscript", "nav", "footer", "header",
	"aside", "form", "iframe", "svg", "template",
}

// contentSelectors are tried in order; the first non-empty match wins.
var contentSelectors = []string{
	"article",
	"main",
	`[role="main"]`,
	".content",
	"#content",
	".post-content",
	".article-body",
	".entry-content",
}

// blockTags get a trailing newline so their text lands on its own line.
const blockTags = "p, div, section, article, main, li, tr, td, th, h1, h2, h3, h4, h5, h6, blockquote, pre, br, dd, dt, figcaption"

// Extractor returns the raw main-content text of an HTML page. Callers pass
// the result through Normalize.
type Extractor interface {
	Extract(body []byte, pageURL string) (string, error)
}

// NewExtractor returns the extractor selected by kind.
func NewExtractor(kind types.ExtractorKind) (Extractor, error) {
	switch kind {
	case types.ExtractorSelectors, "":
		return SelectorExtractor{}, nil
	case types.ExtractorReadability:
		return ReadabilityExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", kind)
	}
}

// SelectorExtractor strips boilerplate elements and reads the first
// matching content region, falling back to the whole body.
type SelectorExtractor struct{}

// Extract implements Extractor.
func (SelectorExtractor) Extract(body []byte, _ string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	doc.Find(strings.Join(removedTags, ", ")).Remove()
	doc.Find(blockTags).Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml("\n")
	})

	for _, sel := range contentSelectors {
		region := doc.Find(sel).First()
		if region.Length() == 0 {
			continue
		}
		if text := region.Text(); strings.TrimSpace(text) != "" {
			return text, nil
		}
	}

	if b := doc.Find("body"); b.Length() > 0 {
		return b.Text(), nil
	}
	return doc.Text(), nil
}

// Normalize splits raw into lines, splits each line on runs of two spaces,
// trims every fragment, and keeps fragments longer than minFragment
// characters. Survivors are joined with newlines.
func Normalize(raw string, minFragment int) string {
	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		for _, frag := range strings.Split(strings.TrimSpace(line), "  ") {
			frag = strings.TrimSpace(frag)
			if frag == "" || utf8.RuneCountInString(frag) <= minFragment {
				continue
			}
			kept = append(kept, frag)
		}
	}
	return strings.Join(kept, "\n")
}
