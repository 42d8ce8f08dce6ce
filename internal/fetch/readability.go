// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
)

// ReadabilityExtractor locates the article body with the readability
// scoring algorithm instead of fixed selectors. Pages readability cannot
// handle go through SelectorExtractor.
type ReadabilityExtractor struct{}

// Extract implements Extractor.
func (ReadabilityExtractor) Extract(body []byte, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	text, err := renderReadable(body, u)
	if err != nil || strings.TrimSpace(text) == "" {
		return SelectorExtractor{}.Extract(body, pageURL)
	}
	return text, nil
}

func renderReadable(body []byte, u *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	var b strings.Builder
	if err := article.RenderText(&b); err != nil {
		return "", fmt.Errorf("rendering article text: %w", err)
	}
	return b.String(), nil
}
