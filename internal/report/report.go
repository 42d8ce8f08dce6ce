// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders a ResearchReport as text, JSON, or YAML. It only
// presents; ordering and content are decided upstream.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/market-research/internal/credibility"
	"github.com/pdiddy/market-research/pkg/types"
)

// Format names an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// LimitedTitle heads a degraded report.
const LimitedTitle = "Market Research Summary (Limited)"

// Text renders r for a terminal or chat reply.
func Text(r *types.ResearchReport) string {
	if r == nil {
		return ""
	}
	if r.Degraded {
		return limited(r)
	}

	var b strings.Builder
	title := "Market Research Insights: " + r.Topic
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len([]rune(title))) + "\n\n")

	b.WriteString("AI-Generated Analysis\n")
	b.WriteString("---------------------\n")
	b.WriteString(strings.TrimSpace(r.Narrative))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Sources by Credibility Rating (%d analyzed, %d summarized)\n", r.SourcesAnalyzed, r.SummariesUsed)
	b.WriteString("----------------------------------------------------------\n")
	for _, c := range r.Citations {
		fmt.Fprintf(&b, "%d. %s\n", c.Rank, c.URL)
		fmt.Fprintf(&b, "   Rating: %s (%.2f)\n", StarBar(c.Stars), c.Score)
	}
	return b.String()
}

func limited(r *types.ResearchReport) string {
	var b strings.Builder
	title := LimitedTitle + ": " + r.Topic
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len([]rune(title))) + "\n\n")
	fmt.Fprintf(&b, "Analyzed %d sources but AI synthesis was unavailable.\n\n", r.SourcesAnalyzed)
	b.WriteString("Raw Sources:\n")
	for _, c := range r.Citations {
		fmt.Fprintf(&b, "%d. %s\n", c.Rank, c.URL)
	}
	return b.String()
}

// StarBar draws n filled stars out of credibility.MaxStars.
func StarBar(n int) string {
	if n < 0 {
		n = 0
	}
	if n > credibility.MaxStars {
		n = credibility.MaxStars
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", credibility.MaxStars-n)
}

// JSON writes r as indented JSON.
func JSON(r *types.ResearchReport, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// YAML writes r as YAML.
func YAML(r *types.ResearchReport, w io.Writer) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// Write renders r in format f.
func Write(r *types.ResearchReport, f Format, w io.Writer) error {
	switch f {
	case FormatText, "":
		_, err := io.WriteString(w, Text(r))
		return err
	case FormatJSON:
		return JSON(r, w)
	case FormatYAML:
		return YAML(r, w)
	default:
		return fmt.Errorf("unknown format %q (want text, json, or yaml)", f)
	}
}
