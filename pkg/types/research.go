// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the market-research pipeline.
// Each stage consumes the output of the previous one: queries, source URLs,
// extracted documents, credibility scores, summaries, and the final report.
package types

import "time"

// ExtractedDocument is the cleaned plain-text body of one source page.
// Text is non-empty, has at least the configured minimum word count, and its
// Fingerprint is unique among documents accepted in the same run.
type ExtractedDocument struct {
	// URL is the source page the text was fetched from.
	URL string `json:"url" yaml:"url"`

	// Text is the cleaned, newline-joined content.
	Text string `json:"text" yaml:"text"`

	// Fingerprint is the lowercase hex SHA-256 of Text.
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`

	// Words is the whitespace-separated word count of Text.
	Words int `json:"words" yaml:"words"`
}

// Citation pairs a source URL with its credibility score. Rank is 1-based
// and reflects descending score order.
type Citation struct {
	Rank  int     `json:"rank" yaml:"rank"`
	URL   string  `json:"url" yaml:"url"`
	Score float64 `json:"score" yaml:"score"`
	Stars int     `json:"stars" yaml:"stars"`
}

// SourceSummary is a short generated synopsis of one ExtractedDocument.
type SourceSummary struct {
	URL     string  `json:"url" yaml:"url"`
	Score   float64 `json:"score" yaml:"score"`
	Summary string  `json:"summary" yaml:"summary"`
}

// ResearchReport is the final artifact of a pipeline run. Citations are
// sorted by descending score; equal scores keep discovery order.
type ResearchReport struct {
	// Topic is the caller-supplied research subject.
	Topic string `json:"topic" yaml:"topic"`

	// Narrative is the synthesized market-research text. Empty when Degraded.
	Narrative string `json:"narrative,omitempty" yaml:"narrative,omitempty"`

	// Citations lists every analyzed source in credibility order.
	Citations []Citation `json:"citations" yaml:"citations"`

	// SourcesAnalyzed is the number of extracted documents handed to the
	// summarizer.
	SourcesAnalyzed int `json:"sources_analyzed" yaml:"sources_analyzed"`

	// SummariesUsed is the number of per-source summaries that fed synthesis.
	SummariesUsed int `json:"summaries_used" yaml:"summaries_used"`

	// Degraded is set when AI synthesis was unavailable and the report only
	// carries the raw source listing.
	Degraded bool `json:"degraded" yaml:"degraded"`

	// Strategy records which summarization strategy produced the narrative.
	Strategy SummaryStrategy `json:"strategy" yaml:"strategy"`

	// GeneratedAt is when the report was assembled.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// OutcomeKind tags the result of a pipeline run.
type OutcomeKind string

const (
	OutcomeSuccess         OutcomeKind = "success"
	OutcomeInvalidTopic    OutcomeKind = "invalid_topic"
	OutcomeDiscoveryEmpty  OutcomeKind = "discovery_empty"
	OutcomeExtractionEmpty OutcomeKind = "extraction_empty"
	OutcomeDegraded        OutcomeKind = "degraded"
	OutcomeCanceled        OutcomeKind = "canceled"
)

// Outcome is the tagged result of one pipeline run. Report is set for
// OutcomeSuccess and for OutcomeDegraded, except when the run was aborted by
// an internal error. Message is always set.
type Outcome struct {
	Kind    OutcomeKind     `json:"kind" yaml:"kind"`
	Topic   string          `json:"topic" yaml:"topic"`
	Report  *ResearchReport `json:"report,omitempty" yaml:"report,omitempty"`
	Message string          `json:"message" yaml:"message"`

	// Queries, Discovered, and Extracted record how far the run got.
	Queries    []string `json:"queries,omitempty" yaml:"queries,omitempty"`
	Discovered int      `json:"discovered" yaml:"discovered"`
	Extracted  int      `json:"extracted" yaml:"extracted"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// HasReport reports whether the outcome carries a report.
func (o Outcome) HasReport() bool {
	return o.Report != nil
}
