// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize turns extracted documents into a market-research report.
// The default map-reduce strategy summarizes each source and then synthesizes
// the summaries; the weighted strategy feeds credibility-weighted excerpts to
// a single synthesis call. Synthesis failure yields a degraded report listing
// the raw sources instead of an error.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/market-research/internal/credibility"
	"github.com/pdiddy/market-research/internal/logging"
	"github.com/pdiddy/market-research/internal/metrics"
	"github.com/pdiddy/market-research/pkg/types"
)

// ErrNoSummaries is returned when every per-source summary call failed.
var ErrNoSummaries = errors.New("no source summaries produced")

// Category tells the generator which kind of prompt it is serving.
type Category string

const (
	CategorySourceSummary     Category = "source_summary"
	CategorySynthesis         Category = "synthesis"
	CategoryWeightedSynthesis Category = "weighted_synthesis"
)

// Prompt is one generation request.
type Prompt struct {
	Category    Category
	Text        string
	Temperature float64
	MaxTokens   int
}

// Generator produces text for a prompt. Each backend (OpenAI-compatible,
// Claude) implements this interface.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Separator joins summaries and excerpts in synthesis input.
const Separator = "\n\n---\n\n"

const (
	defaultSummaryTemperature = 0.5
	defaultSummaryMaxTokens   = 1024
	defaultSynthesisMaxTokens = 4096
	defaultMaxWeightedWords   = 2000
	defaultMaxRetries         = 1
)

// backoffBase controls the base duration for exponential backoff between
// generation retries. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Summarizer runs one summarization strategy against a Generator.
type Summarizer struct {
	gen    Generator
	cfg    types.SummarizeConfig
	logger *zap.Logger
	now    func() time.Time
}

// New returns a Summarizer with zero config fields replaced by defaults.
func New(gen Generator, cfg types.SummarizeConfig, logger *zap.Logger) *Summarizer {
	if cfg.Strategy == "" {
		cfg.Strategy = types.StrategyMapReduce
	}
	if cfg.SummaryTemperature <= 0 {
		cfg.SummaryTemperature = defaultSummaryTemperature
	}
	if cfg.SummaryMaxTokens <= 0 {
		cfg.SummaryMaxTokens = defaultSummaryMaxTokens
	}
	if cfg.SynthesisMaxTokens <= 0 {
		cfg.SynthesisMaxTokens = defaultSynthesisMaxTokens
	}
	if cfg.MaxWeightedWords <= 0 {
		cfg.MaxWeightedWords = defaultMaxWeightedWords
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &Summarizer{
		gen:    gen,
		cfg:    cfg,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
}

// Summarize builds a report for topic from docs. scores maps each document
// URL to its credibility score. The returned report is never nil unless the
// error is a context error; generation failures produce a degraded report.
func (s *Summarizer) Summarize(ctx context.Context, topic string, docs []types.ExtractedDocument, scores map[string]float64) (*types.ResearchReport, error) {
	urls := make([]string, len(docs))
	for i, d := range docs {
		urls[i] = d.URL
	}
	cites := credibility.Order(urls, scores)

	switch s.cfg.Strategy {
	case types.StrategyMapReduce:
		return s.mapReduce(ctx, topic, docs, cites)
	case types.StrategyWeighted:
		return s.weighted(ctx, topic, docs, cites)
	default:
		return nil, fmt.Errorf("unknown summary strategy %q", s.cfg.Strategy)
	}
}

func (s *Summarizer) mapReduce(ctx context.Context, topic string, docs []types.ExtractedDocument, cites []types.Citation) (*types.ResearchReport, error) {
	summaries, err := s.SummarizeSources(ctx, topic, docs, cites)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("map step produced no summaries", zap.Int("documents", len(docs)), zap.Error(err))
		return s.degraded(topic, docs, cites), nil
	}

	text, err := render(synthesisTmpl, promptData{
		Topic: topic,
		Text:  JoinSummaries(summaries),
		Count: len(summaries),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering synthesis prompt: %w", err)
	}

	narrative, err := s.generate(ctx, Prompt{
		Category:    CategorySynthesis,
		Text:        text,
		Temperature: SynthesisTemperature(len(summaries)),
		MaxTokens:   s.cfg.SynthesisMaxTokens,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("synthesis failed, returning limited report", zap.Int("summaries", len(summaries)), zap.Error(err))
		return s.degraded(topic, docs, cites), nil
	}
	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		s.logger.Warn("synthesis returned no text, returning limited report", zap.Int("summaries", len(summaries)))
		return s.degraded(topic, docs, cites), nil
	}

	r := s.report(topic, docs, cites)
	r.Narrative = narrative
	r.SummariesUsed = len(summaries)
	return r, nil
}

// SummarizeSources runs the map step: one summary call per document, in
// citation order. A failed call drops that source. It returns ErrNoSummaries
// when every call failed, and ctx.Err() if ctx is done between calls.
func (s *Summarizer) SummarizeSources(ctx context.Context, topic string, docs []types.ExtractedDocument, cites []types.Citation) ([]types.SourceSummary, error) {
	byURL := make(map[string]types.ExtractedDocument, len(docs))
	for _, d := range docs {
		byURL[d.URL] = d
	}

	var out []types.SourceSummary
	for _, c := range cites {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		d, ok := byURL[c.URL]
		if !ok {
			continue
		}

		text, err := render(sourceSummaryTmpl, promptData{
			Topic: topic,
			URL:   d.URL,
			Text:  FirstWords(d.Text, s.cfg.MaxSourceWords),
		})
		if err != nil {
			return out, fmt.Errorf("rendering summary prompt: %w", err)
		}

		summary, err := s.generate(ctx, Prompt{
			Category:    CategorySourceSummary,
			Text:        text,
			Temperature: s.cfg.SummaryTemperature,
			MaxTokens:   s.cfg.SummaryMaxTokens,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			s.logger.Warn("source summary failed", zap.String("url", d.URL), zap.Error(err))
			continue
		}
		summary = strings.TrimSpace(summary)
		if summary == "" {
			s.logger.Warn("source summary empty", zap.String("url", d.URL))
			continue
		}
		out = append(out, types.SourceSummary{URL: d.URL, Score: c.Score, Summary: summary})
	}

	if len(out) == 0 {
		return nil, ErrNoSummaries
	}
	return out, nil
}

func (s *Summarizer) weighted(ctx context.Context, topic string, docs []types.ExtractedDocument, cites []types.Citation) (*types.ResearchReport, error) {
	scores := make(map[string]float64, len(cites))
	for _, c := range cites {
		scores[c.URL] = c.Score
	}
	excerpts := WeightedExcerpts(docs, scores, s.cfg.MaxWeightedWords)
	if len(excerpts) == 0 {
		s.logger.Warn("no weighted excerpts", zap.Int("documents", len(docs)))
		return s.degraded(topic, docs, cites), nil
	}

	text, err := render(weightedTmpl, promptData{
		Topic: topic,
		Text:  strings.Join(excerpts, Separator),
		Count: len(excerpts),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering weighted prompt: %w", err)
	}

	narrative, err := s.generate(ctx, Prompt{
		Category:    CategoryWeightedSynthesis,
		Text:        text,
		Temperature: SynthesisTemperature(len(docs)),
		MaxTokens:   s.cfg.SynthesisMaxTokens,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("weighted synthesis failed, returning limited report", zap.Error(err))
		return s.degraded(topic, docs, cites), nil
	}
	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		s.logger.Warn("weighted synthesis returned no text, returning limited report")
		return s.degraded(topic, docs, cites), nil
	}

	r := s.report(topic, docs, cites)
	r.Narrative = narrative
	return r, nil
}

func (s *Summarizer) report(topic string, docs []types.ExtractedDocument, cites []types.Citation) *types.ResearchReport {
	return &types.ResearchReport{
		Topic:           topic,
		Citations:       cites,
		SourcesAnalyzed: len(docs),
		Strategy:        s.cfg.Strategy,
		GeneratedAt:     s.now().UTC(),
	}
}

// degraded returns the limited report: every analyzed source in
// credibility order and no narrative.
func (s *Summarizer) degraded(topic string, docs []types.ExtractedDocument, cites []types.Citation) *types.ResearchReport {
	r := s.report(topic, docs, cites)
	r.Degraded = true
	return r
}

// generate calls the generator with retries and records metrics.
func (s *Summarizer) generate(ctx context.Context, p Prompt) (string, error) {
	out, err := callWithRetry(ctx, s.gen, p, s.cfg.MaxRetries)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.GenerationCallsTotal.WithLabelValues(string(p.Category), status).Inc()
	return out, err
}

// callWithRetry calls the generator with exponential backoff.
func callWithRetry(ctx context.Context, gen Generator, p Prompt, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		out, err := gen.Generate(ctx, p)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// SynthesisTemperature rises slightly with source count: min(0.7, 0.5 + n/10).
func SynthesisTemperature(n int) float64 {
	return math.Min(0.7, 0.5+float64(n)/10)
}

// JoinSummaries labels each summary with its URL and joins them with Separator.
// Input order is preserved.
func JoinSummaries(summaries []types.SourceSummary) string {
	parts := make([]string, len(summaries))
	for i, sm := range summaries {
		parts[i] = fmt.Sprintf("Source %d: %s\n%s", i+1, sm.URL, sm.Summary)
	}
	return strings.Join(parts, Separator)
}

// WeightedExcerpts trims each document to min(maxWords, words*weight) words,
// where weights are the credibility scores normalized to sum to 1. Documents
// keep their input order; a document whose share rounds to zero is dropped.
func WeightedExcerpts(docs []types.ExtractedDocument, scores map[string]float64, maxWords int) []string {
	raw := make([]float64, len(docs))
	for i, d := range docs {
		s, ok := scores[d.URL]
		if !ok {
			s = credibility.Score(d.URL)
		}
		raw[i] = s
	}
	weights := credibility.Weights(raw)

	var out []string
	for i, d := range docs {
		words := strings.Fields(d.Text)
		n := int(math.Min(float64(maxWords), float64(len(words))*weights[i]))
		if n <= 0 {
			continue
		}
		out = append(out, strings.Join(words[:n], " "))
	}
	return out
}

// FirstWords returns the first n words of text, or text unchanged when n <= 0
// or text is already short enough.
func FirstWords(text string, n int) string {
	if n <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}
