// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research wires the pipeline stages together: plan queries,
// discover sources, fetch and clean pages, score credibility, summarize,
// and format. Run returns a tagged Outcome; Conduct turns it into text and
// never panics.
package research

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/market-research/internal/credibility"
	"github.com/pdiddy/market-research/internal/discover"
	"github.com/pdiddy/market-research/internal/fetch"
	"github.com/pdiddy/market-research/internal/logging"
	"github.com/pdiddy/market-research/internal/metrics"
	"github.com/pdiddy/market-research/internal/planner"
	"github.com/pdiddy/market-research/internal/report"
	"github.com/pdiddy/market-research/internal/summarize"
	"github.com/pdiddy/market-research/pkg/types"
)

// User-facing messages for the terminal outcomes.
const (
	MsgInvalidTopic    = "Please provide a market research topic."
	MsgDiscoveryEmpty  = "Could not find any relevant articles. Please try a different search term or check your internet connection."
	MsgExtractionEmpty = "Found articles, but couldn't extract meaningful content. This might be due to website restrictions or non-standard formatting."
	MsgCanceledPrefix  = "Market research was canceled before completion: "
	MsgUnexpected      = "Market research could not be completed because of an unexpected internal error. Please try again later."
)

// Fetcher turns candidate URLs into cleaned documents. *fetch.Fetcher
// implements it.
type Fetcher interface {
	FetchAndClean(ctx context.Context, urls []string) ([]types.ExtractedDocument, fetch.Stats, error)
}

// Deps holds the external collaborators of a pipeline.
type Deps struct {
	Provider  discover.Provider
	Fetcher   Fetcher
	Generator summarize.Generator
	Logger    *zap.Logger
}

// Pipeline runs market research for one topic per call. Configuration is
// fixed at construction and runs share no mutable state, so the HTTP server
// uses one Pipeline for all requests.
type Pipeline struct {
	cfg        types.PipelineConfig
	deps       Deps
	summarizer *summarize.Summarizer
	logger     *zap.Logger
}

// New validates deps and returns a Pipeline.
func New(cfg types.PipelineConfig, deps Deps) (*Pipeline, error) {
	switch {
	case deps.Provider == nil:
		return nil, errors.New("research: search provider is required")
	case deps.Fetcher == nil:
		return nil, errors.New("research: fetcher is required")
	case deps.Generator == nil:
		return nil, errors.New("research: generator is required")
	}
	logger := logging.OrNop(deps.Logger)
	return &Pipeline{
		cfg:        cfg,
		deps:       deps,
		summarizer: summarize.New(deps.Generator, cfg.Summarize, logger),
		logger:     logger,
	}, nil
}

// Conduct runs the pipeline and returns the formatted report or an
// explanatory message. It always returns non-empty text.
func (p *Pipeline) Conduct(ctx context.Context, topic string) string {
	return p.Run(ctx, topic).Message
}

// Run executes every stage for topic and returns the tagged outcome.
// Expected failures become terminal outcome kinds; a panic in any stage is
// recovered into an OutcomeDegraded with no report.
func (p *Pipeline) Run(ctx context.Context, topic string) (out types.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panicked", zap.String("topic", topic), zap.Any("panic", r), zap.Stack("stack"))
			out.Kind = types.OutcomeDegraded
			out.Report = nil
			out.Message = MsgUnexpected
		}
		out.Duration = time.Since(start)
		metrics.RunsTotal.WithLabelValues(string(out.Kind)).Inc()
		metrics.RunDuration.Observe(out.Duration.Seconds())
		p.logger.Info("research finished",
			zap.String("topic", out.Topic),
			zap.String("outcome", string(out.Kind)),
			zap.Int("discovered", out.Discovered),
			zap.Int("extracted", out.Extracted),
			zap.Duration("duration", out.Duration))
	}()

	topic = planner.Normalize(topic)
	out.Topic = topic
	if topic == "" {
		out.Kind = types.OutcomeInvalidTopic
		out.Message = MsgInvalidTopic
		return out
	}

	out.Queries = planner.PlanQueries(topic)
	p.logger.Info("discovering sources", zap.String("topic", topic), zap.Int("queries", len(out.Queries)))

	found, err := discover.Discover(ctx, p.deps.Provider, out.Queries, p.cfg.Discovery, p.logger)
	out.Discovered = len(found.URLs)
	if err != nil {
		return canceled(out, err)
	}
	if len(found.URLs) == 0 {
		p.logger.Warn("no sources found", zap.Int("failed_queries", len(found.Failures)))
		out.Kind = types.OutcomeDiscoveryEmpty
		out.Message = MsgDiscoveryEmpty
		return out
	}

	p.logger.Info("fetching sources", zap.Int("urls", len(found.URLs)))
	docs, stats, err := p.deps.Fetcher.FetchAndClean(ctx, found.URLs)
	out.Extracted = len(docs)
	if err != nil {
		if ctx.Err() != nil {
			return canceled(out, err)
		}
		p.logger.Warn("fetch stage ended early", zap.Error(err))
	}
	p.logger.Info("fetch complete",
		zap.Int("accepted", stats.Accepted),
		zap.Int("too_short", stats.TooShort),
		zap.Int("duplicate", stats.Duplicate),
		zap.Int("failed", stats.Failed))
	if len(docs) == 0 {
		out.Kind = types.OutcomeExtractionEmpty
		out.Message = MsgExtractionEmpty
		return out
	}

	urls := make([]string, len(docs))
	for i, d := range docs {
		urls[i] = d.URL
	}
	scores := credibility.Scores(urls)

	p.logger.Info("summarizing", zap.Int("documents", len(docs)), zap.String("strategy", string(p.cfg.Summarize.Strategy)))
	r, err := p.summarizer.Summarize(ctx, topic, docs, scores)
	if err != nil {
		if ctx.Err() != nil {
			return canceled(out, err)
		}
		p.logger.Warn("summarizer failed, returning limited report", zap.Error(err))
		r = limitedReport(topic, urls, scores)
	}

	out.Report = r
	out.Kind = types.OutcomeSuccess
	if r.Degraded {
		out.Kind = types.OutcomeDegraded
	}
	out.Message = report.Text(r)
	return out
}

func canceled(out types.Outcome, err error) types.Outcome {
	out.Kind = types.OutcomeCanceled
	out.Message = MsgCanceledPrefix + err.Error()
	return out
}

// limitedReport is the degraded report built without the summarizer.
func limitedReport(topic string, urls []string, scores map[string]float64) *types.ResearchReport {
	return &types.ResearchReport{
		Topic:           topic,
		Citations:       credibility.Order(urls, scores),
		SourcesAnalyzed: len(urls),
		Degraded:        true,
		GeneratedAt:     time.Now().UTC(),
	}
}

// Describe returns a one-line status for an outcome, used in logs and
// the HTTP API.
func Describe(o types.Outcome) string {
	switch o.Kind {
	case types.OutcomeSuccess:
		return fmt.Sprintf("report from %d of %d sources", o.Extracted, o.Discovered)
	case types.OutcomeDegraded:
		return fmt.Sprintf("limited report from %d of %d sources", o.Extracted, o.Discovered)
	default:
		return string(o.Kind)
	}
}
