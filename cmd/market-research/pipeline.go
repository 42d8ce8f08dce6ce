// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/market-research/internal/archive"
	"github.com/pdiddy/market-research/internal/cache"
	"github.com/pdiddy/market-research/internal/discover"
	"github.com/pdiddy/market-research/internal/fetch"
	"github.com/pdiddy/market-research/internal/research"
	"github.com/pdiddy/market-research/internal/summarize"
	"github.com/pdiddy/market-research/pkg/types"
)

// generationTimeout bounds one generation API call.
const generationTimeout = 2 * time.Minute

// buildPipeline wires the configured provider, fetcher, cache, and
// generator into a research pipeline. The returned function releases the
// page cache connection.
func buildPipeline(ctx context.Context, cfg types.PipelineConfig, logger *zap.Logger) (*research.Pipeline, func() error, error) {
	provider, err := discover.NewProvider(cfg.Discovery, &http.Client{Timeout: cfg.Discovery.Timeout})
	if err != nil {
		return nil, nil, err
	}

	generator, err := summarize.NewGenerator(cfg.Summarize.AIConfig, &http.Client{Timeout: generationTimeout})
	if err != nil {
		return nil, nil, err
	}

	pageCache, closeCache, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, err
	}

	fetcher, err := fetch.New(nil, cfg.Fetch,
		fetch.WithCache(pageCache),
		fetch.WithLogger(logger.Named("fetch")),
	)
	if err != nil {
		closeCache()
		return nil, nil, err
	}

	p, err := research.New(cfg, research.Deps{
		Provider:  provider,
		Fetcher:   fetcher,
		Generator: generator,
		Logger:    logger,
	})
	if err != nil {
		closeCache()
		return nil, nil, err
	}
	return p, closeCache, nil
}

// openArchive opens the run archive under cfg.DataDir.
func openArchive(cfg types.ArchiveConfig) (*archive.Store, error) {
	s, err := archive.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	return s, nil
}
