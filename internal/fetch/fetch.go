// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads candidate source pages and turns them into cleaned
// plain-text documents. Pages are fetched one at a time with bounded
// retries; each accepted document is followed by a politeness pause.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/market-research/internal/cache"
	"github.com/pdiddy/market-research/internal/httputil"
	"github.com/pdiddy/market-research/internal/logging"
	"github.com/pdiddy/market-research/internal/metrics"
	"github.com/pdiddy/market-research/pkg/types"
)

var (
	// ErrTooShort marks a page whose cleaned text is below the word floor.
	ErrTooShort = errors.New("content below minimum word count")

	// ErrDuplicate marks a page whose cleaned text was already accepted.
	ErrDuplicate = errors.New("duplicate content")
)

// DefaultUserAgent is a desktop browser string; many origins refuse
// requests from obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

const (
	defaultMaxAttempts      = 3
	defaultBackoffBase      = time.Second
	defaultMinWords         = 100
	defaultMinFragmentChars = 40
	defaultMaxBodyBytes     = 5 << 20
)

// Stats counts what happened to each URL in a batch.
type Stats struct {
	Accepted  int `json:"accepted" yaml:"accepted"`
	TooShort  int `json:"too_short" yaml:"too_short"`
	Duplicate int `json:"duplicate" yaml:"duplicate"`
	Failed    int `json:"failed" yaml:"failed"`
}

// Total returns the number of URLs processed.
func (s Stats) Total() int {
	return s.Accepted + s.TooShort + s.Duplicate + s.Failed
}

// HasFailures reports whether any URL could not be fetched.
func (s Stats) HasFailures() bool {
	return s.Failed > 0
}

// Fetcher fetches and cleans pages. Its configuration is fixed after New;
// each FetchAndClean call keeps its own fingerprint set, so concurrent runs
// never see each other's documents.
type Fetcher struct {
	client    *http.Client
	cfg       types.FetchConfig
	extractor Extractor
	cache     cache.Cache
	sleep     httputil.Sleeper
	logger    *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithCache serves page bodies from c when present and stores fresh ones.
func WithCache(c cache.Cache) Option {
	return func(f *Fetcher) { f.cache = c }
}

// WithSleeper replaces the wait used for retry backoff and politeness.
func WithSleeper(s httputil.Sleeper) Option {
	return func(f *Fetcher) { f.sleep = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithExtractor overrides the extractor chosen by cfg.Extractor.
func WithExtractor(e Extractor) Option {
	return func(f *Fetcher) { f.extractor = e }
}

// New returns a Fetcher with zero config fields replaced by defaults.
func New(client *http.Client, cfg types.FetchConfig, opts ...Option) (*Fetcher, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.MinWords <= 0 {
		cfg.MinWords = defaultMinWords
	}
	if cfg.MinFragmentChars <= 0 {
		cfg.MinFragmentChars = defaultMinFragmentChars
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	f := &Fetcher{
		client: client,
		cfg:    cfg,
		cache:  cache.Nop{},
		sleep:  httputil.SleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.OrNop(f.logger)
	if f.extractor == nil {
		ex, err := NewExtractor(cfg.Extractor)
		if err != nil {
			return nil, err
		}
		f.extractor = ex
	}
	return f, nil
}

// FetchAndClean processes urls in order and returns the documents that pass
// the quality and duplicate gates. Per-URL failures are counted in Stats and
// do not stop the batch. If ctx is done between URLs, the documents accepted
// so far are returned with ctx.Err().
func (f *Fetcher) FetchAndClean(ctx context.Context, urls []string) ([]types.ExtractedDocument, Stats, error) {
	var (
		docs  []types.ExtractedDocument
		stats Stats
	)
	seen := make(map[string]bool)

	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return docs, stats, err
		}

		body, cached, err := f.load(ctx, u)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return docs, stats, ctxErr
			}
			f.logger.Warn("fetch failed", zap.String("url", u), zap.Error(err))
			metrics.DocumentsTotal.WithLabelValues("failed").Inc()
			stats.Failed++
			continue
		}

		doc, err := f.Clean(u, body)
		if err == nil && seen[doc.Fingerprint] {
			err = ErrDuplicate
		}
		switch {
		case errors.Is(err, ErrTooShort):
			f.logger.Info("skipped short page", zap.String("url", u), zap.Int("words", doc.Words))
			metrics.DocumentsTotal.WithLabelValues("too_short").Inc()
			stats.TooShort++
			continue
		case errors.Is(err, ErrDuplicate):
			f.logger.Info("skipped duplicate page", zap.String("url", u), zap.String("fingerprint", doc.Fingerprint))
			metrics.DocumentsTotal.WithLabelValues("duplicate").Inc()
			stats.Duplicate++
			continue
		case err != nil:
			f.logger.Warn("clean failed", zap.String("url", u), zap.Error(err))
			metrics.DocumentsTotal.WithLabelValues("failed").Inc()
			stats.Failed++
			continue
		}

		seen[doc.Fingerprint] = true
		docs = append(docs, doc)
		stats.Accepted++
		metrics.DocumentsTotal.WithLabelValues("accepted").Inc()
		f.logger.Debug("accepted page", zap.String("url", u), zap.Int("words", doc.Words), zap.Bool("cached", cached))

		if !cached && i < len(urls)-1 && f.cfg.PolitenessDelay > 0 {
			if err := f.sleep(ctx, f.cfg.PolitenessDelay); err != nil {
				return docs, stats, err
			}
		}
	}
	return docs, stats, nil
}

// Clean extracts and normalizes the text of one page. It returns ErrTooShort
// (with Words set) when the text is under the word floor.
func (f *Fetcher) Clean(pageURL string, body []byte) (types.ExtractedDocument, error) {
	raw, err := f.extractor.Extract(body, pageURL)
	if err != nil {
		return types.ExtractedDocument{}, err
	}
	text := Normalize(raw, f.cfg.MinFragmentChars)
	doc := types.ExtractedDocument{
		URL:   pageURL,
		Text:  text,
		Words: WordCount(text),
	}
	if doc.Words < f.cfg.MinWords {
		return doc, fmt.Errorf("%s: %d words: %w", pageURL, doc.Words, ErrTooShort)
	}
	doc.Fingerprint = Fingerprint(text)
	return doc, nil
}

// load returns the page body from the cache or the network. The bool
// reports a cache hit.
func (f *Fetcher) load(ctx context.Context, u string) ([]byte, bool, error) {
	body, ok, err := f.cache.Get(ctx, u)
	if err != nil {
		f.logger.Warn("cache read failed", zap.String("url", u), zap.Error(err))
	} else if ok {
		metrics.FetchAttemptsTotal.WithLabelValues("cache_hit").Inc()
		return body, true, nil
	}

	body, attempts, err := httputil.RetryWithBackoff(ctx, httputil.Policy{
		MaxAttempts: f.cfg.MaxAttempts,
		BaseDelay:   f.cfg.BackoffBase,
		Sleep:       f.sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			f.logger.Info("retrying fetch",
				zap.String("url", u),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		},
	}, func(ctx context.Context) ([]byte, error) {
		b, err := f.get(ctx, u)
		switch {
		case err == nil:
			metrics.FetchAttemptsTotal.WithLabelValues("success").Inc()
		case httputil.IsRetryable(err):
			metrics.FetchAttemptsTotal.WithLabelValues("retryable").Inc()
		default:
			metrics.FetchAttemptsTotal.WithLabelValues("fatal").Inc()
		}
		return b, err
	})
	if err != nil {
		return nil, false, err
	}
	if attempts > 1 {
		f.logger.Debug("fetch succeeded after retry", zap.String("url", u), zap.Int("attempts", attempts))
	}

	if err := f.cache.Set(ctx, u, body); err != nil {
		f.logger.Warn("cache write failed", zap.String("url", u), zap.Error(err))
	}
	return body, false, nil
}

// get performs one GET. Non-2xx responses become *httputil.StatusError.
func (f *Fetcher) get(parent context.Context, u string) ([]byte, error) {
	ctx, cancel := f.attemptContext(parent)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		// A per-attempt timeout is a transient transport failure, unlike
		// cancellation of the run itself.
		if parent.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("GET %s: timed out", u)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &httputil.StatusError{Code: resp.StatusCode, URL: u}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body from %s: %v", u, err)
	}
	return body, nil
}

// attemptContext bounds one attempt by cfg.Timeout when the client itself
// has no timeout.
func (f *Fetcher) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.cfg.Timeout > 0 && f.client.Timeout == 0 {
		return context.WithTimeout(ctx, f.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
