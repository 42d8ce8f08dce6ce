// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/market-research/internal/cache"
	"github.com/pdiddy/market-research/pkg/types"
)

// recordingSleeper records requested waits without sleeping.
type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

// articlePage returns an HTML page whose article holds n sentences of about
// eleven words each, surrounded by boilerplate that must be stripped.
func articlePage(topic string, n int) string {
	var b strings.Builder
	b.WriteString("<html><head><title>t</title><style>body{color:red}</style>")
	b.WriteString("<script>var tracking = 'this script text must never appear in output';</script></head><body>")
	b.WriteString("<nav>Home About Contact Careers Investors Press Newsroom Legal Privacy</nav>")
	b.WriteString("<header>Site header banner with a long enough slogan to survive fragments</header>")
	b.WriteString("<article><h1>Report</h1>")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "<p>Sentence %d about %s explains how the market keeps growing steadily.</p>", i, topic)
	}
	b.WriteString("</article>")
	b.WriteString("<footer>Copyright footer text that is long enough to pass the fragment filter</footer>")
	b.WriteString("</body></html>")
	return b.String()
}

func newTestFetcher(t *testing.T, rec *recordingSleeper, opts ...Option) *Fetcher {
	t.Helper()
	cfg := types.FetchConfig{
		HTTPConfig:      types.HTTPConfig{Timeout: 5 * time.Second},
		MaxAttempts:     3,
		BackoffBase:     time.Second,
		PolitenessDelay: 1500 * time.Millisecond,
	}
	opts = append([]Option{WithSleeper(rec.sleep), WithLogger(zaptest.NewLogger(t))}, opts...)
	f, err := New(nil, cfg, opts...)
	require.NoError(t, err)
	return f
}

func TestFetchAndClean_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, articlePage("batteries", 20))
	}))
	defer ts.Close()

	rec := &recordingSleeper{}
	f := newTestFetcher(t, rec)

	docs, stats, err := f.FetchAndClean(context.Background(), []string{ts.URL})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, ts.URL, docs[0].URL)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
	assert.Equal(t, Stats{Accepted: 1}, stats)
}

func TestFetchAndClean_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	rec := &recordingSleeper{}
	f := newTestFetcher(t, rec)

	docs, stats, err := f.FetchAndClean(context.Background(), []string{ts.URL})
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, stats.Failed)
	assert.True(t, stats.HasFailures())
}

func TestFetchAndClean_NotFoundIsNotRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, nil)
	}))
	defer ts.Close()

	rec := &recordingSleeper{}
	f := newTestFetcher(t, rec)

	docs, stats, err := f.FetchAndClean(context.Background(), []string{ts.URL})
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, rec.delays)
	assert.Equal(t, 1, stats.Failed)
}

func TestFetchAndClean_DuplicateContentKeepsFirst(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, articlePage("syndicated", 20))
	}))
	defer ts.Close()

	rec := &recordingSleeper{}
	f := newTestFetcher(t, rec)

	first, second := ts.URL+"/original", ts.URL+"/repost"
	docs, stats, err := f.FetchAndClean(context.Background(), []string{first, second})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, first, docs[0].URL)
	assert.Equal(t, 1, stats.Duplicate)
	assert.Equal(t, 2, stats.Total())
}

func TestFetchAndClean_QualityFloor(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/short" {
			fmt.Fprint(w, articlePage("tiny", 3))
			return
		}
		fmt.Fprint(w, articlePage("long", 20))
	}))
	defer ts.Close()

	rec := &recordingSleeper{}
	f := newTestFetcher(t, rec)

	docs, stats, err := f.FetchAndClean(context.Background(), []string{ts.URL + "/short", ts.URL + "/long"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, stats.TooShort)
	for _, d := range docs {
		assert.GreaterOrEqual(t, d.Words, 100)
		assert.Equal(t, d.Words, WordCount(d.Text))
		assert.Equal(t, Fingerprint(d.Text), d.Fingerprint)
	}
}

func TestFetchAndClean_PolitenessDelayAfterAcceptedOnly(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/short":
			fmt.Fprint(w, articlePage("tiny", 2))
		default:
			fmt.Fprint(w, articlePage(r.URL.Path, 20))
		}
	}))
	defer ts.Close()

	rec := &recordingSleeper{}
	f := newTestFetcher(t, rec)

	urls := []string{ts.URL + "/a", ts.URL + "/short", ts.URL + "/c"}
	docs, _, err := f.FetchAndClean(context.Background(), urls)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	// No pause after the rejected page or after the last URL.
	assert.Equal(t, []time.Duration{1500 * time.Millisecond}, rec.delays)
}

func TestFetchAndClean_SendsBrowserUserAgent(t *testing.T) {
	var ua atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		fmt.Fprint(w, articlePage("ua", 20))
	}))
	defer ts.Close()

	f := newTestFetcher(t, &recordingSleeper{})
	_, _, err := f.FetchAndClean(context.Background(), []string{ts.URL})
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, ua.Load())
}

func TestFetchAndClean_ServesFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	c := cache.NewRedis(client, time.Hour)

	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, articlePage("cached", 20))
	}))
	defer ts.Close()

	ctx := context.Background()
	rec := &recordingSleeper{}
	f := newTestFetcher(t, rec, WithCache(c))

	urls := []string{ts.URL + "/a", ts.URL + "/b"}
	require.NoError(t, c.Set(ctx, urls[0], []byte(articlePage("from cache", 20))))

	docs, stats, err := f.FetchAndClean(ctx, urls)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, 2, stats.Accepted)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Contains(t, docs[0].Text, "from cache")
	// The cache hit needs no politeness pause; the last URL never gets one.
	assert.Empty(t, rec.delays)

	_, ok, err := c.Get(ctx, urls[1])
	require.NoError(t, err)
	assert.True(t, ok, "fresh body should be stored")
}

func TestFetchAndClean_CanceledContext(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, articlePage("x", 20))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(t, &recordingSleeper{})
	docs, _, err := f.FetchAndClean(ctx, []string{ts.URL})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, docs)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestFetchAndClean_CanceledDuringPoliteness(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage(r.URL.Path, 20))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	f, err := New(nil, types.FetchConfig{PolitenessDelay: time.Hour}, WithSleeper(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))
	require.NoError(t, err)

	docs, _, err := f.FetchAndClean(ctx, []string{ts.URL + "/a", ts.URL + "/b"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, docs, 1, "documents accepted before cancellation are kept")
}

func TestNew_Defaults(t *testing.T) {
	f, err := New(nil, types.FetchConfig{})
	require.NoError(t, err)
	assert.Equal(t, 3, f.cfg.MaxAttempts)
	assert.Equal(t, time.Second, f.cfg.BackoffBase)
	assert.Equal(t, 100, f.cfg.MinWords)
	assert.Equal(t, 40, f.cfg.MinFragmentChars)
	assert.Equal(t, int64(5<<20), f.cfg.MaxBodyBytes)
	assert.Equal(t, DefaultUserAgent, f.cfg.UserAgent)
	assert.IsType(t, SelectorExtractor{}, f.extractor)

	_, err = New(nil, types.FetchConfig{Extractor: "magic"})
	assert.Error(t, err)
}
