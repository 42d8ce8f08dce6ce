// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/market-research/internal/archive"
	"github.com/pdiddy/market-research/internal/research"
	"github.com/pdiddy/market-research/pkg/types"
)

// fakeRunner returns a fixed outcome for any non-empty topic.
type fakeRunner struct {
	topics []string
}

func (f *fakeRunner) Run(_ context.Context, topic string) types.Outcome {
	f.topics = append(f.topics, topic)
	if strings.TrimSpace(topic) == "" {
		return types.Outcome{Kind: types.OutcomeInvalidTopic, Message: research.MsgInvalidTopic}
	}
	return types.Outcome{
		Kind:       types.OutcomeSuccess,
		Topic:      topic,
		Message:    "Market Research Insights: " + topic,
		Discovered: 5,
		Extracted:  2,
		Report: &types.ResearchReport{
			Topic:     topic,
			Narrative: "Overview of " + topic,
			Citations: []types.Citation{
				{Rank: 1, URL: "https://www.bloomberg.com/x", Score: 1.3, Stars: 3},
				{Rank: 2, URL: "https://example.com/y", Score: 1.0, Stars: 2},
			},
			SourcesAnalyzed: 2,
			SummariesUsed:   2,
			Strategy:        types.StrategyMapReduce,
		},
	}
}

func newTestAPI(t *testing.T, withArchive bool) (*api, *fakeRunner) {
	t.Helper()
	runner := &fakeRunner{}
	var store *archive.Store
	if withArchive {
		s, err := archive.NewStore(types.ArchiveConfig{DataDir: filepath.Join(t.TempDir(), "data"), MaxResults: 20})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		store = s
	}
	return newAPI(runner, store, zaptest.NewLogger(t)), runner
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestServe_Healthz(t *testing.T) {
	a, _ := newTestAPI(t, false)
	rr := doRequest(t, a.routes(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestServe_ResearchArchivesRun(t *testing.T) {
	a, runner := newTestAPI(t, true)
	h := a.routes()

	rr := doRequest(t, h, http.MethodPost, "/v1/research", `{"topic":"fintech"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"fintech"}, runner.topics)

	var resp researchResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, types.OutcomeSuccess, resp.Outcome)
	assert.Equal(t, "report from 2 of 5 sources", resp.Status)
	require.NotNil(t, resp.Report)
	assert.Len(t, resp.Report.Citations, 2)

	rr = doRequest(t, h, http.MethodGet, "/v1/runs/"+resp.RunID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var run archive.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))
	assert.Equal(t, "fintech", run.Topic)
	assert.Len(t, run.Citations, 2)

	rr = doRequest(t, h, http.MethodGet, "/v1/runs?limit=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var runs []archive.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, resp.RunID, runs[0].ID)
}

func TestServe_ResearchInvalidTopic(t *testing.T) {
	a, _ := newTestAPI(t, true)
	h := a.routes()

	rr := doRequest(t, h, http.MethodPost, "/v1/research", `{"topic":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp researchResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, types.OutcomeInvalidTopic, resp.Outcome)
	assert.Equal(t, research.MsgInvalidTopic, resp.Message)
	assert.Empty(t, resp.RunID)

	rr = doRequest(t, h, http.MethodGet, "/v1/runs", "")
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestServe_ResearchBadBody(t *testing.T) {
	a, runner := newTestAPI(t, false)
	rr := doRequest(t, a.routes(), http.MethodPost, "/v1/research", `{"topic":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, runner.topics)
}

func TestServe_ResearchWithoutArchive(t *testing.T) {
	a, _ := newTestAPI(t, false)
	h := a.routes()

	rr := doRequest(t, h, http.MethodPost, "/v1/research", `{"topic":"fintech"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp researchResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Empty(t, resp.RunID)

	rr = doRequest(t, h, http.MethodGet, "/v1/runs", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestServe_GetRunNotFound(t *testing.T) {
	a, _ := newTestAPI(t, true)
	rr := doRequest(t, a.routes(), http.MethodGet, "/v1/runs/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServe_ListRunsBadLimit(t *testing.T) {
	a, _ := newTestAPI(t, true)
	rr := doRequest(t, a.routes(), http.MethodGet, "/v1/runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServe_Metrics(t *testing.T) {
	a, _ := newTestAPI(t, false)
	rr := doRequest(t, a.routes(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}
