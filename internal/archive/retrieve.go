// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/market-research/pkg/types"
)

const runColumns = `r.id, r.topic, r.outcome, r.message, r.narrative, r.degraded, r.strategy,
	r.discovered, r.extracted, r.sources_analyzed, r.summaries_used, r.duration_ms, r.created_at`

// Get returns one run with its citations.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("looking up run: %w", err)
	}

	cites, err := s.citations(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Citations = cites
	return run, nil
}

// List returns the most recent runs first, without citations. A limit of
// zero uses the store default.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs r ORDER BY r.created_at DESC, r.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return collect(rows)
}

// Search finds runs whose topic or narrative matches query. With FTS5 the
// query uses FTS5 syntax and results are ranked by relevance; otherwise it
// is a substring match ordered by recency.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Run, error) {
	if query == "" {
		return nil, errors.New("empty search query")
	}
	if limit <= 0 {
		limit = s.maxResults
	}

	var (
		rows *sql.Rows
		err  error
	)
	if s.fts {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+runColumns+` FROM runs_fts
			 JOIN runs r ON r.rowid = runs_fts.rowid
			 WHERE runs_fts MATCH ?
			 ORDER BY runs_fts.rank
			 LIMIT ?`, query, limit)
	} else {
		like := "%" + query + "%"
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+runColumns+` FROM runs r
			 WHERE r.topic LIKE ? OR r.narrative LIKE ?
			 ORDER BY r.created_at DESC
			 LIMIT ?`, like, like, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("searching runs: %w", err)
	}
	return collect(rows)
}

func (s *Store) citations(ctx context.Context, runID string) ([]types.Citation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rank, url, score, stars FROM citations WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying citations: %w", err)
	}
	defer rows.Close()

	var out []types.Citation
	for rows.Next() {
		var c types.Citation
		if err := rows.Scan(&c.Rank, &c.URL, &c.Score, &c.Stars); err != nil {
			return nil, fmt.Errorf("scanning citation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r          Run
		outcome    string
		message    sql.NullString
		narrative  sql.NullString
		strategy   sql.NullString
		durationMS sql.NullInt64
		createdAt  string
		discovered sql.NullInt64
		extracted  sql.NullInt64
		analyzed   sql.NullInt64
		used       sql.NullInt64
	)
	if err := sc.Scan(
		&r.ID, &r.Topic, &outcome, &message, &narrative, &r.Degraded, &strategy,
		&discovered, &extracted, &analyzed, &used, &durationMS, &createdAt,
	); err != nil {
		return nil, err
	}
	r.Outcome = types.OutcomeKind(outcome)
	r.Message = message.String
	r.Narrative = narrative.String
	r.Strategy = types.SummaryStrategy(strategy.String)
	r.Discovered = int(discovered.Int64)
	r.Extracted = int(extracted.Int64)
	r.SourcesAnalyzed = int(analyzed.Int64)
	r.SummariesUsed = int(used.Int64)
	r.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		r.CreatedAt = t
	}
	return &r, nil
}

func collect(rows *sql.Rows) ([]Run, error) {
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
