// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive records completed research runs in SQLite so earlier
// reports can be listed, searched, and exported. Only the CLI and the HTTP
// server write to it; the pipeline itself keeps no state.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/market-research/pkg/types"
)

const dbFile = "market-research.db"

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Run is one archived pipeline run.
type Run struct {
	ID              string                `json:"id" yaml:"id"`
	Topic           string                `json:"topic" yaml:"topic"`
	Outcome         types.OutcomeKind     `json:"outcome" yaml:"outcome"`
	Message         string                `json:"message" yaml:"message"`
	Narrative       string                `json:"narrative,omitempty" yaml:"narrative,omitempty"`
	Degraded        bool                  `json:"degraded" yaml:"degraded"`
	Strategy        types.SummaryStrategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Discovered      int                   `json:"discovered" yaml:"discovered"`
	Extracted       int                   `json:"extracted" yaml:"extracted"`
	SourcesAnalyzed int                   `json:"sources_analyzed" yaml:"sources_analyzed"`
	SummariesUsed   int                   `json:"summaries_used" yaml:"summaries_used"`
	Duration        time.Duration         `json:"duration" yaml:"duration"`
	CreatedAt       time.Time             `json:"created_at" yaml:"created_at"`
	Citations       []types.Citation      `json:"citations,omitempty" yaml:"citations,omitempty"`
}

// Store manages the run archive database.
type Store struct {
	db         *sql.DB
	maxResults int
	fts        bool
	now        func() time.Time
}

// NewStore opens or creates dataDir/market-research.db and its schema.
func NewStore(cfg types.ArchiveConfig) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			topic TEXT NOT NULL,
			outcome TEXT NOT NULL,
			message TEXT,
			narrative TEXT,
			degraded INTEGER NOT NULL DEFAULT 0,
			strategy TEXT,
			discovered INTEGER,
			extracted INTEGER,
			sources_analyzed INTEGER,
			summaries_used INTEGER,
			duration_ms INTEGER,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
		`CREATE TABLE IF NOT EXISTS citations (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			rank INTEGER NOT NULL,
			url TEXT NOT NULL,
			score REAL NOT NULL,
			stars INTEGER NOT NULL,
			PRIMARY KEY (run_id, rank)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync. Builds without the
	// sqlite_fts5 tag fall back to LIKE search.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='runs_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		s.fts = true
		return nil
	}

	if _, err := s.db.Exec(`CREATE VIRTUAL TABLE runs_fts USING fts5(topic, narrative, content=runs, content_rowid=rowid)`); err != nil {
		if strings.Contains(err.Error(), "no such module") {
			return nil
		}
		return fmt.Errorf("creating FTS table: %w", err)
	}
	triggers := []string{
		`CREATE TRIGGER runs_ai AFTER INSERT ON runs BEGIN
			INSERT INTO runs_fts(rowid, topic, narrative) VALUES (new.rowid, new.topic, new.narrative);
		END`,
		`CREATE TRIGGER runs_ad AFTER DELETE ON runs BEGIN
			INSERT INTO runs_fts(runs_fts, rowid, topic, narrative) VALUES('delete', old.rowid, old.topic, old.narrative);
		END`,
		`CREATE TRIGGER runs_au AFTER UPDATE ON runs BEGIN
			INSERT INTO runs_fts(runs_fts, rowid, topic, narrative) VALUES('delete', old.rowid, old.topic, old.narrative);
			INSERT INTO runs_fts(rowid, topic, narrative) VALUES (new.rowid, new.topic, new.narrative);
		END`,
	}
	for _, stmt := range triggers {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	s.fts = true
	return nil
}

// Save records out and returns the new run ID.
func (s *Store) Save(ctx context.Context, out types.Outcome) (string, error) {
	id := uuid.NewString()
	run := Run{
		ID:         id,
		Topic:      out.Topic,
		Outcome:    out.Kind,
		Message:    out.Message,
		Discovered: out.Discovered,
		Extracted:  out.Extracted,
		Duration:   out.Duration,
		CreatedAt:  s.now().UTC(),
	}
	if r := out.Report; r != nil {
		run.Narrative = r.Narrative
		run.Degraded = r.Degraded
		run.Strategy = r.Strategy
		run.SourcesAnalyzed = r.SourcesAnalyzed
		run.SummariesUsed = r.SummariesUsed
		run.Citations = r.Citations
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, topic, outcome, message, narrative, degraded, strategy,
			discovered, extracted, sources_analyzed, summaries_used, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Topic, string(run.Outcome), run.Message, run.Narrative, run.Degraded, string(run.Strategy),
		run.Discovered, run.Extracted, run.SourcesAnalyzed, run.SummariesUsed,
		run.Duration.Milliseconds(), run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO citations (run_id, rank, url, score, stars) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range run.Citations {
		if _, err := stmt.ExecContext(ctx, id, c.Rank, c.URL, c.Score, c.Stars); err != nil {
			return "", fmt.Errorf("inserting citation %d: %w", c.Rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// Delete removes a run and its citations.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}
