// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/clicksim/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for run history and the oracle cache.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers from parallel batches.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			lang TEXT NOT NULL,
			oracle TEXT NOT NULL,
			fallback TEXT NOT NULL,
			lines INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			target_length INTEGER NOT NULL,
			clicks INTEGER NOT NULL,
			sentence_count INTEGER NOT NULL,
			word_count INTEGER NOT NULL,
			fallback_count INTEGER NOT NULL,
			baseline INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sentences (
			run_id TEXT NOT NULL,
			line INTEGER NOT NULL,
			target TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL,
			clicks INTEGER NOT NULL,
			sentence_count INTEGER NOT NULL,
			word_count INTEGER NOT NULL,
			fallback_count INTEGER NOT NULL,
			target_length INTEGER NOT NULL,
			baseline INTEGER NOT NULL,
			events TEXT NOT NULL,
			PRIMARY KEY (run_id, line)
		);`,
		`CREATE TABLE IF NOT EXISTS suggestion_cache (
			backend TEXT NOT NULL,
			mode TEXT NOT NULL,
			context TEXT NOT NULL,
			count INTEGER NOT NULL,
			candidates TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (backend, mode, context, count)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ended_at ON runs(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores a finished run and its sentences. A missing run ID is
// generated and returned.
func (s *Store) InsertRun(ctx context.Context, run model.RunRecord, sentences []model.SentenceRecord) (id string, err error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, ended_at, lang, oracle, fallback, lines, failed, target_length, clicks, sentence_count, word_count, fallback_count, baseline)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.Format(time.RFC3339Nano),
		run.EndedAt.Format(time.RFC3339Nano),
		run.Lang,
		run.Oracle,
		run.Fallback,
		run.Lines,
		run.Failed,
		run.TargetLength,
		run.Clicks,
		run.SentenceCount,
		run.WordCount,
		run.FallbackCount,
		run.Baseline,
	)
	if err != nil {
		return "", err
	}

	if len(sentences) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO sentences (run_id, line, target, status, error, clicks, sentence_count, word_count, fallback_count, target_length, baseline, events)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return "", err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, rec := range sentences {
			events, merr := json.Marshal(rec.Result.Events)
			if merr != nil {
				err = fmt.Errorf("failed to encode events for line %d: %w", rec.Line, merr)
				return "", err
			}
			r := rec.Result
			if _, err = stmt.ExecContext(ctx, run.ID, rec.Line, rec.Target, string(rec.Status), rec.Err,
				r.Clicks, r.SentenceCount, r.WordCount, r.FallbackCount, r.TargetLength, r.Baseline, string(events)); err != nil {
				return "", err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return run.ID, nil
}

// ListRuns returns runs ordered from oldest to newest.
func (s *Store) ListRuns(ctx context.Context, filter model.RunFilter) ([]model.RunRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Lang != "" {
		clauses = append(clauses, "lang = ?")
		args = append(args, filter.Lang)
	}
	query := fmt.Sprintf(`SELECT id, started_at, ended_at, lang, oracle, fallback, lines, failed,
		target_length, clicks, sentence_count, word_count, fallback_count, baseline
		FROM runs
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunRecord
	for rows.Next() {
		var run model.RunRecord
		var startedAt, endedAt string
		if err := rows.Scan(&run.ID, &startedAt, &endedAt, &run.Lang, &run.Oracle, &run.Fallback, &run.Lines, &run.Failed,
			&run.TargetLength, &run.Clicks, &run.SentenceCount, &run.WordCount, &run.FallbackCount, &run.Baseline); err != nil {
			return nil, err
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if run.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// ListSentences returns the sentences of one run in line order.
func (s *Store) ListSentences(ctx context.Context, runID string) ([]model.SentenceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT line, target, status, error, clicks, sentence_count, word_count, fallback_count, target_length, baseline, events
		 FROM sentences
		 WHERE run_id = ?
		 ORDER BY line ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.SentenceRecord
	for rows.Next() {
		var rec model.SentenceRecord
		var status, events string
		r := &rec.Result
		if err := rows.Scan(&rec.Line, &rec.Target, &status, &rec.Err, &r.Clicks, &r.SentenceCount, &r.WordCount,
			&r.FallbackCount, &r.TargetLength, &r.Baseline, &events); err != nil {
			return nil, err
		}
		rec.Status = model.SentenceStatus(status)
		r.Target = rec.Target
		if err := json.Unmarshal([]byte(events), &r.Events); err != nil {
			return nil, fmt.Errorf("failed to decode events for line %d: %w", rec.Line, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSuggestions implements the oracle cache lookup.
func (s *Store) GetSuggestions(ctx context.Context, backend, mode, text string, count int) ([]string, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT candidates FROM suggestion_cache WHERE backend = ? AND mode = ? AND context = ? AND count = ?`,
		backend, mode, text, count).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var candidates []string
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached candidates: %w", err)
	}
	return candidates, true, nil
}

// PutSuggestions stores or replaces an oracle answer.
func (s *Store) PutSuggestions(ctx context.Context, backend, mode, text string, count int, candidates []string) error {
	if candidates == nil {
		candidates = []string{}
	}
	raw, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("failed to encode candidates: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO suggestion_cache (backend, mode, context, count, candidates, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		backend, mode, text, count, string(raw), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}
