// Package ledger records remediation runs in a SQLite database so batch
// results can be compared over time.
package ledger

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"github.com/wudi/tagremedy/observability"
	"github.com/wudi/tagremedy/report"
)

// ErrNotFound is returned by Get for an unknown run.
var ErrNotFound = errors.New("ledger: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	file        TEXT    NOT NULL,
	mode        TEXT    NOT NULL,
	started_at  INTEGER NOT NULL,
	detected    INTEGER NOT NULL,
	resolved    INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	remaining   INTEGER NOT NULL,
	changed     INTEGER NOT NULL,
	fingerprint TEXT    NOT NULL DEFAULT '',
	fatal       TEXT    NOT NULL DEFAULT '',
	findings    BLOB
);
CREATE INDEX IF NOT EXISTS runs_file ON runs(file, started_at);
`

// Run is one recorded remediation of a file.
type Run struct {
	ID          int64     `json:"id"`
	File        string    `json:"file"`
	Mode        string    `json:"mode"`
	Started     time.Time `json:"started"`
	Detected    int       `json:"detected"`
	Resolved    int       `json:"resolved"`
	Failed      int       `json:"failed"`
	Remaining   int       `json:"remaining"`
	Changed     bool      `json:"changed"`
	Fingerprint string    `json:"fingerprint"`
	Fatal       string    `json:"fatal,omitempty"`
	// Findings holds the failed and open issues of the run. History leaves
	// it empty; Get decodes it.
	Findings []report.Finding `json:"findings,omitempty"`
}

// Ledger is safe for concurrent use.
type Ledger struct {
	db  *sql.DB
	log observability.Logger
}

type Option func(*Ledger)

func WithLogger(l observability.Logger) Option {
	return func(led *Ledger) {
		if l != nil {
			led.log = l
		}
	}
}

// Open opens or creates the ledger at path.
func Open(path string, opts ...Option) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	// One connection serializes writers from concurrent batch workers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger: set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: create schema: %w", err)
	}
	l := &Ledger{db: db, log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

// Record stores the summary of one run and returns its id.
func (l *Ledger) Record(ctx context.Context, mode string, s *report.Summary, started time.Time) (int64, error) {
	findings := append(append([]report.Finding(nil), s.Failures...), s.Open...)
	blob, err := encodeFindings(findings)
	if err != nil {
		return 0, err
	}
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (file, mode, started_at, detected, resolved, failed, remaining, changed, fingerprint, fatal, findings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.File, mode, started.UnixMilli(), s.Detected, s.Resolved, s.Failed, s.Remaining,
		s.Changed, s.Fingerprint, s.Fatal, blob)
	if err != nil {
		return 0, fmt.Errorf("ledger: record %s: %w", s.File, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ledger: record %s: %w", s.File, err)
	}
	l.log.Debug("run recorded", observability.Int64("id", id), observability.String("file", s.File))
	return id, nil
}

const runColumns = `id, file, mode, started_at, detected, resolved, failed, remaining, changed, fingerprint, fatal`

// History returns the latest runs, newest first. An empty file matches all
// files; limit <= 0 means no limit.
func (l *Ledger) History(ctx context.Context, file string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE ? = '' OR file = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, file, file, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: history: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := scanRun(rows, &r, nil); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: history: %w", err)
	}
	return out, nil
}

// Get returns run id with its findings.
func (l *Ledger) Get(ctx context.Context, id int64) (*Run, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+runColumns+`, findings FROM runs WHERE id = ?`, id)
	var r Run
	var blob []byte
	if err := scanRun(row, &r, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	findings, err := decodeFindings(blob)
	if err != nil {
		return nil, fmt.Errorf("ledger: run %d: %w", id, err)
	}
	r.Findings = findings
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner, r *Run, blob *[]byte) error {
	var started int64
	dest := []any{&r.ID, &r.File, &r.Mode, &started, &r.Detected, &r.Resolved, &r.Failed,
		&r.Remaining, &r.Changed, &r.Fingerprint, &r.Fatal}
	if blob != nil {
		dest = append(dest, blob)
	}
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("ledger: scan run: %w", err)
	}
	r.Started = time.UnixMilli(started)
	return nil
}

func encodeFindings(findings []report.Finding) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(findings); err != nil {
		return nil, fmt.Errorf("ledger: encode findings: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeFindings(blob []byte) ([]report.Finding, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	dec := msgpack.NewDecoder(bytes.NewReader(blob))
	dec.SetCustomStructTag("json")
	var out []report.Finding
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode findings: %w", err)
	}
	return out, nil
}
