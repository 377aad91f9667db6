package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/kingrea/roadmap-survey/internal/survey"
)

// StoredRow is one persisted response row.
type StoredRow struct {
	SubmissionID string
	SubmittedAt  time.Time
	Variant      string
	Name         string
	Barrier      string
	Item         string
	Comments     string
}

// SQLite appends every record row to a responses table. Unlike the file
// sinks, repeated submissions under one name are kept side by side.
type SQLite struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sink: sqlite path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("sink: create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sink: open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS responses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submission_id TEXT NOT NULL,
		submitted_at TEXT NOT NULL,
		variant TEXT NOT NULL,
		name TEXT NOT NULL,
		barrier TEXT NOT NULL,
		item TEXT NOT NULL,
		comments TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sink: create responses table: %w", err)
	}
	return &SQLite{db: db, path: path, now: time.Now}, nil
}

// Name implements survey.Sink.
func (s *SQLite) Name() string { return "sqlite" }

// Close releases the database handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Persist implements survey.Sink. All rows of a submission are written in
// one transaction.
func (s *SQLite) Persist(ctx context.Context, sub survey.Submission) (receipt survey.Receipt, retErr error) {
	cols, err := columnIndex(sub.Record.Columns)
	if err != nil {
		return survey.Receipt{}, err
	}
	id := uuid.NewString()
	submittedAt := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return survey.Receipt{}, fmt.Errorf("sink: begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO responses
		(submission_id, submitted_at, variant, name, barrier, item, comments)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return survey.Receipt{}, fmt.Errorf("sink: prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, row := range sub.Record.Rows {
		if _, err := stmt.ExecContext(ctx, id, submittedAt, string(sub.Variant),
			row[cols.name], row[cols.barrier], row[cols.item], row[cols.comments]); err != nil {
			return survey.Receipt{}, fmt.Errorf("sink: insert row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return survey.Receipt{}, fmt.Errorf("sink: commit: %w", err)
	}
	return survey.Receipt{Sink: s.Name(), Location: fmt.Sprintf("%s#%s", s.path, id)}, nil
}

// Responses returns the stored rows for a respondent, oldest first.
func (s *SQLite) Responses(ctx context.Context, name string) ([]StoredRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT submission_id, submitted_at, variant, name, barrier, item, comments
		FROM responses WHERE name = ? ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("sink: select responses: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []StoredRow
	for rows.Next() {
		var r StoredRow
		var ts string
		if err := rows.Scan(&r.SubmissionID, &ts, &r.Variant, &r.Name, &r.Barrier, &r.Item, &r.Comments); err != nil {
			return nil, fmt.Errorf("sink: scan: %w", err)
		}
		r.SubmittedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

type recordColumns struct {
	name, barrier, item, comments int
}

func columnIndex(columns []string) (recordColumns, error) {
	idx := recordColumns{name: -1, barrier: -1, item: -1, comments: -1}
	for i, col := range columns {
		switch col {
		case survey.ColumnName:
			idx.name = i
		case survey.ColumnBarrier:
			idx.barrier = i
		case survey.ColumnAction, survey.ColumnOpportunity:
			idx.item = i
		case survey.ColumnComments:
			idx.comments = i
		}
	}
	if idx.name < 0 || idx.barrier < 0 || idx.item < 0 || idx.comments < 0 {
		return idx, fmt.Errorf("sink: record columns %v missing a required column", columns)
	}
	return idx, nil
}
