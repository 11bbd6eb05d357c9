// File path: internal/history/history.go

// Package history persists a local audit trail of conversions and executions
// in SQLite. Recording is strictly best-effort: a history failure is logged
// and swallowed so it can never fail the request it describes.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"nl2mongo/internal/common"
)

// Entry kinds.
const (
	KindConvert = "convert"
	KindExecute = "execute"
)

// Entry is one recorded pipeline operation. OccurredAt is RFC 3339 text.
type Entry struct {
	ID         string `db:"id" json:"id"`
	OccurredAt string `db:"occurred_at" json:"occurred_at"`
	Kind       string `db:"kind" json:"kind"`
	Collection string `db:"collection" json:"collection,omitempty"`
	QueryType  string `db:"query_type" json:"query_type,omitempty"`
	Input      string `db:"input" json:"input,omitempty"`
	Output     string `db:"output" json:"output,omitempty"`
	Error      string `db:"error" json:"error,omitempty"`
}

// Record is the caller-facing shape of one operation to persist.
type Record struct {
	Kind       string
	Collection string
	QueryType  string
	Input      string
	Output     string
	Err        error
}

// Store wraps a pooled sqlx.DB connection to the history database. A nil
// Store is valid and records nothing, which is how history stays optional.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open constructs a Store backed by the SQLite database at path, creating
// parent directories and migrating the schema on first use.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve history path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", abs)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	store := &Store{db: db, logger: common.Logger()}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin history migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute history schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history migration: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS query_history (
                id TEXT PRIMARY KEY,
                occurred_at TEXT NOT NULL,
                kind TEXT NOT NULL,
                collection TEXT,
                query_type TEXT,
                input TEXT,
                output TEXT,
                error TEXT
        );`,
	`CREATE INDEX IF NOT EXISTS idx_query_history_occurred ON query_history(occurred_at);`,
	`CREATE INDEX IF NOT EXISTS idx_query_history_kind ON query_history(kind, occurred_at);`,
}

// Add persists one record. Failures are logged, never returned.
func (s *Store) Add(ctx context.Context, rec Record) {
	if s == nil || s.db == nil {
		return
	}
	entry := Entry{
		ID:         uuid.NewString(),
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Kind:       rec.Kind,
		Collection: rec.Collection,
		QueryType:  rec.QueryType,
		Input:      rec.Input,
		Output:     rec.Output,
	}
	if rec.Err != nil {
		entry.Error = rec.Err.Error()
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO query_history
                (id, occurred_at, kind, collection, query_type, input, output, error)
                VALUES (:id, :occurred_at, :kind, :collection, :query_type, :input, :output, :error)`, entry)
	if err != nil {
		s.logger.Warn("history: record failed", "kind", rec.Kind, "error", err)
	}
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return []Entry{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	entries := []Entry{}
	err := s.db.SelectContext(ctx, &entries, `SELECT * FROM query_history
                ORDER BY occurred_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	return entries, nil
}
