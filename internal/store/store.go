// Package store is the local audit journal: an append-only SQLite record of
// captured telemetry, keyed responses and LLM requests.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Table names.
const (
	tableEvents      = "telemetry_events"
	tableResponses   = "responses"
	tableLLMRequests = "llm_requests"
)

// Store holds the journal database.
type Store struct {
	db  *sql.DB
	seq *sequence
}

// Open connects to the SQLite database at dsn, applies pragmas and creates
// the journal tables when missing.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if isMemoryDSN(dsn) {
		// Every connection to a private in-memory database is a new database.
		db.SetMaxOpenConns(1)
	}

	if err := applyPragmas(db, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	seq, err := newSequence(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

// schema holds the journal DDL. Inserts and queries go through ent's
// dialect builders; the builders have no CREATE TABLE support.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ` + tableEvents + ` (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		local_seq INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		captured_at INTEGER NOT NULL,
		data TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS telemetry_events_session ON ` + tableEvents + ` (session_id, sequence)`,

	`CREATE TABLE IF NOT EXISTS ` + tableResponses + ` (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		response_key TEXT NOT NULL,
		value TEXT,
		recorded_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS responses_session ON ` + tableResponses + ` (session_id, sequence)`,

	`CREATE TABLE IF NOT EXISTS ` + tableLLMRequests + ` (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
}

// migrate creates the journal tables and their indexes.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", strings.SplitN(stmt, "(", 2)[0], err)
		}
	}
	return nil
}

// applyPragmas configures SQLite for single-user use. WAL is skipped for
// in-memory databases, which do not support it.
func applyPragmas(db *sql.DB, dsn string) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	if !isMemoryDSN(dsn) {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
