package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

const tableSequence = "journal_sequence"

// sequence hands out one increasing number shared by events, responses and
// LLM requests, so a session can be replayed in capture order across tables.
// The UPDATE ... RETURNING makes the increment atomic in SQLite; the mutex
// keeps concurrent writers in this process from racing on the same row.
type sequence struct {
	mu sync.Mutex
	db *sql.DB
}

func newSequence(db *sql.DB) (*sequence, error) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + tableSequence + ` (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			next_val INTEGER NOT NULL DEFAULT 1
		)`,
		`INSERT OR IGNORE INTO ` + tableSequence + ` (id, next_val) VALUES (1, 1)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("init %s: %w", tableSequence, err)
		}
	}
	return &sequence{db: db}, nil
}

// Next returns the next sequence number, starting at 1.
func (s *sequence) Next(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE `+tableSequence+` SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return n, nil
}
