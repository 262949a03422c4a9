// Package checkpoint persists the last acknowledged stream cursor so a
// restarted dashboard resumes where the previous run left off instead of
// replaying the whole history. One row per (endpoint, agent filter) pair.
package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("chmod checkpoint path: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS checkpoints (
	endpoint TEXT NOT NULL,
	agent_filter TEXT NOT NULL DEFAULT '',
	cursor TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY(endpoint, agent_filter)
)`); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("create checkpoints table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save overwrites the cursor for the endpoint/filter pair. An empty cursor is
// a no-op so a run that never saw an event does not clobber an older
// checkpoint.
func (s *Store) Save(ctx context.Context, endpoint, agentFilter, cursor string) error {
	if cursor == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO checkpoints(endpoint, agent_filter, cursor, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(endpoint, agent_filter) DO UPDATE SET
	cursor=excluded.cursor,
	updated_at=excluded.updated_at`,
		endpoint, agentFilter, cursor, ts(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, endpoint, agentFilter string) (string, error) {
	var cursor string
	err := s.db.QueryRowContext(ctx,
		`SELECT cursor FROM checkpoints WHERE endpoint = ? AND agent_filter = ?`,
		endpoint, agentFilter).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load checkpoint: %w", err)
	}
	return cursor, nil
}

func (s *Store) Clear(ctx context.Context, endpoint, agentFilter string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM checkpoints WHERE endpoint = ? AND agent_filter = ?`,
		endpoint, agentFilter); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}

func ts(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
