package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS session_events (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL DEFAULT '',
	channel_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	type TEXT NOT NULL,
	participants TEXT NOT NULL DEFAULT '[]',
	detail TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_events_channel_time ON session_events(channel_id, created_at DESC);
`

// OpenSQLite opens (creating if needed) the SQLite journal at path and
// applies the schema.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent inserts.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to init sqlite schema: %w", err)
	}

	log.Info().Str("path", path).Msg("SQLite journal opened")
	return conn, nil
}
