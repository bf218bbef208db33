package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"kiri-bot/internal/model"
)

// SQLiteEventRepository persists session events in SQLite. Participants are
// stored as a JSON array and timestamps as unix milliseconds.
type SQLiteEventRepository struct {
	db *sql.DB
}

// NewSQLiteEventRepository creates a new SQLiteEventRepository instance.
func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

// Create inserts an event. A missing ID or CreatedAt is filled in.
func (r *SQLiteEventRepository) Create(ctx context.Context, ev *model.SessionEvent) error {
	prepareEvent(ev)

	participants, err := json.Marshal(ev.Participants)
	if err != nil {
		return fmt.Errorf("failed to encode participants: %w", err)
	}

	const query = `
		INSERT INTO session_events (id, session_id, channel_id, kind, type, participants, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		ev.ID, ev.SessionID, ev.ChannelID, ev.Kind, ev.Type, string(participants), ev.Detail, ev.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to create session event: %w", err)
	}
	return nil
}

// ListByChannel returns the newest events of a channel, newest first.
func (r *SQLiteEventRepository) ListByChannel(ctx context.Context, channelID string, limit int) ([]*model.SessionEvent, error) {
	const query = `
		SELECT id, session_id, channel_id, kind, type, participants, detail, created_at
		FROM session_events
		WHERE channel_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, channelID, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list session events: %w", err)
	}
	defer rows.Close()

	var events []*model.SessionEvent
	for rows.Next() {
		var (
			ev           model.SessionEvent
			participants string
			createdAt    int64
		)
		if err := rows.Scan(
			&ev.ID,
			&ev.SessionID,
			&ev.ChannelID,
			&ev.Kind,
			&ev.Type,
			&participants,
			&ev.Detail,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session event: %w", err)
		}
		if err := json.Unmarshal([]byte(participants), &ev.Participants); err != nil {
			return nil, fmt.Errorf("failed to decode participants: %w", err)
		}
		ev.CreatedAt = time.UnixMilli(createdAt)
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session events: %w", err)
	}

	return events, nil
}

// CountByType returns how many events of a type were recorded in a channel.
func (r *SQLiteEventRepository) CountByType(ctx context.Context, channelID, eventType string) (int, error) {
	const query = `SELECT COUNT(*) FROM session_events WHERE channel_id = ? AND type = ?`

	var n int
	if err := r.db.QueryRowContext(ctx, query, channelID, eventType).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count session events: %w", err)
	}
	return n, nil
}
