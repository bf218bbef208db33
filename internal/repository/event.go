// Package repository provides the session journal data access layer.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"kiri-bot/internal/model"
)

// DefaultListLimit caps ListByChannel when no limit is given.
const DefaultListLimit = 50

// EventRepository persists session events in PostgreSQL.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository instance.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Create inserts an event. A missing ID or CreatedAt is filled in.
func (r *EventRepository) Create(ctx context.Context, ev *model.SessionEvent) error {
	prepareEvent(ev)

	id, err := uuid.Parse(ev.ID)
	if err != nil {
		return fmt.Errorf("invalid event id %q: %w", ev.ID, err)
	}

	const query = `
		INSERT INTO session_events (id, session_id, channel_id, kind, type, participants, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		id, ev.SessionID, ev.ChannelID, ev.Kind, ev.Type, ev.Participants, ev.Detail, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session event: %w", err)
	}
	return nil
}

// ListByChannel returns the newest events of a channel, newest first.
func (r *EventRepository) ListByChannel(ctx context.Context, channelID string, limit int) ([]*model.SessionEvent, error) {
	const query = `
		SELECT id::text, session_id, channel_id, kind, type, participants, detail::text, created_at
		FROM session_events
		WHERE channel_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, channelID, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list session events: %w", err)
	}
	defer rows.Close()

	var events []*model.SessionEvent
	for rows.Next() {
		var ev model.SessionEvent
		if err := rows.Scan(
			&ev.ID,
			&ev.SessionID,
			&ev.ChannelID,
			&ev.Kind,
			&ev.Type,
			&ev.Participants,
			&ev.Detail,
			&ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session event: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session events: %w", err)
	}

	return events, nil
}

// CountByType returns how many events of a type were recorded in a channel.
func (r *EventRepository) CountByType(ctx context.Context, channelID, eventType string) (int, error) {
	const query = `SELECT COUNT(*) FROM session_events WHERE channel_id = $1 AND type = $2`

	var n int
	if err := r.pool.QueryRow(ctx, query, channelID, eventType).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count session events: %w", err)
	}
	return n, nil
}

func prepareEvent(ev *model.SessionEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	if ev.Participants == nil {
		ev.Participants = []string{}
	}
	if ev.Detail == "" {
		ev.Detail = "{}"
	}
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
