// Package model defines the data models persisted by the session journal.
package model

import "time"

// SessionEvent is one journal entry describing something that happened to a
// session in a channel.
type SessionEvent struct {
	ID           string    `db:"id"`
	SessionID    string    `db:"session_id"` // empty for single rolls
	ChannelID    string    `db:"channel_id"`
	Kind         string    `db:"kind"`
	Type         string    `db:"type"`
	Participants []string  `db:"participants"` // display names, roster order
	Detail       string    `db:"detail"`       // JSON document, shape depends on Type
	CreatedAt    time.Time `db:"created_at"`
}

// Event types.
const (
	EventSessionStarted = "session_started" // a prompt was posted
	EventPartyFull      = "party_full"      // a party reached its threshold
	EventTeamsFormed    = "teams_formed"    // teams were drawn (first draw or retry)
	EventRollFinished   = "roll_finished"   // a group roll was drawn
	EventSingleRoll     = "single_roll"     // a one-off /roll
)

// EventTypes returns every known event type.
func EventTypes() []string {
	return []string{EventSessionStarted, EventPartyFull, EventTeamsFormed, EventRollFinished, EventSingleRoll}
}
