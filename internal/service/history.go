// Package service provides business logic implementations.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"kiri-bot/internal/model"
	"kiri-bot/internal/session"
	"kiri-bot/internal/workflow"
	"kiri-bot/internal/workflow/roll"
	"kiri-bot/internal/workflow/teams"
)

// ErrJournalDisabled is returned when reading a disabled journal.
var ErrJournalDisabled = errors.New("session journal is disabled")

// DefaultRecordTimeout bounds a single journal write.
const DefaultRecordTimeout = 3 * time.Second

// RecentActivityLimit is how many events Activity returns per channel.
const RecentActivityLimit = 10

// EventJournal persists and reads journal events.
type EventJournal interface {
	Create(ctx context.Context, ev *model.SessionEvent) error
	ListByChannel(ctx context.Context, channelID string, limit int) ([]*model.SessionEvent, error)
	CountByType(ctx context.Context, channelID, eventType string) (int, error)
}

// HistoryService writes and summarizes the session journal. Write failures
// are logged and never reach the caller. A nil journal disables it.
type HistoryService struct {
	recorder EventJournal
	timeout  time.Duration
	now      func() time.Time
}

// NewHistoryService creates a new HistoryService instance.
func NewHistoryService(recorder EventJournal, timeout time.Duration) *HistoryService {
	if timeout <= 0 {
		timeout = DefaultRecordTimeout
	}
	return &HistoryService{
		recorder: recorder,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Enabled reports whether events are persisted.
func (s *HistoryService) Enabled() bool {
	return s != nil && s.recorder != nil
}

// Record persists ev.
func (s *HistoryService) Record(ctx context.Context, ev *model.SessionEvent) {
	if !s.Enabled() {
		return
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.recorder.Create(ctx, ev); err != nil {
		log.Warn().
			Err(err).
			Str("channel_id", ev.ChannelID).
			Str("type", ev.Type).
			Msg("Failed to record session event")
	}
}

// ChannelActivity summarizes the journal for one channel.
type ChannelActivity struct {
	ChannelID string
	Counts    map[string]int // event type -> number of events
	Recent    []*model.SessionEvent
}

// Activity reads the newest events and per-type totals for a channel.
func (s *HistoryService) Activity(ctx context.Context, channelID string) (*ChannelActivity, error) {
	if !s.Enabled() {
		return nil, ErrJournalDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	recent, err := s.recorder.ListByChannel(ctx, channelID, RecentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	act := &ChannelActivity{
		ChannelID: channelID,
		Counts:    make(map[string]int),
		Recent:    recent,
	}
	for _, typ := range model.EventTypes() {
		n, err := s.recorder.CountByType(ctx, channelID, typ)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s events: %w", typ, err)
		}
		if n > 0 {
			act.Counts[typ] = n
		}
	}
	return act, nil
}

// LogRecentActivity logs a journal summary for each channel. Read failures
// are logged and skipped.
func (s *HistoryService) LogRecentActivity(ctx context.Context, channelIDs []string) {
	if !s.Enabled() {
		return
	}
	for _, id := range channelIDs {
		act, err := s.Activity(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("channel_id", id).Msg("Failed to read session journal")
			continue
		}

		ev := log.Info().
			Str("channel_id", id).
			Interface("counts", act.Counts).
			Int("recent", len(act.Recent))
		if len(act.Recent) > 0 {
			last := act.Recent[0]
			ev = ev.Str("last_type", last.Type).Time("last_at", last.CreatedAt)
		}
		ev.Msg("Channel activity")
	}
}

// SessionStarted records a new prompt.
func (s *HistoryService) SessionStarted(ctx context.Context, snap session.Snapshot) {
	s.Record(ctx, &model.SessionEvent{
		SessionID: snap.ID,
		ChannelID: snap.ChannelID,
		Kind:      string(snap.Kind),
		Type:      model.EventSessionStarted,
		Detail:    encodeDetail(snap.Settings),
	})
}

// PartyFull records a party reaching its threshold.
func (s *HistoryService) PartyFull(ctx context.Context, snap session.Snapshot) {
	s.Record(ctx, &model.SessionEvent{
		SessionID:    snap.ID,
		ChannelID:    snap.ChannelID,
		Kind:         string(snap.Kind),
		Type:         model.EventPartyFull,
		Participants: names(snap.Participants),
		Detail:       encodeDetail(map[string]int{"threshold": snap.Settings.Threshold}),
	})
}

// Finalized records a draw of teams or rolls.
func (s *HistoryService) Finalized(ctx context.Context, res *session.FinalizeResult) {
	ev := &model.SessionEvent{
		SessionID:    res.Snapshot.ID,
		ChannelID:    res.Snapshot.ChannelID,
		Kind:         string(res.Snapshot.Kind),
		Participants: names(res.Snapshot.Participants),
	}

	switch out := res.Outcome.(type) {
	case *teams.Outcome:
		ev.Type = model.EventTeamsFormed
		ev.Detail = encodeDetail(teamsDetail{Draw: res.Snapshot.Draws, Teams: out.Names()})
	case *roll.Outcome:
		ev.Type = model.EventRollFinished
		d := rollDetail{
			Draw:   res.Snapshot.Draws,
			Range:  res.Snapshot.Settings.RollRange,
			Winner: out.Winner.Participant.Name,
			Value:  out.Winner.Value,
			Rolls:  make(map[string]int, len(out.Rolls)),
		}
		for _, r := range out.Rolls {
			d.Rolls[r.Participant.ID] = r.Value
		}
		ev.Detail = encodeDetail(d)
	default:
		return
	}

	s.Record(ctx, ev)
}

// SingleRoll records a one-off roll.
func (s *HistoryService) SingleRoll(ctx context.Context, channelID string, p workflow.Participant, value, upper int) {
	s.Record(ctx, &model.SessionEvent{
		ChannelID:    channelID,
		Kind:         string(workflow.KindRoll),
		Type:         model.EventSingleRoll,
		Participants: []string{p.Name},
		Detail:       encodeDetail(map[string]int{"range": upper, "value": value}),
	})
}

type teamsDetail struct {
	Draw  int        `json:"draw"`
	Teams [][]string `json:"teams"`
}

type rollDetail struct {
	Draw   int            `json:"draw"`
	Range  int            `json:"range"`
	Winner string         `json:"winner"`
	Value  int            `json:"value"`
	Rolls  map[string]int `json:"rolls"` // participant id -> value
}

func encodeDetail(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func names(participants []workflow.Participant) []string {
	out := make([]string, len(participants))
	for i, p := range participants {
		out[i] = p.Name
	}
	return out
}
