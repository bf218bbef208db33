package session

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"kiri-bot/internal/workflow"
)

// JoinResult is returned by a successful join.
type JoinResult struct {
	Snapshot Snapshot
	// Full is set exactly once, on the join that closed the session.
	Full bool
}

// FinalizeResult is returned by a successful finalize.
type FinalizeResult struct {
	Snapshot Snapshot
	Outcome  workflow.Outcome
	// RetryToken is the token to stamp on the retry control of the result message.
	RetryToken uint64
	// PreviousRetry is the retry message superseded by this draw, if any.
	PreviousRetry MessageRef
	// FirstDraw is true when the session left the collecting state with this call.
	FirstDraw bool
}

// Manager drives session lifecycles on top of a Store.
type Manager struct {
	store    *Store
	registry *workflow.Registry
	rng      *rand.Rand
	rngMu    sync.Mutex
	now      func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRand sets the random source used for draws. Tests pass a seeded source.
func WithRand(rng *rand.Rand) ManagerOption {
	return func(m *Manager) { m.rng = rng }
}

// WithClock sets the clock used for CreatedAt.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager.
func NewManager(store *Store, registry *workflow.Registry, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		registry: registry,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return m
}

// Start opens a new collecting session for the channel and kind. Any session
// it supersedes is returned so the caller can clear its controls; the old
// session's tokens stop validating immediately.
func (m *Manager) Start(channelID string, kind workflow.Kind, settings workflow.Settings) (Snapshot, *Snapshot, error) {
	if _, ok := m.registry.Get(kind); !ok {
		return Snapshot{}, nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	sess := &Session{
		ID:         uuid.NewString(),
		ChannelID:  channelID,
		Kind:       kind,
		Settings:   settings,
		Roster:     NewRoster(),
		Generation: m.store.NextToken(),
		State:      StateCollecting,
		CreatedAt:  m.now(),
	}

	var prev *Snapshot
	if old := m.store.Replace(sess); old != nil {
		snap := old.snapshot()
		prev = &snap
	}
	return sess.snapshot(), prev, nil
}

// AttachPrompt records the prompt message of the session started with the
// given generation. Fails with ErrSessionExpired if that session was superseded.
func (m *Manager) AttachPrompt(channelID string, kind workflow.Kind, generation uint64, ref MessageRef) error {
	return m.store.Update(channelID, kind, func(s *Session) error {
		if s.Generation != generation {
			return ErrSessionExpired
		}
		s.PromptRef = ref
		return nil
	})
}

// AttachRetry records the result message stamped with the given retry token.
func (m *Manager) AttachRetry(channelID string, kind workflow.Kind, token uint64, ref MessageRef) error {
	return m.store.Update(channelID, kind, func(s *Session) error {
		if s.RetryToken != token {
			return ErrSessionExpired
		}
		s.RetryRef = ref
		return nil
	})
}

// Join adds a participant to the live session addressed by token. The token
// must address the session's prompt or its latest retry message, otherwise
// ErrSessionExpired is returned and nothing changes.
func (m *Manager) Join(channelID string, kind workflow.Kind, token uint64, participantID, displayName string) (*JoinResult, error) {
	w, ok := m.registry.Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	var res JoinResult
	err := m.store.Update(channelID, kind, func(s *Session) error {
		if !s.accepts(token) {
			return ErrSessionExpired
		}
		if s.Roster.Has(participantID) {
			return ErrAlreadyJoined
		}
		if s.State != StateCollecting {
			return ErrSessionClosed
		}

		s.Roster.Add(participantID, displayName)
		if w.Closes(s.Settings, s.Roster.Len()) {
			s.State = StateFull
			res.Full = true
		}
		res.Snapshot = s.snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Finalize draws a fresh outcome for the live session addressed by token,
// validated the same way as Join.
// Every call, including retries, is an independent draw and issues a new
// retry token.
func (m *Manager) Finalize(channelID string, kind workflow.Kind, token uint64) (*FinalizeResult, error) {
	w, ok := m.registry.Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	var res FinalizeResult
	err := m.store.Update(channelID, kind, func(s *Session) error {
		if !s.accepts(token) {
			return ErrSessionExpired
		}
		if s.State == StateFull {
			return ErrSessionClosed
		}
		if s.Roster.Len() == 0 {
			return ErrEmptyRoster
		}

		m.rngMu.Lock()
		outcome, err := w.Finalize(s.Roster.Participants(), s.Settings, m.rng)
		m.rngMu.Unlock()
		if err != nil {
			return err
		}

		res.Outcome = outcome
		res.FirstDraw = s.State == StateCollecting
		res.PreviousRetry = s.RetryRef
		res.RetryToken = m.store.NextToken()

		s.RetryToken = res.RetryToken
		s.RetryRef = MessageRef{}
		s.State = StateFinalized
		s.Draws++
		res.Snapshot = s.snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Draw runs fn with exclusive access to the manager's random source.
// Used by one-shot draws that do not belong to a session.
func (m *Manager) Draw(fn func(rng *rand.Rand) error) error {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return fn(m.rng)
}
