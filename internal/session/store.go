// Package session implements the per-channel session lifecycle shared by all
// workflows: the session store, rosters, generation tokens and the
// start / join / finalize transitions.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"kiri-bot/internal/workflow"
)

// State is the lifecycle state of a session.
type State int

const (
	StateCollecting State = iota
	StateFull
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateFull:
		return "full"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// MessageRef identifies a message sent through the transport so it can be
// edited later.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// IsZero reports whether the ref points nowhere.
func (r MessageRef) IsZero() bool {
	return r.MessageID == ""
}

// Session is one live workflow instance in a channel.
type Session struct {
	ID         string
	ChannelID  string
	Kind       workflow.Kind
	Settings   workflow.Settings
	Roster     *Roster
	Generation uint64 // token stamped on the prompt's controls
	RetryToken uint64 // token stamped on the latest retry message, 0 if none
	PromptRef  MessageRef
	RetryRef   MessageRef
	State      State
	Draws      int
	CreatedAt  time.Time
}

// Snapshot is an immutable copy of a session handed to callers outside the
// store lock.
type Snapshot struct {
	ID           string
	ChannelID    string
	Kind         workflow.Kind
	Settings     workflow.Settings
	Participants []workflow.Participant
	Generation   uint64
	RetryToken   uint64
	PromptRef    MessageRef
	RetryRef     MessageRef
	State        State
	Draws        int
	CreatedAt    time.Time
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:           s.ID,
		ChannelID:    s.ChannelID,
		Kind:         s.Kind,
		Settings:     s.Settings,
		Participants: s.Roster.Participants(),
		Generation:   s.Generation,
		RetryToken:   s.RetryToken,
		PromptRef:    s.PromptRef,
		RetryRef:     s.RetryRef,
		State:        s.State,
		Draws:        s.Draws,
		CreatedAt:    s.CreatedAt,
	}
}

// accepts reports whether token addresses the session's prompt or its
// current retry message.
func (s *Session) accepts(token uint64) bool {
	if token == 0 {
		return false
	}
	return token == s.Generation || (s.RetryToken != 0 && token == s.RetryToken)
}

type key struct {
	channelID string
	kind      workflow.Kind
}

// Store maps (channel, kind) to the live session and issues generation
// tokens. Tokens increase monotonically across the whole store, so a token
// never addresses two different messages.
type Store struct {
	sessions map[key]*Session
	tokens   atomic.Uint64
	mu       sync.Mutex
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[key]*Session)}
}

// NextToken returns a fresh generation token.
func (s *Store) NextToken() uint64 {
	return s.tokens.Add(1)
}

// Replace stores sess as the live session for its channel and kind and
// returns the session it superseded, if any.
func (s *Store) Replace(sess *Session) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{channelID: sess.ChannelID, kind: sess.Kind}
	prev := s.sessions[k]
	s.sessions[k] = sess
	return prev
}

// Update runs fn on the live session while holding the store lock.
// Returns ErrNoActiveSession when there is none.
func (s *Store) Update(channelID string, kind workflow.Kind, fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key{channelID: channelID, kind: kind}]
	if !ok {
		return ErrNoActiveSession
	}
	return fn(sess)
}
