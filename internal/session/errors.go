package session

import "errors"

// Session errors. All of them are user-facing and non-fatal.
var (
	ErrNoActiveSession = errors.New("no active session in this channel")
	ErrSessionExpired  = errors.New("session has expired")
	ErrAlreadyJoined   = errors.New("participant already joined")
	ErrSessionClosed   = errors.New("session is no longer collecting participants")
	ErrEmptyRoster     = errors.New("no one has joined yet")
	ErrUnknownKind     = errors.New("unknown workflow kind")
)
