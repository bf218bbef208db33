// Package workflow defines the joinable-session workflows (party, teams, roll)
// and the registry used to route commands and buttons to them.
package workflow

import (
	"errors"
	"math/rand/v2"
)

// Kind identifies a workflow. At most one session per kind lives in a channel.
type Kind string

const (
	KindParty Kind = "party"
	KindTeams Kind = "teams"
	KindRoll  Kind = "roll"
)

// ErrNotFinalizable is returned by workflows that close on their own
// (party) when asked to draw an outcome.
var ErrNotFinalizable = errors.New("workflow has no finalize step")

// Participant is one roster entry.
type Participant struct {
	ID   string
	Name string
}

// Settings holds the per-session configuration chosen when the session starts.
type Settings struct {
	Threshold int `json:"threshold,omitempty"`  // party: roster size that closes the session
	TeamCount int `json:"team_count,omitempty"` // teams: number of teams to form
	RollRange int `json:"roll_range,omitempty"` // roll: upper bound of the die, inclusive
}

// Option describes the single integer option a start command accepts.
type Option struct {
	Name        string
	Description string
	Default     int
	Max         int
}

// Resolve applies the option's defaulting rules to a raw value:
// non-positive values fall back to the default, values above Max are clamped.
func (o Option) Resolve(value int) int {
	if value <= 0 {
		return o.Default
	}
	if o.Max > 0 && value > o.Max {
		return o.Max
	}
	return value
}

// Outcome is the result of finalizing a roster. Concrete types live in the
// workflow packages (teams.Outcome, roll.Outcome).
type Outcome interface {
	// Kind returns the workflow that produced the outcome.
	Kind() Kind
}

// Workflow is implemented by every joinable-session variant.
// Adding a workflow only requires implementing this interface and
// registering it.
type Workflow interface {
	// Kind returns the workflow identifier.
	Kind() Kind

	// Command returns the slash command that starts a session (e.g. "party").
	Command() string

	// Description returns the command description shown by the platform.
	Description() string

	// Option returns the integer option the start command accepts.
	Option() Option

	// Settings builds session settings from a resolved option value.
	Settings(value int) Settings

	// Actions returns the button actions bound to this workflow.
	Actions() Actions

	// Closes reports whether a roster of the given size stops accepting joins.
	Closes(s Settings, size int) bool

	// Finalize draws a fresh outcome for the roster. Every call is an
	// independent draw.
	Finalize(roster []Participant, s Settings, rng *rand.Rand) (Outcome, error)
}

// Actions names the buttons of a workflow. Empty names are not used.
type Actions struct {
	Join     string
	Finalize string
	Retry    string
}

// ActionType classifies a button action.
type ActionType int

const (
	ActionUnknown ActionType = iota
	ActionJoin
	ActionFinalize
	ActionRetry
)

// Classify returns the type of action within this set.
func (a Actions) Classify(action string) ActionType {
	switch {
	case action == "":
		return ActionUnknown
	case action == a.Join:
		return ActionJoin
	case action == a.Finalize:
		return ActionFinalize
	case action == a.Retry:
		return ActionRetry
	default:
		return ActionUnknown
	}
}
