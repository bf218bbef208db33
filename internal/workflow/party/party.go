// Package party implements the threshold-join workflow: participants join
// until the party reaches its size, then the party is announced.
package party

import (
	"math/rand/v2"

	"kiri-bot/internal/workflow"
)

const (
	// DefaultMaxPlayers is the party size used when the command omits max_players.
	DefaultMaxPlayers = 5

	// JoinAction is the button id for joining a party.
	JoinAction = "join_party"
)

// Config holds party workflow configuration.
type Config struct {
	DefaultSize int
	MaxSize     int
}

// Party implements workflow.Workflow for party formation.
type Party struct {
	defaultSize int
	maxSize     int
}

// New creates a Party workflow. A nil config uses the defaults.
func New(cfg *Config) *Party {
	p := &Party{defaultSize: DefaultMaxPlayers}
	if cfg != nil {
		if cfg.DefaultSize > 0 {
			p.defaultSize = cfg.DefaultSize
		}
		p.maxSize = cfg.MaxSize
	}
	return p
}

func (p *Party) Kind() workflow.Kind { return workflow.KindParty }

func (p *Party) Command() string { return "party" }

func (p *Party) Description() string { return "Invite people to hop on a game" }

func (p *Party) Option() workflow.Option {
	return workflow.Option{
		Name:        "max_players",
		Description: "Maximum number of players",
		Default:     p.defaultSize,
		Max:         p.maxSize,
	}
}

func (p *Party) Settings(value int) workflow.Settings {
	return workflow.Settings{Threshold: value}
}

func (p *Party) Actions() workflow.Actions {
	return workflow.Actions{Join: JoinAction}
}

// Closes reports whether the party is full.
func (p *Party) Closes(s workflow.Settings, size int) bool {
	return s.Threshold > 0 && size >= s.Threshold
}

// Finalize is not supported: a party closes itself when full.
func (p *Party) Finalize(_ []workflow.Participant, _ workflow.Settings, _ *rand.Rand) (workflow.Outcome, error) {
	return nil, workflow.ErrNotFinalizable
}
