// Package teams implements the team-shuffle workflow.
package teams

import (
	"errors"
	"math/rand/v2"

	"kiri-bot/internal/workflow"
)

const (
	// DefaultTeamCount is the number of teams used when the command omits team_count.
	DefaultTeamCount = 2

	JoinAction     = "join_teams"
	FinalizeAction = "create_teams"
	RetryAction    = "retry_teams"
)

// ErrInvalidTeamCount is returned when asked to partition into fewer than one team.
var ErrInvalidTeamCount = errors.New("team count must be at least 1")

// Outcome is an ordered list of teams, each an ordered list of members.
type Outcome struct {
	Teams [][]workflow.Participant
}

// Kind implements workflow.Outcome.
func (o *Outcome) Kind() workflow.Kind { return workflow.KindTeams }

// Names returns the display names of each team.
func (o *Outcome) Names() [][]string {
	names := make([][]string, len(o.Teams))
	for i, team := range o.Teams {
		names[i] = make([]string, len(team))
		for j, p := range team {
			names[i][j] = p.Name
		}
	}
	return names
}

// Config holds teams workflow configuration.
type Config struct {
	DefaultCount int
	MaxCount     int
}

// Teams implements workflow.Workflow for team shuffling.
type Teams struct {
	defaultCount int
	maxCount     int
}

// New creates a Teams workflow. A nil config uses the defaults.
func New(cfg *Config) *Teams {
	t := &Teams{defaultCount: DefaultTeamCount}
	if cfg != nil {
		if cfg.DefaultCount > 0 {
			t.defaultCount = cfg.DefaultCount
		}
		t.maxCount = cfg.MaxCount
	}
	return t
}

func (t *Teams) Kind() workflow.Kind { return workflow.KindTeams }

func (t *Teams) Command() string { return "teams" }

func (t *Teams) Description() string { return "Shuffle the people who join into teams" }

func (t *Teams) Option() workflow.Option {
	return workflow.Option{
		Name:        "team_count",
		Description: "Number of teams to create",
		Default:     t.defaultCount,
		Max:         t.maxCount,
	}
}

func (t *Teams) Settings(value int) workflow.Settings {
	return workflow.Settings{TeamCount: value}
}

func (t *Teams) Actions() workflow.Actions {
	return workflow.Actions{Join: JoinAction, Finalize: FinalizeAction, Retry: RetryAction}
}

// Closes always returns false: joins stay open until teams are created.
func (t *Teams) Closes(workflow.Settings, int) bool { return false }

// Finalize shuffles the roster into teams.
func (t *Teams) Finalize(roster []workflow.Participant, s workflow.Settings, rng *rand.Rand) (workflow.Outcome, error) {
	groups, err := Partition(roster, s.TeamCount, rng)
	if err != nil {
		return nil, err
	}
	return &Outcome{Teams: groups}, nil
}

// Partition shuffles members uniformly (Fisher–Yates) and deals them
// round-robin into teamCount teams. Only non-empty teams are returned, so
// fewer members than teams yields one team per member. The input slice is not
// modified.
func Partition(members []workflow.Participant, teamCount int, rng *rand.Rand) ([][]workflow.Participant, error) {
	if teamCount < 1 {
		return nil, ErrInvalidTeamCount
	}

	shuffled := make([]workflow.Participant, len(members))
	copy(shuffled, members)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	n := min(teamCount, len(shuffled))
	groups := make([][]workflow.Participant, n)
	for i, p := range shuffled {
		groups[i%teamCount] = append(groups[i%teamCount], p)
	}
	return groups, nil
}
