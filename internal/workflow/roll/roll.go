// Package roll implements dice rolling: the single /roll draw and the
// group-roll workflow where everyone who joined rolls and the highest wins.
package roll

import (
	"errors"
	"math/rand/v2"

	"kiri-bot/internal/workflow"
)

const (
	// DefaultRange is the die size used when the command omits roll_range.
	DefaultRange = 100

	JoinAction     = "join_roll"
	FinalizeAction = "start_roll"
	RetryAction    = "retry_roll"
)

// ErrInvalidRange is returned for a die with fewer than one face.
var ErrInvalidRange = errors.New("roll range must be at least 1")

// Result is one participant's roll.
type Result struct {
	Participant workflow.Participant
	Value       int
}

// Outcome holds every roll in roster order and the winning roll.
type Outcome struct {
	Rolls  []Result
	Winner Result
}

// Kind implements workflow.Outcome.
func (o *Outcome) Kind() workflow.Kind { return workflow.KindRoll }

// Config holds roll workflow configuration.
type Config struct {
	DefaultRange int
	MaxRange     int
}

// GroupRoll implements workflow.Workflow for the group dice roll.
type GroupRoll struct {
	defaultRange int
	maxRange     int
}

// New creates a GroupRoll workflow. A nil config uses the defaults.
func New(cfg *Config) *GroupRoll {
	g := &GroupRoll{defaultRange: DefaultRange}
	if cfg != nil {
		if cfg.DefaultRange > 0 {
			g.defaultRange = cfg.DefaultRange
		}
		g.maxRange = cfg.MaxRange
	}
	return g
}

func (g *GroupRoll) Kind() workflow.Kind { return workflow.KindRoll }

func (g *GroupRoll) Command() string { return "grouproll" }

func (g *GroupRoll) Description() string { return "Everyone who joins rolls, highest roll wins" }

func (g *GroupRoll) Option() workflow.Option {
	return workflow.Option{
		Name:        "roll_range",
		Description: "Highest number that can be rolled",
		Default:     g.defaultRange,
		Max:         g.maxRange,
	}
}

func (g *GroupRoll) Settings(value int) workflow.Settings {
	return workflow.Settings{RollRange: value}
}

func (g *GroupRoll) Actions() workflow.Actions {
	return workflow.Actions{Join: JoinAction, Finalize: FinalizeAction, Retry: RetryAction}
}

// Closes always returns false: joins stay open until the roll starts.
func (g *GroupRoll) Closes(workflow.Settings, int) bool { return false }

// Finalize rolls for every participant.
func (g *GroupRoll) Finalize(roster []workflow.Participant, s workflow.Settings, rng *rand.Rand) (workflow.Outcome, error) {
	return Draw(roster, s.RollRange, rng)
}

// One draws a uniform integer in [1, max].
func One(rng *rand.Rand, max int) (int, error) {
	if max < 1 {
		return 0, ErrInvalidRange
	}
	return rng.IntN(max) + 1, nil
}

// Draw rolls independently for every participant. The winner is the highest
// roll; on ties the participant earliest in roster order wins.
func Draw(roster []workflow.Participant, max int, rng *rand.Rand) (*Outcome, error) {
	if max < 1 {
		return nil, ErrInvalidRange
	}

	out := &Outcome{Rolls: make([]Result, 0, len(roster))}
	for i, p := range roster {
		r := Result{Participant: p, Value: rng.IntN(max) + 1}
		out.Rolls = append(out.Rolls, r)
		if i == 0 || r.Value > out.Winner.Value {
			out.Winner = r
		}
	}
	return out, nil
}
