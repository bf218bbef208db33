// Package render turns session state and outcomes into platform-neutral
// views. Everything here is a pure function of its inputs.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"kiri-bot/internal/session"
	"kiri-bot/internal/workflow"
	"kiri-bot/internal/workflow/party"
	"kiri-bot/internal/workflow/roll"
	"kiri-bot/internal/workflow/teams"
)

// Embed colors per workflow.
const (
	ColorParty = 0x3399ff
	ColorTeams = 0xff0000
	ColorRoll  = 0x99ff00
)

// ControlSeparator splits the action from the generation token in a control id.
const ControlSeparator = ":"

// Style is the visual weight of a control.
type Style int

const (
	StylePrimary Style = iota
	StyleSuccess
	StyleSecondary
)

// Control is a button attached to a view.
type Control struct {
	ID       string
	Label    string
	Style    Style
	Disabled bool
}

// View is a message body ready for a transport. Embed views carry a title
// and color; plain views are sent as text with the title as a header line.
type View struct {
	Title    string
	Body     string
	Color    int
	Embed    bool
	Controls []Control
}

// Text returns the view flattened to plain text.
func (v View) Text() string {
	if v.Title == "" {
		return v.Body
	}
	if v.Body == "" {
		return v.Title
	}
	return v.Title + "\n" + v.Body
}

// EncodeControl builds a control id from an action and a generation token.
func EncodeControl(action string, token uint64) string {
	return action + ControlSeparator + strconv.FormatUint(token, 10)
}

// DecodeControl splits a control id into action and token. Ids without a
// token decode with token 0, which never validates.
func DecodeControl(id string) (action string, token uint64) {
	action, raw, found := strings.Cut(id, ControlSeparator)
	if !found {
		return id, 0
	}
	token, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return action, 0
	}
	return action, token
}

// RosterLines formats participants as "{i+1}. {name}", one per line.
func RosterLines(participants []workflow.Participant) string {
	if len(participants) == 0 {
		return "None yet"
	}
	lines := make([]string, len(participants))
	for i, p := range participants {
		lines[i] = fmt.Sprintf("%d. %s", i+1, p.Name)
	}
	return strings.Join(lines, "\n")
}

// Prompt renders the joinable message of a session.
func Prompt(s session.Snapshot) View {
	switch s.Kind {
	case workflow.KindParty:
		return partyPrompt(s)
	case workflow.KindTeams:
		return teamsPrompt(s)
	case workflow.KindRoll:
		return rollPrompt(s)
	default:
		return View{Title: string(s.Kind), Body: RosterLines(s.Participants), Embed: true}
	}
}

func partyPrompt(s session.Snapshot) View {
	title := "✉️ Join Party"
	if len(s.Participants) > 0 {
		title = "✉️ Party Invitation"
	}
	v := View{
		Title: title,
		Body: fmt.Sprintf("Click to join party!\n\nParticipants (%d/%d):\n%s",
			len(s.Participants), s.Settings.Threshold, RosterLines(s.Participants)),
		Color: ColorParty,
		Embed: true,
	}
	switch s.State {
	case session.StateCollecting:
		v.Controls = []Control{{
			ID:    EncodeControl(party.JoinAction, s.Generation),
			Label: "👍 Join Party",
			Style: StyleSuccess,
		}}
	case session.StateFull:
		v.Controls = []Control{{
			ID:       EncodeControl(party.JoinAction, s.Generation),
			Label:    "✅ Party Full",
			Style:    StyleSecondary,
			Disabled: true,
		}}
	}
	return v
}

func teamsPrompt(s session.Snapshot) View {
	v := View{
		Title: "👥 Team Generator",
		Body:  "Click to join the team generator!\n\nParticipants:\n" + RosterLines(s.Participants),
		Color: ColorTeams,
		Embed: true,
	}
	if s.State == session.StateCollecting {
		v.Controls = []Control{
			{ID: EncodeControl(teams.JoinAction, s.Generation), Label: "👍 Join Teams", Style: StyleSuccess},
			{ID: EncodeControl(teams.FinalizeAction, s.Generation), Label: fmt.Sprintf("🚀 Create %d Teams", s.Settings.TeamCount), Style: StylePrimary},
		}
	}
	return v
}

func rollPrompt(s session.Snapshot) View {
	v := View{
		Title: "🎲 Group Dice Roll",
		Body: fmt.Sprintf("Click to join the group roll! (1-%d)\n\nParticipants:\n%s",
			s.Settings.RollRange, RosterLines(s.Participants)),
		Color: ColorRoll,
		Embed: true,
	}
	if s.State == session.StateCollecting {
		v.Controls = []Control{
			{ID: EncodeControl(roll.JoinAction, s.Generation), Label: "👍 Join Group Roll", Style: StyleSuccess},
			{ID: EncodeControl(roll.FinalizeAction, s.Generation), Label: "🎲 Start Roll", Style: StylePrimary},
		}
	}
	return v
}

// PartyFull renders the announcement sent when a party fills up.
func PartyFull(participants []workflow.Participant, mention func(workflow.Participant) string) View {
	mentions := make([]string, len(participants))
	for i, p := range participants {
		mentions[i] = mention(p)
	}
	return View{
		Title: "🎮 Party is full!",
		Body:  strings.Join(mentions, ", ") + ", let's run it lads.",
	}
}

// Outcome renders a finalize outcome with a retry control stamped with
// retryToken. draw is 1 for the first draw of a session and counts up on
// retries.
func Outcome(out workflow.Outcome, retryToken uint64, draw int) View {
	switch o := out.(type) {
	case *teams.Outcome:
		return Teams(o, retryToken, draw)
	case *roll.Outcome:
		return Rolls(o, retryToken, draw)
	default:
		return View{Body: "Nothing to show."}
	}
}

// Teams renders formed teams.
func Teams(out *teams.Outcome, retryToken uint64, draw int) View {
	title := "👥 Teams formed:"
	if draw > 1 {
		title = "🔁 Reshuffled Teams:"
	}
	lines := make([]string, len(out.Teams))
	for i, names := range out.Names() {
		lines[i] = fmt.Sprintf("Team %d: %s", i+1, strings.Join(names, " & "))
	}
	return View{
		Title: title,
		Body:  strings.Join(lines, "\n"),
		Controls: []Control{{
			ID:    EncodeControl(teams.RetryAction, retryToken),
			Label: "🔁 Retry Teams",
			Style: StyleSecondary,
		}},
	}
}

// Rolls renders a group roll with every roll and the winner.
func Rolls(out *roll.Outcome, retryToken uint64, draw int) View {
	lines := make([]string, len(out.Rolls))
	for i, r := range out.Rolls {
		lines[i] = fmt.Sprintf("🎲 %s rolled %d", r.Participant.Name, r.Value)
	}
	label := "🔁 Retry"
	if draw > 1 {
		label = "🔁 Retry Again"
	}
	return View{
		Title: "Dice Roll Results:",
		Body: fmt.Sprintf("%s\n\n🏆 Winner: %s won with a %d!",
			strings.Join(lines, "\n"), out.Winner.Participant.Name, out.Winner.Value),
		Controls: []Control{{
			ID:    EncodeControl(roll.RetryAction, retryToken),
			Label: label,
			Style: StyleSecondary,
		}},
	}
}

// SingleRoll renders a one-off /roll.
func SingleRoll(name string, value int) View {
	return View{Body: fmt.Sprintf("🎲 %s rolled: %d", name, value)}
}
