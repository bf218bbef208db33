package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiri-bot/internal/session"
	"kiri-bot/internal/workflow"
	"kiri-bot/internal/workflow/roll"
	"kiri-bot/internal/workflow/teams"
)

var abc = []workflow.Participant{
	{ID: "1", Name: "Alice"},
	{ID: "2", Name: "Bob"},
	{ID: "3", Name: "Carol"},
}

func TestRosterLines(t *testing.T) {
	assert.Equal(t, "None yet", RosterLines(nil))
	assert.Equal(t, "1. Alice\n2. Bob\n3. Carol", RosterLines(abc))
}

func TestControlRoundTrip(t *testing.T) {
	tests := []struct {
		id     string
		action string
		token  uint64
	}{
		{"join_party:42", "join_party", 42},
		{"retry_roll:18446744073709551615", "retry_roll", 18446744073709551615},
		{"join_party", "join_party", 0},
		{"join_party:abc", "join_party", 0},
		{"", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			action, token := DecodeControl(tt.id)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.token, token)
		})
	}

	assert.Equal(t, "create_teams:7", EncodeControl("create_teams", 7))
}

func TestPrompt_Party(t *testing.T) {
	snap := session.Snapshot{
		Kind:         workflow.KindParty,
		Settings:     workflow.Settings{Threshold: 5},
		Participants: abc[:2],
		Generation:   9,
		State:        session.StateCollecting,
	}

	v := Prompt(snap)
	assert.True(t, v.Embed)
	assert.Equal(t, ColorParty, v.Color)
	assert.Equal(t, "✉️ Party Invitation", v.Title)
	assert.Contains(t, v.Body, "Participants (2/5):\n1. Alice\n2. Bob")
	require.Len(t, v.Controls, 1)
	assert.Equal(t, "join_party:9", v.Controls[0].ID)
	assert.False(t, v.Controls[0].Disabled)

	snap.State = session.StateFull
	v = Prompt(snap)
	require.Len(t, v.Controls, 1)
	assert.True(t, v.Controls[0].Disabled)
	assert.Equal(t, "✅ Party Full", v.Controls[0].Label)

	snap.Participants = nil
	snap.State = session.StateCollecting
	assert.Equal(t, "✉️ Join Party", Prompt(snap).Title)
	assert.Contains(t, Prompt(snap).Body, "None yet")
}

func TestPrompt_TeamsAndRoll(t *testing.T) {
	teamsSnap := session.Snapshot{
		Kind:       workflow.KindTeams,
		Settings:   workflow.Settings{TeamCount: 3},
		Generation: 4,
		State:      session.StateCollecting,
	}
	v := Prompt(teamsSnap)
	require.Len(t, v.Controls, 2)
	assert.Equal(t, "join_teams:4", v.Controls[0].ID)
	assert.Equal(t, "create_teams:4", v.Controls[1].ID)
	assert.Equal(t, "🚀 Create 3 Teams", v.Controls[1].Label)

	teamsSnap.State = session.StateFinalized
	assert.Empty(t, Prompt(teamsSnap).Controls)

	rollSnap := session.Snapshot{
		Kind:         workflow.KindRoll,
		Settings:     workflow.Settings{RollRange: 20},
		Participants: abc,
		Generation:   5,
		State:        session.StateCollecting,
	}
	v = Prompt(rollSnap)
	assert.Contains(t, v.Body, "(1-20)")
	assert.Contains(t, v.Body, "3. Carol")
	require.Len(t, v.Controls, 2)
	assert.Equal(t, "start_roll:5", v.Controls[1].ID)
}

func TestPartyFull(t *testing.T) {
	v := PartyFull(abc[:2], func(p workflow.Participant) string { return "<@" + p.ID + ">" })
	assert.Equal(t, "🎮 Party is full!", v.Title)
	assert.Equal(t, "<@1>, <@2>, let's run it lads.", v.Body)
	assert.Empty(t, v.Controls)
	assert.Equal(t, "🎮 Party is full!\n<@1>, <@2>, let's run it lads.", v.Text())
}

func TestOutcome_Teams(t *testing.T) {
	out := &teams.Outcome{Teams: [][]workflow.Participant{{abc[0], abc[2]}, {abc[1]}}}

	v := Outcome(out, 11, 1)
	assert.Equal(t, "👥 Teams formed:", v.Title)
	assert.Equal(t, "Team 1: Alice & Carol\nTeam 2: Bob", v.Body)
	require.Len(t, v.Controls, 1)
	assert.Equal(t, "retry_teams:11", v.Controls[0].ID)

	assert.Equal(t, "🔁 Reshuffled Teams:", Outcome(out, 12, 2).Title)
}

func TestOutcome_Rolls(t *testing.T) {
	out := &roll.Outcome{
		Rolls: []roll.Result{
			{Participant: abc[0], Value: 40},
			{Participant: abc[1], Value: 87},
		},
		Winner: roll.Result{Participant: abc[1], Value: 87},
	}

	v := Outcome(out, 3, 1)
	assert.Equal(t, "Dice Roll Results:", v.Title)
	assert.Equal(t, "🎲 Alice rolled 40\n🎲 Bob rolled 87\n\n🏆 Winner: Bob won with a 87!", v.Body)
	require.Len(t, v.Controls, 1)
	assert.Equal(t, "retry_roll:3", v.Controls[0].ID)
	assert.Equal(t, "🔁 Retry", v.Controls[0].Label)
	assert.Equal(t, "🔁 Retry Again", Outcome(out, 4, 2).Controls[0].Label)
}

func TestSingleRoll(t *testing.T) {
	assert.Equal(t, "🎲 Alice rolled: 17", SingleRoll("Alice", 17).Text())
}
