package render

import (
	"fmt"

	"kiri-bot/internal/workflow"
)

// Private notices shown only to the user who pressed a control.

// Joined confirms a join.
func Joined(kind workflow.Kind, name string) string {
	switch kind {
	case workflow.KindParty:
		return fmt.Sprintf("✅ %s has joined the party.", name)
	case workflow.KindTeams:
		return fmt.Sprintf("✅ %s joined the team generator!", name)
	default:
		return fmt.Sprintf("✅ %s joined the group roll!", name)
	}
}

// AlreadyJoined rejects a second join by the same user.
func AlreadyJoined(kind workflow.Kind, name string) string {
	return fmt.Sprintf("❗ You're already in the %s list, %s.", listNoun(kind), name)
}

// NoActiveSession is shown when a control outlives the channel's sessions.
func NoActiveSession(kind workflow.Kind, command string) string {
	return fmt.Sprintf("❗ No active %s in this channel. Start one with '/%s'.", sessionNoun(kind), command)
}

// Expired is shown when a control belongs to a superseded message.
func Expired(kind workflow.Kind, command string) string {
	if kind == workflow.KindRoll {
		return fmt.Sprintf("❗ This session has expired. Please use '/%s' again.", command)
	}
	return fmt.Sprintf("❗ This session has expired. Use /%s to start a new one.", command)
}

// Closed is shown when a session no longer accepts the pressed action.
func Closed(kind workflow.Kind, command string) string {
	if kind == workflow.KindParty {
		return "❗ This party is already full."
	}
	return fmt.Sprintf("❗ This session has already been drawn. Use /%s to start a new one.", command)
}

// EmptyRoster rejects a draw with nobody in it.
func EmptyRoster(kind workflow.Kind, retry bool) string {
	switch {
	case kind == workflow.KindTeams && retry:
		return "❗ No one is in the team list to reshuffle!"
	case kind == workflow.KindTeams:
		return "❗ No one has joined the team table yet!"
	case retry:
		return "❗ No one has joined the group roll to reshuffle!"
	default:
		return "❗ No one has joined the group roll yet!"
	}
}

// Failure is the generic notice for unexpected errors.
const Failure = "❌ Something went wrong, please try again."

// Busy is shown when the channel is still handling another interaction.
const Busy = "⏳ The bot is busy in this channel, please try again in a moment."

// NotAllowed is shown for interactions from channels the bot does not serve.
const NotAllowed = "❗ This bot is not enabled in this channel."

func listNoun(kind workflow.Kind) string {
	switch kind {
	case workflow.KindParty:
		return "party"
	case workflow.KindTeams:
		return "teams"
	default:
		return "group"
	}
}

func sessionNoun(kind workflow.Kind) string {
	if kind == workflow.KindRoll {
		return "group roll"
	}
	return listNoun(kind)
}
