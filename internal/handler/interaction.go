// Package handler runs slash commands and button presses against the session
// manager. It is platform neutral: transports adapt their native events into
// an Interaction and expose a Transport for the replies.
package handler

import (
	"context"

	"kiri-bot/internal/render"
	"kiri-bot/internal/session"
	"kiri-bot/internal/workflow"
)

// InteractionType distinguishes commands from control presses.
type InteractionType int

const (
	InteractionCommand InteractionType = iota
	InteractionButton
)

func (t InteractionType) String() string {
	if t == InteractionButton {
		return "button"
	}
	return "command"
}

// Interaction is one inbound user action.
type Interaction struct {
	Type InteractionType
	// Name is the command name for commands and the raw control id for buttons.
	Name      string
	ChannelID string
	User      workflow.Participant
	// Message is the message carrying the pressed control. Zero for commands.
	Message session.MessageRef
	Options map[string]int
}

// Transport delivers output for a single interaction.
type Transport interface {
	// Reply posts a public message in the interaction's channel.
	Reply(ctx context.Context, view render.View) (session.MessageRef, error)
	// Notify sends text visible only to the user who triggered the interaction.
	Notify(ctx context.Context, text string) error
	// Edit replaces the content and controls of a message.
	Edit(ctx context.Context, ref session.MessageRef, view render.View) error
	// ClearControls removes every control from a message.
	ClearControls(ctx context.Context, ref session.MessageRef) error
	// Mention formats a participant so the platform notifies them.
	Mention(p workflow.Participant) string
}

// Command describes a slash command for platform registration.
type Command struct {
	Name        string
	Description string
	Option      workflow.Option
}
