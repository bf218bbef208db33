package handler

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"kiri-bot/internal/pkg/lock"
	"kiri-bot/internal/render"
	"kiri-bot/internal/service"
	"kiri-bot/internal/session"
	"kiri-bot/internal/workflow"
	"kiri-bot/internal/workflow/roll"
)

// RollCommand is the one-off roll that does not open a session.
const RollCommand = "roll"

// SessionHandler handles session commands and controls.
type SessionHandler struct {
	manager     *session.Manager
	registry    *workflow.Registry
	locks       *lock.ChannelLock
	lockTimeout time.Duration
	history     *service.HistoryService
	single      workflow.Option
}

// NewSessionHandler creates a new SessionHandler. lockTimeout bounds how long
// an interaction waits for its channel; single configures the /roll command.
func NewSessionHandler(
	manager *session.Manager,
	registry *workflow.Registry,
	locks *lock.ChannelLock,
	lockTimeout time.Duration,
	history *service.HistoryService,
	single workflow.Option,
) *SessionHandler {
	return &SessionHandler{
		manager:     manager,
		registry:    registry,
		locks:       locks,
		lockTimeout: lockTimeout,
		history:     history,
		single:      single,
	}
}

// Commands returns every command the handler serves, for registration.
func (h *SessionHandler) Commands() []Command {
	cmds := []Command{{
		Name:        RollCommand,
		Description: "Roll a die",
		Option:      h.single,
	}}
	for _, wf := range h.registry.List() {
		cmds = append(cmds, Command{
			Name:        wf.Command(),
			Description: wf.Description(),
			Option:      wf.Option(),
		})
	}
	return cmds
}

// Handle dispatches an interaction. Only unexpected failures are returned;
// rejected actions are answered with a private notice.
func (h *SessionHandler) Handle(ctx context.Context, t Transport, in *Interaction) error {
	switch in.Type {
	case InteractionCommand:
		if in.Name == RollCommand {
			return h.HandleRoll(ctx, t, in)
		}
		wf, ok := h.registry.ByCommand(in.Name)
		if !ok {
			log.Debug().Str("command", in.Name).Msg("Ignoring unknown command")
			return nil
		}
		return h.withChannel(ctx, t, in, func() error {
			return h.HandleStart(ctx, t, in, wf)
		})

	case InteractionButton:
		action, token := render.DecodeControl(in.Name)
		wf, kind, ok := h.registry.ByAction(action)
		if !ok {
			log.Debug().Str("control", in.Name).Msg("Ignoring unknown control")
			return nil
		}
		return h.withChannel(ctx, t, in, func() error {
			switch kind {
			case workflow.ActionJoin:
				return h.HandleJoin(ctx, t, in, wf, token)
			default:
				return h.HandleFinalize(ctx, t, in, wf, kind, token)
			}
		})
	}
	return nil
}

// withChannel runs fn under the channel lock. A press that cannot get the
// lock in time is told to try again.
func (h *SessionHandler) withChannel(ctx context.Context, t Transport, in *Interaction, fn func() error) error {
	err := h.locks.WithLockContext(ctx, in.ChannelID, h.lockTimeout, fn)
	if errors.Is(err, lock.ErrLockTimeout) {
		log.Warn().
			Str("channel_id", in.ChannelID).
			Str("user_id", in.User.ID).
			Str("name", in.Name).
			Dur("timeout", h.lockTimeout).
			Msg("Channel busy")
		h.notify(ctx, t, render.Busy)
		return nil
	}
	return err
}

// HandleStart opens a session and posts its prompt. Controls of the session
// it replaces are cleared.
func (h *SessionHandler) HandleStart(ctx context.Context, t Transport, in *Interaction, wf workflow.Workflow) error {
	opt := wf.Option()
	settings := wf.Settings(opt.Resolve(in.Options[opt.Name]))

	snap, prev, err := h.manager.Start(in.ChannelID, wf.Kind(), settings)
	if err != nil {
		return err
	}
	if prev != nil {
		h.clear(ctx, t, prev.PromptRef)
		h.clear(ctx, t, prev.RetryRef)
	}

	ref, err := t.Reply(ctx, render.Prompt(snap))
	if err != nil {
		log.Warn().Err(err).Str("channel_id", in.ChannelID).Str("kind", string(wf.Kind())).Msg("Failed to post prompt")
		return nil
	}
	if err := h.manager.AttachPrompt(in.ChannelID, wf.Kind(), snap.Generation, ref); err != nil {
		log.Debug().Err(err).Uint64("generation", snap.Generation).Msg("Prompt superseded before attach")
	}

	log.Info().
		Str("channel_id", in.ChannelID).
		Str("user_id", in.User.ID).
		Str("kind", string(wf.Kind())).
		Uint64("generation", snap.Generation).
		Msg("Session started")

	h.history.SessionStarted(ctx, snap)
	return nil
}

// HandleJoin adds the presser to the session and refreshes the prompt.
func (h *SessionHandler) HandleJoin(ctx context.Context, t Transport, in *Interaction, wf workflow.Workflow, token uint64) error {
	res, err := h.manager.Join(in.ChannelID, wf.Kind(), token, in.User.ID, in.User.Name)
	if err != nil {
		return h.reject(ctx, t, in, wf, workflow.ActionJoin, err)
	}

	h.notify(ctx, t, render.Joined(wf.Kind(), in.User.Name))

	prompt := res.Snapshot.PromptRef
	if prompt.IsZero() {
		prompt = in.Message
	}
	if err := t.Edit(ctx, prompt, render.Prompt(res.Snapshot)); err != nil {
		log.Warn().Err(err).Str("channel_id", in.ChannelID).Msg("Failed to update prompt")
	}

	if res.Full {
		log.Info().
			Str("channel_id", in.ChannelID).
			Str("kind", string(wf.Kind())).
			Int("size", len(res.Snapshot.Participants)).
			Msg("Session full")

		if _, err := t.Reply(ctx, render.PartyFull(res.Snapshot.Participants, t.Mention)); err != nil {
			log.Warn().Err(err).Str("channel_id", in.ChannelID).Msg("Failed to announce full party")
		}
		h.history.PartyFull(ctx, res.Snapshot)
	}
	return nil
}

// HandleFinalize draws an outcome, for both the first draw and retries.
func (h *SessionHandler) HandleFinalize(ctx context.Context, t Transport, in *Interaction, wf workflow.Workflow, action workflow.ActionType, token uint64) error {
	res, err := h.manager.Finalize(in.ChannelID, wf.Kind(), token)
	if err != nil {
		return h.reject(ctx, t, in, wf, action, err)
	}

	if res.FirstDraw && !res.Snapshot.PromptRef.IsZero() {
		if err := t.Edit(ctx, res.Snapshot.PromptRef, render.Prompt(res.Snapshot)); err != nil {
			log.Warn().Err(err).Str("channel_id", in.ChannelID).Msg("Failed to close prompt")
		}
	}
	h.clear(ctx, t, res.PreviousRetry)

	ref, err := t.Reply(ctx, render.Outcome(res.Outcome, res.RetryToken, res.Snapshot.Draws))
	if err != nil {
		log.Warn().Err(err).Str("channel_id", in.ChannelID).Msg("Failed to post outcome")
	} else if err := h.manager.AttachRetry(in.ChannelID, wf.Kind(), res.RetryToken, ref); err != nil {
		log.Debug().Err(err).Uint64("generation", res.RetryToken).Msg("Outcome superseded before attach")
	}

	log.Info().
		Str("channel_id", in.ChannelID).
		Str("user_id", in.User.ID).
		Str("kind", string(wf.Kind())).
		Int("draw", res.Snapshot.Draws).
		Int("participants", len(res.Snapshot.Participants)).
		Msg("Session drawn")

	h.history.Finalized(ctx, res)
	return nil
}

// HandleRoll rolls a single die for the caller.
func (h *SessionHandler) HandleRoll(ctx context.Context, t Transport, in *Interaction) error {
	upper := h.single.Resolve(in.Options[h.single.Name])

	var value int
	err := h.manager.Draw(func(rng *rand.Rand) error {
		v, err := roll.One(rng, upper)
		value = v
		return err
	})
	if err != nil {
		return err
	}

	if _, err := t.Reply(ctx, render.SingleRoll(in.User.Name, value)); err != nil {
		log.Warn().Err(err).Str("channel_id", in.ChannelID).Msg("Failed to post roll")
	}
	h.history.SingleRoll(ctx, in.ChannelID, in.User, value, upper)
	return nil
}

// reject answers a refused action with a private notice.
func (h *SessionHandler) reject(ctx context.Context, t Transport, in *Interaction, wf workflow.Workflow, action workflow.ActionType, err error) error {
	kind := wf.Kind()

	var text string
	switch {
	case errors.Is(err, session.ErrNoActiveSession):
		text = render.NoActiveSession(kind, wf.Command())
	case errors.Is(err, session.ErrSessionExpired):
		text = render.Expired(kind, wf.Command())
		h.clear(ctx, t, in.Message)
	case errors.Is(err, session.ErrAlreadyJoined):
		text = render.AlreadyJoined(kind, in.User.Name)
	case errors.Is(err, session.ErrSessionClosed):
		text = render.Closed(kind, wf.Command())
	case errors.Is(err, session.ErrEmptyRoster):
		text = render.EmptyRoster(kind, action == workflow.ActionRetry)
	default:
		log.Error().
			Err(err).
			Str("channel_id", in.ChannelID).
			Str("user_id", in.User.ID).
			Str("kind", string(kind)).
			Msg("Session action failed")
		text = render.Failure
	}

	log.Debug().
		Err(err).
		Str("channel_id", in.ChannelID).
		Str("user_id", in.User.ID).
		Str("control", in.Name).
		Msg("Action rejected")

	h.notify(ctx, t, text)
	return nil
}

func (h *SessionHandler) notify(ctx context.Context, t Transport, text string) {
	if err := t.Notify(ctx, text); err != nil {
		log.Warn().Err(err).Msg("Failed to send notice")
	}
}

// clear removes controls from ref, if set. Failures are logged only.
func (h *SessionHandler) clear(ctx context.Context, t Transport, ref session.MessageRef) {
	if ref.IsZero() {
		return
	}
	if err := t.ClearControls(ctx, ref); err != nil {
		log.Debug().Err(err).Str("message_id", ref.MessageID).Msg("Failed to clear controls")
	}
}
