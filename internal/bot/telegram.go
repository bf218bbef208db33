package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"kiri-bot/internal/config"
	"kiri-bot/internal/handler"
	"kiri-bot/internal/render"
	"kiri-bot/internal/session"
	"kiri-bot/internal/workflow"
)

// telegramPlatform serves the same commands over the Telegram Bot API using
// long polling. Telegram has no disabled buttons, so disabled controls are
// still shown and answered with a notice when pressed.
type telegramPlatform struct {
	bot      *tele.Bot
	dispatch HandlerFunc
}

func newTelegramPlatform(cfg *config.BotConfig, dispatch HandlerFunc) (*telegramPlatform, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &telegramPlatform{bot: b, dispatch: dispatch}, nil
}

// Start registers the handlers, upserts the command list and polls until Stop.
func (p *telegramPlatform) Start(commands []handler.Command) error {
	list := make([]tele.Command, 0, len(commands))
	for _, c := range commands {
		p.bot.Handle("/"+c.Name, func(ctx tele.Context) error {
			return p.onCommand(ctx, c)
		})
		list = append(list, tele.Command{Text: c.Name, Description: c.Description})
	}
	p.bot.Handle(tele.OnCallback, p.onCallback)

	if err := p.bot.SetCommands(list); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	log.Info().
		Int("count", len(list)).
		Str("user", p.bot.Me.Username).
		Msg("Telegram commands registered")

	p.bot.Start()
	return nil
}

func (p *telegramPlatform) Stop() {
	p.bot.Stop()
}

func (p *telegramPlatform) onCommand(c tele.Context, cmd handler.Command) error {
	if c.Chat() == nil || c.Sender() == nil {
		return nil
	}

	in := &handler.Interaction{
		Type:      handler.InteractionCommand,
		Name:      cmd.Name,
		ChannelID: strconv.FormatInt(c.Chat().ID, 10),
		User:      telegramUser(c.Sender()),
		Options:   map[string]int{},
	}
	if args := c.Args(); len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			in.Options[cmd.Option.Name] = v
		}
	}

	t := &telegramTransport{bot: p.bot, c: c}
	if err := p.dispatch(context.Background(), t, in); err != nil {
		log.Error().Err(err).Str("name", in.Name).Msg("Failed to handle command")
	}
	return nil
}

func (p *telegramPlatform) onCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil || c.Chat() == nil || c.Sender() == nil {
		return nil
	}

	in := &handler.Interaction{
		Type:      handler.InteractionButton,
		Name:      strings.TrimPrefix(cb.Data, "\f"),
		ChannelID: strconv.FormatInt(c.Chat().ID, 10),
		User:      telegramUser(c.Sender()),
	}
	if cb.Message != nil {
		in.Message = session.MessageRef{
			ChannelID: in.ChannelID,
			MessageID: strconv.Itoa(cb.Message.ID),
		}
	}

	t := &telegramTransport{bot: p.bot, c: c}
	if err := p.dispatch(context.Background(), t, in); err != nil {
		log.Error().Err(err).Str("name", in.Name).Msg("Failed to handle callback")
	}
	// Every callback must be answered or the client keeps spinning.
	if !t.answered {
		_ = c.Respond()
	}
	return nil
}

func telegramUser(u *tele.User) workflow.Participant {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return workflow.Participant{ID: strconv.FormatInt(u.ID, 10), Name: name}
}

// telegramTransport answers one update.
type telegramTransport struct {
	bot      *tele.Bot
	c        tele.Context
	answered bool
}

func (t *telegramTransport) Reply(_ context.Context, view render.View) (session.MessageRef, error) {
	msg, err := t.bot.Send(t.c.Chat(), view.Text(), telegramOptions(view.Controls)...)
	if err != nil {
		return session.MessageRef{}, fmt.Errorf("failed to send message: %w", err)
	}
	return session.MessageRef{
		ChannelID: strconv.FormatInt(msg.Chat.ID, 10),
		MessageID: strconv.Itoa(msg.ID),
	}, nil
}

// Notify answers the callback with an alert only the presser sees. Commands
// have no private channel, so the notice becomes a reply.
func (t *telegramTransport) Notify(_ context.Context, text string) error {
	if t.c.Callback() != nil && !t.answered {
		t.answered = true
		return t.c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
	}
	return t.c.Reply(text)
}

func (t *telegramTransport) Edit(_ context.Context, ref session.MessageRef, view render.View) error {
	msg, err := storedMessage(ref)
	if err != nil {
		return err
	}
	_, err = t.bot.Edit(msg, view.Text(), telegramOptions(view.Controls)...)
	return err
}

func (t *telegramTransport) ClearControls(_ context.Context, ref session.MessageRef) error {
	msg, err := storedMessage(ref)
	if err != nil {
		return err
	}
	_, err = t.bot.EditReplyMarkup(msg, nil)
	return err
}

// Mention uses the display name; plain text messages cannot ping by id.
func (t *telegramTransport) Mention(p workflow.Participant) string {
	return p.Name
}

func storedMessage(ref session.MessageRef) (tele.StoredMessage, error) {
	chatID, err := strconv.ParseInt(ref.ChannelID, 10, 64)
	if err != nil {
		return tele.StoredMessage{}, fmt.Errorf("invalid chat id %q: %w", ref.ChannelID, err)
	}
	return tele.StoredMessage{MessageID: ref.MessageID, ChatID: chatID}, nil
}

// telegramOptions renders controls as one row of inline buttons. No options
// means no keyboard, which also removes an existing one on edit.
func telegramOptions(controls []render.Control) []interface{} {
	if len(controls) == 0 {
		return nil
	}
	markup := &tele.ReplyMarkup{}
	btns := make([]tele.Btn, len(controls))
	for i, c := range controls {
		btns[i] = markup.Data(c.Label, "", c.ID)
	}
	markup.Inline(markup.Row(btns...))
	return []interface{}{markup}
}
