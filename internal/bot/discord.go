package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"kiri-bot/internal/config"
	"kiri-bot/internal/handler"
	"kiri-bot/internal/render"
	"kiri-bot/internal/session"
	"kiri-bot/internal/workflow"
)

// discordPlatform serves slash commands and buttons over the Discord gateway.
type discordPlatform struct {
	session  *discordgo.Session
	appID    string
	guildID  string
	dispatch HandlerFunc

	done     chan struct{}
	stopOnce sync.Once
}

func newDiscordPlatform(cfg *config.BotConfig, dispatch HandlerFunc) (*discordPlatform, error) {
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	// Interactions arrive without any privileged intent.
	s.Identify.Intents = discordgo.IntentsGuilds

	p := &discordPlatform{
		session:  s,
		appID:    cfg.ApplicationID,
		guildID:  cfg.GuildID,
		dispatch: dispatch,
		done:     make(chan struct{}),
	}
	s.AddHandler(p.onReady)
	s.AddHandler(p.onInteraction)
	return p, nil
}

// Start opens the gateway, upserts the commands and blocks until Stop.
func (p *discordPlatform) Start(commands []handler.Command) error {
	if err := p.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}

	registered, err := p.session.ApplicationCommandBulkOverwrite(p.appID, p.guildID, discordCommands(commands))
	if err != nil {
		_ = p.session.Close()
		return fmt.Errorf("failed to register commands: %w", err)
	}
	log.Info().
		Int("count", len(registered)).
		Str("guild_id", p.guildID).
		Msg("Slash commands registered")

	<-p.done
	return nil
}

func (p *discordPlatform) Stop() {
	p.stopOnce.Do(func() {
		if err := p.session.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close discord session")
		}
		close(p.done)
	})
}

func (p *discordPlatform) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	log.Info().
		Str("user", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("Logged in to Discord")
}

func (p *discordPlatform) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	in := discordInteraction(i)
	if in == nil {
		return
	}

	t := &discordTransport{session: s, interaction: i.Interaction}
	if err := p.dispatch(context.Background(), t, in); err != nil {
		log.Error().Err(err).Str("name", in.Name).Msg("Failed to handle interaction")
	}
}

// discordInteraction converts a gateway event. Unsupported interaction types
// return nil.
func discordInteraction(i *discordgo.InteractionCreate) *handler.Interaction {
	in := &handler.Interaction{
		ChannelID: i.ChannelID,
		User:      discordUser(i.Interaction),
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		in.Type = handler.InteractionCommand
		in.Name = data.Name
		in.Options = make(map[string]int, len(data.Options))
		for _, opt := range data.Options {
			if opt.Type == discordgo.ApplicationCommandOptionInteger {
				in.Options[opt.Name] = int(opt.IntValue())
			}
		}
	case discordgo.InteractionMessageComponent:
		in.Type = handler.InteractionButton
		in.Name = i.MessageComponentData().CustomID
		if i.Message != nil {
			in.Message = session.MessageRef{ChannelID: i.Message.ChannelID, MessageID: i.Message.ID}
		}
	default:
		return nil
	}
	return in
}

// discordUser resolves the display name: server nickname, then global name,
// then username.
func discordUser(i *discordgo.Interaction) workflow.Participant {
	var (
		u    *discordgo.User
		nick string
	)
	switch {
	case i.Member != nil && i.Member.User != nil:
		u = i.Member.User
		nick = i.Member.Nick
	case i.User != nil:
		u = i.User
	default:
		return workflow.Participant{}
	}

	name := nick
	if name == "" {
		name = u.GlobalName
	}
	if name == "" {
		name = u.Username
	}
	return workflow.Participant{ID: u.ID, Name: name}
}

func discordCommands(commands []handler.Command) []*discordgo.ApplicationCommand {
	minValue := 1.0
	out := make([]*discordgo.ApplicationCommand, 0, len(commands))
	for _, c := range commands {
		opt := &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        c.Option.Name,
			Description: c.Option.Description,
			MinValue:    &minValue,
		}
		if c.Option.Max > 0 {
			opt.MaxValue = float64(c.Option.Max)
		}
		out = append(out, &discordgo.ApplicationCommand{
			Name:        c.Name,
			Description: c.Description,
			Options:     []*discordgo.ApplicationCommandOption{opt},
		})
	}
	return out
}

// discordTransport answers one interaction. The first reply or notice is the
// interaction response; anything after that is a follow-up.
type discordTransport struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	responded   bool
}

func (t *discordTransport) Reply(ctx context.Context, view render.View) (session.MessageRef, error) {
	content, embeds, components := discordMessage(view)

	var (
		msg *discordgo.Message
		err error
	)
	if !t.responded {
		err = t.session.InteractionRespond(t.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:    content,
				Embeds:     embeds,
				Components: components,
			},
		}, discordgo.WithContext(ctx))
		if err != nil {
			return session.MessageRef{}, fmt.Errorf("failed to respond: %w", err)
		}
		t.responded = true
		msg, err = t.session.InteractionResponse(t.interaction, discordgo.WithContext(ctx))
	} else {
		msg, err = t.session.FollowupMessageCreate(t.interaction, true, &discordgo.WebhookParams{
			Content:    content,
			Embeds:     embeds,
			Components: components,
		}, discordgo.WithContext(ctx))
	}
	if err != nil {
		return session.MessageRef{}, fmt.Errorf("failed to send message: %w", err)
	}
	return session.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
}

func (t *discordTransport) Notify(ctx context.Context, text string) error {
	if !t.responded {
		t.responded = true
		return t.session.InteractionRespond(t.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: text,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}, discordgo.WithContext(ctx))
	}
	_, err := t.session.FollowupMessageCreate(t.interaction, false, &discordgo.WebhookParams{
		Content: text,
		Flags:   discordgo.MessageFlagsEphemeral,
	}, discordgo.WithContext(ctx))
	return err
}

func (t *discordTransport) Edit(ctx context.Context, ref session.MessageRef, view render.View) error {
	content, embeds, components := discordMessage(view)
	if components == nil {
		components = []discordgo.MessageComponent{}
	}

	edit := &discordgo.MessageEdit{
		ID:         ref.MessageID,
		Channel:    ref.ChannelID,
		Components: &components,
	}
	if view.Embed {
		edit.Embeds = &embeds
	} else {
		edit.Content = &content
	}
	_, err := t.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return err
}

func (t *discordTransport) ClearControls(ctx context.Context, ref session.MessageRef) error {
	components := []discordgo.MessageComponent{}
	_, err := t.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         ref.MessageID,
		Channel:    ref.ChannelID,
		Components: &components,
	}, discordgo.WithContext(ctx))
	return err
}

func (t *discordTransport) Mention(p workflow.Participant) string {
	return "<@" + p.ID + ">"
}

// discordMessage maps a view onto message content, embeds and one row of
// buttons.
func discordMessage(v render.View) (string, []*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	var (
		content    string
		embeds     []*discordgo.MessageEmbed
		components []discordgo.MessageComponent
	)
	if v.Embed {
		embeds = []*discordgo.MessageEmbed{{
			Title:       v.Title,
			Description: v.Body,
			Color:       v.Color,
		}}
	} else {
		content = discordText(v)
	}

	if len(v.Controls) > 0 {
		row := discordgo.ActionsRow{}
		for _, c := range v.Controls {
			row.Components = append(row.Components, discordgo.Button{
				Label:    c.Label,
				Style:    discordButtonStyle(c.Style),
				CustomID: c.ID,
				Disabled: c.Disabled,
			})
		}
		components = []discordgo.MessageComponent{row}
	}
	return content, embeds, components
}

// discordText bolds the title line of plain views.
func discordText(v render.View) string {
	if v.Title == "" {
		return v.Body
	}
	if v.Body == "" {
		return "**" + v.Title + "**"
	}
	return "**" + v.Title + "**\n" + v.Body
}

func discordButtonStyle(s render.Style) discordgo.ButtonStyle {
	switch s {
	case render.StyleSuccess:
		return discordgo.SuccessButton
	case render.StyleSecondary:
		return discordgo.SecondaryButton
	default:
		return discordgo.PrimaryButton
	}
}
