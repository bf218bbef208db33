package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"kiri-bot/internal/config"
	"kiri-bot/internal/handler"
	"kiri-bot/internal/render"
	"kiri-bot/internal/session"
	"kiri-bot/internal/workflow"
)

func TestDiscordInteraction_Command(t *testing.T) {
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: "chan",
		Member: &discordgo.Member{
			Nick: "Nick",
			User: &discordgo.User{ID: "42", Username: "user", GlobalName: "Global"},
		},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "party",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "max_players", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(3)},
			},
		},
	}}

	in := discordInteraction(i)
	require.NotNil(t, in)
	assert.Equal(t, handler.InteractionCommand, in.Type)
	assert.Equal(t, "party", in.Name)
	assert.Equal(t, "chan", in.ChannelID)
	assert.Equal(t, workflow.Participant{ID: "42", Name: "Nick"}, in.User)
	assert.Equal(t, map[string]int{"max_players": 3}, in.Options)
}

func TestDiscordInteraction_Button(t *testing.T) {
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionMessageComponent,
		ChannelID: "chan",
		User:      &discordgo.User{ID: "7", Username: "dm-user"},
		Message:   &discordgo.Message{ID: "m1", ChannelID: "chan"},
		Data:      discordgo.MessageComponentInteractionData{CustomID: "join_party:3"},
	}}

	in := discordInteraction(i)
	require.NotNil(t, in)
	assert.Equal(t, handler.InteractionButton, in.Type)
	assert.Equal(t, "join_party:3", in.Name)
	assert.Equal(t, session.MessageRef{ChannelID: "chan", MessageID: "m1"}, in.Message)
	assert.Equal(t, "dm-user", in.User.Name)
}

func TestDiscordInteraction_Unsupported(t *testing.T) {
	assert.Nil(t, discordInteraction(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionPing,
	}}))
}

func TestDiscordUser_NameFallback(t *testing.T) {
	tests := []struct {
		name string
		in   *discordgo.Interaction
		want string
	}{
		{"nick", &discordgo.Interaction{Member: &discordgo.Member{Nick: "N", User: &discordgo.User{ID: "1", GlobalName: "G", Username: "U"}}}, "N"},
		{"global", &discordgo.Interaction{Member: &discordgo.Member{User: &discordgo.User{ID: "1", GlobalName: "G", Username: "U"}}}, "G"},
		{"username", &discordgo.Interaction{User: &discordgo.User{ID: "1", Username: "U"}}, "U"},
		{"nobody", &discordgo.Interaction{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, discordUser(tt.in).Name)
		})
	}
}

func TestDiscordCommands(t *testing.T) {
	cmds := discordCommands([]handler.Command{
		{Name: "party", Description: "d", Option: workflow.Option{Name: "max_players", Description: "o", Default: 5, Max: 25}},
		{Name: "roll", Description: "d", Option: workflow.Option{Name: "roll_range", Description: "o", Default: 100}},
	})

	require.Len(t, cmds, 2)
	require.Len(t, cmds[0].Options, 1)
	opt := cmds[0].Options[0]
	assert.Equal(t, discordgo.ApplicationCommandOptionInteger, opt.Type)
	assert.False(t, opt.Required)
	require.NotNil(t, opt.MinValue)
	assert.Equal(t, 1.0, *opt.MinValue)
	assert.Equal(t, 25.0, opt.MaxValue)
	assert.Zero(t, cmds[1].Options[0].MaxValue)
}

func TestDiscordMessage(t *testing.T) {
	content, embeds, components := discordMessage(render.View{
		Title: "T",
		Body:  "B",
		Color: render.ColorParty,
		Embed: true,
		Controls: []render.Control{
			{ID: "join_party:1", Label: "Join", Style: render.StyleSuccess},
			{ID: "x:1", Label: "Full", Style: render.StyleSecondary, Disabled: true},
		},
	})
	assert.Empty(t, content)
	require.Len(t, embeds, 1)
	assert.Equal(t, "T", embeds[0].Title)
	assert.Equal(t, "B", embeds[0].Description)
	assert.Equal(t, render.ColorParty, embeds[0].Color)
	require.Len(t, components, 1)
	row, ok := components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, row.Components, 2)
	btn := row.Components[1].(discordgo.Button)
	assert.Equal(t, discordgo.SecondaryButton, btn.Style)
	assert.True(t, btn.Disabled)

	content, embeds, components = discordMessage(render.View{Title: "Dice Roll Results:", Body: "x"})
	assert.Equal(t, "**Dice Roll Results:**\nx", content)
	assert.Nil(t, embeds)
	assert.Nil(t, components)
}

func TestTelegramUser(t *testing.T) {
	assert.Equal(t, workflow.Participant{ID: "5", Name: "Ann Lee"}, telegramUser(&tele.User{ID: 5, FirstName: "Ann", LastName: "Lee"}))
	assert.Equal(t, "ann", telegramUser(&tele.User{ID: 5, Username: "ann"}).Name)
}

func TestTelegramOptions(t *testing.T) {
	assert.Nil(t, telegramOptions(nil))

	opts := telegramOptions([]render.Control{{ID: "join_teams:4", Label: "Join"}, {ID: "create_teams:4", Label: "Go"}})
	require.Len(t, opts, 1)
	markup, ok := opts[0].(*tele.ReplyMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, "join_teams:4", markup.InlineKeyboard[0][0].Data)
}

func TestStoredMessage(t *testing.T) {
	msg, err := storedMessage(session.MessageRef{ChannelID: "-100123", MessageID: "77"})
	require.NoError(t, err)
	assert.Equal(t, int64(-100123), msg.ChatID)
	assert.Equal(t, "77", msg.MessageID)

	_, err = storedMessage(session.MessageRef{ChannelID: "abc"})
	assert.Error(t, err)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(&Dependencies{})
	assert.Error(t, err)

	_, err = New(&Dependencies{
		Config:  &config.Config{Bot: config.BotConfig{Platform: "irc", Token: "t"}},
		Handler: &handler.SessionHandler{},
	})
	assert.Error(t, err)
}
