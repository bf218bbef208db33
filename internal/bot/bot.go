// Package bot wires the session handler to a chat platform.
package bot

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"kiri-bot/internal/config"
	"kiri-bot/internal/handler"
)

// platform is a chat network the bot can serve.
type platform interface {
	// Start registers the commands and serves interactions until Stop.
	Start(commands []handler.Command) error
	Stop()
}

// Bot wraps the platform adapter with application dependencies.
type Bot struct {
	cfg      *config.Config
	handler  *handler.SessionHandler
	router   *Router
	platform platform
}

// Dependencies holds all the dependencies needed by the bot.
type Dependencies struct {
	Config  *config.Config
	Handler *handler.SessionHandler
}

// New creates a new Bot for the configured platform.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config == nil || deps.Handler == nil {
		return nil, errors.New("config and handler are required")
	}
	if deps.Config.Bot.Token == "" {
		return nil, errors.New("bot token is required")
	}

	b := &Bot{
		cfg:     deps.Config,
		handler: deps.Handler,
		router:  NewRouter(deps.Handler.Handle),
	}
	b.registerMiddleware()

	var err error
	switch deps.Config.Bot.Platform {
	case config.PlatformDiscord:
		b.platform, err = newDiscordPlatform(&deps.Config.Bot, b.router.Dispatch)
	case config.PlatformTelegram:
		b.platform, err = newTelegramPlatform(&deps.Config.Bot, b.router.Dispatch)
	default:
		err = fmt.Errorf("unsupported platform %q", deps.Config.Bot.Platform)
	}
	if err != nil {
		return nil, err
	}

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.router.Use(
		RecoveryMiddleware(),
		WhitelistMiddleware(b.cfg),
		LoggingMiddleware(),
	)
}

// Start serves interactions. It blocks until Stop is called.
func (b *Bot) Start() error {
	log.Info().Str("platform", b.cfg.Bot.Platform).Msg("Bot is starting...")
	return b.platform.Start(b.handler.Commands())
}

// Stop gracefully stops the bot.
func (b *Bot) Stop() {
	b.platform.Stop()
}
