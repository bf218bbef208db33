// Package bot provides middleware for the platform adapters.
package bot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"kiri-bot/internal/config"
	"kiri-bot/internal/handler"
	"kiri-bot/internal/render"
)

// WhitelistMiddleware creates a middleware that refuses interactions from
// channels outside the whitelist. The user gets a private notice so the
// interaction is still answered.
func WhitelistMiddleware(cfg *config.Config) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, t handler.Transport, in *handler.Interaction) error {
			if in == nil {
				return nil
			}

			if in.ChannelID == "" || !cfg.IsChannelAllowed(in.ChannelID) {
				log.Debug().
					Str("channel_id", in.ChannelID).
					Str("user_id", in.User.ID).
					Msg("Refusing interaction from non-whitelisted channel")
				if err := t.Notify(ctx, render.NotAllowed); err != nil {
					log.Warn().Err(err).Str("channel_id", in.ChannelID).Msg("Failed to send notice")
				}
				return nil
			}

			return next(ctx, t, in)
		}
	}
}

// LoggingMiddleware creates a middleware that logs all incoming interactions.
func LoggingMiddleware() MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, t handler.Transport, in *handler.Interaction) error {
			log.Debug().
				Str("type", in.Type.String()).
				Str("name", in.Name).
				Str("channel_id", in.ChannelID).
				Str("user_id", in.User.ID).
				Str("user", in.User.Name).
				Interface("options", in.Options).
				Msg("Received interaction")

			err := next(ctx, t, in)
			if err != nil {
				log.Error().
					Err(err).
					Str("name", in.Name).
					Str("channel_id", in.ChannelID).
					Msg("Interaction failed")
			}
			return err
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, t handler.Transport, in *handler.Interaction) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("name", in.Name).
						Msg("Recovered from panic in handler")
					_ = t.Notify(ctx, render.Failure)
					err = fmt.Errorf("panic in handler: %v", r)
				}
			}()
			return next(ctx, t, in)
		}
	}
}
