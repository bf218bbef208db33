// Package main is the entry point for the group coordination bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kiri-bot/internal/bot"
	"kiri-bot/internal/config"
	"kiri-bot/internal/handler"
	"kiri-bot/internal/pkg/db"
	"kiri-bot/internal/pkg/lock"
	"kiri-bot/internal/repository"
	"kiri-bot/internal/service"
	"kiri-bot/internal/session"
	"kiri-bot/internal/workflow"
	"kiri-bot/internal/workflow/party"
	"kiri-bot/internal/workflow/roll"
	"kiri-bot/internal/workflow/teams"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	configureLogger(&cfg.Log)

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Journal
	recorder, closeJournal, err := openJournal(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open session journal")
	}
	defer closeJournal()
	history := service.NewHistoryService(recorder, cfg.Journal.Timeout)
	if len(cfg.Whitelist.Channels) > 0 {
		history.LogRecentActivity(ctx, cfg.Whitelist.Channels)
	}

	// Workflows
	registry := workflow.NewRegistry()
	groupRoll := roll.New(&roll.Config{
		DefaultRange: cfg.Workflows.Roll.DefaultRange,
		MaxRange:     cfg.Workflows.Roll.MaxRange,
	})
	for _, wf := range []workflow.Workflow{
		party.New(&party.Config{
			DefaultSize: cfg.Workflows.Party.DefaultSize,
			MaxSize:     cfg.Workflows.Party.MaxSize,
		}),
		teams.New(&teams.Config{
			DefaultCount: cfg.Workflows.Teams.DefaultCount,
			MaxCount:     cfg.Workflows.Teams.MaxCount,
		}),
		groupRoll,
	} {
		if err := registry.Register(wf); err != nil {
			log.Fatal().Err(err).Str("kind", string(wf.Kind())).Msg("Failed to register workflow")
		}
	}

	log.Info().
		Int("workflow_count", registry.Count()).
		Strs("commands", registry.Commands()).
		Bool("journal", history.Enabled()).
		Msg("Workflows registered")

	manager := session.NewManager(session.NewStore(), registry)
	sessionHandler := handler.NewSessionHandler(manager, registry, lock.NewChannelLock(), cfg.Workflows.LockTimeout, history, groupRoll.Option())

	chatBot, err := bot.New(&bot.Dependencies{
		Config:  cfg,
		Handler: sessionHandler,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := chatBot.Start(); err != nil {
			log.Fatal().Err(err).Msg("Bot stopped with error")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	chatBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// configureLogger applies the level and output format from config.
func configureLogger(cfg *config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// openJournal opens the configured journal backend. A disabled journal
// returns a nil recorder.
func openJournal(ctx context.Context, cfg *config.Config) (service.EventJournal, func(), error) {
	switch cfg.Journal.Driver {
	case config.JournalPostgres:
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewEventRepository(pool.Pool), pool.Close, nil

	case config.JournalSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.Journal.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLiteEventRepository(conn), func() { _ = conn.Close() }, nil

	default:
		return nil, func() {}, nil
	}
}
