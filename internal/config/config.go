// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported chat platforms.
const (
	PlatformDiscord  = "discord"
	PlatformTelegram = "telegram"
)

// Supported journal drivers.
const (
	JournalNone     = "none"
	JournalPostgres = "postgres"
	JournalSQLite   = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Log       LogConfig       `mapstructure:"log"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Workflows WorkflowsConfig `mapstructure:"workflows"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

// BotConfig holds the chat platform credentials.
type BotConfig struct {
	Platform      string        `mapstructure:"platform"`
	Token         string        `mapstructure:"token"`
	ApplicationID string        `mapstructure:"application_id"`
	GuildID       string        `mapstructure:"guild_id"`     // Discord: register commands to one guild only
	PollTimeout   time.Duration `mapstructure:"poll_timeout"` // Telegram long polling
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// WhitelistConfig holds the channel whitelist.
type WhitelistConfig struct {
	Channels []string `mapstructure:"channels"`
}

// WorkflowsConfig holds defaults and limits for the session workflows.
type WorkflowsConfig struct {
	Party       PartyConfig   `mapstructure:"party"`
	Teams       TeamsConfig   `mapstructure:"teams"`
	Roll        RollConfig    `mapstructure:"roll"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"` // wait for a busy channel before answering "busy"
}

// PartyConfig holds party configuration.
type PartyConfig struct {
	DefaultSize int `mapstructure:"default_size"`
	MaxSize     int `mapstructure:"max_size"`
}

// TeamsConfig holds team shuffle configuration.
type TeamsConfig struct {
	DefaultCount int `mapstructure:"default_count"`
	MaxCount     int `mapstructure:"max_count"`
}

// RollConfig holds dice roll configuration.
type RollConfig struct {
	DefaultRange int `mapstructure:"default_range"`
	MaxRange     int `mapstructure:"max_range"`
}

// JournalConfig selects where session events are recorded.
type JournalConfig struct {
	Driver     string        `mapstructure:"driver"`
	SQLitePath string        `mapstructure:"sqlite_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, BOT_PLATFORM, JOURNAL_DRIVER.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by earlier deployments of the bot.
	_ = v.BindEnv("bot.token", "BOT_TOKEN", "DISCORD_TOKEN")
	_ = v.BindEnv("bot.application_id", "BOT_APPLICATION_ID", "CLIENT_ID")

	// Config file is optional - env vars can provide all config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Bot.Platform = strings.ToLower(strings.TrimSpace(cfg.Bot.Platform))
	cfg.Journal.Driver = strings.ToLower(strings.TrimSpace(cfg.Journal.Driver))

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.platform", PlatformDiscord)
	v.SetDefault("bot.poll_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("workflows.party.default_size", 5)
	v.SetDefault("workflows.party.max_size", 25)
	v.SetDefault("workflows.teams.default_count", 2)
	v.SetDefault("workflows.teams.max_count", 10)
	v.SetDefault("workflows.roll.default_range", 100)
	v.SetDefault("workflows.roll.max_range", 1000000)
	v.SetDefault("workflows.lock_timeout", "5s")

	v.SetDefault("journal.driver", JournalNone)
	v.SetDefault("journal.sqlite_path", "data/kiri.db")
	v.SetDefault("journal.timeout", "3s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "kiri")
	v.SetDefault("database.name", "kiri")
	v.SetDefault("database.pool_size", 4)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
}

// Validate checks that the credentials required by the selected platform
// and journal are present.
func (c *Config) Validate() error {
	var errs []error

	switch c.Bot.Platform {
	case PlatformDiscord:
		if c.Bot.Token == "" {
			errs = append(errs, errors.New("bot token is required"))
		}
		if c.Bot.ApplicationID == "" {
			errs = append(errs, errors.New("bot application id is required for discord"))
		}
	case PlatformTelegram:
		if c.Bot.Token == "" {
			errs = append(errs, errors.New("bot token is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported platform %q", c.Bot.Platform))
	}

	if c.Workflows.LockTimeout < 0 {
		errs = append(errs, errors.New("workflows lock_timeout must not be negative"))
	}

	switch c.Journal.Driver {
	case JournalNone, "":
	case JournalSQLite:
		if c.Journal.SQLitePath == "" {
			errs = append(errs, errors.New("journal sqlite_path is required"))
		}
	case JournalPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			errs = append(errs, errors.New("database host and name are required for the postgres journal"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported journal driver %q", c.Journal.Driver))
	}

	return errors.Join(errs...)
}

// IsChannelAllowed checks if a channel ID is in the whitelist.
func (c *Config) IsChannelAllowed(channelID string) bool {
	// Empty whitelist means all channels are allowed
	if len(c.Whitelist.Channels) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Channels {
		if id == channelID {
			return true
		}
	}
	return false
}
