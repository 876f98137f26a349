package config

import (
	"fmt"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read from the environment, after loading .env when present.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required,notEmpty"`

	// CommandPrefixes are tried longest first; a guild prefix set with
	// "config set prefix" replaces them for that guild.
	CommandPrefixes []string `env:"COMMAND_PREFIXES" envDefault:"!" envSeparator:","`
	MentionPrefix   bool     `env:"MENTION_PREFIX" envDefault:"true"`

	IgnoreBots            bool   `env:"IGNORE_BOTS" envDefault:"true"`
	DebugGuildID          string `env:"DEBUG_GUILD_ID"`
	CaseSensitiveCommands bool   `env:"CASE_SENSITIVE_COMMANDS" envDefault:"false"`

	StoragePath           string   `env:"STORAGE_PATH" envDefault:"datastore.json"`
	DeveloperID           string   `env:"DEVELOPER_ID"`
	DiscordGuildBlacklist []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`

	Debug bool `env:"DEBUG" envDefault:"false"`
}

// New loads .env files (missing ones are fine) and parses the environment.
func New(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)
	return Parse()
}

// Parse reads the environment without touching .env files.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.CommandPrefixes = slices.DeleteFunc(cfg.CommandPrefixes, func(p string) bool { return p == "" })
	if len(cfg.CommandPrefixes) == 0 && !cfg.MentionPrefix {
		return nil, fmt.Errorf("parse config: no command prefix and mention prefix disabled")
	}
	return &cfg, nil
}

// IsGuildBlacklisted reports whether the bot must leave guildID.
func (c *Config) IsGuildBlacklisted(guildID string) bool {
	return slices.Contains(c.DiscordGuildBlacklist, guildID)
}
