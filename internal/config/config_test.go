package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/prefixbot/internal/config"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := config.Parse()
	require.NoError(t, err)
	assert.Equal(t, "token", cfg.DiscordToken)
	assert.Equal(t, []string{"!"}, cfg.CommandPrefixes)
	assert.True(t, cfg.MentionPrefix)
	assert.True(t, cfg.IgnoreBots)
	assert.False(t, cfg.CaseSensitiveCommands)
	assert.Equal(t, "datastore.json", cfg.StoragePath)
}

func TestParseLists(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("COMMAND_PREFIXES", "!,,?,>>")
	t.Setenv("DISCORD_GUILD_BLACKLIST", "1,2")

	cfg, err := config.Parse()
	require.NoError(t, err)
	assert.Equal(t, []string{"!", "?", ">>"}, cfg.CommandPrefixes)
	assert.True(t, cfg.IsGuildBlacklisted("2"))
	assert.False(t, cfg.IsGuildBlacklisted("3"))
}

func TestParseRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	_, err := config.Parse()
	assert.Error(t, err)
}

func TestParseRequiresSomePrefix(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("COMMAND_PREFIXES", ",")
	t.Setenv("MENTION_PREFIX", "false")
	_, err := config.Parse()
	assert.Error(t, err)
}

func TestNewLoadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DISCORD_TOKEN=from-file\nDEBUG=true\n"), 0o600))
	t.Setenv("DISCORD_TOKEN", "")
	os.Unsetenv("DISCORD_TOKEN")
	t.Setenv("DEBUG", "")
	os.Unsetenv("DEBUG")

	cfg, err := config.New(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.DiscordToken)
	assert.True(t, cfg.Debug)
}

func TestCategoryWeight(t *testing.T) {
	assert.Less(t, config.CategoryWeight("🕯️ Information"), config.CategoryWeight("⚙️ Settings"))
	assert.Equal(t, 1000, config.CategoryWeight("unknown"))
}
