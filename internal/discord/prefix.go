package discord

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/keshon/prefixbot/pkg/cmd"
)

// PrefixStore returns a guild's custom prefix, "" when none is set.
type PrefixStore interface {
	GetPrefix(guildID string) (string, error)
}

// NewPrefixResolver matches the guild's custom prefix or else the configured
// ones, longest first. With mention set, "<@botID>" and "<@!botID>" work
// everywhere. selfID is read per message since it is only known once the
// session is ready.
func NewPrefixResolver(store PrefixStore, prefixes []string, mention bool, selfID func() string, logger zerolog.Logger) cmd.PrefixResolver {
	fallback := cmd.StaticPrefix(prefixes...)
	return func(ctx context.Context, msg *cmd.Message) int {
		var n int
		custom := ""
		if store != nil && msg.GuildID != "" {
			p, err := store.GetPrefix(msg.GuildID)
			if err != nil {
				logger.Warn().Err(err).Str("guild", msg.GuildID).Msg("Failed to read guild prefix")
			}
			custom = p
		}
		if custom != "" {
			n = cmd.StaticPrefix(custom)(ctx, msg)
		} else {
			n = fallback(ctx, msg)
		}
		if n >= 0 || !mention {
			return n
		}

		id := selfID()
		if id == "" {
			return -1
		}
		for _, m := range []string{"<@" + id + ">", "<@!" + id + ">"} {
			if strings.HasPrefix(msg.Content, m) {
				return len(m)
			}
		}
		return -1
	}
}
