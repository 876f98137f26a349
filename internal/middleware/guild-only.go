package middleware

import (
	"context"

	"github.com/keshon/prefixbot/pkg/cmd"
)

// WithGuildOnly refuses to run commands outside of a guild.
func WithGuildOnly() cmd.Middleware {
	return func(next cmd.Handler) cmd.Handler {
		return func(ctx context.Context, c *cmd.Context) error {
			if c.GuildID() == "" {
				return c.Reply(ctx, "This command only works in a server.")
			}
			return next(ctx, c)
		}
	}
}
