package middleware

import (
	"context"

	"github.com/keshon/prefixbot/pkg/cmd"
)

// GroupChecker reports whether a command group is switched off in a guild.
type GroupChecker interface {
	IsGroupDisabled(guildID, group string) (bool, error)
}

// WithGroupAccessCheck stops commands whose group the guild disabled. A
// subcommand without a group of its own inherits the nearest parent's.
func WithGroupAccessCheck(groups GroupChecker) cmd.Middleware {
	return func(next cmd.Handler) cmd.Handler {
		return func(ctx context.Context, c *cmd.Context) error {
			group := GroupOf(c.Command)
			if group == "" || c.GuildID() == "" {
				return next(ctx, c)
			}
			disabled, err := groups.IsGroupDisabled(c.GuildID(), group)
			if err != nil {
				return next(ctx, c)
			}
			if disabled {
				return c.Reply(ctx, "This command is disabled on this server.\nUse `"+c.Prefix+"groups` to check which groups are disabled.")
			}
			return next(ctx, c)
		}
	}
}

// GroupOf returns the group of c or of its closest ancestor that has one.
func GroupOf(c *cmd.Command) string {
	for ; c != nil; c = c.Parent() {
		if c.Group != "" {
			return c.Group
		}
	}
	return ""
}
