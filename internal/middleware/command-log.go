package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/prefixbot/internal/storage"
	"github.com/keshon/prefixbot/pkg/cmd"
)

// HistoryRecorder stores executed commands.
type HistoryRecorder interface {
	AppendCommandHistory(guildID string, entry storage.CommandHistory) error
}

// WithCommandLogger logs every execution and appends guild commands to the
// history.
func WithCommandLogger(history HistoryRecorder, logger zerolog.Logger) cmd.Middleware {
	return func(next cmd.Handler) cmd.Handler {
		return func(ctx context.Context, c *cmd.Context) error {
			start := time.Now()
			err := next(ctx, c)

			ev := logger.Info()
			if err != nil {
				ev = logger.Warn().Err(err)
			}
			ev.Str("command", c.Command.QualifiedName()).
				Str("guild", c.GuildID()).
				Str("user", c.Message.Author.ID).
				Dur("took", time.Since(start)).
				Msg("Command executed")

			if history != nil && c.GuildID() != "" {
				entry := storage.CommandHistory{
					ChannelID: c.Message.ChannelID,
					UserID:    c.Message.Author.ID,
					Username:  c.Message.Author.Username,
					Command:   c.Command.QualifiedName(),
					Arguments: c.RawArguments,
					Datetime:  start.UTC(),
				}
				if e := history.AppendCommandHistory(c.GuildID(), entry); e != nil {
					logger.Warn().Err(e).Str("command", entry.Command).Msg("Failed to log command")
				}
			}
			return err
		}
	}
}
