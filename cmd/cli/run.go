package main

import (
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keshon/prefixbot/internal/bot"
	"github.com/keshon/prefixbot/internal/console"
	"github.com/keshon/prefixbot/internal/discord"
	"github.com/keshon/prefixbot/pkg/cmd"
	"github.com/keshon/prefixbot/pkg/log"
)

var (
	guildID  string
	username string
)

var runCmd = &cobra.Command{
	Use:   "run [line...]",
	Short: "Dispatch lines as chat messages",
	Long: `Each argument is sent as one message; without arguments lines are read
from stdin. A line starting with ">" is not sent: it becomes the message the
next line replies to.`,
	Example: `  prefixbot-cli run '!roll 2d6' '!sum 1 2 3'
  printf '>hello there\n!quote\n' | prefixbot-cli run`,
	RunE: func(c *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt)
		defer stop()

		ctx, flushLog := setupLogger(ctx)
		defer flushLog()
		logger := *log.FromCtx(ctx)

		cfg, cleanup, err := consoleConfig()
		if err != nil {
			return err
		}
		defer cleanup()

		st, err := bot.OpenStorage(cfg.StoragePath, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		pipeline, err := bot.New(cfg, st, bot.Options{Logger: logger})
		if err != nil {
			return err
		}

		responder := console.NewResponder(c.OutOrStdout())
		d := pipeline.Dispatcher(cmd.StaticPrefix(cfg.CommandPrefixes...), responder, cmd.WithSyncEvents())
		discord.NewReporter(responder, logger).Attach(d)

		session := console.NewSession(d, guildID, cmd.User{ID: "1", Username: username}, logger)
		if len(args) == 0 {
			return session.Run(ctx, c.InOrStdin())
		}
		return session.Run(ctx, strings.NewReader(strings.Join(args, "\n")))
	},
}

func init() {
	runCmd.Flags().StringVar(&guildID, "guild", "console", "guild ID the messages come from; empty for a direct message")
	runCmd.Flags().StringVar(&username, "user", "console", "author name")
	rootCmd.AddCommand(runCmd)
}
