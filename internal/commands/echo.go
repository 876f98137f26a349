package commands

import (
	"context"
	"strings"

	"github.com/keshon/prefixbot/pkg/cmd"
)

func echoCommand() *cmd.Command {
	return &cmd.Command{
		Name:        "echo",
		Aliases:     []string{"say"},
		Description: "Repeat the text back",
		Group:       GroupUtility.String(),
		Category:    categoryUtility,
		Parameters: []*cmd.Parameter{
			cmd.Param[string]("text", cmd.Remaining()),
		},
		Handler: func(ctx context.Context, c *cmd.Context) error {
			return c.Reply(ctx, cmd.MustArg[string](c, "text"))
		},
		Subcommands: []*cmd.Command{
			{
				Name:        "loud",
				Aliases:     []string{"LOUD"},
				Description: "Repeat the text back in capitals",
				Parameters: []*cmd.Parameter{
					cmd.Param[string]("text", cmd.Remaining()),
				},
				Handler: func(ctx context.Context, c *cmd.Context) error {
					return c.Reply(ctx, strings.ToUpper(cmd.MustArg[string](c, "text")))
				},
			},
		},
	}
}

func quoteCommand() *cmd.Command {
	return &cmd.Command{
		Name:        "quote",
		Description: "Quote the message you reply to, or the given text",
		Group:       GroupUtility.String(),
		Category:    categoryUtility,
		Parameters: []*cmd.Parameter{
			cmd.Param[string]("text", cmd.FromReply(), cmd.Remaining()),
		},
		Handler: quote,
	}
}

func quote(ctx context.Context, c *cmd.Context) error {
	text := strings.TrimSpace(cmd.MustArg[string](c, "text"))
	author := c.Message.Author.Username
	if c.Message.Reply != nil {
		author = c.Message.Reply.Author.Username
	}

	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		b.WriteString("> " + line + "\n")
	}
	if author != "" {
		b.WriteString("— " + author)
	}
	return c.Reply(ctx, strings.TrimRight(b.String(), "\n"))
}
